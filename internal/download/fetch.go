package download

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultUserAgent is sent on every outbound request.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0 Safari/537.36"

// Fetcher performs plain HTTP downloads.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewFetcher returns a Fetcher whose client only bounds connection setup;
// overall duration is bounded by the caller's context.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   15 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConnsPerHost:   4,
			},
		},
		UserAgent: DefaultUserAgent,
	}
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

// Get issues a GET request and returns the response if the status is 2xx.
// Other statuses are returned as *HTTPStatusError.
func (f *Fetcher) Get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" && f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &HTTPStatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return resp, nil
}

// ToFile downloads rawURL into dest. Responses that are HTML pages rather
// than media fail with ErrNoStream.
func (f *Fetcher) ToFile(ctx context.Context, rawURL, dest string, header http.Header) (int64, error) {
	resp, err := f.Get(ctx, rawURL, header)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if isHTML(resp.Header.Get("Content-Type")) {
		return 0, fmt.Errorf("%w: %s returned an HTML page", ErrNoStream, rawURL)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return n, fmt.Errorf("download interrupted after %d bytes: %w", n, copyErr)
	}
	if closeErr != nil {
		return n, closeErr
	}
	return n, nil
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "text/html")
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// isMediaType reports whether a MIME type or URL looks like a playable
// media stream.
func isMediaType(mimeType, rawURL string) bool {
	mt := strings.ToLower(mimeType)
	if strings.HasPrefix(mt, "video/") {
		return true
	}
	if strings.HasPrefix(rawURL, "blob:") || strings.HasPrefix(rawURL, "data:") {
		return false
	}
	if src, err := ParseSource(rawURL); err == nil && src.IsMediaURL() {
		return true
	}
	return false
}
