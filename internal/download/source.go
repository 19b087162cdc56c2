package download

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// ErrInvalidSource is returned by ParseSource for unusable locators.
var ErrInvalidSource = errors.New("invalid source")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var mediaExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
}

// Source is a parsed media locator: an http(s) URL, a video page URL, or a
// bare video id.
type Source struct {
	Raw     string
	URL     *url.URL
	VideoID string
}

// ParseSource validates raw and classifies it.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, fmt.Errorf("%w: empty", ErrInvalidSource)
	}

	if videoIDPattern.MatchString(raw) {
		return Source{Raw: raw, VideoID: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Source{}, fmt.Errorf("%w: must be an http(s) URL or a video id", ErrInvalidSource)
	}
	if u.Host == "" {
		return Source{}, fmt.Errorf("%w: missing host", ErrInvalidSource)
	}

	src := Source{Raw: raw, URL: u}
	if isYouTubeHost(u.Hostname()) {
		if id, err := youtube.ExtractVideoID(raw); err == nil && videoIDPattern.MatchString(id) {
			src.VideoID = id
		}
	}
	return src, nil
}

func isYouTubeHost(host string) bool {
	host = strings.ToLower(host)
	return host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com") ||
		host == "youtube-nocookie.com" || strings.HasSuffix(host, ".youtube-nocookie.com")
}

// String returns the locator as submitted.
func (s Source) String() string { return s.Raw }

// IsHTTP reports whether the source is an http(s) URL.
func (s Source) IsHTTP() bool { return s.URL != nil }

// IsMediaURL reports whether the source points straight at a media file.
func (s Source) IsMediaURL() bool {
	if s.URL == nil {
		return false
	}
	return mediaExtensions[strings.ToLower(path.Ext(s.URL.Path))]
}

// PageURL returns the URL to open in a browser or hand to yt-dlp.
func (s Source) PageURL() string {
	if s.URL != nil {
		return s.URL.String()
	}
	if s.VideoID != "" {
		return "https://www.youtube.com/watch?v=" + s.VideoID
	}
	return s.Raw
}
