package download

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxPageSize bounds how much HTML is parsed.
const maxPageSize = 5 << 20

// PageLocator fetches a page and reads stream URLs from Open Graph tags and
// video elements.
type PageLocator struct {
	Fetcher *Fetcher
}

var ogProperties = []string{
	"og:video:secure_url",
	"og:video:url",
	"og:video",
}

// Locate implements Locator.
func (p *PageLocator) Locate(ctx context.Context, pageURL string) (string, error) {
	resp, err := p.Fetcher.Get(ctx, pageURL, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", pageURL, err)
	}

	base := resp.Request.URL
	for _, c := range candidates(doc) {
		if u := resolve(base, c); u != "" {
			return u, nil
		}
	}
	return "", fmt.Errorf("%w on %s", ErrNoStream, pageURL)
}

func candidates(doc *goquery.Document) []string {
	var out []string
	for _, prop := range ogProperties {
		doc.Find(fmt.Sprintf(`meta[property=%q]`, prop)).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("content"); ok {
				out = append(out, v)
			}
		})
	}
	doc.Find("video").Each(func(_ int, v *goquery.Selection) {
		if src, ok := v.Attr("src"); ok {
			out = append(out, src)
		}
		v.Find("source").Each(func(_ int, s *goquery.Selection) {
			if src, ok := s.Attr("src"); ok {
				out = append(out, src)
			}
		})
	})
	doc.Find(`source[type^="video/"]`).Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			out = append(out, src)
		}
	})
	return out
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "blob:") || strings.HasPrefix(ref, "data:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// NewScrape returns the page-scrape strategy.
func NewScrape(fetcher *Fetcher) *LocatorStrategy {
	return NewLocatorStrategy("scrape", &PageLocator{Fetcher: fetcher}, fetcher)
}
