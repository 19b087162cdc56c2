package download

import (
	"context"
	"net/http"
)

// Locator finds a direct media stream URL on a web page.
type Locator interface {
	Locate(ctx context.Context, pageURL string) (string, error)
}

// LocatorStrategy resolves a page to a stream URL with a Locator and then
// downloads the stream.
type LocatorStrategy struct {
	name    string
	locator Locator
	fetcher *Fetcher
	// unavailable is reported as the prerequisite failure for every
	// source when set.
	unavailable string
}

// NewLocatorStrategy creates a named locator strategy.
func NewLocatorStrategy(name string, locator Locator, fetcher *Fetcher) *LocatorStrategy {
	return &LocatorStrategy{name: name, locator: locator, fetcher: fetcher}
}

// Name implements Strategy.
func (s *LocatorStrategy) Name() string { return s.name }

// Prerequisite implements Strategy.
func (s *LocatorStrategy) Prerequisite(src Source) string {
	if s.unavailable != "" {
		return s.unavailable
	}
	if !src.IsHTTP() {
		return "source is not a page URL"
	}
	return ""
}

// Fetch implements Strategy.
func (s *LocatorStrategy) Fetch(ctx context.Context, src Source, dest string, _ Lease) error {
	page := src.PageURL()
	streamURL, err := s.locator.Locate(ctx, page)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Referer", page)
	_, err = s.fetcher.ToFile(ctx, streamURL, dest, header)
	return err
}
