package download

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"clip-stacker/internal/logging"
)

// chromeCandidates are looked up on PATH when no browser path is configured.
var chromeCandidates = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"headless-shell",
}

// FindChrome returns configured if set, otherwise the first browser found on
// PATH, or "".
func FindChrome(configured string) string {
	if configured != "" {
		if p, err := exec.LookPath(configured); err == nil {
			return p
		}
		return ""
	}
	for _, name := range chromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

// BrowserLocator loads a page in headless Chrome and watches network traffic
// for media responses. It catches players that build stream URLs in script.
type BrowserLocator struct {
	ExecPath  string
	UserAgent string
	// Settle is how long to let the page run scripts after load.
	Settle time.Duration
}

// Locate implements Locator.
func (b *BrowserLocator) Locate(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(b.ExecPath),
		chromedp.NoSandbox,
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
	)
	if b.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx, chromedp.WithLogf(logging.Debug))
	defer cancelTask()

	var (
		mu    sync.Mutex
		found []string
	)
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Response == nil {
			return
		}
		if isMediaType(e.Response.MimeType, e.Response.URL) {
			mu.Lock()
			found = append(found, e.Response.URL)
			mu.Unlock()
		}
	})

	settle := b.Settle
	if settle <= 0 {
		settle = 5 * time.Second
	}

	var elementSrc string
	err := chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(settle),
		chromedp.Evaluate(`(() => {
			const v = document.querySelector('video');
			return v ? (v.currentSrc || v.src || '') : '';
		})()`, &elementSrc),
	)
	if err != nil {
		return "", fmt.Errorf("headless browser: %w", err)
	}

	mu.Lock()
	candidates := append([]string(nil), found...)
	mu.Unlock()

	for _, u := range candidates {
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			return u, nil
		}
	}
	if strings.HasPrefix(elementSrc, "http://") || strings.HasPrefix(elementSrc, "https://") {
		return elementSrc, nil
	}
	return "", fmt.Errorf("%w on %s", ErrNoStream, pageURL)
}

// NewHeadless returns the headless strategy. Without a browser it is
// skipped for every source.
func NewHeadless(chromePath string, fetcher *Fetcher) *LocatorStrategy {
	s := NewLocatorStrategy("headless", &BrowserLocator{ExecPath: chromePath, UserAgent: fetcher.UserAgent}, fetcher)
	if chromePath == "" {
		s.unavailable = "no Chrome executable found"
	}
	return s
}
