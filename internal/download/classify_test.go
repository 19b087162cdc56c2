package download

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kkdai/youtube/v2"

	"clip-stacker/internal/transcoder"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	ytdlpErr := func(stderr string) error {
		return fmt.Errorf("yt-dlp: %w", &transcoder.ExitError{Name: "yt-dlp", Code: 1, Stderr: stderr})
	}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "deadline", err: fmt.Errorf("yt-dlp timed out: %w", context.DeadlineExceeded), want: KindRetryable},
		{name: "cancelled", err: context.Canceled, want: KindFatal},
		{name: "empty output", err: fmt.Errorf("direct: %w", ErrEmptyOutput), want: KindRetryable},
		{name: "no stream", err: fmt.Errorf("%w on page", ErrNoStream), want: KindFatal},
		{name: "http 403", err: &HTTPStatusError{Code: 403}, want: KindAuth},
		{name: "http 401", err: &HTTPStatusError{Code: 401}, want: KindAuth},
		{name: "http 429", err: &HTTPStatusError{Code: 429}, want: KindRetryable},
		{name: "http 503", err: &HTTPStatusError{Code: 503}, want: KindRetryable},
		{name: "http 404", err: &HTTPStatusError{Code: 404}, want: KindFatal},
		{name: "youtube status", err: fmt.Errorf("video info: %w", youtube.ErrUnexpectedStatusCode(403)), want: KindAuth},
		{name: "youtube private", err: youtube.ErrVideoPrivate, want: KindFatal},
		{name: "youtube login", err: youtube.ErrLoginRequired, want: KindAuth},
		{name: "net timeout", err: timeoutErr{}, want: KindRetryable},
		{name: "ytdlp forbidden", err: ytdlpErr("ERROR: unable to download video data: HTTP Error 403: Forbidden"), want: KindAuth},
		{name: "ytdlp bot check", err: ytdlpErr("ERROR: [youtube] abc: Sign in to confirm you're not a bot"), want: KindAuth},
		{name: "ytdlp cookies", err: ytdlpErr("ERROR: invalid cookie file"), want: KindAuth},
		{name: "ytdlp unavailable", err: ytdlpErr("ERROR: [youtube] abc: Video unavailable"), want: KindFatal},
		{name: "ytdlp private", err: ytdlpErr("ERROR: [youtube] abc: Private video"), want: KindFatal},
		{name: "ytdlp unsupported", err: ytdlpErr("ERROR: Unsupported URL: https://example.com"), want: KindFatal},
		{name: "ytdlp 404", err: ytdlpErr("ERROR: HTTP Error 404: Not Found"), want: KindFatal},
		{name: "service unavailable is transient", err: ytdlpErr("ERROR: HTTP Error 503: Service Unavailable"), want: KindRetryable},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), want: KindRetryable},
		{name: "unknown", err: errors.New("something odd"), want: KindRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if KindAuth.String() != "auth" || KindFatal.String() != "fatal" || KindRetryable.String() != "retryable" {
		t.Error("unexpected Kind strings")
	}
}

func TestFatalErrorMessage(t *testing.T) {
	err := &FatalError{
		Source: "https://example.com/v",
		Attempts: []Attempt{
			{Strategy: "direct", Outcome: OutcomeSkipped, Error: "not a video id or direct media URL"},
			{Strategy: "scrape", Outcome: OutcomeFatal, Error: "no media stream found"},
			{Strategy: "credential", CredentialID: "abcd", Outcome: OutcomeAuth, Error: "HTTP Error 403"},
		},
	}
	msg := err.Error()
	for _, want := range []string{"https://example.com/v", "direct: skipped", "scrape: no media stream found", "credential[abcd]: HTTP Error 403"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
