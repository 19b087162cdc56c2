package download

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// Kind is the failure class of a download attempt.
type Kind int

const (
	// KindRetryable failures may succeed if the same attempt is repeated.
	KindRetryable Kind = iota
	// KindAuth failures mean the credential or identity was rejected.
	KindAuth
	// KindFatal failures will not succeed with this strategy.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindRetryable:
		return "retryable"
	case KindAuth:
		return "auth"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrEmptyOutput means a strategy reported success but left no data.
	ErrEmptyOutput = errors.New("download produced no data")
	// ErrNoStream means no media stream could be located for the source.
	ErrNoStream = errors.New("no media stream found")
)

// HTTPStatusError is returned for unexpected HTTP status codes.
type HTTPStatusError struct {
	URL  string
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d from %s", e.Code, e.URL)
}

var (
	authPhrases = []string{
		"sign in to confirm",
		"not a bot",
		"login required",
		"cookie",
		"certificate",
		"http error 401",
		"http error 403",
		"http error 407",
		"unauthorized",
		"forbidden",
		"user restricted access",
	}
	fatalPhrases = []string{
		"video unavailable",
		"private video",
		"unsupported url",
		"no video formats",
		"requested format is not available",
		"has been removed",
		"http error 404",
		"404 not found",
		"is not a valid url",
	}
)

// Classify maps an attempt error to a Kind. Structured signals are checked
// first. Message heuristics apply only to errors that carry none, such as a
// failed yt-dlp invocation. Unknown failures are retryable.
func Classify(err error) Kind {
	if err == nil {
		return KindRetryable
	}

	switch {
	case errors.Is(err, context.Canceled):
		return KindFatal
	case errors.Is(err, ErrNoStream), errors.Is(err, ErrInvalidSource):
		return KindFatal
	case errors.Is(err, youtube.ErrVideoPrivate):
		return KindFatal
	case errors.Is(err, youtube.ErrLoginRequired):
		return KindAuth
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrEmptyOutput):
		return KindRetryable
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.Code)
	}

	var ytStatus youtube.ErrUnexpectedStatusCode
	if errors.As(err, &ytStatus) {
		return classifyStatus(int(ytStatus))
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindRetryable
	}

	return classifyText(err.Error())
}

func classifyStatus(code int) Kind {
	switch {
	case code == 401 || code == 403 || code == 407:
		return KindAuth
	case code == 408 || code == 425 || code == 429 || code >= 500:
		return KindRetryable
	default:
		return KindFatal
	}
}

func classifyText(msg string) Kind {
	msg = strings.ToLower(msg)
	for _, p := range authPhrases {
		if strings.Contains(msg, p) {
			return KindAuth
		}
	}
	for _, p := range fatalPhrases {
		if strings.Contains(msg, p) {
			return KindFatal
		}
	}
	return KindRetryable
}
