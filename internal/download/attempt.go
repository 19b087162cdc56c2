package download

import (
	"fmt"
	"strings"
	"time"
)

// Attempt outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeRetryable = "retryable"
	OutcomeAuth      = "auth"
	OutcomeFatal     = "fatal"
	OutcomeSkipped   = "skipped"
)

// Attempt records one strategy invocation (including its retries).
type Attempt struct {
	Strategy     string        `json:"strategy"`
	CredentialID string        `json:"credentialId,omitempty"`
	Outcome      string        `json:"outcome"`
	Error        string        `json:"error,omitempty"`
	Tries        int           `json:"tries,omitempty"`
	Duration     time.Duration `json:"durationNs"`
}

func outcomeFor(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	switch Classify(err) {
	case KindAuth:
		return OutcomeAuth
	case KindFatal:
		return OutcomeFatal
	default:
		return OutcomeRetryable
	}
}

// FatalError is returned when every strategy failed or was skipped.
type FatalError struct {
	Source   string
	Attempts []Attempt
}

func (e *FatalError) Error() string {
	var parts []string
	for _, a := range e.Attempts {
		label := a.Strategy
		if a.CredentialID != "" {
			label += "[" + a.CredentialID + "]"
		}
		if a.Outcome == OutcomeSkipped {
			parts = append(parts, fmt.Sprintf("%s: skipped (%s)", label, a.Error))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label, a.Error))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("could not download %s: no strategies configured", e.Source)
	}
	return fmt.Sprintf("could not download %s: %s", e.Source, strings.Join(parts, "; "))
}
