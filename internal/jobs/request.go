package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"clip-stacker/internal/compose"
)

// Seconds is a time offset accepted as a JSON number or a numeric string.
// Malformed values decode without error and are reported by Validate.
type Seconds struct {
	Value   float64
	Present bool
	Invalid bool
}

// Secs returns a present Seconds value.
func Secs(v float64) Seconds { return Seconds{Value: v, Present: true} }

func (s *Seconds) UnmarshalJSON(b []byte) error {
	*s = Seconds{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s.Present = true

	raw := string(b)
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			s.Invalid = true
			return nil
		}
		raw = strings.TrimSpace(str)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		s.Invalid = true
		return nil
	}
	s.Value = v
	return nil
}

func (s Seconds) MarshalJSON() ([]byte, error) {
	if !s.Present || s.Invalid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(s.Value, 'f', -1, 64)), nil
}

// Request is a job submission.
type Request struct {
	MainSource             string  `json:"mainSource"`
	BackgroundSource       string  `json:"backgroundSource"`
	StartSeconds           Seconds `json:"startSeconds"`
	EndSeconds             Seconds `json:"endSeconds"`
	Mode                   string  `json:"mode,omitempty"`
	BackgroundStartSeconds Seconds `json:"backgroundStartSeconds"`
}

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// normalized is a validated request.
type normalized struct {
	main, background string
	window           compose.Window
	backgroundStart  float64
	mode             compose.Mode
}

// Validate checks r. maxClip bounds the window length when positive.
func (r Request) Validate(maxClip float64) error {
	_, err := r.normalize(maxClip)
	return err
}

func (r Request) normalize(maxClip float64) (normalized, error) {
	var s normalized

	s.main = strings.TrimSpace(r.MainSource)
	if s.main == "" {
		return s, invalid("mainSource", "is required")
	}
	s.background = strings.TrimSpace(r.BackgroundSource)
	if s.background == "" {
		return s, invalid("backgroundSource", "is required")
	}

	if err := checkSeconds("startSeconds", r.StartSeconds, true); err != nil {
		return s, err
	}
	if err := checkSeconds("endSeconds", r.EndSeconds, true); err != nil {
		return s, err
	}
	start, end := r.StartSeconds.Value, r.EndSeconds.Value
	if start < 0 {
		return s, invalid("startSeconds", "must not be negative")
	}
	if start >= end {
		return s, invalid("startSeconds", "must be less than endSeconds")
	}
	if maxClip > 0 && end-start > maxClip {
		return s, invalid("endSeconds", "clip length %gs exceeds the %gs limit", end-start, maxClip)
	}
	s.window = compose.Window{Start: start, End: end}

	if err := checkSeconds("backgroundStartSeconds", r.BackgroundStartSeconds, false); err != nil {
		return s, err
	}
	if r.BackgroundStartSeconds.Value < 0 {
		return s, invalid("backgroundStartSeconds", "must not be negative")
	}
	s.backgroundStart = r.BackgroundStartSeconds.Value

	mode, err := compose.ParseMode(r.Mode)
	if err != nil {
		return s, invalid("mode", "must be stacked or separate")
	}
	s.mode = mode

	return s, nil
}

func checkSeconds(field string, v Seconds, required bool) error {
	switch {
	case v.Invalid:
		return invalid(field, "must be a number")
	case !v.Present && required:
		return invalid(field, "is required")
	}
	return nil
}
