package enforce

import (
	"errors"
	"fmt"
	"strings"

	"github.com/radio-control/bandlock/internal/band"
)

// Error codes.
var (
	ErrConfig                   = errors.New("CONFIG_ERROR")
	ErrParse                    = errors.New("PARSE_ERROR")
	ErrUnsupportedConfiguration = errors.New("UNSUPPORTED_CONFIGURATION")
	ErrNoAntenna                = errors.New("NO_ANTENNA")
	ErrBandMismatch             = errors.New("BAND_MISMATCH")
	ErrAttemptsExhausted        = errors.New("ATTEMPTS_EXHAUSTED")
)

// Error carries the diagnostic context of an enforcement failure.
type Error struct {
	Code     error   // One of the Err* codes above
	Router   string  // Router name
	Observed band.ID // Band seen when the failure was detected, if any
	Action   string  // Step that failed
	Err      error   // Underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Router != "" {
		fmt.Fprintf(&b, "router %s: ", e.Router)
	}
	if e.Action != "" {
		fmt.Fprintf(&b, "%s: ", e.Action)
	}
	b.WriteString(e.Code.Error())
	if !e.Observed.IsNone() {
		fmt.Fprintf(&b, " (observed %s)", e.Observed)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the code and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code}
	}
	return []error{e.Code, e.Err}
}

// Code returns the enforcement code name of err, or "" when err carries none.
func Code(err error) string {
	for _, code := range []error{ErrAttemptsExhausted, ErrConfig, ErrParse, ErrUnsupportedConfiguration, ErrNoAntenna, ErrBandMismatch} {
		if errors.Is(err, code) {
			return code.Error()
		}
	}
	return ""
}
