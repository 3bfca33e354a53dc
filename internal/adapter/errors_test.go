package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestNormalizeVendorCode(t *testing.T) {
	tests := []struct {
		name         string
		vendorID     string
		code         int
		message      string
		expectedCode error
		expectedMsg  string
	}{
		{
			name:         "system busy maps to BUSY",
			vendorID:     "hilink",
			code:         100004,
			message:      "system busy",
			expectedCode: ErrBusy,
			expectedMsg:  "BUSY (vendor 100004: system busy)",
		},
		{
			name:         "wrong password maps to UNAUTHORIZED",
			vendorID:     "hilink",
			code:         108006,
			expectedCode: ErrUnauthorized,
			expectedMsg:  "UNAUTHORIZED (vendor 108006: no message)",
		},
		{
			name:         "stale token maps to UNAUTHORIZED",
			vendorID:     "hilink",
			code:         125002,
			expectedCode: ErrUnauthorized,
			expectedMsg:  "UNAUTHORIZED (vendor 125002: no message)",
		},
		{
			name:         "parameter error maps to INVALID_RANGE",
			vendorID:     "hilink",
			code:         100006,
			message:      "parameter error",
			expectedCode: ErrInvalidRange,
			expectedMsg:  "INVALID_RANGE (vendor 100006: parameter error)",
		},
		{
			name:         "unsupported api maps to NOT_SUPPORTED",
			vendorID:     "hilink",
			code:         100002,
			expectedCode: ErrNotSupported,
			expectedMsg:  "NOT_SUPPORTED (vendor 100002: no message)",
		},
		{
			name:         "unknown code maps to INTERNAL",
			vendorID:     "hilink",
			code:         999999,
			expectedCode: ErrInternal,
			expectedMsg:  "INTERNAL (vendor 999999: no message)",
		},
		{
			name:         "unknown vendor maps to INTERNAL",
			vendorID:     "acme",
			code:         100004,
			expectedCode: ErrInternal,
			expectedMsg:  "INTERNAL (vendor 100004: no message)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVendorCode(tt.vendorID, tt.code, tt.message, nil)

			vendorErr, ok := result.(*VendorError)
			if !ok {
				t.Fatalf("Expected VendorError, got %T", result)
			}
			if vendorErr.Code != tt.expectedCode {
				t.Errorf("Expected code %v, got %v", tt.expectedCode, vendorErr.Code)
			}
			if !errors.Is(result, tt.expectedCode) {
				t.Errorf("Expected errors.Is(%v) to hold", tt.expectedCode)
			}
			if vendorErr.Error() != tt.expectedMsg {
				t.Errorf("Expected message %q, got %q", tt.expectedMsg, vendorErr.Error())
			}
		})
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestNormalizeVendorError(t *testing.T) {
	tests := []struct {
		name         string
		vendorErr    error
		expectedCode error
	}{
		{name: "busy keyword", vendorErr: errors.New("BUSY: simulated"), expectedCode: ErrBusy},
		{name: "range keyword", vendorErr: errors.New("value OUT_OF_RANGE"), expectedCode: ErrInvalidRange},
		{name: "refused connection", vendorErr: errors.New("dial tcp 192.168.8.1:80: connection refused"), expectedCode: ErrUnavailable},
		{name: "net timeout", vendorErr: fmt.Errorf("get signal: %w", timeoutError{}), expectedCode: ErrUnavailable},
		{name: "wrapped sentinel", vendorErr: fmt.Errorf("login: %w", ErrUnauthorized), expectedCode: ErrUnauthorized},
		{name: "unknown", vendorErr: errors.New("something odd"), expectedCode: ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVendorError(tt.vendorErr, nil)
			if !errors.Is(result, tt.expectedCode) {
				t.Errorf("Expected %v, got %v", tt.expectedCode, result)
			}
		})
	}
}

func TestNormalizeVendorErrorPassThrough(t *testing.T) {
	if NormalizeVendorError(nil, nil) != nil {
		t.Error("Expected nil for nil error")
	}

	normalized := NormalizeVendorCode("hilink", 100004, "busy", nil)
	if got := NormalizeVendorError(normalized, nil); got != normalized {
		t.Errorf("Expected normalized error to be returned unchanged, got %v", got)
	}

	ctxErr := fmt.Errorf("request: %w", context.DeadlineExceeded)
	if got := NormalizeVendorError(ctxErr, nil); got != ctxErr {
		t.Errorf("Expected context error to pass through, got %v", got)
	}
}

func TestVendorErrorUnwrap(t *testing.T) {
	vendorErr := &VendorError{
		Code:     ErrInvalidRange,
		Original: errors.New("ORIGINAL_ERROR"),
		Details:  map[string]interface{}{"test": true},
	}

	if vendorErr.Unwrap() != ErrInvalidRange {
		t.Errorf("Expected unwrapped error %v, got %v", ErrInvalidRange, vendorErr.Unwrap())
	}
}

func TestCode(t *testing.T) {
	if Code(nil) != "" {
		t.Errorf("Expected empty code for nil")
	}
	if got := Code(NormalizeVendorCode("hilink", 108006, "", nil)); got != "UNAUTHORIZED" {
		t.Errorf("Expected UNAUTHORIZED, got %s", got)
	}
	if got := Code(errors.New("RADIO OFFLINE")); got != "UNAVAILABLE" {
		t.Errorf("Expected UNAVAILABLE, got %s", got)
	}
}

func TestVendorErrorMappingsDisjoint(t *testing.T) {
	for vendor, m := range VendorErrorMappings {
		seen := make(map[int]bool)
		for _, codes := range [][]int{m.Range, m.Busy, m.Unavailable, m.Unauthorized, m.NotSupported} {
			for _, c := range codes {
				if seen[c] {
					t.Errorf("vendor %s: code %d mapped twice", vendor, c)
				}
				seen[c] = true
			}
		}
	}
}
