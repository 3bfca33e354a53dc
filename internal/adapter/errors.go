package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Normalized router errors.
var (
	ErrInvalidRange = errors.New("INVALID_RANGE")
	ErrBusy         = errors.New("BUSY")
	ErrUnavailable  = errors.New("UNAVAILABLE")
	ErrUnauthorized = errors.New("UNAUTHORIZED")
	ErrNotSupported = errors.New("NOT_SUPPORTED")
	ErrInternal     = errors.New("INTERNAL")
)

// VendorMap defines the numeric error code mapping for a specific vendor.
type VendorMap struct {
	Range        []int // Codes that map to INVALID_RANGE
	Busy         []int // Codes that map to BUSY
	Unavailable  []int // Codes that map to UNAVAILABLE
	Unauthorized []int // Codes that map to UNAUTHORIZED
	NotSupported []int // Codes that map to NOT_SUPPORTED
}

// VendorErrorMappings contains the deterministic code tables per vendor.
//
// HiLink codes:
//   - Range: 100005 (format error), 100006 (parameter error), 112001-112003 (band/mode rejected)
//   - Busy: 100004 (system busy), 108007 (too many login attempts), 111019 (operation pending)
//   - Unavailable: 100008 (device not ready), 111022 (no service), 113055 (SIM not ready)
//   - Unauthorized: 100003, 108001, 108002, 108003, 108006, 125001, 125002, 125003
//   - NotSupported: 100002
//
// Unknown codes map to INTERNAL.
var VendorErrorMappings = map[string]VendorMap{
	"hilink": {
		Range:        []int{100005, 100006, 112001, 112002, 112003},
		Busy:         []int{100004, 108007, 111019},
		Unavailable:  []int{100008, 111022, 113055},
		Unauthorized: []int{100003, 108001, 108002, 108003, 108006, 125001, 125002, 125003},
		NotSupported: []int{100002},
	},
}

// genericTokens maps free-text failures (transport errors, fake adapters) by keyword.
var genericTokens = []struct {
	code   error
	tokens []string
}{
	{ErrInvalidRange, []string{"INVALID_RANGE", "OUT_OF_RANGE", "INVALID_PARAMETER", "BAD_VALUE"}},
	{ErrBusy, []string{"BUSY", "RATE_LIMIT", "TOO_MANY_REQUESTS"}},
	{ErrUnauthorized, []string{"UNAUTHORIZED", "FORBIDDEN", "LOGIN"}},
	{ErrNotSupported, []string{"NOT_SUPPORTED"}},
	{ErrUnavailable, []string{"UNAVAILABLE", "OFFLINE", "NOT_READY", "CONNECTION REFUSED", "NO ROUTE TO HOST"}},
}

// VendorError wraps a vendor failure with diagnostic details.
type VendorError struct {
	Code       error       // Normalized code
	VendorCode int         // Vendor numeric code, 0 when not applicable
	Original   error       // Vendor error
	Details    interface{} // Vendor payload (opaque)
}

func (e *VendorError) Error() string {
	if e.VendorCode != 0 {
		return fmt.Sprintf("%v (vendor %d: %v)", e.Code, e.VendorCode, e.Original)
	}
	return fmt.Sprintf("%v (vendor: %v)", e.Code, e.Original)
}

func (e *VendorError) Unwrap() error {
	return e.Code
}

// NormalizeVendorCode maps a vendor numeric error code using the vendor table.
func NormalizeVendorCode(vendorID string, code int, message string, payload interface{}) error {
	if message == "" {
		message = "no message"
	}
	return &VendorError{
		Code:       mapVendorCode(vendorID, code),
		VendorCode: code,
		Original:   errors.New(message),
		Details:    payload,
	}
}

func mapVendorCode(vendorID string, code int) error {
	vendorMap, exists := VendorErrorMappings[vendorID]
	if !exists {
		return ErrInternal
	}

	tables := []struct {
		codes  []int
		result error
	}{
		{vendorMap.Range, ErrInvalidRange},
		{vendorMap.Busy, ErrBusy},
		{vendorMap.Unavailable, ErrUnavailable},
		{vendorMap.Unauthorized, ErrUnauthorized},
		{vendorMap.NotSupported, ErrNotSupported},
	}
	for _, table := range tables {
		for _, c := range table.codes {
			if c == code {
				return table.result
			}
		}
	}
	return ErrInternal
}

// NormalizeVendorError maps an untyped failure to a normalized code.
// Errors already normalized are returned unchanged; context errors pass through.
func NormalizeVendorError(vendorErr error, vendorPayload interface{}) error {
	if vendorErr == nil {
		return nil
	}

	var already *VendorError
	if errors.As(vendorErr, &already) {
		return vendorErr
	}
	if errors.Is(vendorErr, context.Canceled) || errors.Is(vendorErr, context.DeadlineExceeded) {
		return vendorErr
	}

	return &VendorError{
		Code:     classify(vendorErr),
		Original: vendorErr,
		Details:  vendorPayload,
	}
}

func classify(err error) error {
	for _, code := range []error{ErrInvalidRange, ErrBusy, ErrUnavailable, ErrUnauthorized, ErrNotSupported, ErrInternal} {
		if errors.Is(err, code) {
			return code
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrUnavailable
	}

	upperMsg := strings.ToUpper(err.Error())
	for _, entry := range genericTokens {
		for _, token := range entry.tokens {
			if strings.Contains(upperMsg, token) {
				return entry.code
			}
		}
	}
	return ErrInternal
}

// Code returns the normalized code name of err, or "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var vendorErr *VendorError
	if errors.As(err, &vendorErr) && vendorErr.Code != nil {
		return vendorErr.Code.Error()
	}
	return classify(err).Error()
}
