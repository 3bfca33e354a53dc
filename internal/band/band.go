// Package band normalizes LTE band identifiers and ordered band sets.
//
// A band is stored in its prefixed textual form ("B28"). The bare numeric form
// the router reports ("28") converts to and from it by the fixed "B" prefix rule,
// so the two spellings never describe different bands.
package band

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Prefix is prepended to the numeric band token to form the textual identifier.
const Prefix = "B"

// MaxNumber is the largest band number accepted by Parse.
const MaxNumber = 255

// ErrInvalidBand is returned for tokens that do not name a band.
var ErrInvalidBand = errors.New("INVALID_BAND")

// ID identifies a radio band in its normalized textual form, e.g. "B28".
// The zero value means "no band".
type ID string

// None is the zero ID, used when the router is not attached.
const None ID = ""

// Parse normalizes "B28", "b28" or "28" to ID("B28").
func Parse(token string) (ID, error) {
	s := strings.TrimSpace(token)
	if len(s) > 0 && (s[0] == 'B' || s[0] == 'b') {
		s = s[1:]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxNumber || s[0] == '+' {
		return None, fmt.Errorf("%w: %q", ErrInvalidBand, token)
	}
	return ID(Prefix + strconv.Itoa(n)), nil
}

// Format prefixes a bare numeric token: Format("28") == "B28".
func Format(numeric string) ID {
	return ID(Prefix + numeric)
}

// String returns the prefixed form.
func (id ID) String() string {
	return string(id)
}

// Numeric returns the bare numeric form ("28" for "B28").
func (id ID) Numeric() string {
	return strings.TrimPrefix(string(id), Prefix)
}

// Number returns the band number, or 0 for None and malformed values.
func (id ID) Number() int {
	n, err := strconv.Atoi(id.Numeric())
	if err != nil {
		return 0
	}
	return n
}

// IsNone reports whether id is the zero identifier.
func (id ID) IsNone() bool {
	return id == None
}
