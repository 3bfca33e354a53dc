package band

import (
	"fmt"
	"strconv"
	"strings"
)

// maxMaskBand is the highest band representable in the HiLink LTEBand bitmask.
const maxMaskBand = 64

// Set is an ordered band sequence. Element 0 is the primary (upload) candidate.
type Set []ID

// ParseSet normalizes every token, rejecting duplicates.
func ParseSet(tokens []string) (Set, error) {
	set := make(Set, 0, len(tokens))
	seen := make(map[ID]bool, len(tokens))
	for _, token := range tokens {
		id, err := Parse(token)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalidBand, id)
		}
		seen[id] = true
		set = append(set, id)
	}
	return set, nil
}

// ParseList parses a comma separated list such as "B28,B3,7".
func ParseList(list string) (Set, error) {
	if strings.TrimSpace(list) == "" {
		return Set{}, nil
	}
	return ParseSet(strings.Split(list, ","))
}

// Primary returns element 0, or None for an empty set.
func (s Set) Primary() ID {
	if len(s) == 0 {
		return None
	}
	return s[0]
}

// Contains reports whether id is a member. None is never a member.
func (s Set) Contains(id ID) bool {
	if id.IsNone() {
		return false
	}
	for _, member := range s {
		if member == id {
			return true
		}
	}
	return false
}

// Strings returns the prefixed forms in order.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, id := range s {
		out[i] = id.String()
	}
	return out
}

func (s Set) String() string {
	return "[" + strings.Join(s.Strings(), " ") + "]"
}

// Mask encodes the set as the router's LTE band bitmask: bit n-1 for band n.
func (s Set) Mask() (uint64, error) {
	var mask uint64
	for _, id := range s {
		n := id.Number()
		if n < 1 || n > maxMaskBand {
			return 0, fmt.Errorf("%w: %s cannot be expressed in the LTE band mask", ErrInvalidBand, id)
		}
		mask |= 1 << uint(n-1)
	}
	return mask, nil
}

// MaskHex is Mask rendered the way the router expects it (upper-case hex, no prefix).
func (s Set) MaskHex() (string, error) {
	mask, err := s.Mask()
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strconv.FormatUint(mask, 16)), nil
}

// SetFromMask decodes a hexadecimal LTE band mask into an ascending Set.
func SetFromMask(hex string) (Set, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "0x")
	mask, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: mask %q: %v", ErrInvalidBand, hex, err)
	}
	var set Set
	for n := 1; n <= maxMaskBand; n++ {
		if mask&(1<<uint(n-1)) != 0 {
			set = append(set, Format(strconv.Itoa(n)))
		}
	}
	return set, nil
}
