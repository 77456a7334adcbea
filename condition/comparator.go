package condition

import (
	"fmt"
	"math/big"
	"strings"
)

// Comparator reports whether actual satisfies the condition value limit.
// Malformed limits wrap [ErrMalformedCondition]; malformed actual values
// wrap [ErrMalformedParameter].
type Comparator func(limit, actual string) (bool, error)

// Built-in comparator names.
const (
	CompareLTE = "lte"
	CompareLT  = "lt"
	CompareGTE = "gte"
	CompareGT  = "gt"
	CompareEQ  = "eq"
	CompareIn  = "in"
)

var comparators = map[string]Comparator{
	CompareLTE: numeric(func(c int) bool { return c <= 0 }),
	CompareLT:  numeric(func(c int) bool { return c < 0 }),
	CompareGTE: numeric(func(c int) bool { return c >= 0 }),
	CompareGT:  numeric(func(c int) bool { return c > 0 }),
	CompareEQ:  equal,
	CompareIn:  member,
}

// numeric compares actual against limit as exact decimals. accept receives
// the sign of actual-limit.
func numeric(accept func(int) bool) Comparator {
	return func(limit, actual string) (bool, error) {
		l, ok := parseDecimal(limit)
		if !ok {
			return false, fmt.Errorf("%w: %q is not a decimal number", ErrMalformedCondition, limit)
		}
		a, ok := parseDecimal(actual)
		if !ok {
			return false, fmt.Errorf("%w: %q is not a decimal number", ErrMalformedParameter, actual)
		}
		return accept(a.Cmp(l)), nil
	}
}

func equal(limit, actual string) (bool, error) {
	return strings.TrimSpace(actual) == limit, nil
}

func member(limit, actual string) (bool, error) {
	actual = strings.TrimSpace(actual)
	found := false
	for _, option := range strings.Split(limit, ",") {
		option = strings.TrimSpace(option)
		if option == "" {
			return false, fmt.Errorf("%w: empty entry in set %q", ErrMalformedCondition, limit)
		}
		if option == actual {
			found = true
		}
	}
	return found, nil
}

// parseDecimal accepts plain decimal notation with an optional sign and
// fraction. Rationals, exponents, and separators are rejected.
func parseDecimal(s string) (*big.Rat, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	digits := s
	if digits[0] == '-' || digits[0] == '+' {
		digits = digits[1:]
	}
	seenDot, seenDigit := false, false
	for i := 0; i < len(digits); i++ {
		switch c := digits[i]; {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' && !seenDot:
			seenDot = true
		default:
			return nil, false
		}
	}
	if !seenDigit || digits[0] == '.' || digits[len(digits)-1] == '.' {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(s)
	return r, ok
}
