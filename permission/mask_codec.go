package permission

import "fmt"

const (
	maskPrefixLen = 2
	maskDigits    = 4
	maskWireLen   = maskPrefixLen + maskDigits
	hexDigits     = "0123456789abcdef"
)

// FormatMask renders m as "0x" followed by four lowercase hex digits.
func FormatMask(m Mask) string {
	var buf [maskWireLen]byte
	buf[0], buf[1] = '0', 'x'
	v := uint16(m)
	for i := maskWireLen - 1; i >= maskPrefixLen; i-- {
		buf[i] = hexDigits[v&0xF]
		v >>= 4
	}
	return string(buf[:])
}

// DecodeMask parses the wire form produced by [FormatMask]. The prefix may
// be "0x" or "0X" and digits are case-insensitive. Anything other than
// exactly four hex digits after the prefix yields [ErrMalformedMask].
func DecodeMask(s string) (Mask, error) {
	if len(s) != maskWireLen {
		return 0, fmt.Errorf("%w: %q has length %d, want %d", ErrMalformedMask, s, len(s), maskWireLen)
	}
	if s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return 0, fmt.Errorf("%w: %q lacks 0x prefix", ErrMalformedMask, s)
	}

	var v uint16
	for i := maskPrefixLen; i < maskWireLen; i++ {
		d, ok := hexValue(s[i])
		if !ok {
			return 0, fmt.Errorf("%w: %q has non-hex digit %q", ErrMalformedMask, s, s[i])
		}
		v = v<<4 | uint16(d)
	}
	return Mask(v), nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// EncodeMask encodes actions and renders the result in wire form.
func (t *ActionTable) EncodeMask(actions []Action) (string, error) {
	m, err := t.Encode(actions)
	if err != nil {
		return "", err
	}
	return FormatMask(m), nil
}
