package permission

// Mask is a 16-bit set of action flags for one resource.
type Mask uint16

// Has reports whether every bit of want is set in m.
func (m Mask) Has(want Mask) bool {
	return m&want == want
}

// Set returns m with the bits of flag set.
func (m Mask) Set(flag Mask) Mask {
	return m | flag
}

// Clear returns m with the bits of flag cleared.
func (m Mask) Clear(flag Mask) Mask {
	return m &^ flag
}

// Union returns the bitwise OR of m and other.
func (m Mask) Union(other Mask) Mask {
	return m | other
}

// Missing returns the bits of want that m lacks.
func (m Mask) Missing(want Mask) Mask {
	return want &^ m
}

// Raw returns the underlying integer.
func (m Mask) Raw() uint16 {
	return uint16(m)
}

// String returns the canonical wire form, see [FormatMask].
func (m Mask) String() string {
	return FormatMask(m)
}

// Contains reports whether have grants want: every bit of want is present
// in have. A zero want is always contained.
func Contains(have, want Mask) bool {
	return have&want == want
}
