package ym2149

// ReadBitN returns true if bit offset of v is set
func ReadBitN(v byte, offset uint8) bool {
	return v&(1<<offset) > 0
}

// WriteBitN returns v with bit offset set or cleared
func WriteBitN(v byte, offset uint8, set bool) byte {
	if set {
		return v | (1 << offset)
	}
	return v &^ (1 << offset)
}
