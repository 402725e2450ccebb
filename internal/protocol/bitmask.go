package protocol

import "fmt"

// EncodeBitmask converts a list of 1-based bit positions into a
// little-endian bitmask of the given byte length. Partitions use 4-byte
// masks, zones and outputs 16 or 32 bytes depending on the panel model.
func EncodeBitmask(positions []int, length int) ([]byte, error) {
	mask := make([]byte, length)
	for _, pos := range positions {
		if pos < 1 || pos > length*8 {
			return nil, fmt.Errorf("position %d out of bounds for %d-byte bitmask", pos, length)
		}
		mask[(pos-1)/8] |= 1 << uint((pos-1)%8)
	}
	return mask, nil
}

// DecodeBitmask returns the 1-based positions of all set bits in the
// given little-endian bitmask, in ascending order. The mask must be
// exactly expectedLength bytes.
func DecodeBitmask(data []byte, expectedLength int) ([]int, error) {
	if len(data) != expectedLength {
		return nil, fmt.Errorf("invalid bitmask length: expected %d bytes, got %d", expectedLength, len(data))
	}

	var positions []int
	for i, b := range data {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				positions = append(positions, i*8+bit+1)
			}
		}
	}
	return positions, nil
}
