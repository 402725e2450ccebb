package protocol

// checksumSeed is the initial accumulator value mandated by the Satel manual.
const checksumSeed = 0x147A

// Checksum computes the 16-bit frame checksum over the unescaped command
// and payload bytes. For each input byte the accumulator is rotated left
// by one bit, complemented, and then incremented by its own high byte
// plus the input byte.
func Checksum(data []byte) uint16 {
	crc := uint16(checksumSeed)
	for _, b := range data {
		crc = crc<<1 | crc>>15
		crc = ^crc
		crc += crc>>8 + uint16(b)
	}
	return crc
}
