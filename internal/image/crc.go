package image

import "hash/crc32"

// CalculateCRC computes the CRC32 checksum of an image payload using the IEEE polynomial.
func CalculateCRC(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

// ValidateCRC returns true if the provided checksum matches the computed CRC32 of the payload
func ValidateCRC(payload []byte, checksum uint32) bool {
	return CalculateCRC(payload) == checksum
}
