package stringmap

// FNV-1a parameters. The hash is part of the major version 1 table contract:
// producer and consumer must agree on it bit for bit, on every pointer width.
const (
	hashOffsetBasis uint64 = 0xcbf29ce484222325
	hashPrime       uint64 = 0x100000001b3
)

// Hash computes the table hash of key, excluding any terminator.
func Hash(key string) uint64 {
	h := hashOffsetBasis
	for i := 0; i < len(key); i++ {
		h ^= uint64(key[i])
		h *= hashPrime
	}
	return h
}
