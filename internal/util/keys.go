package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// SHA256Hex returns the full SHA-256 of b as 64 lowercase hex chars.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// XXHash64Hex returns xxhash64(b) as 16 lowercase hex chars, zero padded.
func XXHash64Hex(b []byte) string {
	s := strconv.FormatUint(xxhash.Sum64(b), 16)
	if len(s) < 16 {
		s = "0000000000000000"[:16-len(s)] + s
	}
	return s
}
