package serialization

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeChecksum returns the hex SHA-256 digest of data.
func ComputeChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidateChecksum compares the digest of data against stored. An empty
// stored digest is not checked.
func ValidateChecksum(data []byte, stored string) error {
	if stored == "" {
		return nil
	}
	if got := ComputeChecksum(data); got != stored {
		return &ValidationError{Err: ErrChecksumMismatch, Details: "got " + got + ", want " + stored}
	}
	return nil
}
