// Package payload builds the deterministic test blob and verifies round trips against it.
package payload

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Generate returns a blob of size bytes where byte i is i mod 256.
// The same size always yields an identical blob.
func Generate(size int) []byte {
	if size <= 0 {
		return []byte{}
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

// Fingerprint returns the Keccak-256 hash of data, used to identify the payload in logs.
func Fingerprint(data []byte) common.Hash {
	return crypto.Keccak256Hash(data)
}

// MismatchError reports the first byte that differs from the expected payload.
type MismatchError struct {
	Index    int
	Expected byte
	Actual   byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("payload mismatch at index %d: expected %d, got %d", e.Index, e.Expected, e.Actual)
}

// LengthError reports a retrieved blob whose size differs from the payload.
type LengthError struct {
	Expected int
	Actual   int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("payload length mismatch: expected %d bytes, got %d", e.Expected, e.Actual)
}

// Verify compares got against expected byte for byte.
// Byte differences inside the common prefix are reported before a length difference.
func Verify(expected, got []byte) error {
	n := min(len(expected), len(got))
	for i := 0; i < n; i++ {
		if got[i] != expected[i] {
			return &MismatchError{Index: i, Expected: expected[i], Actual: got[i]}
		}
	}
	if len(got) != len(expected) {
		return &LengthError{Expected: len(expected), Actual: len(got)}
	}
	return nil
}
