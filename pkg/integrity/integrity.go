// Package integrity computes and verifies the per-chunk checksum used to
// detect corruption between the moment a chunk is written to a backend and
// the moment it is read back.
package integrity

import (
	"fmt"
	"hash/crc32"

	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// Checksum returns the CRC-32 (IEEE polynomial) of data. Checksums are
// always computed over the encrypted chunk payload, never the plaintext,
// so a download can verify integrity before spending a decrypt call on
// corrupted bytes.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Verify compares data's checksum against want and returns a
// vmerr.KindIntegrity error describing the mismatch when they differ.
func Verify(data []byte, want uint32) error {
	got := Checksum(data)
	if got != want {
		return vmerr.New(vmerr.KindIntegrity, "integrity.Verify",
			fmt.Sprintf("crc32 mismatch: expected %#08x, got %#08x", want, got))
	}
	return nil
}
