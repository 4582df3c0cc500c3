package aggregator

import (
	"fmt"
	"strings"

	"github.com/vaultmesh/vaultmesh/pkg/crypto"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

const maxFilenameBytes = 255

func validateFilename(name string) error {
	if name == "" {
		return vmerr.New(vmerr.KindValidation, "aggregator.validateFilename", "filename must not be empty")
	}
	if len(name) > maxFilenameBytes {
		return vmerr.New(vmerr.KindValidation, "aggregator.validateFilename", "filename exceeds 255 bytes")
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return vmerr.New(vmerr.KindValidation, "aggregator.validateFilename", "filename must not contain path separators")
	}
	return nil
}

func validateCipherTag(tag string) error {
	if tag != crypto.CipherTag {
		return vmerr.New(vmerr.KindValidation, "aggregator.validateCipherTag", "unsupported cipher tag: "+tag)
	}
	return nil
}

func validateSize(size, maxSize int64) error {
	if size <= 0 {
		return vmerr.New(vmerr.KindValidation, "aggregator.validateSize", "upload stream must not be empty")
	}
	if size > maxSize {
		return vmerr.New(vmerr.KindValidation, "aggregator.validateSize", fmt.Sprintf("file exceeds maximum allowed size of %d bytes", maxSize))
	}
	return nil
}

func validFileID(id string) bool {
	if len(id) != 36 {
		return false
	}
	for i, c := range id {
		switch i {
		case 8, 13, 18, 23:
			if c != '-' {
				return false
			}
		default:
			if !isHex(byte(c)) {
				return false
			}
		}
	}
	return true
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
