// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"

	"github.com/ochairo/keg/internal/domain/entities"
)

// SignatureVerifier checks detached OpenPGP signatures
type SignatureVerifier interface {
	// ImportArmoredKey adds the keys of an armored public key block to the keyring
	ImportArmoredKey(armored string) error

	// VerifyDetached verifies signature over payload and returns the signer's fingerprint
	VerifyDetached(ctx context.Context, payload, signature []byte) (string, error)

	// ClearKeyring drops every imported key
	ClearKeyring()
}

// BinaryInspector reads the executable format of an installed file
type BinaryInspector interface {
	Inspect(ctx context.Context, path string) (*entities.BinaryInfo, error)
}

// ChecksumCalculator hashes installed files
type ChecksumCalculator interface {
	CalculateChecksum(filePath string) (string, error)
}

// ChecksumVerifier compares a file against a recorded digest
type ChecksumVerifier interface {
	VerifyChecksum(ctx context.Context, filePath, expectedSum string) error
}
