package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ChecksumVerifier computes and checks SHA-256 digests of installed files
type ChecksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
func NewChecksumVerifier() *ChecksumVerifier {
	return &ChecksumVerifier{}
}

// VerifyChecksum fails when the file's digest differs from expectedSum
func (v *ChecksumVerifier) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	actualSum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}
	if actualSum != expectedSum {
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", filePath, expectedSum, actualSum)
	}
	return nil
}

// CalculateChecksum returns the hex SHA-256 of a file
func (v *ChecksumVerifier) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: filePath is an installed binary
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
