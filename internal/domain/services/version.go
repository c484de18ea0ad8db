package services

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/ochairo/keg/internal/domain/entities"
)

// VersionFromTag derives a formula version from its git tag.
// A semantic version tag loses its leading "v" (v1.18.0 -> 1.18.0); other
// tags are used verbatim.
func VersionFromTag(tag string) string {
	if semver.IsValid(tag) {
		return strings.TrimPrefix(tag, "v")
	}
	return tag
}

// CheckVersionOutput asserts the smoke test output mentions version.
// The match is a plain substring search so "v1.18.0" satisfies "1.18.0".
func CheckVersionOutput(output, version string) error {
	if version == "" {
		return fmt.Errorf("%w: formula declares no version", entities.ErrVersionMismatch)
	}
	if !strings.Contains(output, version) {
		return fmt.Errorf("%w: want %q in output:\n%s", entities.ErrVersionMismatch, version, strings.TrimSpace(output))
	}
	return nil
}
