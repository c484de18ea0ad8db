package gateways

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ochairo/keg/internal/domain/entities"
)

// Installer places the formula's executable into the install prefix
type Installer struct{}

// NewInstaller creates a new installer
func NewInstaller() *Installer {
	return &Installer{}
}

// Install copies the executable extracted into extractDir to <prefix>/bin.
// The copy is written to a temporary file first so the final path only ever
// holds a complete binary.
func (i *Installer) Install(f *entities.Formula, extractDir, prefix string) (*entities.Artifact, error) {
	src := filepath.Join(extractDir, filepath.FromSlash(f.Install.Binary))
	info, err := os.Lstat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", entities.ErrBinaryNotFound, f.Install.Binary)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", entities.ErrBinaryNotFound, f.Install.Binary)
	}

	dst := f.BinaryPath(prefix)
	if err := copyExecutable(src, dst); err != nil {
		return nil, err
	}

	return &entities.Artifact{
		Name:    f.Name,
		Version: f.Version,
		Path:    dst,
		Type:    "binary",
	}, nil
}

func copyExecutable(src, dst string) error {
	binDir := filepath.Dir(dst)
	//nolint:gosec // G301: bin directories must be traversable by other users
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", binDir, err)
	}

	//nolint:gosec // G304: src is inside the build working directory
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source failed: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	tmp, err := os.CreateTemp(binDir, "."+filepath.Base(dst)+".tmp-")
	if err != nil {
		return fmt.Errorf("create staging file failed: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("copy failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close staging file failed: %w", err)
	}
	//nolint:gosec // G302: installed executables are world-executable
	if err := os.Chmod(tmpPath, 0755); err != nil {
		return fmt.Errorf("chmod failed: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("install %s failed: %w", dst, err)
	}
	committed = true
	return nil
}
