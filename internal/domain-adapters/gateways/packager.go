package gateways

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// Packager packs build output into the tar.gz layout the installer consumes
type Packager struct{}

// NewPackager creates a new packager
func NewPackager() *Packager {
	return &Packager{}
}

// PackageDirectory writes every file below sourceDir into a gzipped tar at
// tarballPath. Entry names are relative to sourceDir. Regular files get
// fileMode when it is non-zero.
func (p *Packager) PackageDirectory(sourceDir, tarballPath string, fileMode int64) error {
	if err := os.MkdirAll(filepath.Dir(tarballPath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	//nolint:gosec // G304: tarballPath is the archive path declared by the formula
	file, err := os.Create(tarballPath)
	if err != nil {
		return fmt.Errorf("failed to create tarball file: %w", err)
	}

	gzipWriter := gzip.NewWriter(file)
	tarWriter := tar.NewWriter(gzipWriter)

	walkErr := filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath == "." {
			return nil
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				return fmt.Errorf("failed to read symlink %s: %w", path, err)
			}
		}

		header, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return fmt.Errorf("failed to create tar header: %w", err)
		}
		header.Name = filepath.ToSlash(relPath)
		if info.IsDir() {
			header.Name += "/"
		}
		if info.Mode().IsRegular() && fileMode != 0 {
			header.Mode = fileMode
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		//nolint:gosec // G304: File path from filepath.Walk for packaging
		in, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		//nolint:errcheck // Defer close on read-only file
		defer in.Close()

		if _, err := io.Copy(tarWriter, in); err != nil {
			return fmt.Errorf("failed to write file to tar: %w", err)
		}
		return nil
	})

	// Close in reverse order so every layer flushes
	if err := tarWriter.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gzipWriter.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	if err := file.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("failed to close tarball: %w", err)
	}
	return walkErr
}
