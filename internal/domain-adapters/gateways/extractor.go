package gateways

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/ochairo/keg/internal/domain/entities"
	"github.com/ochairo/keg/internal/domain/interfaces"
)

// maxEntrySize caps a single extracted file to guard against decompression bombs
const maxEntrySize = 1 << 30

// Extractor unpacks build archives
type Extractor struct {
	logger interfaces.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(logger interfaces.Logger) *Extractor {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Extractor{logger: logger}
}

// Extract unpacks archivePath into destDir. Supported formats are .tar.gz,
// .tgz and .tar.xz.
func (e *Extractor) Extract(archivePath, destDir string) error {
	if _, err := os.Stat(archivePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", entities.ErrArchiveNotFound, archivePath)
		}
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	//nolint:gosec // G304: archivePath is the archive declared by the formula
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	var reader io.Reader
	switch {
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		gzr, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		//nolint:errcheck // Defer close on gzip reader
		defer gzr.Close()
		reader = gzr
	case strings.HasSuffix(archivePath, ".tar.xz"):
		xzr, err := xz.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		reader = xzr
	default:
		return fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}

	return e.extractTar(tar.NewReader(reader), destDir)
}

func (e *Extractor) extractTar(tr *tar.Reader, destDir string) error {
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	cleanDest := filepath.Clean(destDir)

	// Symlinks are created after regular files so their targets exist
	type symlinkInfo struct {
		target   string
		linkname string
	}
	var symlinks []symlinkInfo

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}

		//nolint:gosec // G305: Path traversal validated below
		target := filepath.Join(destDir, header.Name)
		if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("invalid file path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}

			// Replace whatever an earlier extraction left behind
			_ = os.Remove(target)

			//nolint:gosec // G115: Integer overflow from tar header mode is acceptable
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm())
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}

			if _, err := io.Copy(outFile, io.LimitReader(tr, maxEntrySize)); err != nil {
				_ = outFile.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			if err := outFile.Close(); err != nil {
				return fmt.Errorf("failed to close file: %w", err)
			}
			e.logger.Debug("extracted", interfaces.F("path", header.Name))

		case tar.TypeSymlink:
			if !linkStaysInside(cleanDest, target, header.Linkname) {
				return fmt.Errorf("invalid symlink in archive: %s -> %s", header.Name, header.Linkname)
			}
			symlinks = append(symlinks, symlinkInfo{target: target, linkname: header.Linkname})

		default:
			e.logger.Warn("ignoring unsupported tar entry",
				interfaces.F("type", string(header.Typeflag)),
				interfaces.F("path", header.Name))
		}
	}

	for _, link := range symlinks {
		if err := os.MkdirAll(filepath.Dir(link.target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for symlink: %w", err)
		}
		_ = os.Remove(link.target)
		if err := os.Symlink(link.linkname, link.target); err != nil {
			e.logger.Warn("failed to create symlink",
				interfaces.F("path", link.target),
				interfaces.F("error", err))
		}
	}

	return nil
}

// linkStaysInside reports whether a symlink at target pointing to linkname
// resolves within dest
func linkStaysInside(dest, target, linkname string) bool {
	if linkname == "" || filepath.IsAbs(linkname) {
		return false
	}
	resolved := filepath.Join(filepath.Dir(target), linkname)
	return resolved == dest || strings.HasPrefix(resolved, dest+string(os.PathSeparator))
}
