package gateways

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ochairo/keg/internal/domain/entities"
)

func installFormula() *entities.Formula {
	return &entities.Formula{
		Name:    "apiserver-boot",
		Version: "1.18.0",
		Install: entities.FormulaInstall{Binary: "bin/apiserver-boot"},
	}
}

func TestInstaller_Install(t *testing.T) {
	tmpDir := t.TempDir()
	extractDir := filepath.Join(tmpDir, "src")
	if err := os.MkdirAll(filepath.Join(extractDir, "bin"), 0750); err != nil {
		t.Fatal(err)
	}
	//nolint:gosec // G306: Test executable binary needs 0500 permissions
	if err := os.WriteFile(filepath.Join(extractDir, "bin", "apiserver-boot"), []byte("binary"), 0500); err != nil {
		t.Fatal(err)
	}
	prefix := filepath.Join(tmpDir, "prefix")

	f := installFormula()
	artifact, err := NewInstaller().Install(f, extractDir, prefix)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	want := filepath.Join(prefix, "bin", "apiserver-boot")
	if artifact.Path != want {
		t.Errorf("Path = %s, want %s", artifact.Path, want)
	}
	if artifact.Type != "binary" || artifact.Version != "1.18.0" {
		t.Errorf("artifact = %+v", artifact)
	}

	info, err := os.Stat(want)
	if err != nil {
		t.Fatalf("installed binary missing: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %o, want 755", info.Mode().Perm())
	}

	// Exactly one file in bin, no staging leftovers
	entries, err := os.ReadDir(filepath.Join(prefix, "bin"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("bin contains %d entries, want 1", len(entries))
	}
}

func TestInstaller_ReplacesExistingBinary(t *testing.T) {
	tmpDir := t.TempDir()
	extractDir := filepath.Join(tmpDir, "src")
	if err := os.MkdirAll(filepath.Join(extractDir, "bin"), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(extractDir, "bin", "apiserver-boot"), []byte("new"), 0600); err != nil {
		t.Fatal(err)
	}
	prefix := filepath.Join(tmpDir, "prefix")
	if err := os.MkdirAll(filepath.Join(prefix, "bin"), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(prefix, "bin", "apiserver-boot"), []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewInstaller().Install(installFormula(), extractDir, prefix); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	//nolint:gosec // G304: Test file path
	data, err := os.ReadFile(filepath.Join(prefix, "bin", "apiserver-boot"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}

func TestInstaller_MissingBinary(t *testing.T) {
	tmpDir := t.TempDir()
	prefix := filepath.Join(tmpDir, "prefix")

	_, err := NewInstaller().Install(installFormula(), tmpDir, prefix)
	if !errors.Is(err, entities.ErrBinaryNotFound) {
		t.Errorf("Install() error = %v, want ErrBinaryNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(prefix, "bin", "apiserver-boot")); err == nil {
		t.Error("nothing should be installed when the binary is missing")
	}
}

func TestInstaller_BinaryIsDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "bin", "apiserver-boot"), 0750); err != nil {
		t.Fatal(err)
	}

	_, err := NewInstaller().Install(installFormula(), tmpDir, filepath.Join(tmpDir, "prefix"))
	if !errors.Is(err, entities.ErrBinaryNotFound) {
		t.Errorf("Install() error = %v, want ErrBinaryNotFound", err)
	}
}

func TestInstaller_RefusesSymlinkedBinary(t *testing.T) {
	tmpDir := t.TempDir()
	secret := filepath.Join(tmpDir, "secret")
	if err := os.WriteFile(secret, []byte("host file"), 0600); err != nil {
		t.Fatal(err)
	}
	extractDir := filepath.Join(tmpDir, "checkout")
	if err := os.MkdirAll(filepath.Join(extractDir, "bin"), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(secret, filepath.Join(extractDir, "bin", "apiserver-boot")); err != nil {
		t.Fatal(err)
	}
	prefix := filepath.Join(tmpDir, "prefix")

	_, err := NewInstaller().Install(installFormula(), extractDir, prefix)
	if !errors.Is(err, entities.ErrBinaryNotFound) {
		t.Errorf("Install() error = %v, want ErrBinaryNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(prefix, "bin", "apiserver-boot")); err == nil {
		t.Error("symlink target must not be copied into the prefix")
	}
}

func TestFormula_BinaryPath(t *testing.T) {
	got := installFormula().BinaryPath("/opt/keg")
	if want := filepath.Join("/opt/keg", "bin", "apiserver-boot"); got != want {
		t.Errorf("BinaryPath() = %s, want %s", got, want)
	}
}
