package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ochairo/keg/internal/domain/entities"
)

// Mock implementations for testing
type mockFormulaRepository struct {
	formula *entities.Formula
	err     error
}

func (m *mockFormulaRepository) GetFormula(_ context.Context, _ string) (*entities.Formula, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.formula, nil
}

func (m *mockFormulaRepository) ListFormulas(_ context.Context) ([]*entities.Formula, error) {
	return nil, errors.New("not implemented")
}

type mockReceiptRepository struct {
	saved   *entities.InstallReceipt
	prefix  string
	loaded  *entities.InstallReceipt
	loadErr error
}

func (m *mockReceiptRepository) SaveReceipt(_ context.Context, prefix string, receipt *entities.InstallReceipt) error {
	m.prefix = prefix
	m.saved = receipt
	return nil
}

func (m *mockReceiptRepository) LoadReceipt(_ context.Context, _ string) (*entities.InstallReceipt, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.loaded == nil {
		return nil, errors.New("no install receipt")
	}
	return m.loaded, nil
}

type mockPlatformDetector struct {
	goos string
}

func (m *mockPlatformDetector) Detect(_ context.Context) (*entities.HostInfo, error) {
	return &entities.HostInfo{OS: m.goos, Arch: "amd64"}, nil
}

type mockDependencyChecker struct {
	err error
}

func (m *mockDependencyChecker) CheckBuildDependencies(_ *entities.Formula) error {
	return m.err
}

type mockSourceFetcher struct {
	dir   string
	err   error
	calls int
}

func (m *mockSourceFetcher) Fetch(_ context.Context, f *entities.Formula) (*entities.SourceCheckout, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &entities.SourceCheckout{Dir: m.dir, Tag: f.Source.Tag, Revision: f.Source.Revision}, nil
}

type mockBuilder struct {
	targets []entities.BuildTarget
	err     error
	// produce writes the archive the real build would leave behind
	produce func(f *entities.Formula, archivePath string)
}

func (m *mockBuilder) Build(_ context.Context, f *entities.Formula, target entities.BuildTarget, sourceDir string) (*entities.Artifact, error) {
	m.targets = append(m.targets, target)
	if m.err != nil {
		return nil, m.err
	}
	archivePath := filepath.Join(sourceDir, filepath.FromSlash(f.Build.Archive))
	if m.produce != nil {
		m.produce(f, archivePath)
	}
	return &entities.Artifact{Name: f.Name, Version: f.Version, Path: archivePath, Type: "archive"}, nil
}

type mockInstaller struct {
	calls int
}

func (m *mockInstaller) Install(f *entities.Formula, _, prefix string) (*entities.Artifact, error) {
	m.calls++
	return &entities.Artifact{Name: f.Name, Path: f.BinaryPath(prefix), Type: "binary"}, nil
}

type mockInspector struct {
	info *entities.BinaryInfo
	err  error
}

func (m *mockInspector) Inspect(_ context.Context, _ string) (*entities.BinaryInfo, error) {
	return m.info, m.err
}

type mockChecksums struct {
	sum string
}

func (m *mockChecksums) CalculateChecksum(_ string) (string, error) {
	return m.sum, nil
}

func (m *mockChecksums) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	if m.sum != expectedSum {
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", filePath, expectedSum, m.sum)
	}
	return nil
}

type mockSmokeTester struct {
	output  string
	err     error
	binary  string
	args    []string
	timeout time.Duration
}

func (m *mockSmokeTester) RunSmokeTest(_ context.Context, binary string, args []string, timeout time.Duration) (string, error) {
	m.binary = binary
	m.args = args
	m.timeout = timeout
	return m.output, m.err
}

func apiserverBoot() *entities.Formula {
	return &entities.Formula{
		Name:    "apiserver-boot",
		Version: "1.18.0",
		Source: entities.FormulaSource{
			URL:      "https://github.com/kubernetes-sigs/apiserver-builder-alpha.git",
			Using:    "git",
			Tag:      "v1.18.0",
			Revision: "95dca1d34e91d6e76c50fa4f272a77f573fd7558",
		},
		DependsOn: []entities.Dependency{{Name: "bazel", Type: "build"}},
		Build: entities.FormulaBuild{
			System: "bazel",
			Target: "cmd:apiserver-builder",
			Platforms: map[entities.Platform]string{
				entities.PlatformMacOS: "darwin_amd64",
				entities.PlatformLinux: "linux_amd64",
			},
			Archive: "bazel-bin/cmd/apiserver-builder.tar.gz",
		},
		Install: entities.FormulaInstall{Binary: "bin/apiserver-boot"},
		Test:    entities.FormulaTest{Args: []string{"version"}},
	}
}

// installBinary places a fake executable at the formula's binary path
func installBinary(dir string, f *entities.Formula) (string, error) {
	path := f.BinaryPath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", err
	}
	//nolint:gosec // G306: Test executable needs 0700 permissions
	return path, os.WriteFile(path, []byte("#!/bin/sh\n"), 0700)
}
