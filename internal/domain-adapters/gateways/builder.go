package gateways

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ochairo/keg/internal/domain/entities"
)

// Executor runs external programs
type Executor interface {
	Execute(ctx context.Context, config CommandConfig) *ExecuteResult
}

// Builder invokes the build orchestrator a formula names
type Builder struct {
	executor Executor
	packager *Packager
	stream   io.Writer
}

// NewBuilder creates a new builder. When stream is non-nil build output is
// copied to it as it is produced.
func NewBuilder(executor Executor, packager *Packager, stream io.Writer) *Builder {
	return &Builder{
		executor: executor,
		packager: packager,
		stream:   stream,
	}
}

// Build runs the formula's build for target inside sourceDir and returns the
// archive the build produced. The archive is not checked for existence here.
func (b *Builder) Build(ctx context.Context, f *entities.Formula, target entities.BuildTarget, sourceDir string) (*entities.Artifact, error) {
	switch f.Build.System {
	case "", "bazel":
		if err := b.buildBazel(ctx, f, target, sourceDir); err != nil {
			return nil, err
		}
	case "go":
		if err := b.buildGo(ctx, f, target, sourceDir); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown build system %q", entities.ErrBuildFailed, f.Build.System)
	}

	return &entities.Artifact{
		Name:     f.Name,
		Version:  f.Version,
		Platform: string(target.Platform),
		Path:     filepath.Join(sourceDir, filepath.FromSlash(f.Build.Archive)),
		Type:     "archive",
	}, nil
}

// BazelArgs returns the arguments passed to bazel for target
func BazelArgs(f *entities.Formula, target entities.BuildTarget) []string {
	flag := f.Build.PlatformFlag
	if flag == "" {
		flag = "--platforms=@io_bazel_rules_go//go/toolchain:{triple}"
	}
	return []string{
		"build",
		strings.ReplaceAll(flag, "{triple}", target.Triple),
		f.Build.Target,
	}
}

func (b *Builder) buildBazel(ctx context.Context, f *entities.Formula, target entities.BuildTarget, sourceDir string) error {
	result := b.executor.Execute(ctx, CommandConfig{
		Name:        "bazel",
		Args:        BazelArgs(f, target),
		WorkingDir:  sourceDir,
		Timeout:     b.timeout(f),
		Description: fmt.Sprintf("bazel build %s (%s)", f.Build.Target, target.Triple),
		Stream:      b.stream,
	})
	return checkResult("bazel build", result)
}

// buildGo cross-compiles the formula's package and packs bin/<exe> into the
// archive path, mirroring the upstream release tarball layout.
func (b *Builder) buildGo(ctx context.Context, f *entities.Formula, target entities.BuildTarget, sourceDir string) error {
	stageDir, err := os.MkdirTemp(sourceDir, ".keg-stage-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	//nolint:errcheck // Best effort cleanup of the staging directory
	defer os.RemoveAll(stageDir)

	output := filepath.Join(stageDir, "bin", f.ExecutableName())
	result := b.executor.Execute(ctx, CommandConfig{
		Name:       "go",
		Args:       []string{"build", "-o", output, f.Build.Package},
		WorkingDir: sourceDir,
		Env: map[string]string{
			"CGO_ENABLED": "0",
			"GOOS":        target.GOOS(),
			"GOARCH":      target.GOARCH(),
		},
		Timeout:     b.timeout(f),
		Description: fmt.Sprintf("go build %s (%s)", f.Build.Package, target.Triple),
		Stream:      b.stream,
	})
	if err := checkResult("go build", result); err != nil {
		return err
	}

	archivePath := filepath.Join(sourceDir, filepath.FromSlash(f.Build.Archive))
	return b.packager.PackageDirectory(stageDir, archivePath, 0555)
}

func (b *Builder) timeout(f *entities.Formula) time.Duration {
	return time.Duration(f.Build.Timeout) * time.Minute
}

func checkResult(step string, result *ExecuteResult) error {
	if result.Success {
		return nil
	}
	if tail := result.StderrTail(20); strings.TrimSpace(tail) != "" {
		return fmt.Errorf("%w: %s (exit %d): %v\n%s", entities.ErrBuildFailed, step, result.ExitCode, result.Error, tail)
	}
	return fmt.Errorf("%w: %s (exit %d): %v", entities.ErrBuildFailed, step, result.ExitCode, result.Error)
}
