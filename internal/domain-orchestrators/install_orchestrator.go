// Package orchestrators coordinates the install and verify workflows across gateways.
package orchestrators

import (
	"context"
	"fmt"
	"time"

	"github.com/ochairo/keg/internal/domain/entities"
	"github.com/ochairo/keg/internal/domain/interfaces"
	"github.com/ochairo/keg/internal/domain/interfaces/gateways"
	"github.com/ochairo/keg/internal/domain/interfaces/repositories"
	"github.com/ochairo/keg/internal/domain/services"
)

// PlatformDetector interface for describing the host
type PlatformDetector interface {
	Detect(ctx context.Context) (*entities.HostInfo, error)
}

// DependencyChecker interface for confirming build tools are installed
type DependencyChecker interface {
	CheckBuildDependencies(f *entities.Formula) error
}

// SourceFetcher interface for checking out the pinned source
type SourceFetcher interface {
	Fetch(ctx context.Context, f *entities.Formula) (*entities.SourceCheckout, error)
}

// Builder interface for invoking the external build orchestrator
type Builder interface {
	Build(ctx context.Context, f *entities.Formula, target entities.BuildTarget, sourceDir string) (*entities.Artifact, error)
}

// Extractor interface for unpacking the build archive
type Extractor interface {
	Extract(archivePath, destDir string) error
}

// Installer interface for copying the executable into the prefix
type Installer interface {
	Install(f *entities.Formula, extractDir, prefix string) (*entities.Artifact, error)
}

// InstallDependencies groups the collaborators of InstallOrchestrator
type InstallDependencies struct {
	Formulas  repositories.FormulaRepository
	Receipts  repositories.ReceiptRepository
	Platform  PlatformDetector
	Deps      DependencyChecker
	Fetcher   SourceFetcher
	Builder   Builder
	Extractor Extractor
	Installer Installer
	Inspector gateways.BinaryInspector
	Checksums gateways.ChecksumCalculator
}

// InstallOrchestratorConfig holds configuration for the orchestrator
type InstallOrchestratorConfig struct {
	CellarDir string
}

// InstallOrchestrator runs the linear install recipe: resolve platform,
// build, extract, install
type InstallOrchestrator struct {
	deps      InstallDependencies
	cellarDir string
	logger    interfaces.Logger
}

// NewInstallOrchestrator creates a new install orchestrator
func NewInstallOrchestrator(deps InstallDependencies, config InstallOrchestratorConfig, logger interfaces.Logger) *InstallOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &InstallOrchestrator{
		deps:      deps,
		cellarDir: config.CellarDir,
		logger:    logger,
	}
}

// InstallResult contains the result of an install operation
type InstallResult struct {
	Formula       *entities.Formula
	Host          *entities.HostInfo
	Target        entities.BuildTarget
	Checkout      *entities.SourceCheckout
	Archive       *entities.Artifact
	Binary        *entities.Artifact
	BinaryInfo    *entities.BinaryInfo
	Receipt       *entities.InstallReceipt
	Prefix        string
	FetchDuration time.Duration
	BuildDuration time.Duration
	TotalDuration time.Duration
	Success       bool
	Error         error
}

// Install executes the complete install workflow. An empty prefix selects
// <cellar>/<name>/<version>.
func (o *InstallOrchestrator) Install(ctx context.Context, name, prefix string) (*InstallResult, error) {
	startTime := time.Now()
	result := &InstallResult{}

	fail := func(err error) (*InstallResult, error) {
		result.Error = err
		result.TotalDuration = time.Since(startTime)
		return result, err
	}

	// Step 1: Load formula
	f, err := o.deps.Formulas.GetFormula(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("failed to load formula: %w", err))
	}
	result.Formula = f
	prefix = o.PrefixFor(f, prefix)
	result.Prefix = prefix

	// Step 2: Resolve platform; nothing is built for an unrecognized host
	host, err := o.deps.Platform.Detect(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to detect platform: %w", err))
	}
	result.Host = host

	target, err := services.ResolveTarget(f, host.OS)
	if err != nil {
		return fail(err)
	}
	result.Target = target
	o.logger.Info("resolved platform",
		interfaces.F("platform", string(target.Platform)),
		interfaces.F("triple", target.Triple))

	// Step 3: Check build dependencies
	if err := o.deps.Deps.CheckBuildDependencies(f); err != nil {
		return fail(err)
	}

	// Step 4: Fetch source
	fetchStart := time.Now()
	checkout, err := o.deps.Fetcher.Fetch(ctx, f)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch source: %w", err))
	}
	result.Checkout = checkout
	result.FetchDuration = time.Since(fetchStart)

	// Step 5: Build
	buildStart := time.Now()
	archive, err := o.deps.Builder.Build(ctx, f, target, checkout.Dir)
	if err != nil {
		return fail(err)
	}
	result.Archive = archive
	result.BuildDuration = time.Since(buildStart)

	// Step 6: Extract into the checkout
	if err := o.deps.Extractor.Extract(archive.Path, checkout.Dir); err != nil {
		return fail(fmt.Errorf("failed to extract %s: %w", archive.Path, err))
	}

	// Step 7: Install the executable
	binary, err := o.deps.Installer.Install(f, checkout.Dir, prefix)
	if err != nil {
		return fail(fmt.Errorf("failed to install: %w", err))
	}
	binary.Platform = string(target.Platform)
	result.Binary = binary

	// Step 8: Inspect and record
	receipt, err := o.record(ctx, result)
	if err != nil {
		return fail(err)
	}
	result.Receipt = receipt

	result.Success = true
	result.TotalDuration = time.Since(startTime)
	return result, nil
}

// record inspects the installed binary and writes the install receipt.
// An inspection failure or a format mismatch is only logged.
func (o *InstallOrchestrator) record(ctx context.Context, result *InstallResult) (*entities.InstallReceipt, error) {
	f := result.Formula
	binaryPath := result.Binary.Path

	if o.deps.Inspector != nil {
		info, err := o.deps.Inspector.Inspect(ctx, binaryPath)
		switch {
		case err != nil:
			o.logger.Warn("could not inspect installed binary",
				interfaces.F("path", binaryPath),
				interfaces.F("error", err))
		case !info.Matches(result.Target):
			o.logger.Warn("installed binary does not match target",
				interfaces.F("triple", result.Target.Triple),
				interfaces.F("format", info.Format),
				interfaces.F("arch", info.Arch))
			result.BinaryInfo = info
		default:
			result.BinaryInfo = info
		}
	}

	sum, err := o.deps.Checksums.CalculateChecksum(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum %s: %w", binaryPath, err)
	}

	receipt := &entities.InstallReceipt{
		Name:       f.Name,
		Version:    f.Version,
		Tag:        f.Source.Tag,
		Revision:   result.Checkout.Revision,
		Platform:   string(result.Target.Platform),
		Triple:     result.Target.Triple,
		BinaryPath: binaryPath,
		SHA256:     sum,
		Host:       *result.Host,
	}
	if result.BinaryInfo != nil {
		receipt.BinaryFormat = result.BinaryInfo.Format
		receipt.BinaryArch = result.BinaryInfo.Arch
	}

	if err := o.deps.Receipts.SaveReceipt(ctx, result.Prefix, receipt); err != nil {
		return nil, fmt.Errorf("failed to write receipt: %w", err)
	}
	return receipt, nil
}

// PrefixFor returns the install prefix Install would use for f
func (o *InstallOrchestrator) PrefixFor(f *entities.Formula, prefix string) string {
	if prefix != "" {
		return prefix
	}
	return f.DefaultPrefix(o.cellarDir)
}

// GetInstallSummary returns a human-readable summary of the install
func (r *InstallResult) GetInstallSummary() string {
	if !r.Success {
		return fmt.Sprintf("Install failed: %v", r.Error)
	}

	summary := fmt.Sprintf(`Installed %s %s
Binary: %s
Target: %s
Revision: %s
Fetch: %v
Build: %v
Total: %v`,
		r.Formula.Name,
		r.Formula.Version,
		r.Binary.Path,
		r.Target.Triple,
		r.Checkout.Revision,
		r.FetchDuration.Round(time.Millisecond),
		r.BuildDuration.Round(time.Millisecond),
		r.TotalDuration.Round(time.Millisecond),
	)
	if r.Checkout.Signer != "" {
		summary += fmt.Sprintf("\nSigned by: %s", r.Checkout.Signer)
	}
	if r.Receipt != nil {
		summary += fmt.Sprintf("\nSHA-256: %s", r.Receipt.SHA256)
	}
	return summary
}
