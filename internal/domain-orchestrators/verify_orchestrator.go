package orchestrators

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ochairo/keg/internal/domain/entities"
	"github.com/ochairo/keg/internal/domain/interfaces"
	"github.com/ochairo/keg/internal/domain/interfaces/gateways"
	"github.com/ochairo/keg/internal/domain/interfaces/repositories"
	"github.com/ochairo/keg/internal/domain/services"
)

// DefaultSmokeTestTimeout bounds the post-install test
const DefaultSmokeTestTimeout = time.Minute

// SmokeTester runs an installed binary and returns its combined output
type SmokeTester interface {
	RunSmokeTest(ctx context.Context, binary string, args []string, timeout time.Duration) (string, error)
}

// VerifyOrchestrator runs a formula's test block against an installed binary
type VerifyOrchestrator struct {
	formulas  repositories.FormulaRepository
	receipts  repositories.ReceiptRepository
	tester    SmokeTester
	checksums gateways.ChecksumVerifier
	cellarDir string
	timeout   time.Duration
	logger    interfaces.Logger
}

// VerifyOrchestratorConfig holds configuration for the orchestrator
type VerifyOrchestratorConfig struct {
	CellarDir string
	Timeout   time.Duration
}

// NewVerifyOrchestrator creates a new verify orchestrator. receipts and
// checksums may be nil, which skips the receipt checksum comparison.
func NewVerifyOrchestrator(
	formulas repositories.FormulaRepository,
	receipts repositories.ReceiptRepository,
	tester SmokeTester,
	checksums gateways.ChecksumVerifier,
	config VerifyOrchestratorConfig,
	logger interfaces.Logger,
) *VerifyOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultSmokeTestTimeout
	}
	return &VerifyOrchestrator{
		formulas:  formulas,
		receipts:  receipts,
		tester:    tester,
		checksums: checksums,
		cellarDir: config.CellarDir,
		timeout:   timeout,
		logger:    logger,
	}
}

// VerifyResult contains the outcome of a smoke test
type VerifyResult struct {
	Formula         *entities.Formula
	BinaryPath      string
	Args            []string
	Output          string
	ChecksumChecked bool
	Duration        time.Duration
	Success         bool
	Error           error
}

// Verify runs <prefix>/bin/<exe> with the formula's test arguments and
// asserts the output contains the formula version. An empty prefix selects
// <cellar>/<name>/<version>.
func (o *VerifyOrchestrator) Verify(ctx context.Context, name, prefix string) (*VerifyResult, error) {
	startTime := time.Now()
	result := &VerifyResult{}

	fail := func(err error) (*VerifyResult, error) {
		result.Error = err
		result.Duration = time.Since(startTime)
		return result, err
	}

	f, err := o.formulas.GetFormula(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("failed to load formula: %w", err))
	}
	result.Formula = f
	if prefix == "" {
		prefix = f.DefaultPrefix(o.cellarDir)
	}

	binaryPath := f.BinaryPath(prefix)
	result.BinaryPath = binaryPath
	info, err := os.Stat(binaryPath)
	if err != nil || !info.Mode().IsRegular() {
		return fail(fmt.Errorf("%w: %s is not installed", entities.ErrBinaryNotFound, binaryPath))
	}

	checked, err := o.checkReceipt(ctx, prefix, binaryPath)
	if err != nil {
		return fail(err)
	}
	result.ChecksumChecked = checked

	args := f.Test.Args
	if len(args) == 0 {
		args = []string{"version"}
	}
	result.Args = args

	output, err := o.tester.RunSmokeTest(ctx, binaryPath, args, o.timeout)
	result.Output = output
	if err != nil {
		return fail(fmt.Errorf("smoke test failed: %w\n%s", err, output))
	}

	if err := services.CheckVersionOutput(output, f.Version); err != nil {
		return fail(err)
	}

	result.Success = true
	result.Duration = time.Since(startTime)
	return result, nil
}

// checkReceipt compares the binary against the SHA-256 recorded at install
// time. A prefix without a receipt is not an error.
func (o *VerifyOrchestrator) checkReceipt(ctx context.Context, prefix, binaryPath string) (bool, error) {
	if o.receipts == nil || o.checksums == nil {
		return false, nil
	}

	receipt, err := o.receipts.LoadReceipt(ctx, prefix)
	if err != nil {
		o.logger.Debug("no usable install receipt", interfaces.F("prefix", prefix), interfaces.F("error", err))
		return false, nil
	}
	if receipt.SHA256 == "" {
		return false, nil
	}

	if err := o.checksums.VerifyChecksum(ctx, binaryPath, receipt.SHA256); err != nil {
		return false, fmt.Errorf("installed binary differs from its receipt: %w", err)
	}
	return true, nil
}

// GetVerifySummary returns a human-readable summary of the smoke test
func (r *VerifyResult) GetVerifySummary() string {
	if !r.Success {
		return fmt.Sprintf("Test failed: %v", r.Error)
	}
	summary := fmt.Sprintf("%s %s: found version %s in output (%v)",
		r.Formula.Name, r.BinaryPath, r.Formula.Version, r.Duration.Round(time.Millisecond))
	if r.ChecksumChecked {
		summary += "\nChecksum matches install receipt"
	}
	return summary
}
