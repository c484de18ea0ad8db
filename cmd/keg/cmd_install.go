package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/ochairo/keg/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/keg/internal/domain-orchestrators"
	"github.com/ochairo/keg/internal/external-adapters/gpg"
)

func newInstallCmd(current func() *app) *cobra.Command {
	var prefix string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "install <formula>",
		Short: "Fetch, build and install a formula from its pinned source",
		Long: `Install clones the formula's pinned tag, checks it resolves to the pinned
revision, builds it for the host's target triple and installs the executable
into <prefix>/bin. Without --prefix the prefix is <cellar>/<name>/<version>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			name := args[0]

			f, err := a.formulas.GetFormula(cmd.Context(), name)
			if err != nil {
				return err
			}
			a.out.Heading("Installing %s %s", f.Name, f.Version)

			// Either stream the build or show a spinner while it runs
			var stream, spinner io.Writer
			if verbose {
				stream = a.stderr
			} else {
				spinner = a.stderr
			}

			executor := gateways.NewCommandExecutor(spinner)
			orchestrator := orchestrators.NewInstallOrchestrator(orchestrators.InstallDependencies{
				Formulas:  a.formulas,
				Receipts:  gateways.NewReceiptStore(),
				Platform:  gateways.NewPlatformDetector(),
				Deps:      gateways.NewDependencyChecker(),
				Fetcher:   gateways.NewSourceFetcher(a.cfg.CacheDir, gpg.NewVerifier(), stream, a.logger),
				Builder:   gateways.NewBuilder(executor, gateways.NewPackager(), stream),
				Extractor: gateways.NewExtractor(a.logger),
				Installer: gateways.NewInstaller(),
				Inspector: gateways.NewBinaryInspector(),
				Checksums: gateways.NewChecksumVerifier(),
			}, orchestrators.InstallOrchestratorConfig{
				CellarDir: a.cfg.CellarDir,
			}, a.logger)

			result, err := orchestrator.Install(cmd.Context(), name, prefix)
			if err != nil {
				return err
			}

			warnOnMismatch(a.errOut, result)
			a.out.Success("%s %s installed", result.Formula.Name, result.Formula.Version)
			a.out.Println(result.GetInstallSummary())
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "install prefix (default: <cellar>/<name>/<version>)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "stream fetch and build output")
	return cmd
}

// warnOnMismatch reports an installed binary built for another target
func warnOnMismatch(p *printer, result *orchestrators.InstallResult) {
	info := result.BinaryInfo
	if info == nil || info.Matches(result.Target) {
		return
	}
	p.Warn("%s is a %s/%s binary, expected %s", result.Binary.Path, info.Format, info.Arch, result.Target.Triple)
}
