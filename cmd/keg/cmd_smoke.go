package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ochairo/keg/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/keg/internal/domain-orchestrators"
)

func newTestCmd(current func() *app) *cobra.Command {
	var prefix string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "test <formula>",
		Short: "Smoke-test an installed formula",
		Long: `Test runs the installed executable with the formula's test arguments and
checks that its output mentions the formula version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()

			orchestrator := orchestrators.NewVerifyOrchestrator(
				a.formulas,
				gateways.NewReceiptStore(),
				gateways.NewCommandExecutor(nil),
				gateways.NewChecksumVerifier(),
				orchestrators.VerifyOrchestratorConfig{
					CellarDir: a.cfg.CellarDir,
					Timeout:   timeout,
				},
				a.logger,
			)

			result, err := orchestrator.Verify(cmd.Context(), args[0], prefix)
			if err != nil {
				return err
			}

			a.out.Success("%s", result.GetVerifySummary())
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "install prefix (default: <cellar>/<name>/<version>)")
	cmd.Flags().DurationVar(&timeout, "timeout", orchestrators.DefaultSmokeTestTimeout, "smoke test timeout")
	return cmd
}
