package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ochairo/keg/internal/domain-adapters/gateways"
)

func newInfoCmd(current func() *app) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "info <formula>",
		Short: "Show a formula and its install state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()

			f, err := a.formulas.GetFormula(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			a.out.Heading("%s: %s", f.Name, f.Version)
			if f.Description != "" {
				a.out.Println(f.Description)
			}
			if f.Homepage != "" {
				a.out.Println(f.Homepage)
			}
			a.out.Field("Source", f.Source.URL)
			a.out.Field("Tag", f.Source.Tag)
			a.out.Field("Revision", f.Source.Revision)
			if f.Source.SigningKey != "" {
				a.out.Field("Signed", "tag signature required")
			}
			a.out.Field("Build", buildDescription(f.Build.System, f.Build.Target, f.Build.Package))
			if deps := f.BuildDependencies(); len(deps) > 0 {
				a.out.Field("Requires", strings.Join(deps, ", "))
			}

			if prefix == "" {
				prefix = f.DefaultPrefix(a.cfg.CellarDir)
			}
			receipt, err := gateways.NewReceiptStore().LoadReceipt(cmd.Context(), prefix)
			switch {
			case errors.Is(err, gateways.ErrNoReceipt):
				a.out.Field("Installed", "no")
				return nil
			case err != nil:
				return err
			}

			a.out.Field("Installed", receipt.BinaryPath)
			a.out.Field("Platform", receipt.Platform+" ("+receipt.Triple+")")
			a.out.Field("SHA-256", receipt.SHA256)
			a.out.Field("Date", receipt.InstalledAt.Local().Format(time.RFC1123))
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "install prefix (default: <cellar>/<name>/<version>)")
	return cmd
}

func buildDescription(system, target, pkg string) string {
	switch system {
	case "go":
		return "go build " + pkg
	case "", "bazel":
		return "bazel build " + target
	default:
		return system
	}
}
