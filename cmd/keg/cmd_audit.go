package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newAuditCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <file>...",
		Short: "Check formula files against the formula schema",
		Long: `Audit validates each formula file against the formula schema and then
parses it the way install would, reporting every problem found.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a := current()

			failed := 0
			for _, file := range args {
				if err := auditFile(a, file); err != nil {
					a.errOut.Error("%v", err)
					failed++
					continue
				}
				a.out.Success("%s", file)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d formula files failed audit", failed, len(args))
			}
			return nil
		},
	}
}

func auditFile(a *app, file string) error {
	//nolint:gosec // G304: auditing user-named files is the point
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	_, err = a.parser.Parse(filepath.Base(file), data)
	return err
}
