package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available formulas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := current()

			formulas, err := a.formulas.ListFormulas(cmd.Context())
			if err != nil {
				return err
			}
			if len(formulas) == 0 {
				a.out.Println("No formulas found")
				return nil
			}

			width := 0
			for _, f := range formulas {
				if n := len(f.Name) + len(f.Version) + 1; n > width {
					width = n
				}
			}
			for _, f := range formulas {
				a.out.Println(fmt.Sprintf("%-*s  %s", width, f.Name+" "+f.Version, f.Description))
			}
			return nil
		},
	}
}
