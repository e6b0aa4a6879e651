// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/psqlpack/psqlpack/cmd/psqlpack/flags"
	"github.com/psqlpack/psqlpack/internal/emit"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:       "report <package.psqlpack>",
		Short:     "Emit the migration as a structured JSON deployment report",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"package"},
		RunE: func(cmd *cobra.Command, args []string) error {
			changeset, cat, err := runDiff(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cat.Close()

			raw, err := emit.Report(changeset)
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Println(string(raw))
				return nil
			}
			return os.WriteFile(output, raw, 0o644)
		},
	}

	flags.PgConnectionFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to this file instead of stdout")

	return cmd
}
