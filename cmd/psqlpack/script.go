// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/psqlpack/psqlpack/cmd/psqlpack/flags"
	"github.com/psqlpack/psqlpack/internal/emit"
	"github.com/spf13/cobra"
)

func scriptCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:       "script <package.psqlpack>",
		Short:     "Emit the migration as a SQL script, without applying it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"package"},
		RunE: func(cmd *cobra.Command, args []string) error {
			changeset, cat, err := runDiff(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cat.Close()

			sql := emit.Script(changeset)
			if output == "" {
				fmt.Print(sql)
				return nil
			}
			return os.WriteFile(output, []byte(sql), 0o644)
		},
	}

	flags.PgConnectionFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the script to this file instead of stdout")

	return cmd
}
