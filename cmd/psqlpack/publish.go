// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/psqlpack/psqlpack/cmd/psqlpack/flags"
	"github.com/psqlpack/psqlpack/internal/catalog"
	"github.com/psqlpack/psqlpack/internal/differ"
	"github.com/psqlpack/psqlpack/internal/emit"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func publishCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:       "publish <package.psqlpack>",
		Short:     "Diff a package against a live database and apply the resulting migration",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"package"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, args[0], dryRun)
		},
	}

	flags.PgConnectionFlags(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Generate the changeset but don't apply it")

	return cmd
}

func runPublish(cmd *cobra.Command, packagePath string, dryRun bool) error {
	ctx := cmd.Context()

	sp, _ := pterm.DefaultSpinner.WithText("Diffing package against target database...").Start()

	changeset, cat, err := runDiff(ctx, packagePath)
	if err != nil {
		sp.Fail(fmt.Sprintf("Failed to generate changeset: %s", err))
		return err
	}
	defer cat.Close()

	if len(changeset) == 0 {
		sp.Success("Database already matches the package; nothing to do")
		return nil
	}

	if dryRun {
		sp.Success(fmt.Sprintf("%d change(s) pending (dry run, nothing applied)", len(changeset)))
		return nil
	}

	for i, instr := range changeset {
		sp.UpdateText(fmt.Sprintf("(%d/%d) %s", i+1, len(changeset), instr.ProgressMessage()))

		if err := applyInstruction(ctx, cat, instr); err != nil {
			sp.Fail(fmt.Sprintf("Failed on %s: %s", instr.ProgressMessage(), err))
			return err
		}
	}

	sp.Success(fmt.Sprintf("Applied %d change(s)", len(changeset)))
	return nil
}

// applyInstruction routes a single instruction to the right execution
// surface: database-creation instructions run against the host
// connection (the target database may not exist yet), UseDatabase is a
// marker comment with nothing to execute, and everything else runs
// against the target database directly — one instruction at a time, as
// the original psqlpack.rs executes, with no trailing semicolon (that's
// a script-output concern, not an execute one).
func applyInstruction(ctx context.Context, cat catalog.Catalog, instr differ.ChangeInstruction) error {
	switch instr.Kind {
	case differ.UseDatabase:
		return nil
	case differ.DropDatabase, differ.CreateDatabase:
		return cat.RunHostStatement(ctx, emit.SQL(instr))
	default:
		return cat.Execute(ctx, emit.SQL(instr))
	}
}
