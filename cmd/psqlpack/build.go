// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/psqlpack/psqlpack/internal/archive"
	"github.com/psqlpack/psqlpack/internal/project"
	"github.com/spf13/cobra"
)

func buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "build <project-file> <output.psqlpack>",
		Short:     "Compile a project's SQL sources into a package archive",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"project-file", "output"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(args[0], args[1])
		},
	}
	return cmd
}

func runBuild(projectFile, output string) error {
	sp, _ := pterm.DefaultSpinner.WithText("Compiling project...").Start()

	contents, err := os.ReadFile(projectFile)
	if err != nil {
		sp.Fail(fmt.Sprintf("Failed to read project file: %s", err))
		return err
	}

	proj, err := project.LoadProject(projectFile, contents)
	if err != nil {
		sp.Fail(fmt.Sprintf("Failed to parse project file: %s", err))
		return err
	}

	root := filepath.Dir(projectFile)
	pkg, err := project.ToPackage(os.DirFS(root), ".", proj)
	if err != nil {
		sp.Fail(fmt.Sprintf("Failed to compile project sources: %s", err))
		return err
	}

	if err := pkg.GenerateDependencyGraph(); err != nil {
		sp.Fail(fmt.Sprintf("Failed to order package dependencies: %s", err))
		return err
	}

	meta := &archive.Meta{ToolVersion: Version, SourcePath: root}
	if err := archive.Write(output, pkg, meta); err != nil {
		sp.Fail(fmt.Sprintf("Failed to write package archive: %s", err))
		return err
	}

	sp.Success(fmt.Sprintf("Package written to %s", output))
	return nil
}
