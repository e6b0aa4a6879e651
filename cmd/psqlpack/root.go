// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is the psqlpack version, overridden at link time.
var Version = "development"

func init() {
	viper.SetEnvPrefix("PSQLPACK")
	viper.AutomaticEnv()
}

var rootCmd = &cobra.Command{
	Use:          "psqlpack",
	Short:        "Declarative schema management for PostgreSQL",
	SilenceUsage: true,
	Version:      Version,
}

// Execute runs the root command.
func Execute() error {
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(scriptCmd())
	rootCmd.AddCommand(reportCmd())

	return rootCmd.Execute()
}
