// SPDX-License-Identifier: Apache-2.0

// Package flags centralizes the viper-bound flags shared across the
// psqlpack command tree.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ConnectionString returns the DACPAC-style connection string
// ("host=...;database=...;userid=...") a diff/publish/script/report run
// targets.
func ConnectionString() string {
	return viper.GetString("CONNECTION_STRING")
}

// Profile returns the path to a publish profile manifest, or "" if the
// caller should fall back to project.DefaultPublishProfile.
func Profile() string {
	return viper.GetString("PROFILE")
}

// PgConnectionFlags registers the connection-string and publish-profile
// flags shared by every command that diffs a package against a live
// database.
func PgConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("connection-string", "", "Target database connection string (host=...;database=...;userid=...;password=...)")
	cmd.Flags().String("profile", "", "Path to a publish profile manifest (defaults to a conservative built-in profile)")

	viper.BindPFlag("CONNECTION_STRING", cmd.Flags().Lookup("connection-string"))
	viper.BindPFlag("PROFILE", cmd.Flags().Lookup("profile"))
}
