// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/psqlpack/psqlpack/cmd/psqlpack/flags"
	"github.com/psqlpack/psqlpack/internal/catalog"
	"github.com/psqlpack/psqlpack/internal/differ"
	"github.com/psqlpack/psqlpack/internal/plog"
)

// runDiff loads the package at packagePath, opens the connection and
// profile bound to the command's flags, and generates the changeset
// against the live database. The caller owns closing the returned
// catalog.
func runDiff(ctx context.Context, packagePath string) ([]differ.ChangeInstruction, *catalog.Postgres, error) {
	pkg, err := loadPackageArchive(packagePath)
	if err != nil {
		return nil, nil, err
	}

	conn, err := loadConnection()
	if err != nil {
		return nil, nil, err
	}

	profile, err := loadProfile(flags.Profile())
	if err != nil {
		return nil, nil, err
	}

	cat, err := catalog.Open(ctx, conn)
	if err != nil {
		return nil, nil, err
	}

	changeset, err := differ.Generate(ctx, pkg, cat, conn, profile, plog.New())
	if err != nil {
		cat.Close()
		return nil, nil, err
	}

	return changeset, cat, nil
}
