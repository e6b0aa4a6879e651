// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/psqlpack/psqlpack/cmd/psqlpack/flags"
	"github.com/psqlpack/psqlpack/internal/archive"
	"github.com/psqlpack/psqlpack/internal/connstr"
	"github.com/psqlpack/psqlpack/internal/project"
	"github.com/psqlpack/psqlpack/internal/schema"
)

// loadPackageArchive reads a compiled .psqlpack archive from disk.
func loadPackageArchive(path string) (*schema.Package, error) {
	return archive.Read(path)
}

// loadProfile reads a publish profile manifest from path, or returns the
// conservative built-in default when path is empty.
func loadProfile(path string) (project.PublishProfile, error) {
	if path == "" {
		return project.DefaultPublishProfile(), nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return project.PublishProfile{}, &wrappedReadError{path: path, err: err}
	}
	profile, err := project.LoadPublishProfile(path, contents)
	if err != nil {
		return project.PublishProfile{}, err
	}
	return *profile, nil
}

// loadConnection parses the connection string bound to --connection-string.
func loadConnection() (connstr.Connection, error) {
	raw := flags.ConnectionString()
	if raw == "" {
		return connstr.Connection{}, fmt.Errorf("--connection-string is required")
	}
	return connstr.Parse(raw)
}

// wrappedReadError gives a file-read failure outside internal/project's
// own error taxonomy (profile path itself unreadable, as opposed to
// malformed once read) a message consistent with the rest of the CLI.
type wrappedReadError struct {
	path string
	err  error
}

func (e *wrappedReadError) Error() string {
	return fmt.Sprintf("reading %q: %s", e.path, e.err)
}

func (e *wrappedReadError) Unwrap() error { return e.err }
