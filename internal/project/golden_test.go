// SPDX-License-Identifier: Apache-2.0

package project_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/psqlpack/psqlpack/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

// TestProjectSchemaValidation runs every testdata/*.txtar fixture through
// LoadProject: each archive pairs a project.json body with a "valid"
// boolean, grounded on the teacher's own jsonschema_test.go txtar-fixture
// pattern (there run against pgroll's migration schema; here against the
// project manifest schema).
func TestProjectSchemaValidation(t *testing.T) {
	runSchemaFixtures(t, "testdata", func(data []byte) error {
		_, err := project.LoadProject("project.json", data)
		return err
	})
}

// TestPublishProfileSchemaValidation is the same fixture pattern applied
// to the publish profile schema.
func TestPublishProfileSchemaValidation(t *testing.T) {
	runSchemaFixtures(t, filepath.Join("testdata", "profile"), func(data []byte) error {
		_, err := project.LoadPublishProfile("profile.json", data)
		return err
	})
}

func runSchemaFixtures(t *testing.T, dir string, load func([]byte) error) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txtar") {
			continue
		}

		t.Run(entry.Name(), func(t *testing.T) {
			ac, err := txtar.ParseFile(filepath.Join(dir, entry.Name()))
			require.NoError(t, err)
			require.Len(t, ac.Files, 2)

			wantValid, err := strconv.ParseBool(strings.TrimSpace(string(ac.Files[1].Data)))
			require.NoError(t, err)

			loadErr := load(ac.Files[0].Data)
			if wantValid {
				assert.NoError(t, loadErr)
			} else {
				assert.Error(t, loadErr)
			}
		})
	}
}
