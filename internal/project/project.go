// SPDX-License-Identifier: Apache-2.0

// Package project reads the two JSON manifests a deployment is driven
// by — the project file describing a source tree, and the publish
// profile governing how a diff against a live database is generated —
// and walks a project's directory into a compiled schema.Package.
package project

import (
	_ "embed"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/psqlpack/psqlpack/internal/pserrors"
	"github.com/psqlpack/psqlpack/internal/schema"
	"github.com/psqlpack/psqlpack/internal/sqlast"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/project.schema.json
var projectSchemaJSON string

//go:embed schema/profile.schema.json
var profileSchemaJSON string

var (
	projectSchema = jsonschema.MustCompileString("project.schema.json", projectSchemaJSON)
	profileSchema = jsonschema.MustCompileString("profile.schema.json", profileSchemaJSON)
)

// Project is the decoded project manifest (§6.2): the default schema new
// unqualified names acquire, the ordered list of pre/post-deployment
// scripts (order is the array index), and the extensions to declare
// regardless of whether any DDL file mentions them.
type Project struct {
	Version           string   `json:"version"`
	DefaultSchema     string   `json:"defaultSchema"`
	PreDeployScripts  []string `json:"preDeployScripts"`
	PostDeployScripts []string `json:"postDeployScripts"`
	Extensions        []string `json:"extensions"`
}

// GenerationOptions governs how the differ treats otherwise-unsafe
// changes.
type GenerationOptions struct {
	AlwaysRecreateDatabase bool `json:"alwaysRecreateDatabase"`
	AllowUnsafeOperations  bool `json:"allowUnsafeOperations"`
}

// PublishProfile is the decoded publish profile manifest (§6.3).
type PublishProfile struct {
	Version           string            `json:"version"`
	GenerationOptions GenerationOptions `json:"generationOptions"`
}

// DefaultPublishProfile mirrors the original's conservative defaults:
// never recreate the database, never allow an unsafe operation.
func DefaultPublishProfile() PublishProfile {
	return PublishProfile{Version: "1.0"}
}

// LoadProject decodes and schema-validates a project manifest. A missing
// defaultSchema defaults to "public", matching the original's own
// post-load fixup.
func LoadProject(path string, contents []byte) (*Project, error) {
	var raw any
	if err := json.Unmarshal(contents, &raw); err != nil {
		return nil, &pserrors.ProjectParseError{Path: path, Err: err}
	}
	if err := projectSchema.Validate(raw); err != nil {
		return nil, &pserrors.ProjectParseError{Path: path, Err: err}
	}

	var p Project
	if err := json.Unmarshal(contents, &p); err != nil {
		return nil, &pserrors.ProjectParseError{Path: path, Err: err}
	}
	if p.DefaultSchema == "" {
		p.DefaultSchema = "public"
	}
	return &p, nil
}

// LoadPublishProfile decodes and schema-validates a publish profile
// manifest.
func LoadPublishProfile(path string, contents []byte) (*PublishProfile, error) {
	var raw any
	if err := json.Unmarshal(contents, &raw); err != nil {
		return nil, &pserrors.PublishProfileParseError{Path: path, Err: err}
	}
	if err := profileSchema.Validate(raw); err != nil {
		return nil, &pserrors.PublishProfileParseError{Path: path, Err: err}
	}

	var profile PublishProfile
	if err := json.Unmarshal(contents, &profile); err != nil {
		return nil, &pserrors.PublishProfileParseError{Path: path, Err: err}
	}
	return &profile, nil
}

// ToPackage walks root (the directory the project file lives in),
// compiling every ".sql" file it finds into the returned Package: a file
// whose canonical path matches a declared pre/post-deployment script
// becomes a ScriptDefinition at that script's declared array index,
// everything else is tokenized and parsed as DDL. Parse/lex failures
// from different files are collected into a single
// *pserrors.MultipleErrors rather than aborting on the first.
func ToPackage(fsys fs.FS, root string, proj *Project) (*schema.Package, error) {
	preDeployPaths := resolveScriptPaths(root, proj.PreDeployScripts)
	postDeployPaths := resolveScriptPaths(root, proj.PostDeployScripts)

	pkg := schema.New()
	for _, ext := range proj.Extensions {
		pkg.PushExtension(sqlast.ExtensionDefinition{Name: ext})
	}

	var errs []error
	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}

		contents, err := fs.ReadFile(fsys, path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}

		if pos, ok := preDeployPaths[path]; ok {
			pkg.PushScript(sqlast.ScriptDefinition{
				Name: filepath.Base(path), Kind: sqlast.PreDeployment, Order: pos, Contents: string(contents),
			})
			return nil
		}
		if pos, ok := postDeployPaths[path]; ok {
			pkg.PushScript(sqlast.ScriptDefinition{
				Name: filepath.Base(path), Kind: sqlast.PostDeployment, Order: pos, Contents: string(contents),
			})
			return nil
		}

		stmts, parseErr := schema.ParseFile(path, string(contents))
		if parseErr != nil {
			errs = append(errs, parseErr)
			return nil
		}
		pkg.AddStatements(stmts, nil)
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, &pserrors.MultipleErrors{Errors: errs}
	}

	pkg.SetDefaults(proj.DefaultSchema)
	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return pkg, nil
}

// resolveScriptPaths maps each declared script's slash-joined path
// (relative to root, as fs.WalkDir reports it) to its declared array
// index, which is also its deployment order.
func resolveScriptPaths(root string, scripts []string) map[string]int {
	paths := make(map[string]int, len(scripts))
	for i, script := range scripts {
		joined := path(root, script)
		paths[joined] = i
	}
	return paths
}

func path(root, rel string) string {
	cleaned := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(rel)), "./")
	if root == "." || root == "" {
		return cleaned
	}
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(root))+"/"+cleaned, "./")
}
