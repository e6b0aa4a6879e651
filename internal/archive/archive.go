// SPDX-License-Identifier: Apache-2.0

// Package archive reads and writes a psqlpack package as a zip-of-JSON
// container (§6.1): one JSON file per definition, a deterministic entry
// order so two builds of an unchanged project produce byte-identical
// output, and an order.json/meta.json pair of optional top-level
// entries.
package archive

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/psqlpack/psqlpack/internal/depgraph"
	"github.com/psqlpack/psqlpack/internal/pserrors"
	"github.com/psqlpack/psqlpack/internal/schema"
	"github.com/psqlpack/psqlpack/internal/sqlast"
)

// fixedModTime is stamped on every zip entry so the writer's output is
// byte-identical across builds of an unchanged project: real wall-clock
// timestamps would otherwise make every rebuild produce a different
// central directory even when no definition changed.
var fixedModTime = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// Meta is the optional meta.json entry: provenance recorded at build
// time for diagnostics, not consumed by diff/publish.
type Meta struct {
	ToolVersion string `json:"toolVersion"`
	SourcePath  string `json:"sourcePath,omitempty"`
}

// Write serializes pkg into a new zip archive at path, following the
// write-to-temp-then-rename pattern: a crash mid-write leaves only the
// stray temp file behind, never a half-written archive at the real
// path. The temp file's name carries a random google/uuid suffix so
// concurrent builds in the same directory can't collide.
func Write(path string, pkg *schema.Package, meta *Meta) (err error) {
	tmpPath := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	f, err := os.Create(tmpPath)
	if err != nil {
		return &pserrors.PackageReadError{Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(f)
	if writeErr := writeEntries(zw, pkg, meta); writeErr != nil {
		_ = zw.Close()
		_ = f.Close()
		return writeErr
	}
	if closeErr := zw.Close(); closeErr != nil {
		_ = f.Close()
		return &pserrors.PackageReadError{Path: path, Err: closeErr}
	}
	if closeErr := f.Close(); closeErr != nil {
		return &pserrors.PackageReadError{Path: path, Err: closeErr}
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return &pserrors.PackageReadError{Path: path, Err: err}
	}
	return nil
}

// writeEntries writes every definition in the fixed entry order
// required by §6.1: extensions, functions, schemas, scripts, tables,
// types, indexes, then order.json and meta.json. Within each kind,
// entries are sorted by name so the archive's internal ordering never
// depends on slice append order upstream.
func writeEntries(zw *zip.Writer, pkg *schema.Package, meta *Meta) error {
	type entry struct {
		name string
		v    any
	}

	var extensions []entry
	for i := range pkg.Extensions {
		extensions = append(extensions, entry{"extensions/" + pkg.Extensions[i].Name + ".json", pkg.Extensions[i]})
	}
	var functions []entry
	for i := range pkg.Functions {
		functions = append(functions, entry{"functions/" + pkg.Functions[i].Name.String() + ".json", pkg.Functions[i]})
	}
	var schemas []entry
	for i := range pkg.Schemas {
		schemas = append(schemas, entry{"schemas/" + pkg.Schemas[i].Name + ".json", pkg.Schemas[i]})
	}
	var scripts []entry
	for i := range pkg.Scripts {
		scripts = append(scripts, entry{"scripts/" + pkg.Scripts[i].Name + ".json", pkg.Scripts[i]})
	}
	var tables []entry
	for i := range pkg.Tables {
		tables = append(tables, entry{"tables/" + pkg.Tables[i].Name.String() + ".json", pkg.Tables[i]})
	}
	var types []entry
	for i := range pkg.Types {
		types = append(types, entry{"types/" + pkg.Types[i].Name.String() + ".json", pkg.Types[i]})
	}
	var indexes []entry
	for i := range pkg.Indexes {
		indexes = append(indexes, entry{"indexes/" + pkg.Indexes[i].Name + ".json", pkg.Indexes[i]})
	}

	groups := [][]entry{extensions, functions, schemas, scripts, tables, types, indexes}
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool { return group[i].name < group[j].name })
		for _, e := range group {
			if err := writeJSONEntry(zw, e.name, e.v); err != nil {
				return err
			}
		}
	}

	if len(pkg.Order) > 0 {
		if err := writeJSONEntry(zw, "order.json", orderEntries(pkg.Order)); err != nil {
			return err
		}
	}
	if meta != nil {
		if err := writeJSONEntry(zw, "meta.json", meta); err != nil {
			return err
		}
	}
	return nil
}

// nodeEntry is the tagged JSON shape of a single depgraph.Node within
// order.json: the kind name rather than its bare iota, so the file is
// self-describing without the reader needing this package's constants.
type nodeEntry struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func orderEntries(order []depgraph.Node) []nodeEntry {
	entries := make([]nodeEntry, len(order))
	for i, n := range order {
		entries[i] = nodeEntry{Kind: n.Kind.String(), Value: n.Value}
	}
	return entries
}

func writeJSONEntry(zw *zip.Writer, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &pserrors.PackageReadError{Path: name, Err: err}
	}
	data = append(data, '\n')

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: fixedModTime,
	})
	if err != nil {
		return &pserrors.PackageReadError{Path: name, Err: err}
	}
	_, err = w.Write(data)
	return err
}

// Read opens the zip archive at path and reconstructs the Package it
// contains. The dependency-graph nodes stored in order.json become
// pkg.Order directly; every other entry is dispatched by its top-level
// directory.
func Read(path string) (*schema.Package, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &pserrors.PackageReadError{Path: path, Err: err}
	}
	defer zr.Close()

	pkg := schema.New()
	var order []nodeEntry

	for _, f := range zr.File {
		switch topLevelDir(f.Name) {
		case "extensions":
			var v sqlast.ExtensionDefinition
			if err := readJSONEntry(f, &v); err != nil {
				return nil, err
			}
			pkg.PushExtension(v)
		case "functions":
			var v sqlast.FunctionDefinition
			if err := readJSONEntry(f, &v); err != nil {
				return nil, err
			}
			pkg.PushFunction(v)
		case "schemas":
			var v sqlast.SchemaDefinition
			if err := readJSONEntry(f, &v); err != nil {
				return nil, err
			}
			pkg.PushSchema(v)
		case "scripts":
			var v sqlast.ScriptDefinition
			if err := readJSONEntry(f, &v); err != nil {
				return nil, err
			}
			pkg.PushScript(v)
		case "tables":
			var v sqlast.TableDefinition
			if err := readJSONEntry(f, &v); err != nil {
				return nil, err
			}
			pkg.PushTable(v)
		case "types":
			var v sqlast.TypeDefinition
			if err := readJSONEntry(f, &v); err != nil {
				return nil, err
			}
			pkg.PushType(v)
		case "indexes":
			var v sqlast.IndexDefinition
			if err := readJSONEntry(f, &v); err != nil {
				return nil, err
			}
			pkg.PushIndex(v)
		default:
			if f.Name == "order.json" {
				if err := readJSONEntry(f, &order); err != nil {
					return nil, err
				}
			}
			// meta.json is provenance only; the reader has no use for it.
		}
	}

	if order != nil {
		pkg.Order = make([]depgraph.Node, len(order))
		for i, e := range order {
			pkg.Order[i] = depgraph.Node{Kind: parseNodeKind(e.Kind), Value: e.Value}
		}
	}

	return pkg, nil
}

func parseNodeKind(s string) depgraph.NodeKind {
	switch s {
	case "Column":
		return depgraph.NodeColumn
	case "Constraint":
		return depgraph.NodeConstraint
	case "Function":
		return depgraph.NodeFunction
	case "Table":
		return depgraph.NodeTable
	default:
		return depgraph.NodeTable
	}
}

func readJSONEntry(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return &pserrors.PackageInternalReadError{Entry: f.Name, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return &pserrors.PackageInternalReadError{Entry: f.Name, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &pserrors.PackageUnarchiveError{Path: f.Name, Err: err}
	}
	return nil
}

// topLevelDir returns the first path segment of name, matching how the
// writer lays out entries ("extensions/foo.json" -> "extensions").
func topLevelDir(name string) string {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[:i]
	}
	return ""
}
