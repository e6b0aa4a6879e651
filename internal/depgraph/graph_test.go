// SPDX-License-Identifier: Apache-2.0

package depgraph_test

import (
	"testing"

	"github.com/psqlpack/psqlpack/internal/depgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodePanicsOnDuplicate(t *testing.T) {
	g := depgraph.New()
	table := depgraph.Node{Kind: depgraph.NodeTable, Value: "public.users"}
	g.AddNode(table)
	assert.Panics(t, func() { g.AddNode(table) })
}

func TestAddEdgePanicsOnUnknownNode(t *testing.T) {
	g := depgraph.New()
	table := depgraph.Node{Kind: depgraph.NodeTable, Value: "public.org"}
	col := depgraph.Node{Kind: depgraph.NodeColumn, Value: "public.org.id"}
	g.AddNode(table)
	assert.Panics(t, func() { g.AddEdge(col, depgraph.Edge{Node: table, Weight: 1.0}) })
}

func TestTracksDependencies(t *testing.T) {
	g := depgraph.New()
	table := depgraph.Node{Kind: depgraph.NodeTable, Value: "public.user"}
	colID := depgraph.Node{Kind: depgraph.NodeColumn, Value: "public.user.id"}
	colName := depgraph.Node{Kind: depgraph.NodeColumn, Value: "public.user.name"}

	g.AddNode(colID)
	g.AddNode(colName)
	assert.Equal(t, depgraph.Valid, g.Validate())

	g.AddEdge(colID, depgraph.Edge{Node: table, Weight: 1.0})
	g.AddEdge(colName, depgraph.Edge{Node: table, Weight: 1.0})
	assert.Equal(t, depgraph.UnresolvedDependencies, g.Validate())

	unresolved := g.Unresolved()
	require.Len(t, unresolved, 1)
	assert.Equal(t, table, unresolved[0])

	g.AddNode(table)
	assert.Equal(t, depgraph.Valid, g.Validate())
}

func TestDetectsCircularDependencies(t *testing.T) {
	g := depgraph.New()
	table := depgraph.Node{Kind: depgraph.NodeTable, Value: "public.user"}
	colID := depgraph.Node{Kind: depgraph.NodeColumn, Value: "public.user.id"}
	colName := depgraph.Node{Kind: depgraph.NodeColumn, Value: "public.user.name"}

	g.AddNode(table)
	g.AddNode(colID)
	g.AddNode(colName)
	g.AddEdge(colID, depgraph.Edge{Node: table, Weight: 1.0})
	g.AddEdge(colName, depgraph.Edge{Node: table, Weight: 1.0})
	g.AddEdge(colID, depgraph.Edge{Node: colName, Weight: 1.0})
	g.AddEdge(colName, depgraph.Edge{Node: colID, Weight: 1.0})

	assert.Equal(t, depgraph.CircularReference, g.Validate())
}

func TestTopologicalSortOrdersReferencedTableAheadOfForeignKey(t *testing.T) {
	g := depgraph.New()

	tableVersions := depgraph.Node{Kind: depgraph.NodeTable, Value: "data.versions"}
	tableCoefficients := depgraph.Node{Kind: depgraph.NodeTable, Value: "data.coefficients"}
	colVersionsID := depgraph.Node{Kind: depgraph.NodeColumn, Value: "data.versions.id"}
	colCoefficientsID := depgraph.Node{Kind: depgraph.NodeColumn, Value: "data.coefficients.id"}
	colCoefficientsVersionID := depgraph.Node{Kind: depgraph.NodeColumn, Value: "data.coefficients.version_id"}
	constraintFK := depgraph.Node{Kind: depgraph.NodeConstraint, Value: "data.coefficients.fk_coefficients__version_id"}

	g.AddNode(tableCoefficients)
	g.AddNodeWithEdges(colCoefficientsID, []depgraph.Edge{{Node: tableCoefficients, Weight: 1.0}})
	g.AddNodeWithEdges(colCoefficientsVersionID, []depgraph.Edge{{Node: tableCoefficients, Weight: 1.0}})
	g.AddNodeWithEdges(constraintFK, []depgraph.Edge{
		{Node: colCoefficientsVersionID, Weight: 1.0},
		{Node: colVersionsID, Weight: 1.1},
	})

	g.AddNode(tableVersions)
	g.AddNodeWithEdges(colVersionsID, []depgraph.Edge{{Node: tableVersions, Weight: 1.0}})

	require.Equal(t, depgraph.Valid, g.Validate())

	ordered := g.TopologicalSort()
	expected := []depgraph.Node{
		tableVersions,
		tableCoefficients,
		colVersionsID,
		colCoefficientsID,
		colCoefficientsVersionID,
		constraintFK,
	}
	require.Equal(t, len(expected), len(ordered))
	for i, n := range expected {
		assert.Equal(t, n, ordered[i], "position %d", i)
	}
}
