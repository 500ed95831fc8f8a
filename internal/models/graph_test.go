// Package models defines the core data structures shared by the taxonomy
// engine, the persistence layer and the HTTP handlers.
package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyGraphUnmarshal(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		var graph LegacyGraph
		err := json.Unmarshal([]byte(`{"nodes": {}, "edges": []}`), &graph)

		require.NoError(t, err)
		assert.Empty(t, graph.Nodes)
		assert.Empty(t, graph.Edges)
		assert.Nil(t, graph.Metadata)
	})

	t.Run("graph with weighted edge", func(t *testing.T) {
		jsonData := `{
			"nodes": {"node1": {"test": true}, "node2": {"test": true}},
			"edges": [
				{
					"parent": "node1",
					"child": "node2",
					"data": {
						"weights": {"success_probability": 0.82, "sample_count": 12, "confidence": 0.78},
						"relationship_type": "compatibility"
					}
				}
			]
		}`

		var graph LegacyGraph
		err := json.Unmarshal([]byte(jsonData), &graph)

		require.NoError(t, err)
		assert.Len(t, graph.Nodes, 2)
		require.Len(t, graph.Edges, 1)
		assert.Equal(t, "compatibility", graph.Edges[0].Data.RelationshipType)

		prob, ok := graph.Edges[0].Data.Weights.SuccessProbability()
		require.True(t, ok)
		assert.Equal(t, 0.82, prob)

		count, ok := graph.Edges[0].Data.Weights.SampleCount()
		require.True(t, ok)
		assert.Equal(t, int64(12), count)
	})

	t.Run("graph with metadata", func(t *testing.T) {
		var graph LegacyGraph
		err := json.Unmarshal([]byte(`{"nodes": {}, "edges": [], "metadata": {"node_count": 0, "edge_count": 3}}`), &graph)

		require.NoError(t, err)
		require.NotNil(t, graph.Metadata)
		assert.Equal(t, 3, graph.Metadata.EdgeCount)
	})
}

func TestLegacyEdgeEndpoints(t *testing.T) {
	t.Run("parent and child", func(t *testing.T) {
		from, to := LegacyEdge{Parent: "a", Child: "b"}.Endpoints()
		assert.Equal(t, "a", from)
		assert.Equal(t, "b", to)
	})

	t.Run("source and target spelling", func(t *testing.T) {
		from, to := LegacyEdge{Source: "a", Target: "b"}.Endpoints()
		assert.Equal(t, "a", from)
		assert.Equal(t, "b", to)
	})

	t.Run("parent wins over source", func(t *testing.T) {
		from, to := LegacyEdge{Parent: "p", Source: "s", Target: "t"}.Endpoints()
		assert.Equal(t, "p", from)
		assert.Equal(t, "t", to)
	})

	t.Run("missing endpoint is empty", func(t *testing.T) {
		from, to := LegacyEdge{Parent: "p"}.Endpoints()
		assert.Equal(t, "p", from)
		assert.Empty(t, to)
	})
}

func TestLegacyGraphMarshal(t *testing.T) {
	t.Run("omitempty fields are omitted", func(t *testing.T) {
		graph := LegacyGraph{
			Nodes: map[string]any{},
			Edges: []LegacyEdge{{Parent: "a", Child: "b", Data: EdgeData{Weights: Weights{}}}},
		}

		data, err := json.Marshal(graph)
		require.NoError(t, err)

		jsonString := string(data)
		assert.NotContains(t, jsonString, "metadata")
		assert.NotContains(t, jsonString, "source")
		assert.NotContains(t, jsonString, "relationship_type")
		assert.Contains(t, jsonString, `"weights":{}`)
	})

	t.Run("chain index zero is kept", func(t *testing.T) {
		zero := 0
		edge := LegacyEdge{Parent: "a", Child: "b", Data: EdgeData{Weights: Weights{}, ChainIndex: &zero}}

		data, err := json.Marshal(edge)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"chain_index":0`)
	})
}

func TestWeightsAccessors(t *testing.T) {
	w := Weights{"success_probability": 0.5, "confidence": "high", "sample_count": 3.5}

	_, ok := w.Confidence()
	assert.False(t, ok, "string confidence is not numeric")

	_, ok = w.SampleCount()
	assert.False(t, ok, "fractional sample count is not an integer")

	prob, ok := w.SuccessProbability()
	assert.True(t, ok)
	assert.Equal(t, 0.5, prob)
}
