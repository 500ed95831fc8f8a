// Package parser provides utilities for parsing and transforming input data.
// It handles data normalization, validation, and conversion between formats.
package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelopt/taxonomy/internal/models"
)

func TestSchemaToLegacy(t *testing.T) {
	t.Run("empty taxonomy returns empty graph", func(t *testing.T) {
		graph := SchemaToLegacy(models.Document{})

		assert.NotNil(t, graph)
		assert.Empty(t, graph.Nodes)
		assert.Empty(t, graph.Edges)
		assert.Equal(t, &models.GraphMetadata{NodeCount: 0, EdgeCount: 0}, graph.Metadata)
	})

	t.Run("two method relationship creates single edge", func(t *testing.T) {
		doc := models.Document{"relationships": []any{
			map[string]any{
				"id":                "rel_1",
				"methods":           []any{"quantization/weight_only/methods[0]", "fusion/layer_fusion/methods[0]"},
				"weights":           map[string]any{"success_probability": 0.82, "sample_count": 12.0},
				"relationship_type": "synergy",
				"metadata":          map[string]any{"tested_models": []any{"resnet50"}},
			},
		}}

		graph := SchemaToLegacy(doc)

		require.Len(t, graph.Edges, 1)
		edge := graph.Edges[0]
		assert.Equal(t, "quantization/weight_only/methods[0]", edge.Parent)
		assert.Equal(t, "fusion/layer_fusion/methods[0]", edge.Child)
		assert.Equal(t, models.Weights{"success_probability": 0.82, "sample_count": 12.0}, edge.Data.Weights)
		assert.Equal(t, "synergy", edge.Data.RelationshipType)
		assert.Equal(t, "rel_1", edge.Data.RelationshipID)
		assert.Equal(t, []any{"resnet50"}, edge.Data.Metadata["tested_models"])
		require.NotNil(t, edge.Data.ChainIndex)
		assert.Equal(t, 0, *edge.Data.ChainIndex)
		assert.Equal(t, 1, graph.Metadata.EdgeCount)
	})

	t.Run("n-ary relationship creates a chain", func(t *testing.T) {
		doc := models.Document{"relationships": []any{
			map[string]any{"methods": []any{"a", "b", "c", "d"}, "weights": map[string]any{"confidence": 0.7}},
		}}

		graph := SchemaToLegacy(doc)

		require.Len(t, graph.Edges, 3)
		for i, pair := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}} {
			assert.Equal(t, pair[0], graph.Edges[i].Parent)
			assert.Equal(t, pair[1], graph.Edges[i].Child)
			assert.Equal(t, i, *graph.Edges[i].Data.ChainIndex)
			assert.Equal(t, models.Weights{"confidence": 0.7}, graph.Edges[i].Data.Weights)
		}
		assert.Empty(t, graph.Edges[0].Data.RelationshipType)
		assert.Nil(t, graph.Edges[0].Data.Metadata)
	})

	t.Run("edge weights are copies", func(t *testing.T) {
		weights := map[string]any{"confidence": 0.7}
		doc := models.Document{"relationships": []any{
			map[string]any{"methods": []any{"a", "b", "c"}, "weights": weights},
		}}

		graph := SchemaToLegacy(doc)
		graph.Edges[0].Data.Weights["confidence"] = 0.1

		assert.Equal(t, 0.7, weights["confidence"])
		assert.Equal(t, 0.7, graph.Edges[1].Data.Weights["confidence"])
	})

	t.Run("short and malformed relationships are skipped", func(t *testing.T) {
		doc := models.Document{"relationships": []any{
			map[string]any{"methods": []any{"a"}},
			"not a relationship",
		}}

		assert.Empty(t, SchemaToLegacy(doc).Edges)
	})

	t.Run("missing weights become empty object", func(t *testing.T) {
		doc := models.Document{"relationships": []any{map[string]any{"methods": []any{"a", "b"}}}}

		graph := SchemaToLegacy(doc)

		out, err := json.Marshal(graph.Edges[0])
		require.NoError(t, err)
		assert.JSONEq(t, `{"parent":"a","child":"b","data":{"weights":{},"chain_index":0}}`, string(out))
	})
}

func TestLegacyToSchema(t *testing.T) {
	t.Run("weights survive the conversion", func(t *testing.T) {
		var graph models.LegacyGraph
		require.NoError(t, json.Unmarshal([]byte(`{
			"nodes": {},
			"edges": [{"parent": "a", "child": "b", "data": {"weights": {"success_probability": 0.82, "sample_count": 12, "confidence": 0.78}}}]
		}`), &graph))

		doc := LegacyToSchema(&graph)

		rels := doc["relationships"].([]any)
		require.Len(t, rels, 1)
		rel := rels[0].(map[string]any)
		assert.Equal(t, []any{"a", "b"}, rel["methods"])
		assert.Equal(t, map[string]any{"success_probability": 0.82, "sample_count": 12.0, "confidence": 0.78}, rel["weights"])
		assert.Equal(t, DefaultRelationshipType, rel["relationship_type"])
		assert.Equal(t, map[string]any{}, rel["metadata"])
	})

	t.Run("source and target spelling", func(t *testing.T) {
		graph := &models.LegacyGraph{Edges: []models.LegacyEdge{
			{Source: "x", Target: "y", Data: models.EdgeData{RelationshipType: "conflict", Metadata: map[string]any{"note": "n"}}},
		}}

		rel := LegacyToSchema(graph)["relationships"].([]any)[0].(map[string]any)

		assert.Equal(t, []any{"x", "y"}, rel["methods"])
		assert.Equal(t, "conflict", rel["relationship_type"])
		assert.Equal(t, map[string]any{"note": "n"}, rel["metadata"])
		assert.Equal(t, map[string]any{}, rel["weights"])
	})

	t.Run("edges missing an endpoint are dropped", func(t *testing.T) {
		graph := &models.LegacyGraph{Edges: []models.LegacyEdge{{Parent: "a"}, {Target: "b"}}}

		doc := LegacyToSchema(graph)

		assert.NotContains(t, doc, "relationships")
	})

	t.Run("a malformed edge does not sink its neighbours", func(t *testing.T) {
		graph, err := DecodeLegacyGraph(map[string]any{"edges": []any{
			map[string]any{"parent": 7.0, "child": "x"},
			map[string]any{"parent": "a", "child": "b", "data": map[string]any{"weights": map[string]any{"confidence": 0.7}}},
			map[string]any{"parent": "c", "child": "d", "data": map[string]any{"metadata": "note"}},
		}})
		require.NoError(t, err)

		rels := LegacyToSchema(graph)["relationships"].([]any)

		require.Len(t, rels, 2)
		first := rels[0].(map[string]any)
		assert.Equal(t, []any{"a", "b"}, first["methods"])
		assert.Equal(t, map[string]any{"confidence": 0.7}, first["weights"])
		second := rels[1].(map[string]any)
		assert.Equal(t, []any{"c", "d"}, second["methods"])
		assert.Equal(t, map[string]any{}, second["metadata"])
	})

	t.Run("no edges means no relationships key", func(t *testing.T) {
		assert.Equal(t, models.Document{}, LegacyToSchema(&models.LegacyGraph{}))
		assert.Equal(t, models.Document{}, LegacyToSchema(nil))
	})

	t.Run("chain keeps its group id", func(t *testing.T) {
		doc := models.Document{"relationships": []any{
			map[string]any{"id": "rel_9", "methods": []any{"a", "b", "c"}},
		}}

		back := LegacyToSchema(SchemaToLegacy(doc))

		rels := back["relationships"].([]any)
		require.Len(t, rels, 2)
		for i, raw := range rels {
			meta := raw.(map[string]any)["metadata"].(map[string]any)
			assert.Equal(t, "rel_9", meta["source_relationship_id"])
			assert.Equal(t, i, meta["chain_index"])
		}
	})
}

func TestExtractWeights(t *testing.T) {
	doc := models.Document{
		"relationships": []any{
			map[string]any{"id": "rel_1", "methods": []any{"a", "b"}, "weights": map[string]any{"confidence": 0.9}},
			map[string]any{"id": "rel_2", "methods": []any{"c", "d"}},
		},
		"CNN": map[string]any{
			"Classification": map[string]any{
				"ResNet": map[string]any{
					"relationships": map[string]any{
						"method_combinations": []any{
							map[string]any{"methods": []any{"x", "y"}, "weights": map[string]any{"success_probability": 0.6}},
							map[string]any{"methods": []any{"z"}},
						},
					},
				},
				"summary": "text",
			},
		},
	}

	entries := ExtractWeights(doc)

	require.Len(t, entries, 2)
	assert.Equal(t, models.WeightEntry{
		Source:         models.WeightSourceRelationships,
		RelationshipID: "rel_1",
		Methods:        []string{"a", "b"},
		Weights:        models.Weights{"confidence": 0.9},
	}, entries[0])
	assert.Equal(t, models.WeightEntry{
		Source:  models.WeightSourceModelRelationships,
		Path:    "CNN/Classification/ResNet",
		Methods: []string{"x", "y"},
		Weights: models.Weights{"success_probability": 0.6},
	}, entries[1])

	t.Run("null weights still produce an entry", func(t *testing.T) {
		entries := ExtractWeights(models.Document{"relationships": []any{
			map[string]any{"id": "rel_1", "methods": []any{"a", "b"}, "weights": nil},
		}})

		require.Len(t, entries, 1)
		assert.Equal(t, "rel_1", entries[0].RelationshipID)
		assert.Nil(t, entries[0].Weights)
	})

	t.Run("empty taxonomy", func(t *testing.T) {
		entries := ExtractWeights(models.Document{})

		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})
}
