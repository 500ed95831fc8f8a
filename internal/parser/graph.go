// Package parser provides utilities for parsing and transforming input data.
// It handles data normalization, validation, and conversion between formats.
package parser

import (
	"strings"

	"github.com/modelopt/taxonomy/internal/models"
)

// DefaultRelationshipType is assigned to edges imported without a type.
const DefaultRelationshipType = "legacy_edge"

// SchemaToLegacy exports the top-level relationships of a taxonomy as a
// legacy edge list. Each relationship becomes one edge per adjacent method
// pair; node bodies are not reconstructed.
func SchemaToLegacy(doc models.Document) *models.LegacyGraph {
	graph := &models.LegacyGraph{
		Nodes: map[string]any{},
		Edges: []models.LegacyEdge{},
	}

	rels, _ := models.AsList(doc[models.KeyRelationships])
	for _, raw := range rels {
		rel, ok := models.AsMap(raw)
		if !ok {
			continue
		}
		graph.Edges = append(graph.Edges, buildEdges(rel)...)
	}

	graph.Metadata = &models.GraphMetadata{
		NodeCount: len(graph.Nodes),
		EdgeCount: len(graph.Edges),
	}
	return graph
}

func buildEdges(rel map[string]any) []models.LegacyEdge {
	methods := models.StringList(rel["methods"])
	if len(methods) < 2 {
		return nil
	}

	relType, _ := rel["relationship_type"].(string)
	relID, _ := rel["id"].(string)
	metadata, _ := models.AsMap(rel["metadata"])
	weights, _ := models.AsMap(rel["weights"])

	edges := make([]models.LegacyEdge, 0, len(methods)-1)
	for i := 0; i < len(methods)-1; i++ {
		index := i
		data := models.EdgeData{
			Weights:          copyWeights(weights),
			RelationshipType: relType,
			RelationshipID:   relID,
			ChainIndex:       &index,
		}
		if len(metadata) > 0 {
			data.Metadata = models.CloneMap(metadata)
		}
		edges = append(edges, models.LegacyEdge{
			Parent: methods[i],
			Child:  methods[i+1],
			Data:   data,
		})
	}
	return edges
}

// LegacyToSchema turns every edge with both endpoints into a 2-method
// relationship. A graph without usable edges yields a document with no
// relationships key at all.
func LegacyToSchema(graph *models.LegacyGraph) models.Document {
	doc := models.Document{}
	if graph == nil {
		return doc
	}

	var relationships []any
	for _, edge := range graph.Edges {
		from, to := edge.Endpoints()
		if from == "" || to == "" {
			continue
		}
		relationships = append(relationships, edgeToRelationship(from, to, edge.Data))
	}

	if len(relationships) > 0 {
		doc[models.KeyRelationships] = relationships
	}
	return doc
}

func edgeToRelationship(from, to string, data models.EdgeData) map[string]any {
	relType := data.RelationshipType
	if relType == "" {
		relType = DefaultRelationshipType
	}

	metadata := map[string]any{}
	if data.Metadata != nil {
		metadata = models.CloneMap(data.Metadata)
	}
	if data.RelationshipID != "" {
		metadata["source_relationship_id"] = data.RelationshipID
		if data.ChainIndex != nil {
			metadata["chain_index"] = *data.ChainIndex
		}
	}

	return map[string]any{
		"methods":           []any{from, to},
		"weights":           map[string]any(copyWeights(data.Weights)),
		"relationship_type": relType,
		"metadata":          metadata,
	}
}

func copyWeights(w map[string]any) models.Weights {
	if w == nil {
		return models.Weights{}
	}
	return models.Weights(models.CloneMap(w))
}

// ExtractWeights collects every weight payload in a taxonomy: top-level
// relationships first, then each model's relationships.method_combinations.
// An entry is emitted for every item carrying a weights key.
func ExtractWeights(doc models.Document) []models.WeightEntry {
	entries := []models.WeightEntry{}

	rels, _ := models.AsList(doc[models.KeyRelationships])
	for _, raw := range rels {
		rel, ok := models.AsMap(raw)
		if !ok {
			continue
		}
		raw, present := rel["weights"]
		if !present {
			continue
		}
		relID, _ := rel["id"].(string)
		entries = append(entries, models.WeightEntry{
			Source:         models.WeightSourceRelationships,
			RelationshipID: relID,
			Methods:        methodList(rel["methods"]),
			Weights:        entryWeights(raw),
		})
	}

	for _, family := range models.SortedKeys(doc) {
		if family == models.KeyRelationships {
			continue
		}
		subcategories, ok := models.AsMap(doc[family])
		if !ok {
			continue
		}
		for _, sub := range models.SortedKeys(subcategories) {
			modelNodes, ok := models.AsMap(subcategories[sub])
			if !ok {
				continue
			}
			for _, name := range models.SortedKeys(modelNodes) {
				model, ok := models.AsMap(modelNodes[name])
				if !ok {
					continue
				}
				path := strings.Join([]string{family, sub, name}, "/")
				entries = append(entries, modelWeights(model, path)...)
			}
		}
	}

	return entries
}

func modelWeights(model map[string]any, path string) []models.WeightEntry {
	rels, ok := models.AsMap(model[models.KeyRelationships])
	if !ok {
		return nil
	}
	combos, _ := models.AsList(rels[models.KeyMethodCombinations])

	var entries []models.WeightEntry
	for _, raw := range combos {
		combo, ok := models.AsMap(raw)
		if !ok {
			continue
		}
		raw, present := combo["weights"]
		if !present {
			continue
		}
		entries = append(entries, models.WeightEntry{
			Source:  models.WeightSourceModelRelationships,
			Path:    path,
			Methods: methodList(combo["methods"]),
			Weights: entryWeights(raw),
		})
	}
	return entries
}

// entryWeights copies an object payload. Any other value, null included, is
// reported as null.
func entryWeights(raw any) models.Weights {
	w, ok := models.AsMap(raw)
	if !ok {
		return nil
	}
	return copyWeights(w)
}

func methodList(v any) []string {
	methods := models.StringList(v)
	if methods == nil {
		return []string{}
	}
	return methods
}
