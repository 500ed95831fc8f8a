// Package parser provides utilities for parsing and transforming input data.
// It handles data normalization, validation, and conversion between formats.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/modelopt/taxonomy/internal/models"
)

var (
	errEmptyDocument = errors.New("empty document")
	errNotAnObject   = errors.New("document must be a JSON object")
	errEdgesNotAList = errors.New("invalid legacy graph: 'edges' must be a list")
)

// MalformedInputError reports a document that is not valid JSON, with the
// 1-based line and column of the failure when known.
type MalformedInputError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *MalformedInputError) Error() string {
	where := e.Path
	if where == "" {
		where = "input"
	}
	if e.Line > 0 {
		return fmt.Sprintf("malformed %s at line %d, column %d: %v", where, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("malformed %s: %v", where, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

func ParseDocument(data []byte) (models.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &MalformedInputError{Err: errEmptyDocument}
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		merr := &MalformedInputError{Err: err}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			merr.Line, merr.Column = position(data, syntaxErr.Offset)
		}
		return nil, merr
	}

	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, &MalformedInputError{Line: 1, Column: 1, Err: errNotAnObject}
	}
	return doc, nil
}

// LoadFile reads and parses a JSON document from disk.
func LoadFile(path string) (models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		var merr *MalformedInputError
		if errors.As(err, &merr) {
			merr.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// position converts a byte offset reported by encoding/json, which points
// just past the offending byte, into a line and column.
func position(data []byte, offset int64) (int, int) {
	end := int(offset)
	if end > len(data) {
		end = len(data)
	}
	if end < 1 {
		return 1, 1
	}
	before := data[:end]
	line := bytes.Count(before[:end-1], []byte("\n")) + 1
	column := end - 1 - bytes.LastIndexByte(before[:end-1], '\n')
	return line, column
}

// IsLegacyGraph reports whether a payload uses the node-map plus edge-list
// representation instead of the nested taxonomy.
func IsLegacyGraph(doc map[string]any) bool {
	if _, ok := models.AsList(doc["edges"]); ok {
		return true
	}
	if _, ok := models.AsMap(doc["nodes"]); !ok {
		return false
	}
	for key := range doc {
		if key != "nodes" && key != "edges" && key != "metadata" {
			return false
		}
	}
	return true
}

// DecodeLegacyGraph converts a generic legacy payload into its typed form.
// Edges are read one at a time: an edge that is not an object, or whose
// endpoints are not strings, is dropped, and a non-object data, weights or
// metadata value is treated as absent. Only an edges value that is not a
// list rejects the payload.
func DecodeLegacyGraph(doc map[string]any) (*models.LegacyGraph, error) {
	graph := &models.LegacyGraph{}
	if nodes, ok := models.AsMap(doc["nodes"]); ok {
		graph.Nodes = models.CloneMap(nodes)
	}
	if meta, ok := models.AsMap(doc["metadata"]); ok {
		nodeCount, _ := models.AsInt(meta["node_count"])
		edgeCount, _ := models.AsInt(meta["edge_count"])
		graph.Metadata = &models.GraphMetadata{NodeCount: int(nodeCount), EdgeCount: int(edgeCount)}
	}

	raw, present := doc["edges"]
	if !present || raw == nil {
		return graph, nil
	}
	edges, ok := models.AsList(raw)
	if !ok {
		return nil, &MalformedInputError{Err: errEdgesNotAList}
	}
	for _, item := range edges {
		edge, ok := decodeEdge(item)
		if !ok {
			continue
		}
		graph.Edges = append(graph.Edges, edge)
	}
	return graph, nil
}

func decodeEdge(raw any) (models.LegacyEdge, bool) {
	m, ok := models.AsMap(raw)
	if !ok {
		return models.LegacyEdge{}, false
	}
	var edge models.LegacyEdge
	for key, dst := range map[string]*string{
		"parent": &edge.Parent,
		"child":  &edge.Child,
		"source": &edge.Source,
		"target": &edge.Target,
	} {
		if v, present := m[key]; present && v != nil {
			s, ok := v.(string)
			if !ok {
				return models.LegacyEdge{}, false
			}
			*dst = s
		}
	}

	data, _ := models.AsMap(m["data"])
	if weights, ok := models.AsMap(data["weights"]); ok {
		edge.Data.Weights = models.Weights(models.CloneMap(weights))
	}
	if meta, ok := models.AsMap(data["metadata"]); ok {
		edge.Data.Metadata = models.CloneMap(meta)
	}
	edge.Data.RelationshipType, _ = data["relationship_type"].(string)
	edge.Data.RelationshipID, _ = data["relationship_id"].(string)
	if idx, ok := models.AsInt(data["chain_index"]); ok {
		i := int(idx)
		edge.Data.ChainIndex = &i
	}
	return edge, true
}
