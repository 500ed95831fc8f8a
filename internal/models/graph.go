// Package models defines the core data structures shared by the taxonomy
// engine, the persistence layer and the HTTP handlers.
package models

// LegacyGraph is the node-map plus edge-list representation that predates
// the nested taxonomy with top-level relationships.
type LegacyGraph struct {
	Nodes    map[string]any `json:"nodes"`
	Edges    []LegacyEdge   `json:"edges"`
	Metadata *GraphMetadata `json:"metadata,omitempty"`
}

// LegacyEdge accepts both the parent/child and the source/target spellings.
type LegacyEdge struct {
	Parent string   `json:"parent,omitempty"`
	Child  string   `json:"child,omitempty"`
	Source string   `json:"source,omitempty"`
	Target string   `json:"target,omitempty"`
	Data   EdgeData `json:"data"`
}

type EdgeData struct {
	Weights          Weights        `json:"weights"`
	RelationshipType string         `json:"relationship_type,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	RelationshipID   string         `json:"relationship_id,omitempty"`
	ChainIndex       *int           `json:"chain_index,omitempty"`
}

type GraphMetadata struct {
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// Endpoints returns the edge's start and end, preferring parent/child.
func (e LegacyEdge) Endpoints() (string, string) {
	from, to := e.Parent, e.Child
	if from == "" {
		from = e.Source
	}
	if to == "" {
		to = e.Target
	}
	return from, to
}

// Weights is the weight payload of a relationship or edge. Besides the
// well-known keys it may carry free-form metadata.
type Weights map[string]any

func (w Weights) SuccessProbability() (float64, bool) {
	return AsFloat(w["success_probability"])
}

func (w Weights) Confidence() (float64, bool) {
	return AsFloat(w["confidence"])
}

func (w Weights) SampleCount() (int64, bool) {
	return AsInt(w["sample_count"])
}

// WeightEntry is one weight payload found while scanning a taxonomy.
type WeightEntry struct {
	Source         string   `json:"source"`
	RelationshipID string   `json:"relationship_id,omitempty"`
	Path           string   `json:"path,omitempty"`
	Methods        []string `json:"methods"`
	Weights        Weights  `json:"weights"`
}

const (
	WeightSourceRelationships      = "relationships"
	WeightSourceModelRelationships = "model_relationships"
)
