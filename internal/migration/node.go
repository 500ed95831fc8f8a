// Package migration upgrades taxonomy documents from the legacy flat/string
// method format to the structured ideal format.
package migration

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/modelopt/taxonomy/internal/models"
)

// LegacyFormatWarning records a method node that had to be upgraded. It is a
// diagnostic, never an error.
type LegacyFormatWarning struct {
	NodeID  string   `json:"node_id"`
	Reasons []string `json:"reasons"`
}

func (w LegacyFormatWarning) String() string {
	return fmt.Sprintf("legacy schema format detected for %s (%s)", w.NodeID, strings.Join(w.Reasons, ", "))
}

// Migrator upgrades method nodes and whole taxonomies. It collects a warning
// per legacy node it touches. A Migrator is not safe for concurrent use.
type Migrator struct {
	log      *zap.Logger
	warnings []LegacyFormatWarning
}

func New(log *zap.Logger) *Migrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Migrator{log: log}
}

// Warnings returns the legacy-format warnings collected so far.
func (m *Migrator) Warnings() []LegacyFormatWarning {
	out := make([]LegacyFormatWarning, len(m.warnings))
	copy(out, m.warnings)
	return out
}

func (m *Migrator) warn(nodeID string, reasons []string) {
	w := LegacyFormatWarning{NodeID: nodeID, Reasons: reasons}
	m.warnings = append(m.warnings, w)
	m.log.Warn("legacy schema format detected, migrating",
		zap.String("node", nodeID),
		zap.Strings("reasons", reasons),
	)
}

// LegacyReasons lists why a method node is not in the ideal format. An empty
// result means the node is already structured.
func LegacyReasons(node map[string]any) []string {
	var reasons []string
	if !models.Truthy(node["techniques"]) {
		reasons = append(reasons, "missing techniques")
	}
	if shapeOf(node, "performance") != shapeRecord {
		reasons = append(reasons, "performance is not an object")
	}
	if shapeOf(node, "validation") != shapeRecord {
		reasons = append(reasons, "validation is not an object")
	}
	switch shapeOf(node, "architecture") {
	case shapeRecord:
	case shapeAbsent:
		reasons = append(reasons, "missing architecture")
	default:
		reasons = append(reasons, "architecture is not an object")
	}
	if shapeOf(node, "paper") != shapeRecord {
		reasons = append(reasons, "paper is not an object")
	}
	return reasons
}

func IsLegacy(node map[string]any) bool {
	return len(LegacyReasons(node)) > 0
}

// MigrateNode returns an upgraded deep copy of a method node. The input is
// never modified and unknown keys survive. Migrating an ideal node is a no-op.
func (m *Migrator) MigrateNode(node map[string]any, nodeID string) map[string]any {
	if node == nil {
		return nil
	}
	out := models.CloneMap(node)
	if reasons := LegacyReasons(node); len(reasons) > 0 {
		m.warn(nodeID, reasons)
		syncName(out)
	}

	if !models.Truthy(out["techniques"]) {
		out["techniques"] = stringsToList(InferTechniques(methodName(out)))
	}

	out["performance"] = MigratePerformance(out)
	out["validation"] = MigrateValidation(out)
	out["architecture"] = MigrateArchitecture(out)
	if _, ok := out["architecture_family"]; !ok {
		out["architecture_family"] = out["architecture"].(map[string]any)["family"]
	}
	out["paper"] = MigratePaper(out)

	return out
}

// MigrateNode upgrades a single node without collecting warnings.
func MigrateNode(node map[string]any, nodeID string) map[string]any {
	return New(nil).MigrateNode(node, nodeID)
}

// syncName keeps name and its method_name alias in step.
func syncName(node map[string]any) {
	name, hasName := node["name"].(string)
	alias, hasAlias := node["method_name"].(string)
	switch {
	case hasName && !hasAlias:
		node["method_name"] = name
	case hasAlias && !hasName:
		node["name"] = alias
	}
}

func methodName(node map[string]any) string {
	if name := models.StringOr(node, "method_name", ""); name != "" {
		return name
	}
	return models.StringOr(node, "name", "")
}

func stringsToList(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
