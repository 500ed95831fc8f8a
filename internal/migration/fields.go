// Package migration upgrades taxonomy documents from the legacy flat/string
// method format to the structured ideal format.
package migration

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/modelopt/taxonomy/internal/models"
)

// fieldShape classifies a method field by generation. Every field migrator
// switches on it instead of probing keys ad hoc.
type fieldShape int

const (
	shapeAbsent fieldShape = iota
	shapeScalar
	shapeRecord
	shapeList
)

func shapeOf(node map[string]any, key string) fieldShape {
	v, ok := node[key]
	if !ok || v == nil {
		return shapeAbsent
	}
	if _, ok := models.AsMap(v); ok {
		return shapeRecord
	}
	if _, ok := models.AsList(v); ok {
		return shapeList
	}
	return shapeScalar
}

var arxivPattern = regexp.MustCompile(`arxiv\.org/(?:abs|pdf)/(\d+\.\d+)`)

var accuracyRetention = map[string]float64{
	"zero":     1.0,
	"minimal":  0.95,
	"moderate": 0.85,
}

// parseMultiplier reads values such as "2.0×", "4x" or 1.25. Anything that
// does not parse counts as 1.0.
func parseMultiplier(v any) float64 {
	if f, ok := models.AsFloat(v); ok {
		return f
	}
	s, ok := v.(string)
	if !ok {
		return 1.0
	}
	cleaned := strings.NewReplacer("×", "", "x", "", "X", "").Replace(s)
	f, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 1.0
	}
	return f
}

func recordCopy(node map[string]any, key string) map[string]any {
	if shapeOf(node, key) == shapeRecord {
		return models.CloneMap(node[key].(map[string]any))
	}
	return map[string]any{}
}

// MigratePerformance builds the structured performance record from the
// legacy speedup, compression_ratio and accuracy fields. Keys already present
// in a structured record are kept as they are.
func MigratePerformance(node map[string]any) map[string]any {
	perf := recordCopy(node, "performance")

	if _, ok := perf["latency_speedup"]; !ok {
		speedup := node["speedup"]
		if !models.Truthy(speedup) {
			speedup = node["latency_speedup"]
		}
		perf["latency_speedup"] = 1.0
		if models.Truthy(speedup) {
			perf["latency_speedup"] = parseMultiplier(speedup)
		}
	}

	if _, ok := perf["compression_ratio"]; !ok {
		perf["compression_ratio"] = 1.0
		if ratio := node["compression_ratio"]; models.Truthy(ratio) {
			perf["compression_ratio"] = parseMultiplier(ratio)
		}
	}

	if _, ok := perf["accuracy_retention"]; !ok {
		perf["accuracy_retention"] = deriveAccuracyRetention(node)
	}

	if _, ok := perf["memory_reduction"]; !ok {
		if ratio, ok := models.AsFloat(perf["compression_ratio"]); ok {
			perf["memory_reduction"] = max(0.0, ratio-1.0)
		}
	}

	return perf
}

func deriveAccuracyRetention(node map[string]any) float64 {
	impact, _ := node["accuracy_impact"].(string)
	if retention, ok := accuracyRetention[strings.ToLower(impact)]; ok {
		return retention
	}
	if drop, ok := models.AsFloat(node["accuracy_drop"]); ok {
		return 1.0 - drop
	}
	return 1.0
}

// MigrateValidation builds the statistical-confidence record.
func MigrateValidation(node map[string]any) map[string]any {
	val := recordCopy(node, "validation")

	if _, ok := val["confidence"]; !ok {
		val["confidence"] = 0.5
		if c, ok := models.AsFloat(node["confidence"]); ok {
			val["confidence"] = c
		}
	}
	if _, ok := val["sample_count"]; !ok {
		val["sample_count"] = passthrough(node, "sample_count", 0)
	}
	if _, ok := val["validators"]; !ok {
		val["validators"] = passthrough(node, "validators", 0)
	}
	if _, ok := val["last_validated"]; !ok {
		val["last_validated"] = node["last_validated"]
	}
	if _, ok := val["validation_method"]; !ok {
		val["validation_method"] = passthrough(node, "validation_method", "unknown")
	}

	return val
}

// MigrateArchitecture turns a bare architecture string into a
// {family, variant} record, filling gaps from architecture_family.
func MigrateArchitecture(node map[string]any) map[string]any {
	family := models.StringOr(node, "architecture_family", "Unknown")

	switch shapeOf(node, "architecture") {
	case shapeRecord:
		arch := models.CloneMap(node["architecture"].(map[string]any))
		if _, ok := arch["family"]; !ok {
			arch["family"] = family
		}
		if _, ok := arch["variant"]; !ok {
			arch["variant"] = models.StringOr(arch, "name", "Unknown")
		}
		return arch
	case shapeScalar:
		if s, ok := node["architecture"].(string); ok {
			return map[string]any{"family": family, "variant": s}
		}
	}

	return map[string]any{"family": family, "variant": "Unknown"}
}

// MigratePaper collects the flat paper_* fields into a provenance record.
func MigratePaper(node map[string]any) map[string]any {
	paper := recordCopy(node, "paper")

	if _, ok := paper["title"]; !ok {
		paper["title"] = paperTitle(node)
	}

	if _, ok := paper["authors"]; !ok {
		paper["authors"] = splitAuthors(node["authors"])
	}

	if _, ok := paper["venue"]; !ok {
		paper["venue"] = passthrough(node, "venue", "")
	}
	if _, ok := paper["year"]; !ok {
		paper["year"] = passthrough(node, "year", 0)
	}

	link, _ := node["paper_link"].(string)
	if _, ok := paper["arxiv_id"]; !ok {
		paper["arxiv_id"] = ""
		if match := arxivPattern.FindStringSubmatch(link); match != nil {
			paper["arxiv_id"] = match[1]
		}
	}
	if _, ok := paper["url"]; !ok {
		paper["url"] = link
	}

	return paper
}

func paperTitle(node map[string]any) string {
	if title, ok := node["paper_title"].(string); ok && title != "" {
		return title
	}
	if source, ok := models.AsMap(node["source"]); ok {
		if refs, ok := models.AsList(source["paper_refs"]); ok && len(refs) > 0 {
			if first, ok := refs[0].(string); ok {
				return first
			}
		}
	}
	return ""
}

func splitAuthors(v any) []any {
	if s, ok := v.(string); ok {
		authors := []any{}
		for _, part := range strings.Split(s, ",") {
			if name := strings.TrimSpace(part); name != "" {
				authors = append(authors, name)
			}
		}
		return authors
	}
	if list, ok := models.AsList(v); ok {
		return models.Clone(list).([]any)
	}
	return []any{}
}

func passthrough(node map[string]any, key string, fallback any) any {
	if v, ok := node[key]; ok && v != nil {
		return models.Clone(v)
	}
	return fallback
}
