// Package migration upgrades taxonomy documents from the legacy flat/string
// method format to the structured ideal format.
package migration

import (
	"fmt"
	"strings"

	"github.com/modelopt/taxonomy/internal/models"
)

// MaxReportedErrors caps how many audit errors are printed in a report.
const MaxReportedErrors = 20

// structuralKeys are model-level keys that never hold nested model families.
var structuralKeys = map[string]bool{
	models.KeyOptimizationMethods:  true,
	models.KeyModelCharacteristics: true,
	models.KeyCalibrationFree:      true,
	models.KeyRelationships:        true,
}

// VisitMethods calls fn for every entry of every methods list in the tree, in
// sorted key order. Flat and nested categories are both visited.
func VisitMethods(doc map[string]any, fn func(path string, method any)) {
	visitTree(doc, "", fn)
}

func visitTree(node map[string]any, path string, fn func(string, any)) {
	for _, key := range models.SortedKeys(node) {
		if key == models.KeyOptimizationMethods {
			if opt, ok := models.AsMap(node[key]); ok {
				visitCategories(opt, path, fn)
			}
			continue
		}
		if structuralKeys[key] {
			continue
		}
		if child, ok := models.AsMap(node[key]); ok {
			visitTree(child, joinPath(path, key), fn)
		}
	}
}

func visitCategories(opt map[string]any, path string, fn func(string, any)) {
	for _, category := range models.SortedKeys(opt) {
		data, ok := models.AsMap(opt[category])
		if !ok {
			continue
		}
		if methods, ok := models.AsList(data[models.KeyMethods]); ok {
			for i, method := range methods {
				fn(fmt.Sprintf("%s/methods[%d]", joinPath(path, category), i), method)
			}
			continue
		}
		for _, sub := range models.SortedKeys(data) {
			subData, ok := models.AsMap(data[sub])
			if !ok {
				continue
			}
			methods, _ := models.AsList(subData[models.KeyMethods])
			for i, method := range methods {
				fn(joinPath(path, models.MethodContext(category, sub, i)), method)
			}
		}
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "/" + key
}

// Audit checks every method of a migrated taxonomy for ideal-shape
// compliance. All problems are collected; nothing is fail-fast.
func Audit(doc map[string]any) []string {
	var errs []string
	VisitMethods(doc, func(path string, method any) {
		switch t := method.(type) {
		case string:
			errs = append(errs, fmt.Sprintf("%s: legacy string method %q was not migrated", path, t))
		case map[string]any:
			errs = append(errs, auditMethod(path, t)...)
		default:
			errs = append(errs, fmt.Sprintf("%s: method must be an object", path))
		}
	})
	return errs
}

func auditMethod(path string, method map[string]any) []string {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, path+": "+fmt.Sprintf(format, args...))
	}

	if !models.Truthy(method["techniques"]) {
		add("missing or empty 'techniques' field")
	}

	if perf, ok := models.AsMap(method["performance"]); ok {
		for _, field := range []string{"latency_speedup", "compression_ratio", "accuracy_retention"} {
			if _, ok := perf[field]; !ok {
				add("missing 'performance.%s' field", field)
			}
		}
	} else {
		add("missing or invalid 'performance' field (must be an object)")
	}

	if val, ok := models.AsMap(method["validation"]); ok {
		for _, field := range []string{"confidence", "sample_count"} {
			if _, ok := val[field]; !ok {
				add("missing 'validation.%s' field", field)
			}
		}
	} else {
		add("missing or invalid 'validation' field (must be an object)")
	}

	switch arch := method["architecture"].(type) {
	case nil:
		add("missing 'architecture' field")
	case string:
		add("'architecture' is still a string (should be an object)")
	case map[string]any:
		_, hasFamily := arch["family"]
		_, hasVariant := arch["variant"]
		if !hasFamily || !hasVariant {
			add("'architecture' object missing 'family' or 'variant'")
		}
	default:
		add("invalid 'architecture' field (must be an object)")
	}

	if _, ok := models.AsMap(method["paper"]); !ok {
		add("missing or invalid 'paper' field (must be an object)")
	}

	return errs
}

// Stats summarises a migration run.
type Stats struct {
	MethodsBefore      int `json:"methods_before"`
	LegacyBefore       int `json:"legacy_before"`
	MethodsAfter       int `json:"methods_after"`
	WithTechniques     int `json:"with_techniques"`
	WithPerformance    int `json:"with_performance"`
	WithValidation     int `json:"with_validation"`
	WithArchitecture   int `json:"with_architecture"`
	WithPaper          int `json:"with_paper"`
	StringMethodsAfter int `json:"string_methods_after"`
}

func CollectStats(before, after map[string]any) Stats {
	var s Stats
	VisitMethods(before, func(_ string, method any) {
		s.MethodsBefore++
		switch t := method.(type) {
		case string:
			s.LegacyBefore++
		case map[string]any:
			if IsLegacy(t) {
				s.LegacyBefore++
			}
		}
	})
	VisitMethods(after, func(_ string, method any) {
		s.MethodsAfter++
		m, ok := models.AsMap(method)
		if !ok {
			if _, isString := method.(string); isString {
				s.StringMethodsAfter++
			}
			return
		}
		if models.Truthy(m["techniques"]) {
			s.WithTechniques++
		}
		if shapeOf(m, "performance") == shapeRecord {
			s.WithPerformance++
		}
		if shapeOf(m, "validation") == shapeRecord {
			s.WithValidation++
		}
		if shapeOf(m, "architecture") == shapeRecord {
			s.WithArchitecture++
		}
		if shapeOf(m, "paper") == shapeRecord {
			s.WithPaper++
		}
	})
	return s
}

// Report renders stats and audit errors for humans.
func Report(stats Stats, errs []string) string {
	rule := strings.Repeat("=", 60)
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(rule)
	line("MIGRATION REPORT")
	line(rule)
	line("")
	line("Methods before migration: %d (%d legacy)", stats.MethodsBefore, stats.LegacyBefore)
	line("Methods after migration: %d", stats.MethodsAfter)
	line("  - With techniques: %d", stats.WithTechniques)
	line("  - With performance object: %d", stats.WithPerformance)
	line("  - With validation object: %d", stats.WithValidation)
	line("  - With architecture object: %d", stats.WithArchitecture)
	line("  - With paper object: %d", stats.WithPaper)
	line("")
	if len(errs) == 0 {
		line("Validation Status: PASSED")
	} else {
		line("Validation Status: FAILED")
		line("Validation Errors: %d", len(errs))
		b.WriteString(FormatErrors(errs))
	}
	line("")
	b.WriteString(rule)
	return b.String()
}

// FormatErrors lists at most MaxReportedErrors errors, one per line.
func FormatErrors(errs []string) string {
	var b strings.Builder
	for i, err := range errs {
		if i == MaxReportedErrors {
			fmt.Fprintf(&b, "  ... and %d more errors\n", len(errs)-MaxReportedErrors)
			break
		}
		fmt.Fprintf(&b, "  - %s\n", err)
	}
	return b.String()
}
