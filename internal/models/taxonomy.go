// Package models defines the core data structures shared by the taxonomy
// engine, the persistence layer and the HTTP handlers.
package models

import (
	"fmt"
	"strings"
)

// Document is a taxonomy (or any sub-tree of one) decoded from JSON.
type Document = map[string]any

const (
	KeyRelationships        = "relationships"
	KeyOptimizationMethods  = "optimization_methods"
	KeyMethods              = "methods"
	KeyModelCharacteristics = "model_characteristics"
	KeyCalibrationFree      = "calibration_free_status"
	KeyMethodCombinations   = "method_combinations"
	KeyTaxonomy             = "taxonomy"
)

const (
	CategoryQuantization = "quantization"
	CategoryFusion       = "fusion"
	CategoryPruning      = "pruning"
	CategoryStructural   = "structural"

	// LegacyQuantizationCategory is the pre-rename spelling of CategoryQuantization.
	LegacyQuantizationCategory = "weight_quantization"
)

// Categories lists the valid optimization categories in canonical order.
var Categories = []string{CategoryQuantization, CategoryFusion, CategoryPruning, CategoryStructural}

var defaultSubcategories = map[string]string{
	CategoryQuantization: "weight_only",
	CategoryFusion:       "layer_fusion",
	CategoryPruning:      "structured",
	CategoryStructural:   "topology",
}

var (
	EffectivenessLevels = []string{"high", "medium", "low"}
	AccuracyImpacts     = []string{"zero", "minimal", "moderate"}
)

func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

func NormalizeCategory(name string) string {
	if name == LegacyQuantizationCategory {
		return CategoryQuantization
	}
	return name
}

// DefaultSubcategory names the synthetic subcategory a flat category is
// rewritten into. Unknown categories fall back to "general".
func DefaultSubcategory(category string) string {
	if sub, ok := defaultSubcategories[NormalizeCategory(category)]; ok {
		return sub
	}
	return "general"
}

// MethodContext renders the category/subcategory/methods[i] path used in
// validation messages and relationship method references.
func MethodContext(category, subcategory string, index int) string {
	return fmt.Sprintf("%s/%s/methods[%d]", category, subcategory, index)
}

// SplitPath splits a slash separated taxonomy path, dropping a leading or
// trailing slash.
func SplitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
