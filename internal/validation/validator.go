// Package validation checks taxonomy documents, methods and relationships
// against the structural schema rules.
package validation

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/modelopt/taxonomy/internal/migration"
	"github.com/modelopt/taxonomy/internal/models"
)

// Mode selects how strictly method entries are checked.
type Mode int

const (
	// Transitional accepts both the legacy flat and the structured method
	// shapes. Legacy shapes are logged, never rejected.
	Transitional Mode = iota
	// StrictLegacy requires the full set of flat legacy fields.
	StrictLegacy
)

var strictRequired = []string{
	"name", "paper_title", "paper_link", "venue",
	"year", "authors", "effectiveness", "accuracy_impact",
}

// Validator is stateless apart from its logger and is safe for concurrent use.
// Every check fails fast on the first violation.
type Validator struct {
	mode Mode
	log  *zap.Logger
}

func New(log *zap.Logger) *Validator {
	return NewWithMode(log, Transitional)
}

func NewWithMode(log *zap.Logger, mode Mode) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{mode: mode, log: log}
}

// ValidateSchemaStructure walks model_family -> subcategory -> model and
// checks every optimization_methods block it finds. Non-dict entries below
// the family level are skipped.
func (v *Validator) ValidateSchemaStructure(doc map[string]any) error {
	if len(doc) == 0 {
		return nil
	}

	if raw, ok := doc[models.KeyRelationships]; ok {
		rels, ok := models.AsList(raw)
		if !ok {
			return violation(models.KeyRelationships, "", "'relationships' must be a list")
		}
		for i, rel := range rels {
			if err := v.validateRelationship(rel, true, fmt.Sprintf("relationships[%d]", i)); err != nil {
				return err
			}
		}
	}

	for _, family := range models.SortedKeys(doc) {
		if family == models.KeyRelationships {
			continue
		}
		subcategories, ok := models.AsMap(doc[family])
		if !ok {
			return violation(family, "", "subcategories for '%s' must be an object", family)
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
				context := strings.Join([]string{family, sub, name}, "/")
				if err := v.validateModel(model, context); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (v *Validator) validateModel(model map[string]any, context string) error {
	raw, ok := model[models.KeyOptimizationMethods]
	if !ok || raw == nil {
		return nil
	}
	opt, ok := models.AsMap(raw)
	if !ok {
		return violation(models.KeyOptimizationMethods, context, "optimization_methods must be an object")
	}

	categories := models.SortedKeys(opt)
	for _, category := range categories {
		if !models.IsCategory(category) {
			return violation(models.KeyOptimizationMethods, context,
				"invalid category '%s', must be one of %v", category, models.Categories)
		}
	}

	for _, category := range categories {
		subs, ok := models.AsMap(opt[category])
		if !ok {
			return violation(category, context, "category '%s' must contain an object of subcategories", category)
		}
		for _, sub := range models.SortedKeys(subs) {
			if err := v.validateSubcategory(category, sub, subs[sub]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *Validator) validateSubcategory(category, sub string, raw any) error {
	context := category + "/" + sub
	data, ok := models.AsMap(raw)
	if !ok {
		return violation(sub, context, "subcategory '%s' in '%s' must be an object", sub, category)
	}
	if _, ok := data[models.KeyMethods]; !ok {
		return violation(sub, context, "subcategory '%s' in '%s' must have a 'methods' key", sub, category)
	}
	methods, ok := models.AsList(data[models.KeyMethods])
	if !ok {
		return violation(models.KeyMethods, context, "'methods' in '%s' must be a list", context)
	}
	for i, method := range methods {
		if _, isName := method.(string); isName {
			continue
		}
		if err := v.ValidateMethod(method, models.MethodContext(category, sub, i)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMethod checks one method entry. The context is carried into any
// returned error.
func (v *Validator) ValidateMethod(raw any, context string) error {
	method, ok := models.AsMap(raw)
	if !ok {
		return violation("", context, "method must be an object")
	}
	if v.mode == StrictLegacy {
		if err := validateStrictFields(method, context); err != nil {
			return err
		}
	}

	if name, ok := method["name"].(string); !ok || strings.TrimSpace(name) == "" {
		return violation("name", context, "method 'name' must be a non-empty string")
	}
	if err := oneOf(method, "effectiveness", models.EffectivenessLevels, context); err != nil {
		return err
	}
	if err := oneOf(method, "accuracy_impact", models.AccuracyImpacts, context); err != nil {
		return err
	}
	if err := validateTechniques(method, context); err != nil {
		return err
	}
	if err := validatePerformance(method, context); err != nil {
		return err
	}
	if err := validateStatistics(method, context); err != nil {
		return err
	}
	if err := validateArchitecture(method, context); err != nil {
		return err
	}
	if raw, ok := method["paper"]; ok {
		if _, ok := models.AsMap(raw); !ok {
			return violation("paper", context, "method 'paper' must be an object")
		}
	}
	if err := validateLegacyFields(method, context); err != nil {
		return err
	}

	if reasons := migration.LegacyReasons(method); v.mode == Transitional && len(reasons) > 0 {
		v.log.Warn("legacy method shape accepted",
			zap.String("context", context),
			zap.Strings("reasons", reasons),
		)
	}
	return nil
}

func validateStrictFields(method map[string]any, context string) error {
	for _, field := range strictRequired {
		if _, ok := method[field]; !ok {
			return violation(field, context, "method missing required field '%s'", field)
		}
	}
	for _, field := range []string{"paper_title", "paper_link", "venue", "authors"} {
		if s, ok := method[field].(string); !ok || strings.TrimSpace(s) == "" {
			return violation(field, context, "method '%s' must be a non-empty string", field)
		}
	}
	for _, field := range []string{"compression_ratio", "speedup"} {
		if raw, ok := method[field]; ok && raw != nil {
			if _, ok := raw.(string); !ok {
				return violation(field, context, "method '%s' must be a string or null", field)
			}
		}
	}
	return nil
}

func oneOf(method map[string]any, field string, allowed []string, context string) error {
	raw, ok := method[field]
	if !ok {
		return nil
	}
	if s, ok := raw.(string); ok && slices.Contains(allowed, s) {
		return nil
	}
	return violation(field, context, "method '%s' must be one of %v", field, allowed)
}

func validateTechniques(method map[string]any, context string) error {
	raw, ok := method["techniques"]
	if !ok {
		return nil
	}
	techniques, ok := models.AsList(raw)
	if !ok {
		return violation("techniques", context, "method 'techniques' must be a list")
	}
	for _, t := range techniques {
		if _, ok := t.(string); !ok {
			return violation("techniques", context, "method 'techniques' must contain strings")
		}
	}
	return nil
}

func validatePerformance(method map[string]any, context string) error {
	raw, ok := method["performance"]
	if !ok {
		return nil
	}
	perf, ok := models.AsMap(raw)
	if !ok {
		return violation("performance", context, "method 'performance' must be an object")
	}
	for _, field := range []string{"latency_speedup", "compression_ratio", "accuracy_retention", "memory_reduction"} {
		if value, ok := perf[field]; ok && !models.IsNumber(value) {
			return violation("performance."+field, context, "'performance.%s' must be a number", field)
		}
	}
	return nil
}

func validateStatistics(method map[string]any, context string) error {
	raw, ok := method["validation"]
	if !ok {
		return nil
	}
	val, ok := models.AsMap(raw)
	if !ok {
		return violation("validation", context, "method 'validation' must be an object")
	}
	if value, ok := val["confidence"]; ok {
		if c, ok := models.AsFloat(value); !ok || c < 0 || c > 1 {
			return violation("validation.confidence", context, "'validation.confidence' must be a number between 0 and 1")
		}
	}
	for _, field := range []string{"sample_count", "validators"} {
		if value, ok := val[field]; ok {
			if n, ok := models.AsInt(value); !ok || n < 0 {
				return violation("validation."+field, context, "'validation.%s' must be a non-negative integer", field)
			}
		}
	}
	return nil
}

func validateArchitecture(method map[string]any, context string) error {
	raw, ok := method["architecture"]
	if !ok {
		return nil
	}
	if _, ok := raw.(string); ok {
		return nil
	}
	arch, ok := models.AsMap(raw)
	if !ok {
		return violation("architecture", context, "method 'architecture' must be a string or an object")
	}
	_, hasFamily := arch["family"]
	_, hasVariant := arch["variant"]
	if !hasFamily || !hasVariant {
		return violation("architecture", context, "method 'architecture' must have 'family' and 'variant'")
	}
	return nil
}

func validateLegacyFields(method map[string]any, context string) error {
	if raw, ok := method["bit_widths"]; ok {
		if _, ok := models.AsList(raw); !ok {
			return violation("bit_widths", context, "method 'bit_widths' must be a list")
		}
	}
	for _, field := range []string{"compression_ratio", "speedup"} {
		if raw, ok := method[field]; ok && raw != nil {
			if _, isString := raw.(string); !isString && !models.IsNumber(raw) {
				return violation(field, context, "method '%s' must be a string or a number", field)
			}
		}
	}
	if raw, ok := method["granularity"]; ok && raw != nil {
		if _, ok := raw.(string); !ok {
			return violation("granularity", context, "method 'granularity' must be a string or null")
		}
	}
	if raw, ok := method["notes"]; ok {
		if _, ok := raw.(string); !ok {
			return violation("notes", context, "method 'notes' must be a string")
		}
	}
	if raw, ok := method["year"]; ok {
		if year, ok := models.AsInt(raw); !ok || year < 1900 || year > 2100 {
			return violation("year", context, "method 'year' must be an integer between 1900 and 2100")
		}
	}
	return nil
}

// ValidatePath requires at least model_family/subcategory/model.
func (v *Validator) ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return violation("path", "", "path must be a non-empty string")
	}
	parts := strings.Split(path, "/")
	if len(parts) < 3 {
		return violation("path", path, "path must have at least 3 parts: model_family/subcategory/specific_model")
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return violation("path", path, "path parts cannot be empty")
		}
	}
	return nil
}

// ValidateRelationship checks one relationship. With skipPathCheck the
// method references are only counted, not inspected.
func (v *Validator) ValidateRelationship(rel any, skipPathCheck bool) error {
	return v.validateRelationship(rel, skipPathCheck, "")
}

func (v *Validator) validateRelationship(raw any, skipPathCheck bool, context string) error {
	rel, ok := models.AsMap(raw)
	if !ok {
		return violation("", context, "relationship must be an object")
	}

	if _, ok := rel["methods"]; !ok {
		return violation("methods", context, "relationship must have a 'methods' field")
	}
	methods, ok := models.AsList(rel["methods"])
	if !ok {
		return violation("methods", context, "relationship 'methods' must be a list")
	}
	if len(methods) < 2 {
		return violation("methods", context, "relationship must have at least 2 methods")
	}
	if !skipPathCheck {
		for _, m := range methods {
			path, ok := m.(string)
			if !ok {
				return violation("methods", context, "method path must be a string: %v", m)
			}
			if strings.TrimSpace(path) == "" {
				return violation("methods", context, "method path cannot be empty")
			}
		}
	}

	if err := validateWeights(rel, context); err != nil {
		return err
	}

	if rt, ok := rel["relationship_type"]; ok && rt != nil {
		if _, ok := rt.(string); !ok {
			return violation("relationship_type", context, "relationship_type must be a string or null")
		}
	}

	if raw, ok := rel["metadata"]; ok {
		meta, ok := models.AsMap(raw)
		if !ok {
			return violation("metadata", context, "relationship 'metadata' must be an object")
		}
		if err := validateRelationshipMetadata(meta, context); err != nil {
			return err
		}
	}
	return nil
}

func validateWeights(rel map[string]any, context string) error {
	raw, ok := rel["weights"]
	if !ok {
		return nil
	}
	m, ok := models.AsMap(raw)
	if !ok {
		return violation("weights", context, "relationship 'weights' must be an object")
	}
	weights := models.Weights(m)
	for _, p := range []struct {
		field string
		value func() (float64, bool)
	}{
		{"success_probability", weights.SuccessProbability},
		{"confidence", weights.Confidence},
	} {
		if _, present := weights[p.field]; !present {
			continue
		}
		if f, ok := p.value(); !ok || f < 0 || f > 1 {
			return violation("weights."+p.field, context, "%s must be a number between 0 and 1", p.field)
		}
	}
	if _, present := weights["sample_count"]; present {
		if n, ok := weights.SampleCount(); !ok || n < 0 {
			return violation("weights.sample_count", context, "sample_count must be a non-negative integer")
		}
	}
	return nil
}

func validateRelationshipMetadata(meta map[string]any, context string) error {
	if raw, ok := meta["constraints"]; ok && raw != nil {
		constraints, ok := models.AsMap(raw)
		if !ok {
			return violation("metadata.constraints", context, "metadata.constraints must be an object")
		}
		if order, ok := constraints["order"]; ok && order != nil {
			if _, ok := models.AsList(order); !ok {
				return violation("metadata.constraints.order", context, "metadata.constraints.order must be a list or null")
			}
		}
		if floor, ok := constraints["min_accuracy_retention"]; ok && floor != nil && !models.IsNumber(floor) {
			return violation("metadata.constraints.min_accuracy_retention", context,
				"metadata.constraints.min_accuracy_retention must be a number or null")
		}
	}
	for _, field := range []string{"tested_models", "tested_datasets"} {
		if raw, ok := meta[field]; ok {
			if _, ok := models.AsList(raw); !ok {
				return violation("metadata."+field, context, "metadata.%s must be a list", field)
			}
		}
	}
	return nil
}
