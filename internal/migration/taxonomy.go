// Package migration upgrades taxonomy documents from the legacy flat/string
// method format to the structured ideal format.
package migration

import (
	"strings"

	"github.com/modelopt/taxonomy/internal/models"
)

type nodeKind int

const (
	kindOpaque nodeKind = iota
	kindRelationships
	kindModel
	kindBranch
)

func classify(key string, value any) nodeKind {
	if key == models.KeyRelationships {
		return kindRelationships
	}
	m, ok := models.AsMap(value)
	if !ok {
		return kindOpaque
	}
	if _, ok := m[models.KeyOptimizationMethods]; ok {
		return kindModel
	}
	return kindBranch
}

// MigrateTaxonomy returns an upgraded deep copy of a taxonomy tree. Model
// nodes have their methods migrated; relationships and non-dict values are
// copied through untouched.
func (m *Migrator) MigrateTaxonomy(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	return m.walk(doc, nil)
}

// MigrateTaxonomy upgrades a taxonomy without collecting warnings.
func MigrateTaxonomy(doc map[string]any) map[string]any {
	return New(nil).MigrateTaxonomy(doc)
}

func (m *Migrator) walk(tree map[string]any, path []string) map[string]any {
	out := make(map[string]any, len(tree))
	for _, key := range models.SortedKeys(tree) {
		value := tree[key]
		switch classify(key, value) {
		case kindModel:
			out[key] = m.migrateModel(key, value.(map[string]any), childPath(path, key))
		case kindBranch:
			out[key] = m.walk(value.(map[string]any), childPath(path, key))
		default:
			out[key] = models.Clone(value)
		}
	}
	return out
}

type modelContext struct {
	path    string
	family  string
	variant string
}

func (m *Migrator) migrateModel(key string, model map[string]any, path []string) map[string]any {
	out := models.CloneMap(model)
	opt, ok := models.AsMap(model[models.KeyOptimizationMethods])
	if !ok {
		return out
	}

	ctx := modelContext{
		path:    strings.Join(path, "/"),
		family:  DeriveFamily(model),
		variant: DeriveVariant(key),
	}

	categories := make(map[string]any, len(opt))
	for _, name := range models.SortedKeys(opt) {
		category := models.NormalizeCategory(name)
		data, ok := models.AsMap(opt[name])
		if !ok {
			if _, taken := categories[category]; !taken {
				categories[category] = models.Clone(opt[name])
			}
			continue
		}

		nested := nestCategory(category, data)
		subs := make(map[string]any, len(nested))
		for _, subName := range models.SortedKeys(nested) {
			subs[subName] = m.migrateSubcategory(ctx, category, subName, nested[subName])
		}

		existing, ok := models.AsMap(categories[category])
		if !ok {
			categories[category] = subs
			continue
		}
		mergeSubcategories(existing, subs)
	}

	out[models.KeyOptimizationMethods] = categories
	return out
}

// nestCategory rewrites a flat {methods: [...]} category into its default
// subcategory. Keys that already hold a subcategory record stay where they are.
func nestCategory(category string, data map[string]any) map[string]any {
	if _, flat := data[models.KeyMethods]; !flat {
		return data
	}
	nested := make(map[string]any, len(data))
	synthetic := make(map[string]any)
	for key, value := range data {
		if sub, ok := models.AsMap(value); ok {
			if _, isSub := sub[models.KeyMethods]; isSub && key != models.KeyMethods {
				nested[key] = value
				continue
			}
		}
		synthetic[key] = value
	}
	name := models.DefaultSubcategory(category)
	if existing, ok := models.AsMap(nested[name]); ok {
		merged := models.CloneMap(existing)
		mergeMethods(merged, synthetic)
		nested[name] = merged
	} else {
		nested[name] = synthetic
	}
	return nested
}

func (m *Migrator) migrateSubcategory(ctx modelContext, category, subName string, sub any) any {
	data, ok := models.AsMap(sub)
	if !ok {
		return models.Clone(sub)
	}
	out := models.CloneMap(data)
	methods, ok := models.AsList(data[models.KeyMethods])
	if !ok {
		return out
	}

	migrated := make([]any, len(methods))
	for i, method := range methods {
		nodeID := models.MethodContext(category, subName, i)
		if ctx.path != "" {
			nodeID = ctx.path + "/" + nodeID
		}
		switch t := method.(type) {
		case string:
			m.warn(nodeID, []string{"bare string method"})
			migrated[i] = methodFromName(t, data, ctx)
		case map[string]any:
			migrated[i] = m.MigrateNode(seedArchitecture(t, ctx), nodeID)
		default:
			migrated[i] = models.Clone(method)
		}
	}
	out[models.KeyMethods] = migrated
	return out
}

// methodFromName expands a bare method name into a full ideal method, taking
// metrics from the enclosing subcategory.
func methodFromName(name string, sub map[string]any, ctx modelContext) map[string]any {
	return map[string]any{
		"name":                name,
		"method_name":         name,
		"techniques":          stringsToList(InferTechniques(name)),
		"performance":         MigratePerformance(sub),
		"validation":          MigrateValidation(sub),
		"paper":               MigratePaper(sub),
		"effectiveness":       models.StringOr(sub, "effectiveness", "medium"),
		"accuracy_impact":     models.StringOr(sub, "accuracy_impact", "minimal"),
		"architecture":        map[string]any{"family": ctx.family, "variant": ctx.variant},
		"architecture_family": ctx.family,
	}
}

// seedArchitecture gives a dict method the model's derived architecture
// before node migration. A dict architecture is never replaced.
func seedArchitecture(method map[string]any, ctx modelContext) map[string]any {
	seeded := models.CloneMap(method)
	switch shapeOf(method, "architecture") {
	case shapeAbsent:
		seeded["architecture"] = map[string]any{"family": ctx.family, "variant": ctx.variant}
		if _, ok := seeded["architecture_family"]; !ok {
			seeded["architecture_family"] = ctx.family
		}
	case shapeScalar:
		if _, ok := seeded["architecture_family"]; !ok {
			seeded["architecture_family"] = ctx.family
		}
	}
	return seeded
}

// DeriveFamily maps model_characteristics.architecture_type to a family name.
func DeriveFamily(model map[string]any) string {
	chars, _ := models.AsMap(model[models.KeyModelCharacteristics])
	kind := models.StringOr(chars, "architecture_type", "")
	switch strings.ToLower(kind) {
	case "":
		return "Unknown"
	case "cnn":
		return "CNN"
	case "transformer":
		return "Transformer"
	case "hybrid":
		return "Hybrid"
	case "multimodal":
		return "Multimodal"
	default:
		return models.TitleCase(kind)
	}
}

func DeriveVariant(modelKey string) string {
	if modelKey == "" {
		return "Unknown"
	}
	return models.Capitalize(modelKey)
}

func mergeSubcategories(dst, src map[string]any) {
	for name, sub := range src {
		existing, ok := models.AsMap(dst[name])
		incoming, ok2 := models.AsMap(sub)
		if !ok || !ok2 {
			if _, taken := dst[name]; !taken {
				dst[name] = sub
			}
			continue
		}
		mergeMethods(existing, incoming)
	}
}

// mergeMethods folds src into dst: methods lists are concatenated, other
// keys already in dst win.
func mergeMethods(dst, src map[string]any) {
	for key, value := range src {
		if key == models.KeyMethods {
			left, okLeft := models.AsList(dst[key])
			right, okRight := models.AsList(value)
			if okLeft && okRight {
				dst[key] = append(append([]any{}, left...), right...)
				continue
			}
		}
		if _, taken := dst[key]; !taken {
			dst[key] = value
		}
	}
}

func childPath(path []string, key string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, key)
}
