// Package service implements taxonomy CRUD on top of the migration,
// validation and conversion engine. Every mutation builds a complete
// candidate document, migrates and validates it, and only then persists it.
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/modelopt/taxonomy/internal/models"
	"github.com/modelopt/taxonomy/internal/validation"
)

// MethodLocation addresses one methods list inside a model node.
type MethodLocation struct {
	Path        string `json:"path" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Subcategory string `json:"subcategory" binding:"required"`
}

func (s *Service) checkLocation(loc MethodLocation) (MethodLocation, error) {
	if err := s.validator.ValidatePath(loc.Path); err != nil {
		return loc, err
	}
	loc.Category = models.NormalizeCategory(loc.Category)
	if !models.IsCategory(loc.Category) {
		return loc, &validation.Error{
			Field:   "category",
			Message: fmt.Sprintf("invalid category '%s', must be one of %v", loc.Category, models.Categories),
		}
	}
	if strings.TrimSpace(loc.Subcategory) == "" {
		return loc, &validation.Error{Field: "subcategory", Message: "subcategory must be a non-empty string"}
	}
	return loc, nil
}

// GetMethods flattens every method of the model at path. Each entry is
// annotated with its category, subcategory and index.
func (s *Service) GetMethods(ctx context.Context, id, path string) ([]map[string]any, error) {
	if err := s.validator.ValidatePath(path); err != nil {
		return nil, err
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	model, err := modelAt(doc, path)
	if err != nil {
		return nil, err
	}
	opt, ok := models.AsMap(model[models.KeyOptimizationMethods])
	if !ok {
		return nil, fmt.Errorf("%w: path '%s' has no optimization methods", ErrNotFound, path)
	}

	methods := []map[string]any{}
	for _, category := range models.SortedKeys(opt) {
		subs, _ := models.AsMap(opt[category])
		for _, sub := range models.SortedKeys(subs) {
			data, _ := models.AsMap(subs[sub])
			list, _ := models.AsList(data[models.KeyMethods])
			for i, raw := range list {
				entry := map[string]any{}
				switch method := raw.(type) {
				case map[string]any:
					entry = models.CloneMap(method)
				case string:
					entry["name"] = method
				default:
					continue
				}
				entry["category"] = category
				entry["subcategory"] = sub
				entry["index"] = i
				methods = append(methods, entry)
			}
		}
	}
	return methods, nil
}

// AddMethod appends a method to path/category/subcategory, creating the
// category and subcategory when needed. It returns the new method's index.
func (s *Service) AddMethod(ctx context.Context, id string, loc MethodLocation, method map[string]any) (int, error) {
	loc, err := s.checkLocation(loc)
	if err != nil {
		return 0, err
	}

	defer s.locks.lock(id)()
	doc, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	model, err := modelAt(doc, loc.Path)
	if err != nil {
		return 0, err
	}

	sub := ensureObject(ensureObject(ensureObject(model, models.KeyOptimizationMethods), loc.Category), loc.Subcategory)
	list, _ := models.AsList(sub[models.KeyMethods])
	index := len(list)
	sub[models.KeyMethods] = append(list, models.CloneMap(method))

	if err := s.commit(ctx, id, doc, "add_method"); err != nil {
		return 0, err
	}
	s.log.Info("method added", zap.String("id", id), zap.String("path", loc.Path), zap.Int("index", index))
	return index, nil
}

// UpdateMethod merges updates into an existing method. Setting only one of
// name and method_name updates the other.
func (s *Service) UpdateMethod(ctx context.Context, id string, loc MethodLocation, index int, updates map[string]any) error {
	loc, err := s.checkLocation(loc)
	if err != nil {
		return err
	}

	defer s.locks.lock(id)()
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	list, err := methodList(doc, loc)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return fmt.Errorf("%w: method index %d", ErrNotFound, index)
	}

	merged := map[string]any{}
	switch existing := list[index].(type) {
	case map[string]any:
		merged = models.CloneMap(existing)
	case string:
		merged["name"] = existing
	}
	for key, value := range updates {
		merged[key] = models.Clone(value)
	}
	syncNames(merged, updates)
	list[index] = merged

	if err := s.commit(ctx, id, doc, "update_method"); err != nil {
		return err
	}
	s.log.Info("method updated", zap.String("id", id), zap.String("path", loc.Path), zap.Int("index", index))
	return nil
}

func syncNames(method, updates map[string]any) {
	_, setName := updates["name"]
	_, setAlias := updates["method_name"]
	switch {
	case setName && !setAlias:
		method["method_name"] = method["name"]
	case setAlias && !setName:
		method["name"] = method["method_name"]
	}
}

func (s *Service) RemoveMethod(ctx context.Context, id string, loc MethodLocation, index int) error {
	loc, err := s.checkLocation(loc)
	if err != nil {
		return err
	}

	defer s.locks.lock(id)()
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	list, err := methodList(doc, loc)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return fmt.Errorf("%w: method index %d", ErrNotFound, index)
	}

	sub := subcategoryAt(doc, loc)
	sub[models.KeyMethods] = append(list[:index:index], list[index+1:]...)

	if err := s.commit(ctx, id, doc, "remove_method"); err != nil {
		return err
	}
	s.log.Info("method removed", zap.String("id", id), zap.String("path", loc.Path), zap.Int("index", index))
	return nil
}

// commit migrates and validates the candidate and persists it on success.
func (s *Service) commit(ctx context.Context, id string, candidate models.Document, stage string) error {
	prepared, _, err := s.prepare(candidate, stage)
	if err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, id, prepared); err != nil {
		return fmt.Errorf("failed to store taxonomy: %w", err)
	}
	return nil
}

func modelAt(doc models.Document, path string) (map[string]any, error) {
	current := doc
	for _, key := range models.SplitPath(path) {
		next, ok := models.AsMap(current[key])
		if !ok {
			return nil, fmt.Errorf("%w: path '%s'", ErrNotFound, path)
		}
		current = next
	}
	return current, nil
}

func subcategoryAt(doc models.Document, loc MethodLocation) map[string]any {
	model, err := modelAt(doc, loc.Path)
	if err != nil {
		return nil
	}
	opt, _ := models.AsMap(model[models.KeyOptimizationMethods])
	cat, _ := models.AsMap(opt[loc.Category])
	sub, _ := models.AsMap(cat[loc.Subcategory])
	return sub
}

func methodList(doc models.Document, loc MethodLocation) ([]any, error) {
	sub := subcategoryAt(doc, loc)
	if sub == nil {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrNotFound, loc.Path, loc.Category, loc.Subcategory)
	}
	list, ok := models.AsList(sub[models.KeyMethods])
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s/%s has no methods", ErrNotFound, loc.Path, loc.Category, loc.Subcategory)
	}
	return list, nil
}

func ensureObject(parent map[string]any, key string) map[string]any {
	if child, ok := models.AsMap(parent[key]); ok {
		return child
	}
	child := map[string]any{}
	parent[key] = child
	return child
}
