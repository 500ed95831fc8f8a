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

// AddRelationship validates rel with path checking, assigns an id when it
// has none and appends it to the taxonomy's relationships.
func (s *Service) AddRelationship(ctx context.Context, id string, rel map[string]any) (string, error) {
	if err := s.validator.ValidateRelationship(rel, false); err != nil {
		s.rec.ValidationFailed("add_relationship")
		return "", err
	}

	defer s.locks.lock(id)()
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	added := models.CloneMap(rel)
	relID, _ := added["id"].(string)
	if relID == "" {
		relID = newRelationshipID()
		added["id"] = relID
	}

	rels := relationships(doc)
	if indexOfRelationship(rels, relID) >= 0 {
		return "", &validation.Error{
			Field:   "id",
			Message: fmt.Sprintf("relationship '%s' already exists", relID),
		}
	}
	doc[models.KeyRelationships] = append(rels, added)

	if err := s.commit(ctx, id, doc, "add_relationship"); err != nil {
		return "", err
	}
	s.log.Info("relationship added", zap.String("id", id), zap.String("relationship_id", relID))
	return relID, nil
}

// ListRelationships returns all relationships, or only those touching path
// when it is set. A relationship touches path when one of its methods equals
// it or lies below it.
func (s *Service) ListRelationships(ctx context.Context, id, path string) ([]any, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rels := relationships(doc)
	if path == "" {
		return rels, nil
	}

	filtered := []any{}
	for _, raw := range rels {
		rel, ok := models.AsMap(raw)
		if !ok {
			continue
		}
		for _, method := range models.StringList(rel["methods"]) {
			if method == path || strings.HasPrefix(method, path+"/") {
				filtered = append(filtered, rel)
				break
			}
		}
	}
	return filtered, nil
}

func (s *Service) GetRelationship(ctx context.Context, id, relID string) (map[string]any, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rels := relationships(doc)
	i := indexOfRelationship(rels, relID)
	if i < 0 {
		return nil, relationshipNotFound(relID)
	}
	return rels[i].(map[string]any), nil
}

// UpdateRelationship merges updates into a relationship. The id cannot be
// changed.
func (s *Service) UpdateRelationship(ctx context.Context, id, relID string, updates map[string]any) (map[string]any, error) {
	if newID, ok := updates["id"]; ok && newID != relID {
		return nil, &validation.Error{Field: "id", Message: "relationship id cannot be changed"}
	}

	defer s.locks.lock(id)()
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rels := relationships(doc)
	i := indexOfRelationship(rels, relID)
	if i < 0 {
		return nil, relationshipNotFound(relID)
	}

	merged := models.CloneMap(rels[i].(map[string]any))
	for key, value := range updates {
		merged[key] = models.Clone(value)
	}
	merged["id"] = relID
	if err := s.validator.ValidateRelationship(merged, false); err != nil {
		s.rec.ValidationFailed("update_relationship")
		return nil, err
	}
	rels[i] = merged
	doc[models.KeyRelationships] = rels

	if err := s.commit(ctx, id, doc, "update_relationship"); err != nil {
		return nil, err
	}
	s.log.Info("relationship updated", zap.String("id", id), zap.String("relationship_id", relID))
	return merged, nil
}

func (s *Service) RemoveRelationship(ctx context.Context, id, relID string) error {
	defer s.locks.lock(id)()
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rels := relationships(doc)
	i := indexOfRelationship(rels, relID)
	if i < 0 {
		return relationshipNotFound(relID)
	}
	doc[models.KeyRelationships] = append(rels[:i:i], rels[i+1:]...)

	if err := s.commit(ctx, id, doc, "remove_relationship"); err != nil {
		return err
	}
	s.log.Info("relationship removed", zap.String("id", id), zap.String("relationship_id", relID))
	return nil
}

func relationships(doc models.Document) []any {
	rels, ok := models.AsList(doc[models.KeyRelationships])
	if !ok {
		return []any{}
	}
	return rels
}

func indexOfRelationship(rels []any, relID string) int {
	for i, raw := range rels {
		if rel, ok := models.AsMap(raw); ok && rel["id"] == relID {
			return i
		}
	}
	return -1
}

func relationshipNotFound(relID string) error {
	return fmt.Errorf("%w: relationship '%s'", ErrNotFound, relID)
}
