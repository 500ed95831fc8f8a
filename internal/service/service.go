// Package service implements taxonomy CRUD on top of the migration,
// validation and conversion engine. Every mutation builds a complete
// candidate document, migrates and validates it, and only then persists it.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelopt/taxonomy/internal/migration"
	"github.com/modelopt/taxonomy/internal/models"
	"github.com/modelopt/taxonomy/internal/parser"
	"github.com/modelopt/taxonomy/internal/store"
	"github.com/modelopt/taxonomy/internal/validation"
)

// ErrNotFound marks a missing taxonomy, path, method or relationship.
var ErrNotFound = errors.New("not found")

// Recorder receives engine events for metrics.
type Recorder interface {
	MigrationCompleted(legacyNodes int)
	ValidationFailed(stage string)
}

type nopRecorder struct{}

func (nopRecorder) MigrationCompleted(int)  {}
func (nopRecorder) ValidationFailed(string) {}

type Service struct {
	repo      store.Repository
	validator *validation.Validator
	log       *zap.Logger
	rec       Recorder
	locks     keyedMutex
}

func New(repo store.Repository, log *zap.Logger, rec Recorder) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Service{
		repo:      repo,
		validator: validation.New(log),
		log:       log,
		rec:       rec,
		locks:     keyedMutex{locks: make(map[string]*refMutex)},
	}
}

// keyedMutex serializes writers per taxonomy id. An entry lives only while
// some caller holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(id string) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &refMutex{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// ImportResult describes a stored taxonomy.
type ImportResult struct {
	ID                  string                          `json:"tree_id"`
	ConvertedFromLegacy bool                            `json:"converted_from_legacy"`
	Warnings            []migration.LegacyFormatWarning `json:"warnings,omitempty"`
}

// Import stores a taxonomy given either bare or wrapped as {"taxonomy": ...}.
// Legacy graph payloads are converted first. Nothing is stored when the
// migrated document fails validation.
func (s *Service) Import(ctx context.Context, payload models.Document) (ImportResult, error) {
	doc, converted, err := unwrap(payload)
	if err != nil {
		return ImportResult{}, err
	}

	prepared, warnings, err := s.prepare(doc, "import")
	if err != nil {
		return ImportResult{}, err
	}

	id, err := s.repo.Create(ctx, prepared)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to store taxonomy: %w", err)
	}

	s.log.Info("taxonomy imported",
		zap.String("id", id),
		zap.Bool("converted_from_legacy", converted),
		zap.Int("legacy_nodes", len(warnings)),
	)
	return ImportResult{ID: id, ConvertedFromLegacy: converted, Warnings: warnings}, nil
}

// LoadFile seeds a taxonomy id from a JSON file on disk.
func (s *Service) LoadFile(ctx context.Context, id, path string) (ImportResult, error) {
	raw, err := parser.LoadFile(path)
	if err != nil {
		return ImportResult{}, err
	}
	doc, converted, err := unwrap(raw)
	if err != nil {
		return ImportResult{}, err
	}

	defer s.locks.lock(id)()
	prepared, warnings, err := s.prepare(doc, "load")
	if err != nil {
		return ImportResult{}, err
	}
	if err := s.repo.Upsert(ctx, id, prepared); err != nil {
		return ImportResult{}, fmt.Errorf("failed to store taxonomy: %w", err)
	}

	s.log.Info("taxonomy loaded from file", zap.String("id", id), zap.String("path", path))
	return ImportResult{ID: id, ConvertedFromLegacy: converted, Warnings: warnings}, nil
}

func unwrap(payload models.Document) (models.Document, bool, error) {
	doc := payload
	if inner, ok := models.AsMap(payload[models.KeyTaxonomy]); ok {
		doc = inner
	}
	if !parser.IsLegacyGraph(doc) {
		return doc, false, nil
	}
	graph, err := parser.DecodeLegacyGraph(doc)
	if err != nil {
		return nil, false, err
	}
	return parser.LegacyToSchema(graph), true, nil
}

// prepare migrates and validates a candidate document and gives every
// relationship an id.
func (s *Service) prepare(doc models.Document, stage string) (models.Document, []migration.LegacyFormatWarning, error) {
	m := migration.New(s.log)
	migrated := m.MigrateTaxonomy(doc)
	if migrated == nil {
		migrated = models.Document{}
	}
	warnings := m.Warnings()
	s.rec.MigrationCompleted(len(warnings))

	if err := s.validator.ValidateSchemaStructure(migrated); err != nil {
		s.rec.ValidationFailed(stage)
		return nil, nil, err
	}
	assignRelationshipIDs(migrated)
	return migrated, warnings, nil
}

func assignRelationshipIDs(doc models.Document) {
	rels, ok := models.AsList(doc[models.KeyRelationships])
	if !ok {
		return
	}
	for _, raw := range rels {
		if rel, ok := models.AsMap(raw); ok {
			if id, _ := rel["id"].(string); id == "" {
				rel["id"] = newRelationshipID()
			}
		}
	}
}

func newRelationshipID() string {
	return "rel_" + uuid.NewString()
}

// CloneResult is a freshly created, empty taxonomy.
type CloneResult struct {
	ID           string          `json:"tree_id"`
	Taxonomy     models.Document `json:"taxonomy"`
	Architecture string          `json:"architecture"`
	Constraints  map[string]any  `json:"constraints"`
}

func (s *Service) Clone(ctx context.Context, architecture string, constraints map[string]any) (CloneResult, error) {
	doc := models.Document{}
	id, err := s.repo.Create(ctx, doc)
	if err != nil {
		return CloneResult{}, fmt.Errorf("failed to store taxonomy: %w", err)
	}
	if constraints == nil {
		constraints = map[string]any{}
	}
	s.log.Info("taxonomy cloned", zap.String("id", id), zap.String("architecture", architecture))
	return CloneResult{ID: id, Taxonomy: doc, Architecture: architecture, Constraints: constraints}, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: taxonomy %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) GetModelFamily(ctx context.Context, id, family string) (any, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	value, ok := doc[family]
	if !ok || family == models.KeyRelationships {
		return nil, fmt.Errorf("%w: model family '%s'", ErrNotFound, family)
	}
	return value, nil
}

// GetPath walks slash separated keys from the document root.
func (s *Service) GetPath(ctx context.Context, id, path string) (any, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var current any = doc
	for _, key := range models.SplitPath(path) {
		node, ok := models.AsMap(current)
		if !ok {
			return nil, fmt.Errorf("%w: path '%s'", ErrNotFound, path)
		}
		if current, ok = node[key]; !ok {
			return nil, fmt.Errorf("%w: path '%s'", ErrNotFound, path)
		}
	}
	return current, nil
}

// Export renders a taxonomy as "schema" (the stored document) or "legacy"
// (a node/edge graph).
func (s *Service) Export(ctx context.Context, id, format string) (any, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch format {
	case "", FormatSchema:
		return doc, nil
	case FormatLegacy:
		return parser.SchemaToLegacy(doc), nil
	default:
		return nil, unknownFormat(format)
	}
}

func (s *Service) Weights(ctx context.Context, id string) ([]models.WeightEntry, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return parser.ExtractWeights(doc), nil
}
