// Package service implements taxonomy CRUD on top of the migration,
// validation and conversion engine. Every mutation builds a complete
// candidate document, migrates and validates it, and only then persists it.
package service

import (
	"github.com/modelopt/taxonomy/internal/migration"
	"github.com/modelopt/taxonomy/internal/models"
	"github.com/modelopt/taxonomy/internal/parser"
	"github.com/modelopt/taxonomy/internal/validation"
)

const (
	FormatSchema = "schema"
	FormatLegacy = "legacy"
)

func unknownFormat(format string) error {
	return &validation.Error{
		Field:   "format",
		Message: "unknown format '" + format + "', must be 'schema' or 'legacy'",
	}
}

// MigrationResult is the outcome of a stateless migration.
type MigrationResult struct {
	Taxonomy models.Document                 `json:"taxonomy"`
	Warnings []migration.LegacyFormatWarning `json:"warnings"`
	Errors   []string                        `json:"errors"`
	Stats    migration.Stats                 `json:"stats"`
}

// Migrate upgrades a document without storing it and audits the result.
func (s *Service) Migrate(doc models.Document) MigrationResult {
	m := migration.New(s.log)
	migrated := m.MigrateTaxonomy(doc)
	if migrated == nil {
		migrated = models.Document{}
	}
	warnings := m.Warnings()
	s.rec.MigrationCompleted(len(warnings))

	errs := migration.Audit(migrated)
	if errs == nil {
		errs = []string{}
	}
	if warnings == nil {
		warnings = []migration.LegacyFormatWarning{}
	}
	return MigrationResult{
		Taxonomy: migrated,
		Warnings: warnings,
		Errors:   errs,
		Stats:    migration.CollectStats(doc, migrated),
	}
}

// Validate checks a document as given, without migrating it.
func (s *Service) Validate(doc models.Document) error {
	if err := s.validator.ValidateSchemaStructure(doc); err != nil {
		s.rec.ValidationFailed("validate")
		return err
	}
	return nil
}

// Convert translates between the schema and legacy graph representations.
func (s *Service) Convert(doc models.Document, to string) (any, error) {
	switch to {
	case FormatLegacy:
		return parser.SchemaToLegacy(doc), nil
	case FormatSchema:
		graph, err := parser.DecodeLegacyGraph(doc)
		if err != nil {
			return nil, err
		}
		return parser.LegacyToSchema(graph), nil
	default:
		return nil, unknownFormat(to)
	}
}
