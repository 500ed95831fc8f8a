// Package handlers provides HTTP request handlers for the API endpoints.
// It defines the routing logic, response formatting, and error handling mechanisms.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modelopt/taxonomy/internal/migration"
	"github.com/modelopt/taxonomy/internal/models"
	"github.com/modelopt/taxonomy/internal/service"
)

// MigrateResponse is a stateless migration plus its human readable report.
type MigrateResponse struct {
	service.MigrationResult
	Passed bool   `json:"passed"`
	Report string `json:"report"`
}

func (h *Handler) Migrate(c *gin.Context) {
	doc, ok := h.readDocument(c)
	if !ok {
		return
	}
	result := h.svc.Migrate(unwrapTaxonomy(doc))
	render(c, http.StatusOK, MigrateResponse{
		MigrationResult: result,
		Passed:          len(result.Errors) == 0,
		Report:          migration.Report(result.Stats, result.Errors),
	})
}

type ValidateResponse struct {
	Valid bool       `json:"valid"`
	Error *ErrorBody `json:"error,omitempty"`
}

// Validate reports a structural violation in the body rather than failing
// the request.
func (h *Handler) Validate(c *gin.Context) {
	doc, ok := h.readDocument(c)
	if !ok {
		return
	}
	err := h.svc.Validate(unwrapTaxonomy(doc))
	if err == nil {
		c.JSON(http.StatusOK, ValidateResponse{Valid: true})
		return
	}
	status, body := classify(err)
	if status != http.StatusBadRequest {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ValidateResponse{Valid: false, Error: &body})
}

func (h *Handler) Convert(c *gin.Context) {
	to := c.Query("to")
	if to == "" {
		h.respondError(c, badRequest("to", errors.New("query parameter 'to' is required: 'schema' or 'legacy'")))
		return
	}
	doc, ok := h.readDocument(c)
	if !ok {
		return
	}
	converted, err := h.svc.Convert(doc, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	render(c, http.StatusOK, converted)
}

func unwrapTaxonomy(doc models.Document) models.Document {
	if inner, ok := models.AsMap(doc[models.KeyTaxonomy]); ok {
		return inner
	}
	return doc
}
