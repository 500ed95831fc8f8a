// Package handlers provides HTTP request handlers for the API endpoints.
// It defines the routing logic, response formatting, and error handling mechanisms.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelopt/taxonomy/internal/parser"
	"github.com/modelopt/taxonomy/internal/service"
	"github.com/modelopt/taxonomy/internal/validation"
)

const (
	CodeNotFound            = "not_found"
	CodeStructuralViolation = "structural_violation"
	CodeMalformedInput      = "malformed_input"
	CodeInternal            = "internal_error"
)

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Context string `json:"context,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func classify(err error) (int, ErrorBody) {
	body := ErrorBody{Message: err.Error()}

	var verr *validation.Error
	var merr *parser.MalformedInputError
	switch {
	case errors.Is(err, service.ErrNotFound):
		body.Code = CodeNotFound
		return http.StatusNotFound, body
	case errors.As(err, &verr):
		body.Code = CodeStructuralViolation
		body.Field = verr.Field
		body.Context = verr.Context
		return http.StatusBadRequest, body
	case errors.Is(err, validation.ErrStructuralViolation):
		body.Code = CodeStructuralViolation
		return http.StatusBadRequest, body
	case errors.As(err, &merr):
		body.Code = CodeMalformedInput
		return http.StatusBadRequest, body
	default:
		body.Code = CodeInternal
		return http.StatusInternalServerError, body
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		body.Message = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}

// badRequest wraps a binding or parameter error as a violation of field.
func badRequest(field string, err error) error {
	return &validation.Error{Field: field, Message: err.Error()}
}
