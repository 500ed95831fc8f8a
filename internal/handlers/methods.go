// Package handlers provides HTTP request handlers for the API endpoints.
// It defines the routing logic, response formatting, and error handling mechanisms.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/modelopt/taxonomy/internal/models"
	"github.com/modelopt/taxonomy/internal/service"
)

var locationKeys = []string{"path", "category", "subcategory"}

func (h *Handler) Methods(c *gin.Context) {
	path := wildcard(c, "path")
	methods, err := h.svc.GetMethods(c.Request.Context(), c.Param("id"), path)
	if err != nil {
		h.respondError(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"methods": methods, "count": len(methods)})
}

// AddMethod takes the method fields and its location in one flat body:
// {"path": ..., "category": ..., "subcategory": ..., "name": ...}.
func (h *Handler) AddMethod(c *gin.Context) {
	body, ok := h.readDocument(c)
	if !ok {
		return
	}

	loc := service.MethodLocation{}
	loc.Path, _ = body["path"].(string)
	loc.Category, _ = body["category"].(string)
	loc.Subcategory, _ = body["subcategory"].(string)
	if err := binding.Validator.ValidateStruct(&loc); err != nil {
		h.respondError(c, badRequest("body", err))
		return
	}

	method := models.CloneMap(body)
	for _, key := range locationKeys {
		delete(method, key)
	}

	index, err := h.svc.AddMethod(c.Request.Context(), c.Param("id"), loc, method)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added", "index": index})
}

func (h *Handler) UpdateMethod(c *gin.Context) {
	loc, index, err := methodTarget(wildcard(c, "path"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	updates, ok := h.readDocument(c)
	if !ok {
		return
	}
	if err := h.svc.UpdateMethod(c.Request.Context(), c.Param("id"), loc, index, updates); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) RemoveMethod(c *gin.Context) {
	loc, index, err := methodTarget(wildcard(c, "path"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.svc.RemoveMethod(c.Request.Context(), c.Param("id"), loc, index); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// methodTarget splits family/sub/model[/...]/category/subcategory/index.
func methodTarget(raw string) (service.MethodLocation, int, error) {
	parts := models.SplitPath(raw)
	if len(parts) < 6 {
		return service.MethodLocation{}, 0, badRequest("path",
			errors.New("method path must be model_family/subcategory/model/category/subcategory/index"))
	}
	n := len(parts)
	index, err := strconv.Atoi(parts[n-1])
	if err != nil {
		return service.MethodLocation{}, 0, badRequest("index", errors.New("method index must be an integer"))
	}
	return service.MethodLocation{
		Path:        strings.Join(parts[:n-3], "/"),
		Category:    parts[n-3],
		Subcategory: parts[n-2],
	}, index, nil
}
