// Package handlers provides HTTP request handlers for the API endpoints.
// It defines the routing logic, response formatting, and error handling mechanisms.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Import(c *gin.Context) {
	payload, ok := h.readDocument(c)
	if !ok {
		return
	}
	result, err := h.svc.Import(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type CloneRequest struct {
	Architecture string         `json:"architecture" binding:"required"`
	Constraints  map[string]any `json:"constraints"`
}

func (h *Handler) Clone(c *gin.Context) {
	var req CloneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest("body", err))
		return
	}
	result, err := h.svc.Clone(c.Request.Context(), req.Architecture, req.Constraints)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"data": doc})
}

func (h *Handler) Taxonomy(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	render(c, http.StatusOK, doc)
}

func (h *Handler) ModelFamily(c *gin.Context) {
	family, err := h.svc.GetModelFamily(c.Request.Context(), c.Param("id"), c.Param("family"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	render(c, http.StatusOK, family)
}

func (h *Handler) Path(c *gin.Context) {
	value, err := h.svc.GetPath(c.Request.Context(), c.Param("id"), wildcard(c, "path"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	render(c, http.StatusOK, value)
}

func (h *Handler) Export(c *gin.Context) {
	exported, err := h.svc.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	render(c, http.StatusOK, exported)
}

func (h *Handler) Weights(c *gin.Context) {
	entries, err := h.svc.Weights(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"weights": entries, "count": len(entries)})
}

// wildcard returns a catch-all parameter without its leading slash.
func wildcard(c *gin.Context, name string) string {
	return strings.TrimPrefix(c.Param(name), "/")
}
