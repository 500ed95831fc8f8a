// Package handlers provides HTTP request handlers for the API endpoints.
// It defines the routing logic, response formatting, and error handling mechanisms.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AddRelationship(c *gin.Context) {
	rel, ok := h.readDocument(c)
	if !ok {
		return
	}
	relID, err := h.svc.AddRelationship(c.Request.Context(), c.Param("id"), rel)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added", "relationship_id": relID})
}

func (h *Handler) ListRelationships(c *gin.Context) {
	path := c.Query("path")
	rels, err := h.svc.ListRelationships(c.Request.Context(), c.Param("id"), path)
	if err != nil {
		h.respondError(c, err)
		return
	}
	body := gin.H{"relationships": rels, "count": len(rels)}
	if path != "" {
		body["path"] = path
	}
	render(c, http.StatusOK, body)
}

func (h *Handler) GetRelationship(c *gin.Context) {
	rel, err := h.svc.GetRelationship(c.Request.Context(), c.Param("id"), c.Param("rid"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	render(c, http.StatusOK, rel)
}

func (h *Handler) UpdateRelationship(c *gin.Context) {
	updates, ok := h.readDocument(c)
	if !ok {
		return
	}
	relID := c.Param("rid")
	rel, err := h.svc.UpdateRelationship(c.Request.Context(), c.Param("id"), relID, updates)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "relationship_id": relID, "relationship": rel})
}

func (h *Handler) RemoveRelationship(c *gin.Context) {
	relID := c.Param("rid")
	if err := h.svc.RemoveRelationship(c.Request.Context(), c.Param("id"), relID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed", "relationship_id": relID})
}
