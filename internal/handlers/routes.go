// Package handlers provides HTTP request handlers for the API endpoints.
// It defines the routing logic, response formatting, and error handling mechanisms.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelopt/taxonomy/internal/models"
	"github.com/modelopt/taxonomy/internal/parser"
	"github.com/modelopt/taxonomy/internal/service"
)

type Handler struct {
	svc *service.Service
	log *zap.Logger
}

func New(svc *service.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// Register mounts the public routes on public and the taxonomy API on api.
// The caller attaches authentication to api and mounts it at /api/v1.
func (h *Handler) Register(public gin.IRouter, api gin.IRouter) {
	public.GET("/health", Health)
	public.GET("/api/v1/trees/sample", Sample)

	trees := api.Group("/trees")
	{
		trees.POST("/import", h.Import)
		trees.POST("/clone", h.Clone)
		trees.GET("/:id", h.Get)
		trees.GET("/:id/taxonomy", h.Taxonomy)
		trees.GET("/:id/model_family/:family", h.ModelFamily)
		trees.GET("/:id/path/*path", h.Path)
		trees.GET("/:id/export", h.Export)
		trees.GET("/:id/weights", h.Weights)

		trees.GET("/:id/methods/*path", h.Methods)
		trees.POST("/:id/methods", h.AddMethod)
		trees.PUT("/:id/methods/*path", h.UpdateMethod)
		trees.DELETE("/:id/methods/*path", h.RemoveMethod)

		trees.POST("/:id/relationships", h.AddRelationship)
		trees.GET("/:id/relationships", h.ListRelationships)
		trees.GET("/:id/relationships/:rid", h.GetRelationship)
		trees.PUT("/:id/relationships/:rid", h.UpdateRelationship)
		trees.DELETE("/:id/relationships/:rid", h.RemoveRelationship)
	}

	api.POST("/migrate", h.Migrate)
	api.POST("/validate", h.Validate)
	api.POST("/convert", h.Convert)
}

// Sample returns an empty taxonomy wrapped the way GET /trees/:id wraps a
// stored one.
func Sample(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": models.Document{}})
}

// readDocument parses the request body as a JSON object. It writes the error
// response itself and reports false on failure.
func (h *Handler) readDocument(c *gin.Context) (models.Document, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		h.respondError(c, badRequest("body", err))
		return nil, false
	}
	doc, err := parser.ParseDocument(raw)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return doc, true
}

// render writes JSON, indented when the client asks for ?pretty=true.
func render(c *gin.Context, status int, body any) {
	if c.Query("pretty") == "true" {
		c.IndentedJSON(status, body)
		return
	}
	c.JSON(status, body)
}
