package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports liveness and process uptime.
func (a *API) Health(c *gin.Context) {
	status := "ok"
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"uptime":    time.Since(a.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Index 描述 API 的主要入口。
func (a *API) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "knowshare",
		"version": "1.0.0",
		"endpoints": gin.H{
			"auth":       "/api/auth",
			"users":      "/api/users",
			"articles":   "/api/articles",
			"categories": "/api/categories",
			"tags":       "/api/tags",
			"comments":   "/api/comments",
			"uploads":    "/api/uploads",
			"search":     "/api/search",
			"knowledge":  "/api/knowledge",
		},
	})
}

// NotFound answers unknown routes.
func (a *API) NotFound(c *gin.Context) {
	respondError(c, http.StatusNotFound, "Route "+c.Request.Method+" "+c.Request.URL.Path+" not found")
}
