package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Sepheus7/dataforge-studio/internal/core/job"
	"github.com/Sepheus7/dataforge-studio/internal/generate"
)

// DownloadHandler serves generated artifact files. File downloads are raw
// echo routes so echo's attachment helper handles range and content headers.
type DownloadHandler struct {
	store     *job.Store
	generator *generate.Generator
}

func NewDownloadHandler(store *job.Store, gen *generate.Generator) *DownloadHandler {
	return &DownloadHandler{store: store, generator: gen}
}

// Download streams one table's artifact for a finished job.
// Query params: table (required), format (csv default, json preview).
func (h *DownloadHandler) Download(c echo.Context) error {
	jobID := c.Param("id")
	table := c.QueryParam("table")
	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"detail": "format must be csv or json"})
	}
	if table == "" {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"detail": "table parameter required"})
	}

	j, ok := h.store.Get(jobID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "job not found"})
	}
	if j.Status != job.StatusSucceeded {
		return c.JSON(http.StatusConflict, map[string]string{"detail": "job has no artifacts yet"})
	}

	path := h.generator.ArtifactPath(jobID, table, format)
	if path == "" {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "artifact not found"})
	}
	return c.Attachment(path, table+"."+format)
}
