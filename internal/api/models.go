package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/sdgen-ai/sdgen-server/internal/app"

	"github.com/gin-gonic/gin"
)

type modelStatus struct {
	Alias    string     `json:"alias"`
	ModelID  string     `json:"model_id"`
	Loaded   bool       `json:"loaded"`
	LastUsed *time.Time `json:"last_used,omitempty"`
}

// ListModels reports the configured model table and which pipelines are
// resident in the cache.
func ListModels(c *gin.Context) {
	a := c.MustGet("app").(*app.App)
	cache := a.PipelineCache()

	statuses := make([]modelStatus, 0, len(a.Config().Models))
	for alias, modelID := range a.Config().Models {
		status := modelStatus{
			Alias:   alias,
			ModelID: modelID,
		}
		if lastUsed, ok := cache.LastUsed(alias); ok {
			status.Loaded = true
			status.LastUsed = &lastUsed
		}
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Alias < statuses[j].Alias
	})

	c.JSON(http.StatusOK, gin.H{"models": statuses})
}
