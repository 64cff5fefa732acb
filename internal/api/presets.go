package api

import (
	"net/http"

	"github.com/sdgen-ai/sdgen-server/internal/presets"

	"github.com/gin-gonic/gin"
)

// ListPresets returns the preset table; preset names may contain slashes,
// so single-preset lookup goes through the ?name= query instead of a path
// parameter.
func ListPresets(c *gin.Context) {
	if name := c.Query("name"); name != "" {
		preset, ok := presets.Get(name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "unknown preset: " + name})
			return
		}
		c.JSON(http.StatusOK, preset)
		return
	}

	c.JSON(http.StatusOK, gin.H{"presets": presets.List()})
}
