package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sdgen-ai/sdgen-server/internal/app"
	"github.com/sdgen-ai/sdgen-server/internal/history"

	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 50

func ListHistory(c *gin.Context) {
	a := c.MustGet("app").(*app.App)

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	entries := a.History().List(limit)
	if entries == nil {
		entries = []history.Summary{}
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func GetHistoryEntry(c *gin.Context) {
	a := c.MustGet("app").(*app.App)

	rec, err := a.History().Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "history entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func DeleteHistoryEntry(c *gin.Context) {
	a := c.MustGet("app").(*app.App)

	if err := a.History().Delete(c.Param("id")); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "history entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
