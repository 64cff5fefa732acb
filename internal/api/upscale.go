package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sdgen-ai/sdgen-server/internal/app"
	"github.com/sdgen-ai/sdgen-server/internal/history"
	"github.com/sdgen-ai/sdgen-server/internal/types"
	"github.com/sdgen-ai/sdgen-server/internal/utils/imageutil"

	"github.com/gin-gonic/gin"
)

// UpscaleImage upscales an uploaded image (multipart "file", form field
// "scale") and records the result in history.
func UpscaleImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "file is required"})
		return
	}

	scale := 2
	if raw := c.PostForm("scale"); raw != "" {
		scale, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "scale must be an integer"})
			return
		}
	}

	content, err := readFileContent(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to read file: " + err.Error()})
		return
	}

	img, err := imageutil.Decode(content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to decode image: " + err.Error()})
		return
	}

	a := c.MustGet("app").(*app.App)
	start := time.Now()

	result, err := a.Upscaler().Upscale(c.Request.Context(), img, scale)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	origBounds := img.Bounds()
	resultBounds := result.Bounds()
	rec := &history.Record{
		Mode:           types.ModeUpscale,
		Scale:          float64(scale),
		OriginalWidth:  origBounds.Dx(),
		OriginalHeight: origBounds.Dy(),
		Width:          resultBounds.Dx(),
		Height:         resultBounds.Dy(),
		ElapsedSeconds: time.Since(start).Seconds(),
	}

	if _, err := a.History().Record(rec, result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	cfg := a.Config()
	c.JSON(http.StatusOK, gin.H{
		"id":     rec.ID,
		"url":    fmt.Sprintf("http://%s:%d/file/history/%s", cfg.Host, cfg.Port, rec.FullImage),
		"width":  rec.Width,
		"height": rec.Height,
	})
}
