package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sdgen-ai/sdgen-server/internal/app"
	"github.com/sdgen-ai/sdgen-server/internal/services/generation"
	"github.com/sdgen-ai/sdgen-server/internal/types"

	"github.com/gin-gonic/gin"
)

// GenerateTxt2ImgSync queues a text-to-image request and streams result
// JSON lines back until the request finishes.
func GenerateTxt2ImgSync(c *gin.Context) {
	data := types.GenerateParamsRequest{}
	if err := c.BindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	a := c.MustGet("app").(*app.App)
	params, err := generation.NewRequest(&data, types.ModeTxt2Img, a.Config(), a.MQ())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	streamResults(c, a, params.ID)
}

// GenerateTxt2ImgAsync queues a request and returns immediately; results
// are delivered to the supplied webhook.
func GenerateTxt2ImgAsync(c *gin.Context) {
	data := types.GenerateParamsRequest{}
	if err := c.BindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	if data.WebhookUrl == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "webhook_url is required"})
		return
	}

	a := c.MustGet("app").(*app.App)
	params, err := generation.NewRequest(&data, types.ModeTxt2Img, a.Config(), a.MQ())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	// Drain the result topic so it does not back up; the webhook carries
	// the outcome to the caller.
	go func() {
		results, err := generation.Results(a.Context(), a.MQ(), params.ID)
		if err != nil {
			return
		}
		for range results {
		}
	}()

	c.JSON(http.StatusOK, types.GenerationResponse{
		ID:     params.ID,
		Status: generation.StatusInQueue,
	})
}

func streamResults(c *gin.Context, a *app.App, requestID string) {
	results, err := generation.Results(c.Request.Context(), a.MQ(), requestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.Header("Content-Type", "application/json")
	c.Stream(func(w io.Writer) bool {
		for resp := range results {
			payload, err := json.Marshal(resp)
			if err != nil {
				continue
			}
			w.Write(payload)
			w.Write([]byte("\n"))
			c.Writer.Flush()
		}

		return false
	})
}
