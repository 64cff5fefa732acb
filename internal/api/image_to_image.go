package api

import (
	"net/http"

	"github.com/sdgen-ai/sdgen-server/internal/app"
	"github.com/sdgen-ai/sdgen-server/internal/services/generation"
	"github.com/sdgen-ai/sdgen-server/internal/types"

	"github.com/gin-gonic/gin"
)

// GenerateImg2ImgSync queues an image-to-image request. The source image is
// referenced by the filename a prior /upload call returned.
func GenerateImg2ImgSync(c *gin.Context) {
	data := types.GenerateParamsRequest{}
	if err := c.BindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	a := c.MustGet("app").(*app.App)
	params, err := generation.NewRequest(&data, types.ModeImg2Img, a.Config(), a.MQ())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	streamResults(c, a, params.ID)
}
