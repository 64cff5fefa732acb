package server

import (
	"net/http"

	"github.com/sdgen-ai/sdgen-server/internal/api"
	"github.com/sdgen-ai/sdgen-server/internal/app"

	"github.com/gin-gonic/gin"
)

func (s *Server) SetupRoutes(app *app.App) {
	// Health check endpoint
	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Not an API, just a simple file server endpoint
	s.ginEngine.GET("/file/*filepath", handlerWrapper(app, api.GetFile))

	apiV1 := s.ginEngine.Group("/api/v1")

	apiV1.POST("/upload", handlerWrapper(app, api.UploadFile))
	apiV1.POST("/txt2img", handlerWrapper(app, api.GenerateTxt2ImgSync))
	apiV1.POST("/txt2img_async", handlerWrapper(app, api.GenerateTxt2ImgAsync))
	apiV1.POST("/img2img", handlerWrapper(app, api.GenerateImg2ImgSync))
	apiV1.POST("/upscale", handlerWrapper(app, api.UpscaleImage))

	apiV1.GET("/history", handlerWrapper(app, api.ListHistory))
	apiV1.GET("/history/:id", handlerWrapper(app, api.GetHistoryEntry))
	apiV1.DELETE("/history/:id", handlerWrapper(app, api.DeleteHistoryEntry))

	apiV1.GET("/presets", handlerWrapper(app, api.ListPresets))
	apiV1.GET("/models", handlerWrapper(app, api.ListModels))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
