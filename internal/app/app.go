package app

import (
	"context"

	"github.com/sdgen-ai/sdgen-server/internal/config"
	"github.com/sdgen-ai/sdgen-server/internal/history"
	"github.com/sdgen-ai/sdgen-server/internal/mq"
	"github.com/sdgen-ai/sdgen-server/internal/pipeline"
	"github.com/sdgen-ai/sdgen-server/internal/services/filestorage"
	"github.com/sdgen-ai/sdgen-server/internal/services/fileuploader"
	"github.com/sdgen-ai/sdgen-server/internal/services/promptfilter"
	"github.com/sdgen-ai/sdgen-server/internal/upscale"
	"github.com/sdgen-ai/sdgen-server/pkg/logger"

	"go.uber.org/zap"
)

// The upscale model lives on the worker next to the diffusion models and is
// cached under its own key.
const upscalerModelID = "realesrgan"

// App owns process-lifetime state: the pipeline cache, the history store,
// the queue, and the upload workers. Handlers receive it instead of
// reaching for globals.
type App struct {
	config     *config.Config
	ctx        context.Context
	cancelFunc context.CancelFunc

	queue        mq.MQ
	historyStore *history.Store
	cache        *pipeline.Cache
	uploader     *fileuploader.Uploader
	upscaler     *upscale.Upscaler
	filter       *promptfilter.Filter

	Logger *zap.Logger
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithMQ(maxSize int) OptionFunc {
	return func(app *App) error {
		queue, err := mq.NewMQ(maxSize)
		if err != nil {
			return err
		}
		app.queue = queue
		return nil
	}
}

func WithHistory() OptionFunc {
	return func(app *App) error {
		store, err := history.NewStore(app.config.HistoryDir, history.WithLogger(app.Logger))
		if err != nil {
			return err
		}
		app.historyStore = store
		return nil
	}
}

func WithPipelineCache() OptionFunc {
	return func(app *App) error {
		app.cache = pipeline.NewCache()
		return nil
	}
}

func WithFileUploader() OptionFunc {
	return func(app *App) error {
		storage, err := filestorage.NewFileStorage(app.config)
		if err != nil {
			return err
		}
		app.uploader = fileuploader.NewFileUploader(storage, 10)
		return nil
	}
}

func WithUpscaler() OptionFunc {
	return func(app *App) error {
		var provider upscale.PipelineProvider
		if app.cache != nil {
			provider = func(ctx context.Context) (*pipeline.Pipeline, error) {
				return app.cache.GetOrCreate(upscalerModelID, func() (*pipeline.Pipeline, error) {
					return pipeline.Load(ctx, app.config, upscalerModelID, app.Logger)
				})
			}
		}

		upscaler, err := upscale.NewUpscaler(app.config.UpscaleBackend, provider, app.Logger)
		if err != nil {
			return err
		}
		app.upscaler = upscaler
		return nil
	}
}

// WithPromptFilter enables the OpenAI prompt screen when an API key is
// configured; otherwise it is a no-op.
func WithPromptFilter() OptionFunc {
	return func(app *App) error {
		if app.config.OpenAI == nil || app.config.OpenAI.APIKey == "" {
			return nil
		}

		filter, err := promptfilter.New(app.config.OpenAI.APIKey)
		if err != nil {
			return err
		}
		app.filter = filter
		return nil
	}
}

func NewApp(cfg *config.Config, options ...OptionFunc) (*App, error) {
	log, err := logger.InitLogger(cfg.Environment)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     cfg,
		Logger:     log,
		cancelFunc: cancel,
	}

	for _, opt := range options {
		if err := opt(app); err != nil {
			cancel()
			return nil, err
		}
	}

	return app, nil
}

func (app *App) Close() {
	app.cancelFunc()

	if app.queue != nil {
		app.queue.Close()
	}
	if app.uploader != nil {
		app.uploader.Stop()
	}
	if app.cache != nil {
		app.cache.Close()
	}
	app.Logger.Sync()
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) MQ() mq.MQ {
	return app.queue
}

func (app *App) History() *history.Store {
	return app.historyStore
}

func (app *App) PipelineCache() *pipeline.Cache {
	return app.cache
}

func (app *App) Uploader() *fileuploader.Uploader {
	return app.uploader
}

func (app *App) Upscaler() *upscale.Upscaler {
	return app.upscaler
}

func (app *App) PromptFilter() *promptfilter.Filter {
	return app.filter
}
