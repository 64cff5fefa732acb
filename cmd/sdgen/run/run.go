package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdgen-ai/sdgen-server/internal/app"
	"github.com/sdgen-ai/sdgen-server/internal/config"
	"github.com/sdgen-ai/sdgen-server/internal/pipeline"
	"github.com/sdgen-ai/sdgen-server/internal/server"
	"github.com/sdgen-ai/sdgen-server/internal/services/generation"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Start the sdgen server",
	RunE:  runApp,
}

func init() {
	flags := Cmd.Flags()

	flags.Int("port", config.DefaultPort, "Port to run the server on")
	flags.String("host", config.DefaultHost, "Host to run the server on")
	flags.String("environment", "dev", "Environment configuration")
	flags.String("worker-addr", config.DefaultWorkerAddr, "Address of the diffusion worker")
	flags.StringSlice("warmup-models", []string{}, "Models to be loaded and warmed up on startup")
	flags.String("filesystem-type", "local", "Filesystem type: 'local' or 's3'")
	flags.String("upscale-backend", "auto", "Upscale backend: 'remote', 'resize' or 'auto'")
	flags.String("public-dir", "", "Path where static files should be served from")

	flags.String("s3-access-key", "", "S3 access key")
	flags.String("s3-secret-key", "", "S3 secret key")
	flags.String("s3-region-name", "", "S3 region name")
	flags.String("s3-bucket-name", "", "S3 bucket name")
	flags.String("s3-folder", "", "S3 folder")
	flags.String("s3-vanity-url", "", "Public URL for S3 files")
	flags.String("s3-endpoint-url", "", "S3 endpoint URL")

	viper.BindPFlags(flags)

	bindEnvs()
}

func bindEnvs() {
	// Core settings (use the SDGEN_ prefix)
	// Example: SDGEN_PORT
	viper.BindEnv("port")
	viper.BindEnv("host")
	viper.BindEnv("environment")
	viper.BindEnv("worker_addr")
	viper.BindEnv("warmup_models")
	viper.BindEnv("filesystem_type")
	viper.BindEnv("upscale_backend")
	viper.BindEnv("public_dir")

	// S3 environment bindings
	// Example: SDGEN_S3_ACCESS_KEY
	viper.BindEnv("s3.access_key")
	viper.BindEnv("s3.secret_key")
	viper.BindEnv("s3.region_name")
	viper.BindEnv("s3.bucket_name")
	viper.BindEnv("s3.folder")
	viper.BindEnv("s3.vanity_url")
	viper.BindEnv("s3.endpoint_url")

	// External API services (no SDGEN_ prefix)
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
}

func runApp(_ *cobra.Command, _ []string) error {
	errc := make(chan error, 2)
	signalc := make(chan os.Signal, 1)

	application, err := createApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := application.Context()

	srv, err := runServer(application)
	if err != nil {
		return err
	}

	go func() {
		processor := generation.NewProcessor(
			application.Config(),
			application.MQ(),
			application.PipelineCache(),
			application.History(),
			application.PromptFilter(),
			application.Logger,
		)
		if err := processor.Run(ctx); err != nil {
			errc <- err
		}
	}()

	go warmupModels(ctx, application)

	signal.Notify(signalc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		srv.Stop(ctx)
		return err
	case <-signalc:
		application.Logger.Info("Shutting down")
		return srv.Stop(context.Background())
	}
}

func createApp() (*app.App, error) {
	return app.NewApp(
		config.MustGetConfig(),
		app.WithMQ(10),
		app.WithHistory(),
		app.WithPipelineCache(),
		app.WithFileUploader(),
		app.WithUpscaler(),
		app.WithPromptFilter(),
	)
}

// warmupModels loads configured models through the cache so the first
// request does not pay the load cost.
func warmupModels(ctx context.Context, application *app.App) {
	cfg := application.Config()
	for _, alias := range cfg.WarmupModels {
		modelID, ok := cfg.Models[alias]
		if !ok {
			application.Logger.Warn("Unknown warmup model", zap.String("alias", alias))
			continue
		}

		_, err := application.PipelineCache().GetOrCreate(alias, func() (*pipeline.Pipeline, error) {
			return pipeline.Load(ctx, cfg, modelID, application.Logger)
		})
		if err != nil {
			application.Logger.Warn("Warmup failed", zap.String("model", alias), zap.Error(err))
		}
	}
}

func runServer(application *app.App) (*server.Server, error) {
	srv, err := server.NewServer(application.Config())
	if err != nil {
		return nil, err
	}

	srv.SetupRoutes(application)

	errc := make(chan error, 1)
	go func() {
		fmt.Printf("sdgen server started on %s:%d\n", application.Config().Host, application.Config().Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return nil, err
	default:
		return srv, nil
	}
}
