package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sdgen-ai/sdgen-server/internal/config"
	"github.com/sdgen-ai/sdgen-server/internal/history"
	"github.com/sdgen-ai/sdgen-server/internal/mq"
	"github.com/sdgen-ai/sdgen-server/internal/pipeline"
	"github.com/sdgen-ai/sdgen-server/internal/services/promptfilter"
	"github.com/sdgen-ai/sdgen-server/internal/types"
	"github.com/sdgen-ai/sdgen-server/internal/utils/imageutil"
	"github.com/sdgen-ai/sdgen-server/internal/utils/randutil"
	"github.com/sdgen-ai/sdgen-server/internal/utils/webhookutil"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	StatusInQueue   = "IN_QUEUE"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// EndMessage terminates a per-request result stream.
var EndMessage = []byte("END")

var ErrPromptRejected = errors.New("prompt rejected by safety filter")

// Processor consumes queued generation requests one at a time, drives the
// worker pipeline through the cache, and records every produced image in
// history before publishing its URL.
type Processor struct {
	cfg    *config.Config
	queue  mq.MQ
	cache  *pipeline.Cache
	store  *history.Store
	filter *promptfilter.Filter
	logger *zap.Logger
}

func NewProcessor(cfg *config.Config, queue mq.MQ, cache *pipeline.Cache, store *history.Store, filter *promptfilter.Filter, logger *zap.Logger) *Processor {
	return &Processor{
		cfg:    cfg,
		queue:  queue,
		cache:  cache,
		store:  store,
		filter: filter,
		logger: logger,
	}
}

// NewRequest validates and normalizes a client request, assigns it an id,
// and publishes it to the generation queue.
func NewRequest(req *types.GenerateParamsRequest, mode string, cfg *config.Config, queue mq.MQ) (*types.GenerateParams, error) {
	params, err := NormalizeParams(req, mode, cfg.Models)
	if err != nil {
		return nil, err
	}

	data, err := msgpack.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := queue.Publish(context.Background(), config.DefaultGenerateTopic, data); err != nil {
		return nil, fmt.Errorf("failed to publish message to queue: %w", err)
	}

	return params, nil
}

// NormalizeParams applies defaults, clamps the resolution to the worker's
// grid, and rejects values the worker cannot handle.
func NormalizeParams(req *types.GenerateParamsRequest, mode string, models map[string]string) (*types.GenerateParams, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	model := req.Model
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if _, ok := models[model]; !ok {
		return nil, fmt.Errorf("unknown model: %s", model)
	}

	if mode == types.ModeImg2Img {
		if req.SourceImage == "" {
			return nil, fmt.Errorf("source_image is required for img2img")
		}
		if req.Strength <= 0 || req.Strength > 1 {
			return nil, fmt.Errorf("strength must be in (0, 1], got %v", req.Strength)
		}
	}

	steps := req.Steps
	if steps <= 0 {
		steps = 30
	}
	cfgScale := req.CfgScale
	if cfgScale <= 0 {
		cfgScale = 7.5
	}
	width, height := types.ClampResolution(req.Width, req.Height)

	var seed int64
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		seed = randutil.RandomSeed()
	}

	outputFormat := req.OutputFormat
	if outputFormat == "" {
		outputFormat = "png"
	}

	return &types.GenerateParams{
		ID:             uuid.NewString(),
		Mode:           mode,
		Model:          model,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Steps:          steps,
		CfgScale:       cfgScale,
		Width:          width,
		Height:         height,
		Seed:           seed,
		OutputFormat:   outputFormat,
		WebhookUrl:     req.WebhookUrl,
		SourceImage:    req.SourceImage,
		Strength:       req.Strength,
	}, nil
}

// Run processes queued requests until the context is cancelled. Requests are
// handled one at a time; the worker serializes inference anyway.
func (p *Processor) Run(ctx context.Context) error {
	for {
		message, err := p.queue.Receive(ctx, config.DefaultGenerateTopic)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, mq.ErrQueueClosed) {
				return nil
			}
			return err
		}

		var params types.GenerateParams
		if err := msgpack.Unmarshal(message, &params); err != nil {
			p.logger.Error("Failed to parse request data", zap.Error(err))
			continue
		}

		p.handle(ctx, &params)
	}
}

func (p *Processor) handle(ctx context.Context, params *types.GenerateParams) {
	topic := ResultTopic(params.ID)
	defer p.queue.Publish(ctx, topic, EndMessage)

	if err := p.screenPrompt(ctx, params); err != nil {
		p.publishFailure(ctx, topic, params.ID, err)
		return
	}

	pipe, err := p.cache.GetOrCreate(params.Model, func() (*pipeline.Pipeline, error) {
		return pipeline.Load(ctx, p.cfg, p.cfg.Models[params.Model], p.logger)
	})
	if err != nil {
		p.logger.Error("Model load failed", zap.String("model", params.Model), zap.Error(err))
		p.publishFailure(ctx, topic, params.ID, err)
		return
	}

	start := time.Now()
	frames, errc := pipe.Generate(ctx, params)

	for frame := range frames {
		img, err := imageutil.DecodeBitmap(frame)
		if err != nil {
			p.logger.Error("Failed to decode worker frame", zap.Error(err))
			p.publishFailure(ctx, topic, params.ID, err)
			return
		}

		rec := recordFromParams(params, time.Since(start))
		if _, err := p.store.Record(rec, img); err != nil {
			p.logger.Error("Failed to record history entry", zap.Error(err))
			p.publishFailure(ctx, topic, params.ID, err)
			return
		}

		url := fmt.Sprintf("http://%s:%d/file/history/%s", p.cfg.Host, p.cfg.Port, rec.FullImage)
		p.publishResult(ctx, topic, types.GenerationResponse{
			ID:     params.ID,
			Status: StatusCompleted,
			URL:    url,
		})

		if params.WebhookUrl != "" {
			if err := webhookutil.Invoke(ctx, params.WebhookUrl, types.GenerationResponse{
				ID:     params.ID,
				Status: StatusCompleted,
				URL:    url,
			}); err != nil {
				p.logger.Warn("Webhook invocation failed", zap.Error(err))
			}
		}
	}

	select {
	case err := <-errc:
		p.logger.Error("Generation failed", zap.String("id", params.ID), zap.Error(err))
		p.publishFailure(ctx, topic, params.ID, err)
	default:
	}
}

func (p *Processor) screenPrompt(ctx context.Context, params *types.GenerateParams) error {
	if p.filter == nil {
		return nil
	}

	verdict, err := p.filter.Evaluate(ctx, params.Prompt, params.NegativePrompt)
	if err != nil {
		return err
	}
	if !verdict.Accepted {
		return fmt.Errorf("%w: %s", ErrPromptRejected, verdict.Reason)
	}

	return nil
}

func (p *Processor) publishResult(ctx context.Context, topic string, resp types.GenerationResponse) {
	data, err := msgpack.Marshal(resp)
	if err != nil {
		p.logger.Error("Failed to marshal result", zap.Error(err))
		return
	}

	if err := p.queue.Publish(ctx, topic, data); err != nil {
		p.logger.Error("Failed to publish result", zap.Error(err))
	}
}

func (p *Processor) publishFailure(ctx context.Context, topic, id string, cause error) {
	p.publishResult(ctx, topic, types.GenerationResponse{
		ID:     id,
		Status: StatusFailed,
		Error:  cause.Error(),
	})
}

// Results streams decoded responses for a request until the end marker.
func Results(ctx context.Context, queue mq.MQ, requestID string) (<-chan types.GenerationResponse, error) {
	out := make(chan types.GenerationResponse)
	topic := ResultTopic(requestID)

	go func() {
		defer close(out)
		for {
			message, err := queue.Receive(ctx, topic)
			if err != nil {
				return
			}
			if string(message) == string(EndMessage) {
				return
			}

			var resp types.GenerationResponse
			if err := msgpack.Unmarshal(message, &resp); err != nil {
				continue
			}

			select {
			case out <- resp:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func ResultTopic(requestID string) string {
	return config.DefaultGeneratePrefix + requestID
}

func recordFromParams(params *types.GenerateParams, elapsed time.Duration) *history.Record {
	return &history.Record{
		Mode:           params.Mode,
		Prompt:         params.Prompt,
		NegativePrompt: params.NegativePrompt,
		Steps:          params.Steps,
		CfgScale:       params.CfgScale,
		Seed:           params.Seed,
		Width:          params.Width,
		Height:         params.Height,
		ModelID:        params.Model,
		Strength:       params.Strength,
		SourceImage:    params.SourceImage,
		ElapsedSeconds: elapsed.Seconds(),
	}
}
