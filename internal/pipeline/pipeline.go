package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sdgen-ai/sdgen-server/internal/config"
	"github.com/sdgen-ai/sdgen-server/internal/types"
	"github.com/sdgen-ai/sdgen-server/pkg/tcpclient"

	"go.uber.org/zap"
)

// Pipeline is a handle to a model loaded on the diffusion worker. Loading
// pulls multi-gigabyte weights on the worker side, so handles are meant to
// be constructed once and cached for the process lifetime.
type Pipeline struct {
	modelID string
	client  *tcpclient.TCPClient
	logger  *zap.Logger
}

type workerCommand struct {
	Command string `json:"command"`
	ModelID string `json:"model_id,omitempty"`
	Scale   int    `json:"scale,omitempty"`
	Payload string `json:"payload,omitempty"`
}

type workerAck struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// Load connects to the worker and asks it to load the given model. A load
// failure closes the connection and returns the worker's error, so callers
// cache nothing for failed loads.
func Load(ctx context.Context, cfg *config.Config, modelID string, logger *zap.Logger) (*Pipeline, error) {
	timeout := time.Duration(cfg.TcpTimeout) * time.Second
	client, err := tcpclient.NewTCPClient(cfg.WorkerAddr, timeout, 1, tcpclient.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to diffusion worker: %w", err)
	}

	p := &Pipeline{
		modelID: modelID,
		client:  client,
		logger:  logger,
	}

	ack, err := p.roundTrip(ctx, workerCommand{Command: "load", ModelID: modelID})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to load model %s: %w", modelID, err)
	}
	if ack.Status == "error" {
		client.Close()
		return nil, fmt.Errorf("failed to load model %s: %s", modelID, ack.Error)
	}

	logger.Info("Pipeline loaded", zap.String("model", modelID))
	return p, nil
}

func (p *Pipeline) ModelID() string {
	return p.modelID
}

// Generate streams size-prefixed BMP frames from the worker for the given
// request. The output channel closes after the final frame; a zero-length
// frame or connection EOF marks the end of the stream.
func (p *Pipeline) Generate(ctx context.Context, params *types.GenerateParams) (<-chan []byte, <-chan error) {
	output := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		defer close(output)

		data, err := json.Marshal(params)
		if err != nil {
			errc <- err
			return
		}

		if err := p.client.Send(ctx, string(data)); err != nil {
			errc <- err
			return
		}

		for {
			sizeBytes, err := p.client.ReceiveFullBytes(ctx, 4)
			if err != nil {
				// A clean EOF between frames means the worker is done.
				// A partial size prefix surfaces as io.ErrUnexpectedEOF
				// and is a torn frame, not a clean end.
				if !errors.Is(err, io.EOF) {
					errc <- err
				}
				return
			}

			size := int(binary.BigEndian.Uint32(sizeBytes))
			if size == 0 {
				return
			}

			frame, err := p.client.ReceiveFullBytes(ctx, size)
			if err != nil {
				// The size prefix promised a frame; any error here is a
				// dropped connection mid-frame, never a clean end.
				errc <- fmt.Errorf("connection lost mid-frame: %w", err)
				return
			}

			select {
			case output <- frame:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return output, errc
}

// Upscale sends an image to the worker's super-resolution model and returns
// the upscaled image bytes.
func (p *Pipeline) Upscale(ctx context.Context, imageBytes []byte, scale int) ([]byte, error) {
	ack, err := p.roundTrip(ctx, workerCommand{
		Command: "upscale",
		ModelID: p.modelID,
		Scale:   scale,
		Payload: base64.StdEncoding.EncodeToString(imageBytes),
	})
	if err != nil {
		return nil, err
	}
	if ack.Status == "error" {
		return nil, fmt.Errorf("upscale failed: %s", ack.Error)
	}

	result, err := base64.StdEncoding.DecodeString(ack.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode upscale response: %w", err)
	}

	return result, nil
}

func (p *Pipeline) Close() error {
	if p.client == nil {
		return nil
	}

	return p.client.Close()
}

func (p *Pipeline) roundTrip(ctx context.Context, cmd workerCommand) (*workerAck, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	if err := p.client.Send(ctx, string(data)); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	sizeBytes, err := p.client.ReceiveFullBytes(ctx, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to receive response size: %w", err)
	}

	size := int(binary.BigEndian.Uint32(sizeBytes))
	resp, err := p.client.ReceiveFullBytes(ctx, size)
	if err != nil {
		return nil, fmt.Errorf("failed to receive response: %w", err)
	}

	var ack workerAck
	if err := json.Unmarshal(resp, &ack); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &ack, nil
}
