package upscale

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/sdgen-ai/sdgen-server/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewUpscalerBackendSelection(t *testing.T) {
	logger := zap.NewNop()
	provider := func(ctx context.Context) (*pipeline.Pipeline, error) {
		return nil, errors.New("no worker in tests")
	}

	tests := []struct {
		name     string
		prefer   string
		provider PipelineProvider
		want     string
		wantErr  bool
	}{
		{name: "resize", prefer: BackendResize, want: BackendResize},
		{name: "remote with provider", prefer: BackendRemote, provider: provider, want: BackendRemote},
		{name: "remote without provider fails", prefer: BackendRemote, wantErr: true},
		{name: "auto prefers remote", prefer: BackendAuto, provider: provider, want: BackendRemote},
		{name: "auto without provider resizes", prefer: BackendAuto, want: BackendResize},
		{name: "empty defaults to auto", prefer: "", want: BackendResize},
		{name: "unknown backend", prefer: "gpu9000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUpscaler(tt.prefer, tt.provider, logger)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.Backend())
		})
	}
}

func TestUpscaleResizeDimensions(t *testing.T) {
	u, err := NewUpscaler(BackendResize, nil, zap.NewNop())
	require.NoError(t, err)

	src := image.NewRGBA(image.Rect(0, 0, 100, 60))

	for _, scale := range []int{2, 4} {
		out, err := u.Upscale(context.Background(), src, scale)
		require.NoError(t, err)
		assert.Equal(t, 100*scale, out.Bounds().Dx())
		assert.Equal(t, 60*scale, out.Bounds().Dy())
	}
}

func TestUpscaleInvalidScale(t *testing.T) {
	u, err := NewUpscaler(BackendResize, nil, zap.NewNop())
	require.NoError(t, err)

	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for _, scale := range []int{0, 1, 3, 8, -2} {
		_, err := u.Upscale(context.Background(), src, scale)
		assert.Error(t, err, "scale %d must be rejected", scale)
	}
}

func TestUpscaleAutoFallsBackToResize(t *testing.T) {
	provider := func(ctx context.Context) (*pipeline.Pipeline, error) {
		return nil, errors.New("worker unreachable")
	}

	u, err := NewUpscaler(BackendAuto, provider, zap.NewNop())
	require.NoError(t, err)

	src := image.NewRGBA(image.Rect(0, 0, 32, 32))
	out, err := u.Upscale(context.Background(), src, 2)
	require.NoError(t, err)
	assert.Equal(t, 64, out.Bounds().Dx())
}
