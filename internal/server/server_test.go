package server

import (
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sdgen-ai/sdgen-server/internal/app"
	"github.com/sdgen-ai/sdgen-server/internal/config"
	"github.com/sdgen-ai/sdgen-server/internal/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *app.App) {
	t.Helper()

	cfg := &config.Config{
		Host:        "localhost",
		Port:        7860,
		Environment: "test",
		HistoryDir:  t.TempDir(),
		AssetsDir:   t.TempDir(),
		Models: map[string]string{
			"SD1.5": "runwayml/stable-diffusion-v1-5",
			"Turbo": "stabilityai/sd-turbo",
		},
	}

	a, err := app.NewApp(cfg,
		app.WithMQ(100),
		app.WithHistory(),
		app.WithPipelineCache(),
	)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	srv.SetupRoutes(a)

	return srv, a
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func seedHistory(t *testing.T, a *app.App, prompt string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	id, err := a.History().Record(&history.Record{
		Mode:   "txt2img",
		Prompt: prompt,
		Seed:   7,
		Width:  64,
		Height: 64,
	}, img)
	require.NoError(t, err)
	return id
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHistoryEndpoints(t *testing.T) {
	srv, a := newTestServer(t)
	id := seedHistory(t, a, "a lighthouse at dusk")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/history")
	require.Equal(t, http.StatusOK, rec.Code)

	var listBody struct {
		Entries []history.Summary `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listBody))
	require.Len(t, listBody.Entries, 1)
	assert.Equal(t, id, listBody.Entries[0].ID)
	assert.Equal(t, "a lighthouse at dusk", listBody.Entries[0].Prompt)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/history/"+id)
	require.Equal(t, http.StatusOK, rec.Code)

	var got history.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(7), got.Seed)
	assert.NotEmpty(t, got.FullImage)

	// the recorded image is downloadable through the file endpoint
	rec = doRequest(t, srv, http.MethodGet, "/file/history/"+got.FullImage)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.Bytes())

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/history/"+id)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/history/"+id)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryListLimit(t *testing.T) {
	srv, a := newTestServer(t)
	seedHistory(t, a, "one")
	seedHistory(t, a, "two")
	seedHistory(t, a, "three")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/history?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entries []history.Summary `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Entries, 2)
	assert.Equal(t, "three", body.Entries[0].Prompt)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/history?limit=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEmptyList(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
}

func TestPresetsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/presets")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Presets []struct {
			Name  string `json:"name"`
			Steps int    `json:"steps"`
		} `json:"presets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Presets, 5)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/presets?name=Anime")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/presets?name=Nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/models")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models []struct {
			Alias   string `json:"alias"`
			ModelID string `json:"model_id"`
			Loaded  bool   `json:"loaded"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Models, 2)
	assert.Equal(t, "SD1.5", body.Models[0].Alias)
	assert.False(t, body.Models[0].Loaded)
}

func TestTxt2ImgValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	// missing prompt
	req := httptest.NewRequest(http.MethodPost, "/api/v1/txt2img", nil)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileEndpointEscapeRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/file/history/../../etc/passwd")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}
