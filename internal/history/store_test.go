package history

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	return img
}

func TestStoreRecordAndList(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	id, err := store.Record(&Record{
		Mode:     "txt2img",
		Prompt:   "a cat",
		Steps:    20,
		CfgScale: 7.0,
		Seed:     42,
		Width:    512,
		Height:   512,
		ModelID:  "SD1.5",
	}, testImage(512, 512))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	list := store.List(0)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "a cat", list[0].Prompt)
	assert.Equal(t, int64(42), list[0].Seed)
	assert.Equal(t, 512, list[0].Width)
	assert.Equal(t, 512, list[0].Height)
	assert.False(t, list[0].CreatedAt.IsZero())

	rec, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 20, rec.Steps)
	assert.Equal(t, 7.0, rec.CfgScale)
	assert.Equal(t, "SD1.5", rec.ModelID)

	fullPath, err := store.ResolvePath(rec.FullImage)
	require.NoError(t, err)
	assert.FileExists(t, fullPath)

	thumbPath, err := store.ResolvePath(rec.Thumbnail)
	require.NoError(t, err)
	assert.FileExists(t, thumbPath)
}

func TestStoreListNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	img := testImage(64, 64)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.Record(&Record{
			Mode:      "txt2img",
			Prompt:    fmt.Sprintf("prompt %d", i),
			CreatedAt: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		}, img)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	list := store.List(0)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)
	assert.Equal(t, ids[0], list[2].ID)

	list = store.List(2)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
}

func TestStoreMaxEntries(t *testing.T) {
	store, err := NewStore(t.TempDir(), WithMaxEntries(2))
	require.NoError(t, err)

	img := testImage(64, 64)
	for i := 0; i < 4; i++ {
		_, err := store.Record(&Record{Mode: "txt2img"}, img)
		require.NoError(t, err)
	}

	assert.Len(t, store.List(0), 2)
}

func TestStoreGetNotFound(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	id, err := store.Record(&Record{Mode: "txt2img", Prompt: "keep"}, testImage(64, 64))
	require.NoError(t, err)

	rec, err := store.Get(id)
	require.NoError(t, err)
	fullPath, err := store.ResolvePath(rec.FullImage)
	require.NoError(t, err)

	require.NoError(t, store.Delete(id))
	assert.Empty(t, store.List(0))
	assert.NoFileExists(t, fullPath)

	_, err = store.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(id), ErrNotFound)
}

func TestStoreRecordFailureLeavesIndexIntact(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root)
	require.NoError(t, err)

	img := testImage(64, 64)
	id, err := store.Record(&Record{Mode: "txt2img", Prompt: "survivor"}, img)
	require.NoError(t, err)

	// replace the full/ directory with a plain file so the next image
	// write cannot land
	fullDirPath := filepath.Join(root, "full")
	require.NoError(t, os.RemoveAll(fullDirPath))
	require.NoError(t, os.WriteFile(fullDirPath, []byte("not a dir"), 0o600))

	_, err = store.Record(&Record{Mode: "txt2img", Prompt: "doomed"}, img)
	require.Error(t, err)

	list := store.List(0)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
}

func TestStoreRecordJSONRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	created := time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)
	in := &Record{
		Mode:           "img2img",
		Prompt:         "a dog in the rain",
		NegativePrompt: "blurry",
		Steps:          30,
		CfgScale:       8.5,
		Seed:           1234,
		Width:          768,
		Height:         512,
		ModelID:        "Turbo",
		Strength:       0.75,
		SourceImage:    "upload.png",
		ElapsedSeconds: 4.2,
		CreatedAt:      created,
	}

	id, err := store.Record(in, testImage(768, 512))
	require.NoError(t, err)

	out, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// the on-disk entry is plain JSON with the same fields
	data, err := os.ReadFile(store.entryPath(id))
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "a dog in the rain", raw["prompt"])
	assert.Equal(t, 0.75, raw["strength"])
}

func TestStoreResolvePathEscape(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.ResolvePath("../../etc/passwd")
	assert.Error(t, err)
}

func TestStoreThumbnailBounded(t *testing.T) {
	store, err := NewStore(t.TempDir(), WithThumbSize(128))
	require.NoError(t, err)

	id, err := store.Record(&Record{Mode: "txt2img"}, testImage(512, 256))
	require.NoError(t, err)

	rec, err := store.Get(id)
	require.NoError(t, err)

	thumbPath, err := store.ResolvePath(rec.Thumbnail)
	require.NoError(t, err)

	f, err := os.Open(thumbPath)
	require.NoError(t, err)
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Width)
	assert.Equal(t, 64, cfg.Height)
}
