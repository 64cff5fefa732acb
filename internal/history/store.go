package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sdgen-ai/sdgen-server/internal/utils/imageutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("history entry not found")

const (
	entriesDir = "entries"
	fullDir    = "full"
	thumbsDir  = "thumbnails"
	indexFile  = "index.json"

	defaultMaxEntries = 500
	defaultThumbSize  = 256
)

// Store is an append-only index of generation records backed by flat files:
// per-record JSON under entries/, artifacts under full/ and thumbnails/,
// and a compact newest-first index.json. Every file lands through a
// write-to-temp plus atomic rename, so concurrent readers never observe a
// torn write, and artifacts are written before the index references them.
type Store struct {
	root       string
	maxEntries int
	thumbSize  int
	logger     *zap.Logger
	mu         sync.Mutex
}

type Option func(*Store)

func WithMaxEntries(n int) Option {
	return func(s *Store) {
		s.maxEntries = n
	}
}

func WithThumbSize(px int) Option {
	return func(s *Store) {
		s.thumbSize = px
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(root string, opts ...Option) (*Store, error) {
	store := &Store{
		root:       root,
		maxEntries: defaultMaxEntries,
		thumbSize:  defaultThumbSize,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(store)
	}

	for _, subdir := range []string{entriesDir, fullDir, thumbsDir} {
		if err := os.MkdirAll(filepath.Join(root, subdir), os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	return store, nil
}

func (s *Store) Root() string {
	return s.root
}

// Record persists a new history entry: full image, thumbnail, per-record
// JSON, then the index update, in that order. On failure the index is left
// at its last good state and nothing in-memory changes.
func (s *Store) Record(rec *Record, img image.Image) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.FullImage = filepath.Join(fullDir, rec.ID+".png")
	rec.Thumbnail = filepath.Join(thumbsDir, rec.ID+".png")

	fullBytes, err := imageutil.Encode(img, "png")
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if err := atomicWrite(filepath.Join(s.root, rec.FullImage), fullBytes); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	thumbBytes, err := imageutil.Encode(imageutil.Thumbnail(img, s.thumbSize), "png")
	if err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := atomicWrite(filepath.Join(s.root, rec.Thumbnail), thumbBytes); err != nil {
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}

	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := atomicWrite(s.entryPath(rec.ID), payload); err != nil {
		return "", fmt.Errorf("failed to write record: %w", err)
	}

	index := s.readIndex()
	updated := make([]Summary, 0, len(index)+1)
	updated = append(updated, rec.summary())
	for _, entry := range index {
		if entry.ID != rec.ID {
			updated = append(updated, entry)
		}
	}
	if len(updated) > s.maxEntries {
		updated = updated[:s.maxEntries]
	}

	if err := s.writeIndex(updated); err != nil {
		return "", fmt.Errorf("failed to update history index: %w", err)
	}

	s.logger.Info("Saved history entry", zap.String("id", rec.ID))
	return rec.ID, nil
}

// List returns up to n summaries, newest first. n <= 0 means all indexed
// entries.
func (s *Store) List(n int) []Summary {
	index := s.readIndex()
	if n > 0 && len(index) > n {
		index = index[:n]
	}

	return index
}

func (s *Store) Get(id string) (*Record, error) {
	data, err := os.ReadFile(s.entryPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read history entry: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse history entry %s: %w", id, err)
	}

	return &rec, nil
}

// Delete removes an entry's artifacts and JSON and rewrites the index.
// Returns ErrNotFound when the id is not indexed.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.readIndex()
	updated := make([]Summary, 0, len(index))
	removed := false
	for _, entry := range index {
		if entry.ID == id {
			removed = true
			continue
		}
		updated = append(updated, entry)
	}
	if !removed {
		return ErrNotFound
	}

	for _, rel := range []string{
		filepath.Join(fullDir, id+".png"),
		filepath.Join(thumbsDir, id+".png"),
		filepath.Join(entriesDir, id+".json"),
	} {
		if err := os.Remove(filepath.Join(s.root, rel)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove history file", zap.String("path", rel), zap.Error(err))
		}
	}

	if err := s.writeIndex(updated); err != nil {
		return fmt.Errorf("failed to update history index: %w", err)
	}

	s.logger.Info("Deleted history entry", zap.String("id", id))
	return nil
}

// ResolvePath maps a record-relative artifact path to an absolute one,
// refusing to escape the history root.
func (s *Store) ResolvePath(rel string) (string, error) {
	path := filepath.Join(s.root, filepath.Clean("/"+rel))
	if _, err := os.Stat(path); err != nil {
		return "", err
	}

	return path, nil
}

func (s *Store) entryPath(id string) string {
	return filepath.Join(s.root, entriesDir, id+".json")
}

func (s *Store) readIndex() []Summary {
	data, err := os.ReadFile(filepath.Join(s.root, indexFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read history index", zap.Error(err))
		}
		return nil
	}

	var index []Summary
	if err := json.Unmarshal(data, &index); err != nil {
		s.logger.Warn("Failed to parse history index", zap.Error(err))
		return nil
	}

	return index
}

func (s *Store) writeIndex(index []Summary) error {
	payload, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}

	return atomicWrite(filepath.Join(s.root, indexFile), payload)
}

// atomicWrite writes data to a temporary file in the destination directory
// and renames it into place, so readers see either the old content or the
// new, never a partial write.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return nil
}
