package fileuploader

import (
	"github.com/sdgen-ai/sdgen-server/internal/services/filestorage"
	"github.com/sdgen-ai/sdgen-server/internal/utils/hashutil"

	"github.com/gammazero/workerpool"
)

// Uploader pushes files to the configured storage backend through a worker
// pool so request handlers never block on storage latency.
type Uploader struct {
	wp          *workerpool.WorkerPool
	filestorage filestorage.FileStorage
}

func NewFileUploader(filestorage filestorage.FileStorage, maxWorkers int) *Uploader {
	return &Uploader{
		wp:          workerpool.New(maxWorkers),
		filestorage: filestorage,
	}
}

func (w *Uploader) Stop() {
	w.wp.Stop()
}

func (w *Uploader) Upload(file filestorage.FileInfo, response chan string) {
	w.wp.Submit(func() {
		w.upload(file, response)
	})
}

// UploadBytes stores content under its blake3 hash, so identical uploads
// dedupe to the same object.
func (w *Uploader) UploadBytes(content []byte, extension string, response chan string) {
	fileInfo := filestorage.FileInfo{
		Name:      hashutil.Blake3Hash(content),
		Extension: extension,
		Content:   content,
		IsTemp:    false,
	}

	w.Upload(fileInfo, response)
}

func (w *Uploader) upload(file filestorage.FileInfo, response chan string) {
	defer close(response)

	if w.filestorage == nil {
		return
	}

	url, err := w.filestorage.Upload(file)
	if err != nil {
		return
	}

	response <- url
}
