package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sdgen-ai/sdgen-server/internal/app"
	"github.com/sdgen-ai/sdgen-server/internal/types"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// UploadFile stores a multipart upload (img2img source images) under its
// content hash and returns the URL it will be served from.
func UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to get file: " + err.Error()})
		return
	}

	content, err := readFileContent(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to read file: " + err.Error()})
		return
	}

	extension := filepath.Ext(file.Filename)
	if extension == "" {
		extension = mimetype.Detect(content).Extension()
	}

	a := c.MustGet("app").(*app.App)
	response := make(chan string)
	a.Uploader().UploadBytes(content, extension, response)

	url, ok := <-response
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to store file"})
		return
	}

	c.JSON(http.StatusOK, types.UploadResponse{Url: url})
}

// GetFile serves a stored artifact. History artifacts are addressed as
// history/<subdir>/<name>; everything else resolves against the assets dir.
func GetFile(c *gin.Context) {
	a := c.MustGet("app").(*app.App)

	relpath := strings.TrimPrefix(c.Param("filepath"), "/")
	if relpath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "filename is required"})
		return
	}

	if rest, ok := strings.CutPrefix(relpath, "history/"); ok {
		path, err := a.History().ResolvePath(rest)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "file not found"})
			return
		}
		c.File(path)
		return
	}

	path := filepath.Join(a.Config().AssetsDir, filepath.Clean("/"+relpath))
	c.File(path)
}

func readFileContent(file *multipart.FileHeader) ([]byte, error) {
	content, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer content.Close()

	return io.ReadAll(content)
}
