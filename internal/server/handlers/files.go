package handlers

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/gin-gonic/gin"

	apperrors "github.com/muxfetch/muxfetch/internal/errors"
)

// artifactNamePattern matches exactly the filenames the pipeline produces:
// download_{uuid}.{mp3|mp4}. Everything else, traversal attempts included,
// is unaddressable.
var artifactNamePattern = regexp.MustCompile(
	`^download_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(mp3|mp4)$`)

// FilesHandler serves completed artifacts from the downloads directory.
type FilesHandler struct {
	downloadsDir string
}

// NewFilesHandler creates a new files handler
func NewFilesHandler(downloadsDir string) *FilesHandler {
	return &FilesHandler{downloadsDir: downloadsDir}
}

// Serve streams one artifact as an attachment.
func (h *FilesHandler) Serve(c *gin.Context) {
	name := c.Param("filename")
	if !artifactNamePattern.MatchString(name) {
		apperrors.HandleNotFound(c, "file", name)
		return
	}

	path := filepath.Join(h.downloadsDir, name)
	if _, err := os.Stat(path); err != nil {
		apperrors.HandleNotFound(c, "file", name)
		return
	}

	c.FileAttachment(path, name)
}
