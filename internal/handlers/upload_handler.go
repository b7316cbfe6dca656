package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"finportal/internal/middleware"
	"finportal/internal/storage"
)

const maxUploadBytes = 10 << 20

var allowedUploadTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"application/pdf": true,
}

type Uploader interface {
	Upload(ctx context.Context, bucket, owner, filename, contentType string, body io.Reader, size int64) (*storage.Object, error)
}

type UploadHandler struct {
	storage Uploader
}

func NewUploadHandler(s Uploader) *UploadHandler { return &UploadHandler{storage: s} }

func (h *UploadHandler) Upload(c *gin.Context) {
	bucket := c.Param("bucket")
	if !storage.IsBucket(bucket) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown bucket"})
		return
	}
	u, _ := middleware.CurrentUser(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large", "details": "max 10 MB"})
		return
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(fh.Header.Get("Content-Type"), ";")[0]))
	if !allowedUploadTypes[contentType] {
		badRequest(c, "unsupported file type")
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	obj, err := h.storage.Upload(c.Request.Context(), bucket, u.ID, fh.Filename, contentType, f, fh.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Info().Str("bucket", bucket).Str("path", obj.Path).Str("user_id", u.ID).Msg("[upload] stored")
	c.JSON(http.StatusOK, gin.H{"success": true, "object": obj})
}
