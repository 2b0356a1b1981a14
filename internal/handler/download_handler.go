package handler

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"musicbridge/internal/model"
	"musicbridge/internal/service"
	"musicbridge/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Downloader produces the file for a download request
type Downloader interface {
	Download(ctx context.Context, req *model.DownloadRequest) (*model.DownloadedFile, error)
}

// DownloadHandler serves POST /download
type DownloadHandler struct {
	downloads Downloader
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(d Downloader) *DownloadHandler {
	return &DownloadHandler{downloads: d}
}

// Download handles POST /download. On success the body is the file itself;
// on failure it is {"status":"error","message":...}.
func (h *DownloadHandler) Download(c *gin.Context) {
	var req model.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger.Warn("Invalid download request", zap.Error(err))
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.downloads.Download(c.Request.Context(), &req)
	if err != nil {
		code := statusFor(err)
		logger.Logger.Error("Download failed",
			zap.Error(err),
			zap.String("url", req.URL),
			zap.String("type", req.Type),
			zap.Int("status", code))
		writeError(c, code, err.Error())
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(file.Filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", buildContentDispositionHeader(file.Filename))
	c.Header("Content-Type", contentType)
	c.File(file.FilePath)

	logger.Logger.Info("File sent",
		zap.String("file_id", file.ID),
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size))
}

// statusFor maps user-input errors to 400 and everything else to 500
func statusFor(err error) int {
	var ce *service.CatalogError
	if errors.As(err, &ce) || errors.Is(err, service.ErrUnsupportedType) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, code int, msg string) {
	c.JSON(code, model.ErrorResponse{Status: "error", Message: msg})
}

// buildContentDispositionHeader builds a proper Content-Disposition header
// with RFC 5987 encoding for unicode and special characters
func buildContentDispositionHeader(filename string) string {
	needsEncoding := strings.ContainsAny(filename, " \t\n\r")
	for _, r := range filename {
		if r > 127 || r == '"' || r == '\\' || r == ';' || r == ',' {
			needsEncoding = true
			break
		}
	}

	if !needsEncoding {
		return fmt.Sprintf(`attachment; filename="%s"`, filename)
	}

	return fmt.Sprintf(`attachment; filename*=UTF-8''%s`, encodeRFC5987(filename))
}

// encodeRFC5987 percent-encodes every byte outside RFC 5987 attr-char
func encodeRFC5987(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isAttrChar(ch) {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", ch)
	}
	return b.String()
}

func isAttrChar(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", ch) >= 0
}
