package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/repository"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	imageField = "file"
	sniffLen   = 512
)

type Images interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	Open(ctx context.Context, name string) (*repository.Image, error)
}

type ImageHandler struct {
	images  Images
	maxSize int64
	timeout time.Duration
	log     *zap.Logger
}

func NewImageHandler(images Images, maxSize int64, timeout time.Duration, log *zap.Logger) *ImageHandler {
	return &ImageHandler{
		images:  images,
		maxSize: maxSize,
		timeout: timeout,
		log:     log,
	}
}

// Upload accepts a multipart form with the photo in the "file" field.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	file, header, err := r.FormFile(imageField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > h.maxSize {
			respondError(w, http.StatusRequestEntityTooLarge, "image_too_large", "image exceeds the upload limit")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	// the stored type comes from the bytes, never from the uploader's header
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		handleError(w, r, h.log, err)
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		respondError(w, http.StatusBadRequest, "unsupported_image_type", "only image uploads are accepted, got "+contentType)
		return
	}

	url, err := h.images.Upload(ctx, header.Filename, contentType, io.MultiReader(bytes.NewReader(head), file))
	if errors.Is(err, repository.ErrEmptyImage) {
		respondError(w, http.StatusBadRequest, "invalid_image_name", err.Error())
		return
	}
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	h.log.Info("image uploaded", zap.String("url", url), zap.Int64("size", header.Size))
	respondJSON(w, http.StatusCreated, UploadResponse{URL: url})
}

func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	img, err := h.images.Open(ctx, chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	defer img.Body.Close()

	contentType := img.ContentType
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Length", strconv.FormatInt(img.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, img.Body); err != nil {
		h.log.Warn("image stream interrupted", zap.String("name", img.Name), zap.Error(err))
	}
}
