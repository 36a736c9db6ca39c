// Package upload validates image uploads and stores them behind a Store.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxImageSize is the upload limit in bytes.
	MaxImageSize = 5_000_000
	// PathPrefix is prepended to stored names in the persisted image path.
	PathPrefix = "images/"
	// DefaultImagePath is used when a classmate has no photo.
	DefaultImagePath = PathPrefix + "default.png"
	// FormField is the multipart field carrying the image.
	FormField = "image"
)

var (
	ErrInvalidImage  = errors.New("only image files are allowed (jpeg, jpg, png, gif)")
	ErrImageTooLarge = fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidImage, MaxImageSize)
	ErrImageNotFound = errors.New("image not found")
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

var allowedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// Store persists image bytes under a flat name.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

type Uploader struct {
	store Store
}

func NewUploader(store Store) *Uploader {
	return &Uploader{store: store}
}

// Validate checks both the extension and the declared MIME type.
func Validate(fh *multipart.FileHeader) error {
	if fh.Size > MaxImageSize {
		return ErrImageTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: extension %q", ErrInvalidImage, ext)
	}
	mimeType := strings.ToLower(strings.TrimSpace(strings.Split(fh.Header.Get("Content-Type"), ";")[0]))
	if !allowedMIMETypes[mimeType] {
		return fmt.Errorf("%w: content type %q", ErrInvalidImage, mimeType)
	}
	return nil
}

// Save validates fh, stores it under a fresh random name and returns the
// persisted path, e.g. "images/3f2c....png".
func (u *Uploader) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if err := Validate(fh); err != nil {
		return "", err
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	if err := u.store.Save(ctx, name, f, fh.Size, fh.Header.Get("Content-Type")); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return PathPrefix + name, nil
}

// Remove deletes a previously saved image. The default image is never removed.
func (u *Uploader) Remove(ctx context.Context, path string) error {
	if path == "" || path == DefaultImagePath || !strings.HasPrefix(path, PathPrefix) {
		return nil
	}
	return u.store.Delete(ctx, strings.TrimPrefix(path, PathPrefix))
}

func (u *Uploader) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, ErrImageNotFound
	}
	return u.store.Open(ctx, name)
}

// ParseForm reads a multipart body capped at MaxImageSize plus form overhead.
// A non-multipart request is left alone.
func ParseForm(w http.ResponseWriter, r *http.Request) error {
	if !IsMultipart(r) {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrImageTooLarge
		}
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return nil
}

// FormImage returns the uploaded image header, or nil when none was sent.
func FormImage(r *http.Request) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[FormField]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
