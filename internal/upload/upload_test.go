package upload_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memorial-service/internal/logger"
	"memorial-service/internal/upload"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// multipartRequest builds a request carrying one file part plus optional fields.
func multipartRequest(t *testing.T, filename, contentType string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, upload.FormField, filename))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/classmates", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func parsedImage(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	req := multipartRequest(t, filename, contentType, content, nil)
	require.NoError(t, upload.ParseForm(httptest.NewRecorder(), req))
	fh := upload.FormImage(req)
	require.NotNil(t, fh)
	return fh
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		wantErr     bool
	}{
		{"jpeg", "photo.JPEG", "image/jpeg", false},
		{"jpg", "photo.jpg", "image/jpeg", false},
		{"png", "photo.png", "image/png", false},
		{"gif", "photo.gif", "image/gif", false},
		{"extension mismatch", "photo.pdf", "image/png", true},
		{"mime mismatch", "photo.png", "application/pdf", true},
		{"no extension", "photo", "image/png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fh := parsedImage(t, tt.filename, tt.contentType, []byte("data"))
			err := upload.Validate(fh)
			if tt.wantErr {
				assert.ErrorIs(t, err, upload.ErrInvalidImage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_TooLarge(t *testing.T) {
	fh := parsedImage(t, "big.png", "image/png", []byte("x"))
	fh.Size = upload.MaxImageSize + 1

	err := upload.Validate(fh)
	assert.ErrorIs(t, err, upload.ErrImageTooLarge)
	assert.ErrorIs(t, err, upload.ErrInvalidImage)
}

func TestFormImage_Absent(t *testing.T) {
	req := multipartRequest(t, "", "", nil, map[string]string{"name": "李雷"})
	require.NoError(t, upload.ParseForm(httptest.NewRecorder(), req))

	assert.Nil(t, upload.FormImage(req))
	assert.Equal(t, "李雷", req.FormValue("name"))
}

func TestUploader_SaveOpenRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := upload.NewDiskStore(dir)
	require.NoError(t, err)
	u := upload.NewUploader(store)
	ctx := context.Background()

	path, err := u.Save(ctx, parsedImage(t, "face.PNG", "image/png", []byte("png-bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, upload.PathPrefix))
	assert.True(t, strings.HasSuffix(path, ".png"))

	name := strings.TrimPrefix(path, upload.PathPrefix)
	onDisk, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(onDisk))

	rc, err := u.Open(ctx, name)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "png-bytes", string(got))

	require.NoError(t, u.Remove(ctx, path))
	_, err = u.Open(ctx, name)
	assert.ErrorIs(t, err, upload.ErrImageNotFound)

	assert.NoError(t, u.Remove(ctx, upload.DefaultImagePath))
}

func TestUploader_OpenRejectsTraversal(t *testing.T) {
	store, err := upload.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	u := upload.NewUploader(store)

	for _, name := range []string{"", "../secret", ".env", "a/b.png"} {
		_, err := u.Open(context.Background(), name)
		assert.ErrorIs(t, err, upload.ErrImageNotFound, name)
	}
}

func TestHandler_ServeImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.png"), []byte("default"), 0o644))
	store, err := upload.NewDiskStore(dir)
	require.NoError(t, err)

	router := chi.NewRouter()
	upload.NewHandler(upload.NewUploader(store), logger.Discard()).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/default.png", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "default", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewMinioStore_InvalidEndpoint(t *testing.T) {
	_, err := upload.NewMinioStore(context.Background(), "http://not a host", "key", "secret", "images", false)
	assert.Error(t, err)
}
