package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-connect-api/internal/middleware"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
	"github.com/noah-isme/alumni-connect-api/pkg/storage"
)

type fakeUploadService struct {
	received []byte
	filename string
	dir      string
}

func (f *fakeUploadService) Upload(_ context.Context, actor *models.JWTClaims, filename string, r io.Reader) (*models.Upload, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.received = data
	f.filename = filename
	return &models.Upload{Name: filename, Size: int64(len(data)), URL: "/api/v1/uploads/download?token=t"}, nil
}

func (f *fakeUploadService) Open(_ context.Context, token string) (*os.File, storage.SignedObject, error) {
	if token != "good" {
		return nil, storage.SignedObject{}, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := os.Open(filepath.Join(f.dir, "report.pdf"))
	return file, storage.SignedObject{OwnerID: "u1", Path: "u1/report.pdf"}, err
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/uploads", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadHandlerStoresFile(t *testing.T) {
	svc := &fakeUploadService{}
	h := NewUploadHandler(svc, 1<<20)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = multipartRequest(t, "file", "cv.pdf", []byte("%PDF-1.4 body"))
	c.Set(middleware.ContextUserKey, alumniClaims)
	h.Upload(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "cv.pdf", svc.filename)
	assert.Equal(t, []byte("%PDF-1.4 body"), svc.received)
}

func TestUploadHandlerRequiresFileField(t *testing.T) {
	h := NewUploadHandler(&fakeUploadService{}, 1<<20)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = multipartRequest(t, "", "", nil)
	c.Set(middleware.ContextUserKey, alumniClaims)
	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandlerRejectsOversizedBody(t *testing.T) {
	h := NewUploadHandler(&fakeUploadService{}, 16)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = multipartRequest(t, "file", "big.pdf", bytes.Repeat([]byte("x"), 128*1024))
	c.Set(middleware.ContextUserKey, alumniClaims)
	h.Upload(c)

	assert.True(t, rec.Code == http.StatusRequestEntityTooLarge || rec.Code == http.StatusBadRequest)
}

func TestUploadHandlerDownload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("%PDF-1.4"), 0o600))
	h := NewUploadHandler(&fakeUploadService{dir: dir}, 0)

	c, rec := newTestContext(http.MethodGet, "/uploads/download?token=good", "", nil)
	h.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report.pdf")
	assert.Equal(t, "%PDF-1.4", rec.Body.String())

	c, rec = newTestContext(http.MethodGet, "/uploads/download?token=forged", "", nil)
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

