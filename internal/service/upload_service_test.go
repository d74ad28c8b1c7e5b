package service

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
	"github.com/noah-isme/alumni-connect-api/pkg/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newUploadServiceForTest(t *testing.T, maxSize int64) *UploadService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	return NewUploadService(store, signer, UploadConfig{
		MaxFileSize:  maxSize,
		AllowedMIMEs: []string{"image/png", "application/pdf"},
		APIPrefix:    "/api/v1",
	}, nil)
}

func tokenFromURL(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestUploadServiceStoresAndSigns(t *testing.T) {
	svc := newUploadServiceForTest(t, 1024)
	actor := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleAlumni})
	ctx := context.Background()

	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)
	upload, err := svc.Upload(ctx, actor, "avatar.png", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "image/png", upload.ContentType)
	assert.Equal(t, int64(len(payload)), upload.Size)
	assert.True(t, strings.HasPrefix(upload.Path, actor.UserID+"/"))
	assert.True(t, strings.HasPrefix(upload.URL, "/api/v1/uploads/download?token="))

	file, obj, err := svc.Open(ctx, tokenFromURL(t, upload.URL))
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, actor.UserID, obj.OwnerID)
	stored, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)
}

func TestUploadServiceRejections(t *testing.T) {
	svc := newUploadServiceForTest(t, 32)
	actor := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})
	ctx := context.Background()

	_, err := svc.Upload(ctx, actor, "notes.txt", strings.NewReader("plain text is not allowed"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedMedia.Code, appErrors.FromError(err).Code)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 64)...)
	_, err = svc.Upload(ctx, actor, "big.png", bytes.NewReader(big))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload(ctx, actor, "empty.png", bytes.NewReader(nil))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Open(ctx, "forged.token.value.sig")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload(ctx, nil, "avatar.png", bytes.NewReader(pngHeader))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
