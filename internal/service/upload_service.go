package service

import (
	"bufio"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
	"github.com/noah-isme/alumni-connect-api/pkg/storage"
)

type uploadStore interface {
	SaveStream(name string, r io.Reader, limit int64) (int64, error)
	Open(name string) (*os.File, error)
}

type urlSigner interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (storage.SignedObject, error)
}

// UploadConfig bounds accepted files.
type UploadConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
}

// UploadService stores user files and hands out signed download links.
type UploadService struct {
	store   uploadStore
	signer  urlSigner
	cfg     UploadConfig
	allowed map[string]struct{}
	logger  *zap.Logger
}

func NewUploadService(store uploadStore, signer urlSigner, cfg UploadConfig, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &UploadService{store: store, signer: signer, cfg: cfg, allowed: allowed, logger: logger}
}

// Upload stores r under the caller's directory. The content type is sniffed
// from the payload rather than trusted from the client.
func (s *UploadService) Upload(ctx context.Context, actor *models.JWTClaims, filename string, r io.Reader) (*models.Upload, error) {
	owner, err := actorID(actor)
	if err != nil {
		return nil, err
	}

	buffered := bufio.NewReaderSize(r, 512)
	head, err := buffered.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	if len(head) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	// Office documents sniff as zip archives; the extension names the format.
	if contentType == "application/zip" && ext != "" {
		if byExt, _, err := mime.ParseMediaType(mime.TypeByExtension(ext)); err == nil && s.isAllowed(byExt) {
			contentType = byExt
		}
	}
	if !s.isAllowed(contentType) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, "file type "+contentType+" is not allowed")
	}

	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	name := path.Join(owner.Hex(), uuid.NewString()+ext)

	size, err := s.store.SaveStream(name, buffered, s.cfg.MaxFileSize)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "file exceeds the upload size limit")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}

	token, expiresAt, err := s.signer.Generate(owner.Hex(), name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign upload")
	}
	s.logger.Info("file uploaded", zap.String("user_id", owner.Hex()), zap.String("path", name), zap.Int64("size", size))

	return &models.Upload{
		Name:        filepath.Base(filename),
		Path:        name,
		Size:        size,
		ContentType: contentType,
		URL:         strings.TrimRight(s.cfg.APIPrefix, "/") + "/uploads/download?token=" + url.QueryEscape(token),
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *UploadService) isAllowed(contentType string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	_, ok := s.allowed[contentType]
	return ok
}

// Open resolves a signed token to the stored file.
func (s *UploadService) Open(ctx context.Context, token string) (*os.File, storage.SignedObject, error) {
	if token == "" {
		return nil, storage.SignedObject{}, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	obj, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, storage.SignedObject{}, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	file, err := s.store.Open(obj.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, obj, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, obj, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return file, obj, nil
}
