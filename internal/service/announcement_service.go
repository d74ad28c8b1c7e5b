package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int64, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Announcement, error)
	Create(ctx context.Context, a *models.Announcement) error
	Update(ctx context.Context, a *models.Announcement) error
	Delete(ctx context.Context, id bson.ObjectID) error
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{repo: repo, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the announcements the caller's role may read. Administrators
// asking for view=all see every announcement in any state.
func (s *AnnouncementService) List(ctx context.Context, actor *models.JWTClaims, query dto.AnnouncementQuery) ([]models.Announcement, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	filter := models.AnnouncementFilter{
		Audience: actor.Role,
		ActiveAt: s.now(),
		Page:     query.PageRequest,
	}
	if strings.EqualFold(query.View, "all") {
		if !actor.IsAdmin() {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can view all announcements")
		}
		filter.All = true
		filter.Status = models.AnnouncementStatus(query.Status)
		switch filter.Status {
		case "", models.AnnouncementDraft, models.AnnouncementPublished, models.AnnouncementArchived:
		default:
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid announcement status")
		}
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	if items == nil {
		items = []models.Announcement{}
	}
	return items, filter.Page.Paginate(total), nil
}

// Get returns one announcement. Outside administrators it must be active
// and addressed to the caller's role.
func (s *AnnouncementService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Announcement, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return a, nil
	}
	if actor == nil || !a.IsActiveAt(s.now()) || !a.VisibleTo(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	return a, nil
}

func (s *AnnouncementService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "announcement")
	}
	author, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if err := s.checkExpiry(req.ExpiresAt); err != nil {
		return nil, err
	}

	a := &models.Announcement{
		Title:          strings.TrimSpace(req.Title),
		Content:        req.Content,
		Author:         author,
		Status:         models.AnnouncementDraft,
		Priority:       req.Priority,
		TargetAudience: normalizeAudience(req.TargetAudience),
		ExpiresAt:      req.ExpiresAt,
	}
	if a.Priority == "" {
		a.Priority = models.AnnouncementNormal
	}
	if req.Publish {
		now := s.now()
		a.Status = models.AnnouncementPublished
		a.PublishedAt = &now
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	s.logger.Info("announcement created", zap.String("announcement_id", a.ID.Hex()), zap.String("status", string(a.Status)))
	return a, nil
}

func (s *AnnouncementService) Update(ctx context.Context, id string, req dto.UpdateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "announcement")
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		a.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		a.Content = *req.Content
	}
	if req.Priority != nil {
		a.Priority = *req.Priority
	}
	if req.TargetAudience != nil {
		a.TargetAudience = normalizeAudience(req.TargetAudience)
	}
	if req.ExpiresAt != nil {
		if err := s.checkExpiry(req.ExpiresAt); err != nil {
			return nil, err
		}
		a.ExpiresAt = req.ExpiresAt
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, writeError(err, "announcement not found", "failed to update announcement")
	}
	return a, nil
}

func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	announcementID, err := parseID(id, "announcement")
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, announcementID); err != nil {
		return writeError(err, "announcement not found", "failed to delete announcement")
	}
	return nil
}

// Publish makes an announcement visible. The first publication time is kept
// when an archived announcement is published again.
func (s *AnnouncementService) Publish(ctx context.Context, id string) (*models.Announcement, error) {
	return s.setStatus(ctx, id, models.AnnouncementPublished)
}

func (s *AnnouncementService) Archive(ctx context.Context, id string) (*models.Announcement, error) {
	return s.setStatus(ctx, id, models.AnnouncementArchived)
}

func (s *AnnouncementService) setStatus(ctx context.Context, id string, status models.AnnouncementStatus) (*models.Announcement, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == status {
		return a, nil
	}
	a.Status = status
	if status == models.AnnouncementPublished && a.PublishedAt == nil {
		now := s.now()
		a.PublishedAt = &now
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, writeError(err, "announcement not found", "failed to update announcement status")
	}
	return a, nil
}

func (s *AnnouncementService) checkExpiry(expiresAt *time.Time) error {
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return appErrors.Clone(appErrors.ErrValidation, "expiresAt must be in the future")
	}
	return nil
}

func (s *AnnouncementService) load(ctx context.Context, id string) (*models.Announcement, error) {
	announcementID, err := parseID(id, "announcement")
	if err != nil {
		return nil, err
	}
	a, err := s.repo.FindByID(ctx, announcementID)
	if err != nil {
		return nil, lookupError(err, "announcement not found", "failed to load announcement")
	}
	return a, nil
}

// normalizeAudience collapses any list containing "all" and drops repeats.
func normalizeAudience(in []string) []string {
	if len(in) == 0 {
		return []string{models.AudienceAll}
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, target := range in {
		target = strings.ToLower(strings.TrimSpace(target))
		if target == models.AudienceAll {
			return []string{models.AudienceAll}
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}
