package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type workshopRepository interface {
	Create(ctx context.Context, w *models.Workshop) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Workshop, error)
	List(ctx context.Context, filter models.WorkshopFilter) ([]models.Workshop, int64, error)
	Update(ctx context.Context, w *models.Workshop) error
	Deactivate(ctx context.Context, id bson.ObjectID) (*models.Workshop, error)
	Register(ctx context.Context, id bson.ObjectID, attendee models.WorkshopAttendee) (*models.Workshop, error)
	Unregister(ctx context.Context, id, userID bson.ObjectID) (*models.Workshop, error)
}

// WorkshopService manages hosted workshops and their attendee lists.
type WorkshopService struct {
	repo      workshopRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

func NewWorkshopService(repo workshopRepository, validate *validator.Validate, logger *zap.Logger) *WorkshopService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &WorkshopService{repo: repo, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *WorkshopService) List(ctx context.Context, query dto.WorkshopQuery) ([]models.Workshop, *models.Pagination, error) {
	filter := models.WorkshopFilter{UpcomingOnly: query.Upcoming, Search: query.Search, Page: query.PageRequest}
	if query.Host != "" {
		host, err := parseID(query.Host, "host")
		if err != nil {
			return nil, nil, err
		}
		filter.Host = &host
	}
	workshops, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list workshops")
	}
	if workshops == nil {
		workshops = []models.Workshop{}
	}
	return workshops, filter.Page.Paginate(total), nil
}

func (s *WorkshopService) Get(ctx context.Context, id string) (*models.Workshop, error) {
	workshopID, err := parseID(id, "workshop")
	if err != nil {
		return nil, err
	}
	w, err := s.repo.FindByID(ctx, workshopID)
	if err != nil {
		return nil, lookupError(err, "workshop not found", "failed to load workshop")
	}
	return w, nil
}

// Create schedules a workshop hosted by the caller.
func (s *WorkshopService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateWorkshopRequest) (*models.Workshop, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "workshop")
	}
	host, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAlumni && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only alumni can host workshops")
	}
	if req.RegistrationDeadline != nil && req.RegistrationDeadline.After(req.Date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration deadline must not be after the workshop date")
	}

	w := &models.Workshop{
		Title:                strings.TrimSpace(req.Title),
		Description:          req.Description,
		Date:                 req.Date.UTC(),
		DurationMinutes:      req.DurationMinutes,
		Location:             req.Location,
		IsVirtual:            req.IsVirtual,
		MeetingLink:          req.MeetingLink,
		Capacity:             req.Capacity,
		RegistrationDeadline: req.RegistrationDeadline,
		Host:                 host,
		Tags:                 req.Tags,
		IsActive:             true,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create workshop")
	}
	return w, nil
}

// Update edits a workshop. Capacity cannot drop below the current attendance.
func (s *WorkshopService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateWorkshopRequest) (*models.Workshop, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "workshop")
	}
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownerOrAdmin(actor, w.Host) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the host can modify this workshop")
	}

	if req.Title != nil {
		w.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		w.Description = *req.Description
	}
	if req.Date != nil {
		w.Date = req.Date.UTC()
	}
	if req.DurationMinutes != nil {
		w.DurationMinutes = *req.DurationMinutes
	}
	if req.Location != nil {
		w.Location = *req.Location
	}
	if req.IsVirtual != nil {
		w.IsVirtual = *req.IsVirtual
	}
	if req.MeetingLink != nil {
		w.MeetingLink = *req.MeetingLink
	}
	if req.Capacity != nil {
		if *req.Capacity < len(w.Attendees) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "capacity is below the number of registered attendees")
		}
		w.Capacity = *req.Capacity
	}
	if req.RegistrationDeadline != nil {
		w.RegistrationDeadline = req.RegistrationDeadline
	}
	if req.Tags != nil {
		w.Tags = req.Tags
	}
	if w.RegistrationDeadline != nil && w.RegistrationDeadline.After(w.Date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration deadline must not be after the workshop date")
	}

	if err := s.repo.Update(ctx, w); err != nil {
		return nil, writeError(err, "workshop not found", "failed to update workshop")
	}
	return w, nil
}

// Delete cancels a workshop; the document stays for history.
func (s *WorkshopService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	w, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ownerOrAdmin(actor, w.Host) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the host can delete this workshop")
	}
	if _, err := s.repo.Deactivate(ctx, w.ID); err != nil {
		return writeError(err, "workshop not found", "failed to delete workshop")
	}
	return nil
}

// Register adds the caller to the attendee list. The repository checks
// capacity, deadline and duplicates in the same write that adds the
// attendee, so concurrent registrations cannot overfill the workshop.
func (s *WorkshopService) Register(ctx context.Context, actor *models.JWTClaims, id string) (*models.Workshop, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	workshopID, err := parseID(id, "workshop")
	if err != nil {
		return nil, err
	}

	now := s.now()
	w, err := s.repo.Register(ctx, workshopID, models.WorkshopAttendee{User: userID, RegisteredAt: now})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.registerConflict(ctx, workshopID, userID, now)
		}
		return nil, writeError(err, "workshop not found", "failed to register for workshop")
	}
	s.logger.Info("workshop registration", zap.String("workshop_id", workshopID.Hex()), zap.String("user_id", userID.Hex()))
	return w, nil
}

// registerConflict explains why a guarded registration matched nothing.
func (s *WorkshopService) registerConflict(ctx context.Context, id, userID bson.ObjectID, now time.Time) error {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "workshop not found", "failed to load workshop")
	}
	switch {
	case !w.IsActive:
		return appErrors.Clone(appErrors.ErrConflict, "workshop is no longer active")
	case w.IsRegistered(userID):
		return appErrors.Clone(appErrors.ErrConflict, "already registered for this workshop")
	case !w.RegistrationOpen(now):
		return appErrors.Clone(appErrors.ErrConflict, "registration deadline has passed")
	case w.IsFull():
		return appErrors.Clone(appErrors.ErrCapacityReached, "workshop is full")
	default:
		return appErrors.Clone(appErrors.ErrConflict, "registration could not be recorded, retry")
	}
}

// Unregister removes the caller while registration is still open.
func (s *WorkshopService) Unregister(ctx context.Context, actor *models.JWTClaims, id string) (*models.Workshop, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.RegistrationOpen(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration deadline has passed")
	}

	w, err := s.repo.Unregister(ctx, current.ID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "not registered for this workshop")
		}
		return nil, writeError(err, "workshop not found", "failed to cancel registration")
	}
	return w, nil
}
