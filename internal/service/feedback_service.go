package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type feedbackRepository interface {
	Create(ctx context.Context, f *models.Feedback) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Feedback, error)
	List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, int64, error)
	Update(ctx context.Context, f *models.Feedback) error
	Respond(ctx context.Context, id bson.ObjectID, resp models.FeedbackResponse, status models.FeedbackStatus) (*models.Feedback, error)
	MarkHelpful(ctx context.Context, id, userID bson.ObjectID) (*models.Feedback, error)
	Stats(ctx context.Context) (models.FeedbackStats, error)
}

// FeedbackService collects ratings and comments and the admin responses to them.
type FeedbackService struct {
	repo      feedbackRepository
	validator *validator.Validate
	logger    *zap.Logger
}

func NewFeedbackService(repo feedbackRepository, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeedbackService{repo: repo, validator: validate, logger: logger}
}

// Create stores a feedback entry. The priority follows from the rating.
func (s *FeedbackService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "feedback")
	}
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}

	f := &models.Feedback{
		User:        userID,
		Category:    req.Category,
		Rating:      req.Rating,
		Subject:     strings.TrimSpace(req.Subject),
		Comments:    strings.TrimSpace(req.Comments),
		Status:      models.FeedbackOpen,
		IsAnonymous: req.IsAnonymous,
		HelpfulBy:   []bson.ObjectID{},
	}
	if req.TargetKind != "" {
		target, err := parseID(req.TargetID, req.TargetKind)
		if err != nil {
			return nil, err
		}
		f.Target = &models.FeedbackTarget{Kind: req.TargetKind, ID: target}
	}
	f.Prepare()

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit feedback")
	}
	if f.Priority == models.PriorityHigh {
		s.logger.Info("high priority feedback received", zap.String("feedback_id", f.ID.Hex()), zap.String("category", f.Category))
	}
	return f, nil
}

// List returns every entry for administrators.
func (s *FeedbackService) List(ctx context.Context, actor *models.JWTClaims, query dto.FeedbackQuery) ([]models.Feedback, *models.Pagination, error) {
	if !actor.IsAdmin() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can list feedback")
	}
	filter := models.FeedbackFilter{
		Category: query.Category,
		Priority: models.FeedbackPriority(query.Priority),
		Status:   models.FeedbackStatus(query.Status),
		Page:     query.PageRequest,
	}
	items, pagination, err := s.list(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	for i := range items {
		anonymize(&items[i])
	}
	return items, pagination, nil
}

// Mine returns the caller's own entries.
func (s *FeedbackService) Mine(ctx context.Context, actor *models.JWTClaims, page models.PageRequest) ([]models.Feedback, *models.Pagination, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, nil, err
	}
	return s.list(ctx, models.FeedbackFilter{User: &userID, Page: page})
}

func (s *FeedbackService) list(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}
	if items == nil {
		items = []models.Feedback{}
	}
	return items, filter.Page.Paginate(total), nil
}

func (s *FeedbackService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Feedback, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownerOrAdmin(actor, f.User) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "feedback belongs to another user")
	}
	if actor.IsAdmin() && actor.UserID != f.User.Hex() {
		anonymize(f)
	}
	return f, nil
}

// Update lets the author revise an entry until it has been answered.
func (s *FeedbackService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "feedback")
	}
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.UserID != f.User.Hex() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can edit feedback")
	}
	if f.Response != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "feedback has already been answered")
	}

	if req.Rating != nil {
		f.Rating = *req.Rating
	}
	if req.Subject != nil {
		f.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.Comments != nil {
		f.Comments = strings.TrimSpace(*req.Comments)
	}
	f.Prepare()

	if err := s.repo.Update(ctx, f); err != nil {
		return nil, writeError(err, "feedback not found", "failed to update feedback")
	}
	return f, nil
}

// Respond attaches the administrator response. The status defaults to reviewed.
func (s *FeedbackService) Respond(ctx context.Context, actor *models.JWTClaims, id string, req dto.RespondFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "response")
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can respond to feedback")
	}
	adminID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	feedbackID, err := parseID(id, "feedback")
	if err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = models.FeedbackReviewed
	}

	resp := models.FeedbackResponse{Message: strings.TrimSpace(req.Message), RespondedBy: adminID}
	f, err := s.repo.Respond(ctx, feedbackID, resp, status)
	if err != nil {
		return nil, writeError(err, "feedback not found", "failed to respond to feedback")
	}
	return f, nil
}

// MarkHelpful records that the caller found an entry helpful, once per user.
func (s *FeedbackService) MarkHelpful(ctx context.Context, actor *models.JWTClaims, id string) (*models.Feedback, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	feedbackID, err := parseID(id, "feedback")
	if err != nil {
		return nil, err
	}
	f, err := s.repo.MarkHelpful(ctx, feedbackID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already marked as helpful")
		}
		return nil, writeError(err, "feedback not found", "failed to mark feedback")
	}
	anonymize(f)
	return f, nil
}

func (s *FeedbackService) Stats(ctx context.Context, actor *models.JWTClaims) (*models.FeedbackStats, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can view feedback stats")
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate feedback")
	}
	return &stats, nil
}

func (s *FeedbackService) load(ctx context.Context, id string) (*models.Feedback, error) {
	feedbackID, err := parseID(id, "feedback")
	if err != nil {
		return nil, err
	}
	f, err := s.repo.FindByID(ctx, feedbackID)
	if err != nil {
		return nil, lookupError(err, "feedback not found", "failed to load feedback")
	}
	return f, nil
}

// anonymize clears the author of anonymous entries.
func anonymize(f *models.Feedback) {
	if f.IsAnonymous {
		f.User = bson.NilObjectID
	}
}
