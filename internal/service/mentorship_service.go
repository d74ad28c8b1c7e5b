package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type mentorshipRepository interface {
	Create(ctx context.Context, m *models.Mentorship) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Mentorship, error)
	List(ctx context.Context, filter models.MentorshipFilter) ([]models.Mentorship, int64, error)
	ActiveMentors(ctx context.Context, mentee bson.ObjectID) ([]bson.ObjectID, error)
	Transition(ctx context.Context, id bson.ObjectID, t models.MentorshipTransition) (*models.Mentorship, error)
	CountByStatus(ctx context.Context, participant *bson.ObjectID) (map[models.MentorshipStatus]int64, error)
}

// memberDirectory resolves users for matching and notifications.
type memberDirectory interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
}

type chatOpener interface {
	FindOrCreate(ctx context.Context, a, b bson.ObjectID, mentorship *bson.ObjectID, now time.Time) (*models.Chat, bool, error)
}

// MentorshipService drives 1:1 mentorships through
// pending -> accepted|rejected and accepted -> completed|cancelled.
type MentorshipService struct {
	repo      mentorshipRepository
	users     memberDirectory
	chats     chatOpener
	events    realtime.Broadcaster
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

func NewMentorshipService(repo mentorshipRepository, users memberDirectory, chats chatOpener, events realtime.Broadcaster, validate *validator.Validate, logger *zap.Logger) *MentorshipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if events == nil {
		events = realtime.Nop{}
	}
	return &MentorshipService{
		repo:      repo,
		users:     users,
		chats:     chats,
		events:    events,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Request asks an approved alumni mentor for a mentorship. A pair can only
// have one pending or accepted mentorship at a time; asking again after a
// rejection, completion or cancellation starts a fresh request.
func (s *MentorshipService) Request(ctx context.Context, actor *models.JWTClaims, req dto.MentorshipRequest) (*models.Mentorship, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "mentorship request")
	}
	menteeID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can request mentorship")
	}
	mentorID, err := parseID(req.MentorID, "mentor")
	if err != nil {
		return nil, err
	}
	if mentorID == menteeID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot request mentorship from yourself")
	}

	mentor, err := s.users.FindByID(ctx, mentorID)
	if err != nil {
		return nil, lookupError(err, "mentor not found", "failed to load mentor")
	}
	if mentor.Role != models.RoleAlumni || !mentor.IsApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
	}

	m := &models.Mentorship{Mentor: mentorID, Mentee: menteeID, Message: req.Message, Goals: req.Goals}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "mentorship already pending or active")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mentorship request")
	}

	s.events.Publish(realtime.ToUsers(realtime.EventMentorshipRequest, dto.MentorshipNotification{
		Mentorship: m,
		From:       s.summary(ctx, menteeID, actor),
	}, mentorID.Hex()))
	return m, nil
}

// List returns the caller's received or sent requests.
func (s *MentorshipService) List(ctx context.Context, actor *models.JWTClaims, query dto.MentorshipQuery) ([]models.Mentorship, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "mentorship query")
	}
	userID, err := actorID(actor)
	if err != nil {
		return nil, nil, err
	}
	filter := models.MentorshipFilter{Page: query.PageRequest}
	switch query.Type {
	case "received":
		filter.Mentor = &userID
	case "sent":
		filter.Mentee = &userID
	default:
		filter.Participant = &userID
	}
	if query.Status != "" {
		status := models.MentorshipStatus(query.Status)
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid mentorship status")
		}
		filter.Statuses = []models.MentorshipStatus{status}
	}
	return s.list(ctx, filter)
}

// Relationships returns the caller's accepted and completed mentorships.
func (s *MentorshipService) Relationships(ctx context.Context, actor *models.JWTClaims, page models.PageRequest) ([]models.Mentorship, *models.Pagination, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, nil, err
	}
	return s.list(ctx, models.MentorshipFilter{
		Participant: &userID,
		Statuses:    []models.MentorshipStatus{models.MentorshipAccepted, models.MentorshipCompleted},
		Page:        page,
	})
}

// All lists every mentorship for administrators.
func (s *MentorshipService) All(ctx context.Context, actor *models.JWTClaims, query dto.MentorshipQuery) ([]models.Mentorship, *models.Pagination, error) {
	if !actor.IsAdmin() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can list all mentorships")
	}
	filter := models.MentorshipFilter{Page: query.PageRequest}
	if query.Status != "" {
		filter.Statuses = []models.MentorshipStatus{models.MentorshipStatus(query.Status)}
	}
	return s.list(ctx, filter)
}

func (s *MentorshipService) list(ctx context.Context, filter models.MentorshipFilter) ([]models.Mentorship, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentorships")
	}
	if items == nil {
		items = []models.Mentorship{}
	}
	return items, filter.Page.Paginate(total), nil
}

// Respond accepts or rejects a pending request. Accepting opens the pair's
// chat. The mentee is notified either way.
func (s *MentorshipService) Respond(ctx context.Context, actor *models.JWTClaims, id string, req dto.RespondMentorshipRequest) (*models.Mentorship, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "mentorship response")
	}
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownerOrAdmin(actor, m.Mentor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the mentor can respond to this request")
	}

	updated, err := s.transition(ctx, m.ID, models.MentorshipTransition{
		From:            []models.MentorshipStatus{models.MentorshipPending},
		To:              req.Status,
		ResponseMessage: req.Message,
	})
	if err != nil {
		return nil, err
	}

	notification := dto.MentorshipNotification{Mentorship: updated}
	if mentorID, ok := models.ParseID(actor.UserID); ok {
		notification.From = s.summary(ctx, mentorID, actor)
	}
	if updated.Status == models.MentorshipAccepted {
		chat, _, err := s.chats.FindOrCreate(ctx, updated.Mentor, updated.Mentee, &updated.ID, s.now())
		if err != nil {
			s.logger.Warn("failed to open mentorship chat", zap.String("mentorship_id", updated.ID.Hex()), zap.Error(err))
		} else {
			notification.Chat = chat
		}
	}
	s.events.Publish(realtime.ToUsers(realtime.EventMentorshipResponse, notification, updated.Mentee.Hex()))
	return updated, nil
}

// Complete closes an accepted mentorship. Mentor or admin only.
func (s *MentorshipService) Complete(ctx context.Context, actor *models.JWTClaims, id string) (*models.Mentorship, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownerOrAdmin(actor, m.Mentor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the mentor can complete this mentorship")
	}
	return s.transition(ctx, m.ID, models.MentorshipTransition{
		From: []models.MentorshipStatus{models.MentorshipAccepted},
		To:   models.MentorshipCompleted,
	})
}

// Cancel ends an accepted mentorship from either side. The mentee can also
// withdraw a request that is still pending.
func (s *MentorshipService) Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*models.Mentorship, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := []models.MentorshipStatus{models.MentorshipAccepted}
	switch {
	case actor.IsAdmin(), ownerOrAdmin(actor, m.Mentee):
		from = append(from, models.MentorshipPending)
	case ownerOrAdmin(actor, m.Mentor):
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only participants can cancel this mentorship")
	}
	return s.transition(ctx, m.ID, models.MentorshipTransition{From: from, To: models.MentorshipCancelled})
}

func (s *MentorshipService) transition(ctx context.Context, id bson.ObjectID, t models.MentorshipTransition) (*models.Mentorship, error) {
	if len(t.From) == 0 || !models.CanTransition(t.From[0], t.To) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "invalid mentorship transition")
	}
	t.At = s.now()
	updated, err := s.repo.Transition(ctx, id, t)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return nil, writeError(err, "mentorship not found", "failed to update mentorship")
	}

	current, lookupErr := s.repo.FindByID(ctx, id)
	if lookupErr != nil {
		return nil, lookupError(lookupErr, "mentorship not found", "failed to load mentorship")
	}
	if current.Status == t.To {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "mentorship already "+string(current.Status))
	}
	return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "mentorship is "+string(current.Status))
}

// AvailableMentors lists approved alumni mentors the caller has no pending
// or accepted mentorship with.
func (s *MentorshipService) AvailableMentors(ctx context.Context, actor *models.JWTClaims, query dto.UserQuery) ([]models.User, *models.Pagination, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, nil, err
	}
	exclude, err := s.repo.ActiveMentors(ctx, userID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentorships")
	}
	role := models.RoleAlumni
	approved, mentor := true, true
	filter := models.UserFilter{
		Role:       &role,
		IsApproved: &approved,
		IsMentor:   &mentor,
		Search:     query.Search,
		Exclude:    append(exclude, userID),
		Page:       query.PageRequest,
	}
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentors")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, filter.Page.Paginate(total), nil
}

// Stats counts mentorships per status, globally for administrators.
func (s *MentorshipService) Stats(ctx context.Context, actor *models.JWTClaims) (*models.MentorshipStats, error) {
	var participant *bson.ObjectID
	if !actor.IsAdmin() {
		userID, err := actorID(actor)
		if err != nil {
			return nil, err
		}
		participant = &userID
	}
	counts, err := s.repo.CountByStatus(ctx, participant)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate mentorships")
	}
	stats := &models.MentorshipStats{ByStatus: map[models.MentorshipStatus]int64{}}
	for _, status := range models.MentorshipStatuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

func (s *MentorshipService) load(ctx context.Context, id string) (*models.Mentorship, error) {
	mentorshipID, err := parseID(id, "mentorship")
	if err != nil {
		return nil, err
	}
	m, err := s.repo.FindByID(ctx, mentorshipID)
	if err != nil {
		return nil, lookupError(err, "mentorship not found", "failed to load mentorship")
	}
	return m, nil
}

// summary resolves the public profile of userID, falling back to the token
// claims when the lookup fails.
func (s *MentorshipService) summary(ctx context.Context, userID bson.ObjectID, actor *models.JWTClaims) models.UserSummary {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load user for notification", zap.String("user_id", userID.Hex()), zap.Error(err))
		return models.UserSummary{ID: userID.Hex(), FirstName: actor.FullName, Role: actor.Role}
	}
	return u.Summary()
}
