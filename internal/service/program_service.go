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
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type programRepository interface {
	Create(ctx context.Context, p *models.MentorshipProgram) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.MentorshipProgram, error)
	List(ctx context.Context, filter models.ProgramFilter) ([]models.MentorshipProgram, int64, error)
	Deactivate(ctx context.Context, id bson.ObjectID) (*models.MentorshipProgram, error)
	AddRequest(ctx context.Context, id bson.ObjectID, req models.ProgramRequest) (*models.MentorshipProgram, error)
	AcceptRequest(ctx context.Context, id, requestID, mentee bson.ObjectID, at time.Time) (*models.MentorshipProgram, error)
	RejectRequest(ctx context.Context, id, requestID bson.ObjectID, at time.Time) (*models.MentorshipProgram, error)
}

// ProgramService manages one-to-many mentorship programs.
type ProgramService struct {
	repo      programRepository
	events    realtime.Broadcaster
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

func NewProgramService(repo programRepository, events realtime.Broadcaster, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if events == nil {
		events = realtime.Nop{}
	}
	return &ProgramService{repo: repo, events: events, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns active programs. Mentors and admins may include closed ones.
func (s *ProgramService) List(ctx context.Context, actor *models.JWTClaims, query dto.ProgramQuery) ([]models.MentorshipProgram, *models.Pagination, error) {
	filter := models.ProgramFilter{ActiveOnly: true, Page: query.PageRequest}
	if query.Mentor != "" {
		mentor, err := parseID(query.Mentor, "mentor")
		if err != nil {
			return nil, nil, err
		}
		filter.Mentor = &mentor
		filter.ActiveOnly = !(query.All && ownerOrAdmin(actor, mentor))
	} else if query.All && actor.IsAdmin() {
		filter.ActiveOnly = false
	}

	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mentorship programs")
	}
	if programs == nil {
		programs = []models.MentorshipProgram{}
	}
	for i := range programs {
		redactRequests(&programs[i], actor)
	}
	return programs, filter.Page.Paginate(total), nil
}

func (s *ProgramService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.MentorshipProgram, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	redactRequests(p, actor)
	return p, nil
}

// Create opens a program mentored by the caller.
func (s *ProgramService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateProgramRequest) (*models.MentorshipProgram, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "mentorship program")
	}
	mentor, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAlumni && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only alumni can run mentorship programs")
	}

	p := &models.MentorshipProgram{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Mentor:      mentor,
		MaxMentees:  req.MaxMentees,
		Topics:      req.Topics,
		Duration:    req.Duration,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mentorship program")
	}
	return p, nil
}

// Delete closes a program. Members and requests are kept.
func (s *ProgramService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !ownerOrAdmin(actor, p.Mentor) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the mentor can close this program")
	}
	if _, err := s.repo.Deactivate(ctx, p.ID); err != nil {
		return writeError(err, "mentorship program not found", "failed to close mentorship program")
	}
	return nil
}

// Request queues a join request from a student. A pending request or an
// existing membership blocks a new one; an earlier rejection does not.
func (s *ProgramService) Request(ctx context.Context, actor *models.JWTClaims, id string, req dto.ProgramJoinRequest) (*models.ProgramRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "join request")
	}
	mentee, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can join mentorship programs")
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsFull() {
		return nil, appErrors.Clone(appErrors.ErrCapacityReached, "program is full")
	}

	joinReq := models.ProgramRequest{
		ID:          bson.NewObjectID(),
		Mentee:      mentee,
		Message:     req.Message,
		Status:      models.ProgramRequestPending,
		RequestedAt: s.now(),
	}
	if _, err := s.repo.AddRequest(ctx, p.ID, joinReq); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.requestConflict(ctx, p.ID, mentee)
		}
		return nil, writeError(err, "mentorship program not found", "failed to request mentorship program")
	}

	s.events.Publish(realtime.ToUsers(realtime.EventProgramRequest, dto.ProgramNotification{
		ProgramID: p.ID.Hex(),
		Title:     p.Title,
		Request:   joinReq,
	}, p.Mentor.Hex()))
	return &joinReq, nil
}

func (s *ProgramService) requestConflict(ctx context.Context, id, mentee bson.ObjectID) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "mentorship program not found", "failed to load mentorship program")
	}
	switch {
	case !p.IsActive:
		return appErrors.Clone(appErrors.ErrConflict, "program is no longer active")
	case p.HasMentee(mentee):
		return appErrors.Clone(appErrors.ErrConflict, "already a member of this program")
	case p.HasPendingRequest(mentee):
		return appErrors.Clone(appErrors.ErrConflict, "join request already pending")
	default:
		return appErrors.Clone(appErrors.ErrConflict, "join request could not be recorded, retry")
	}
}

// Respond accepts or rejects a pending join request. Acceptance re-checks
// the capacity in the same write that admits the mentee.
func (s *ProgramService) Respond(ctx context.Context, actor *models.JWTClaims, id, requestID string, req dto.RespondProgramRequest) (*models.MentorshipProgram, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "program response")
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownerOrAdmin(actor, p.Mentor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the mentor can answer join requests")
	}
	reqID, err := parseID(requestID, "request")
	if err != nil {
		return nil, err
	}
	joinReq, ok := p.Request(reqID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "join request not found")
	}
	mentee := joinReq.Mentee

	now := s.now()
	var updated *models.MentorshipProgram
	if req.Status == models.ProgramRequestAccepted {
		updated, err = s.repo.AcceptRequest(ctx, p.ID, reqID, mentee, now)
	} else {
		updated, err = s.repo.RejectRequest(ctx, p.ID, reqID, now)
	}
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.respondConflict(ctx, p.ID, reqID)
		}
		return nil, writeError(err, "mentorship program not found", "failed to answer join request")
	}

	if answered, ok := updated.Request(reqID); ok {
		s.events.Publish(realtime.ToUsers(realtime.EventProgramResponse, dto.ProgramNotification{
			ProgramID: updated.ID.Hex(),
			Title:     updated.Title,
			Request:   *answered,
		}, mentee.Hex()))
	}
	return updated, nil
}

func (s *ProgramService) respondConflict(ctx context.Context, id, requestID bson.ObjectID) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "mentorship program not found", "failed to load mentorship program")
	}
	joinReq, ok := p.Request(requestID)
	switch {
	case !ok:
		return appErrors.Clone(appErrors.ErrNotFound, "join request not found")
	case joinReq.Status != models.ProgramRequestPending:
		return appErrors.Clone(appErrors.ErrInvalidTransition, "join request already "+string(joinReq.Status))
	case p.IsFull():
		return appErrors.Clone(appErrors.ErrCapacityReached, "program is full")
	case p.HasMentee(joinReq.Mentee):
		return appErrors.Clone(appErrors.ErrConflict, "already a member of this program")
	default:
		return appErrors.Clone(appErrors.ErrConflict, "join request could not be answered, retry")
	}
}

func (s *ProgramService) load(ctx context.Context, id string) (*models.MentorshipProgram, error) {
	programID, err := parseID(id, "mentorship program")
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, programID)
	if err != nil {
		return nil, lookupError(err, "mentorship program not found", "failed to load mentorship program")
	}
	return p, nil
}

// redactRequests leaves the request queue to the mentor and admins; anyone
// else only sees their own requests.
func redactRequests(p *models.MentorshipProgram, actor *models.JWTClaims) {
	if ownerOrAdmin(actor, p.Mentor) {
		return
	}
	visible := []models.ProgramRequest{}
	if actor != nil {
		for _, r := range p.Requests {
			if r.Mentee.Hex() == actor.UserID {
				visible = append(visible, r)
			}
		}
	}
	p.Requests = visible
}
