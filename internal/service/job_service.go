package service

import (
	"context"
	"errors"
	"sort"
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

type jobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Job, error)
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, int64, error)
	Update(ctx context.Context, job *models.Job) error
	Deactivate(ctx context.Context, id bson.ObjectID) (*models.Job, error)
	Apply(ctx context.Context, id bson.ObjectID, applicant models.JobApplicant) (*models.Job, error)
	SetApplicationStatus(ctx context.Context, id, userID bson.ObjectID, status models.ApplicationStatus, at time.Time) (*models.Job, error)
	ListByApplicant(ctx context.Context, userID bson.ObjectID) ([]models.Job, error)
	ListWithApplications(ctx context.Context, owner *bson.ObjectID) ([]models.Job, error)
}

// JobService manages job postings and applications.
type JobService struct {
	repo      jobRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewJobService constructs a JobService.
func NewJobService(repo jobRepository, validate *validator.Validate, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &JobService{repo: repo, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns active postings. Applicant lists are trimmed to what the
// caller may see.
func (s *JobService) List(ctx context.Context, actor *models.JWTClaims, query dto.JobQuery) ([]models.Job, *models.Pagination, error) {
	filter := models.JobFilter{
		Type:     models.JobType(query.Type),
		Location: query.Location,
		Search:   query.Search,
		Page:     query.PageRequest,
	}
	if query.All && actor.IsAdmin() {
		filter.IncludeInactive = true
	}
	if query.PostedBy != "" {
		owner, err := parseID(query.PostedBy, "poster")
		if err != nil {
			return nil, nil, err
		}
		filter.PostedBy = &owner
		// Owners and admins also see their closed postings.
		filter.IncludeInactive = filter.IncludeInactive || ownerOrAdmin(actor, owner)
	}

	jobs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list jobs")
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	for i := range jobs {
		redactApplicants(&jobs[i], actor)
	}
	return jobs, filter.Page.Paginate(total), nil
}

// Get returns a single posting.
func (s *JobService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Job, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	redactApplicants(job, actor)
	return job, nil
}

// Create posts a job owned by the caller.
func (s *JobService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateJobRequest) (*models.Job, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "job")
	}
	owner, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAlumni && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only alumni can post jobs")
	}

	job := &models.Job{
		Title:               strings.TrimSpace(req.Title),
		Company:             strings.TrimSpace(req.Company),
		Location:            strings.TrimSpace(req.Location),
		Type:                req.Type,
		Description:         req.Description,
		Requirements:        req.Requirements,
		Salary:              req.Salary,
		ApplicationDeadline: req.ApplicationDeadline,
		PostedBy:            owner,
		IsActive:            true,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create job")
	}
	return job, nil
}

// Update edits a posting owned by the caller.
func (s *JobService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateJobRequest) (*models.Job, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "job")
	}
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownerOrAdmin(actor, job.PostedBy) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the poster can modify this job")
	}

	if req.Title != nil {
		job.Title = strings.TrimSpace(*req.Title)
	}
	if req.Company != nil {
		job.Company = strings.TrimSpace(*req.Company)
	}
	if req.Location != nil {
		job.Location = strings.TrimSpace(*req.Location)
	}
	if req.Type != nil {
		job.Type = *req.Type
	}
	if req.Description != nil {
		job.Description = *req.Description
	}
	if req.Requirements != nil {
		job.Requirements = req.Requirements
	}
	if req.Salary != nil {
		job.Salary = *req.Salary
	}
	if req.ApplicationDeadline != nil {
		job.ApplicationDeadline = req.ApplicationDeadline
	}
	if req.IsActive != nil {
		job.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, job); err != nil {
		return nil, writeError(err, "job not found", "failed to update job")
	}
	return job, nil
}

// Delete closes a posting. Applications are kept.
func (s *JobService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	job, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !ownerOrAdmin(actor, job.PostedBy) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the poster can delete this job")
	}
	if _, err := s.repo.Deactivate(ctx, job.ID); err != nil {
		return writeError(err, "job not found", "failed to delete job")
	}
	return nil
}

// Apply records the caller's application. A student applies at most once.
func (s *JobService) Apply(ctx context.Context, actor *models.JWTClaims, id string, req dto.ApplyJobRequest) (*models.JobApplicant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "application")
	}
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can apply to jobs")
	}
	jobID, err := parseID(id, "job")
	if err != nil {
		return nil, err
	}

	now := s.now()
	applicant := models.JobApplicant{
		User:        userID,
		Status:      models.ApplicationPending,
		CoverLetter: req.CoverLetter,
		Resume:      req.Resume,
		AppliedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Apply(ctx, jobID, applicant); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.applyConflict(ctx, jobID, userID, now)
		}
		return nil, writeError(err, "job not found", "failed to apply to job")
	}
	s.logger.Info("job application submitted", zap.String("job_id", jobID.Hex()), zap.String("user_id", userID.Hex()))
	return &applicant, nil
}

// applyConflict explains why a guarded apply matched nothing.
func (s *JobService) applyConflict(ctx context.Context, jobID, userID bson.ObjectID, now time.Time) error {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return lookupError(err, "job not found", "failed to load job")
	}
	if _, applied := job.Applicant(userID); applied {
		return appErrors.Clone(appErrors.ErrConflict, "already applied to this job")
	}
	if !job.AcceptsApplications(now) {
		return appErrors.Clone(appErrors.ErrConflict, "job is no longer accepting applications")
	}
	return appErrors.Clone(appErrors.ErrConflict, "application could not be recorded, retry")
}

// UpdateApplicationStatus lets the poster review an application.
func (s *JobService) UpdateApplicationStatus(ctx context.Context, actor *models.JWTClaims, id, applicantID string, req dto.UpdateApplicationStatusRequest) (*models.Job, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "application status")
	}
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownerOrAdmin(actor, job.PostedBy) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the poster can review applications")
	}
	userID, err := parseID(applicantID, "applicant")
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetApplicationStatus(ctx, job.ID, userID, req.Status, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, writeError(err, "job not found", "failed to update application")
	}
	return updated, nil
}

// MyApplications lists the caller's applications, newest first.
func (s *JobService) MyApplications(ctx context.Context, actor *models.JWTClaims) ([]models.ApplicationView, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	jobs, err := s.repo.ListByApplicant(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return applicationViews(jobs, &userID), nil
}

// Applications lists received applications: every posting for admins,
// the caller's postings otherwise.
func (s *JobService) Applications(ctx context.Context, actor *models.JWTClaims) ([]models.ApplicationView, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	var owner *bson.ObjectID
	if !actor.IsAdmin() {
		owner = &userID
	}
	jobs, err := s.repo.ListWithApplications(ctx, owner)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return applicationViews(jobs, nil), nil
}

func (s *JobService) load(ctx context.Context, id string) (*models.Job, error) {
	jobID, err := parseID(id, "job")
	if err != nil {
		return nil, err
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, "job not found", "failed to load job")
	}
	return job, nil
}

// redactApplicants leaves the full list to the poster and admins; anybody
// else only sees their own application.
func redactApplicants(job *models.Job, actor *models.JWTClaims) {
	if ownerOrAdmin(actor, job.PostedBy) {
		return
	}
	visible := []models.JobApplicant{}
	if actor != nil {
		for _, a := range job.Applicants {
			if a.User.Hex() == actor.UserID {
				visible = append(visible, a)
			}
		}
	}
	job.Applicants = visible
}

func applicationViews(jobs []models.Job, only *bson.ObjectID) []models.ApplicationView {
	views := []models.ApplicationView{}
	for _, job := range jobs {
		for _, a := range job.Applicants {
			if only != nil && a.User != *only {
				continue
			}
			views = append(views, models.ApplicationView{
				JobID:     job.ID.Hex(),
				JobTitle:  job.Title,
				Company:   job.Company,
				Applicant: a.User,
				Status:    a.Status,
				AppliedAt: a.AppliedAt,
				UpdatedAt: a.UpdatedAt,
			})
		}
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].AppliedAt.After(views[j].AppliedAt) })
	return views
}
