package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type memoryJobs struct {
	mu   sync.Mutex
	jobs map[bson.ObjectID]*models.Job
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: make(map[bson.ObjectID]*models.Job)}
}

func (m *memoryJobs) Create(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = bson.NewObjectID()
	job.Version = 1
	if job.Applicants == nil {
		job.Applicants = []models.JobApplicant{}
	}
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memoryJobs) FindByID(ctx context.Context, id bson.ObjectID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *job
	copied.Applicants = append([]models.JobApplicant(nil), job.Applicants...)
	return &copied, nil
}

func (m *memoryJobs) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Job
	for _, job := range m.jobs {
		if !filter.IncludeInactive && !job.IsActive {
			continue
		}
		if filter.PostedBy != nil && job.PostedBy != *filter.PostedBy {
			continue
		}
		copied := *job
		copied.Applicants = append([]models.JobApplicant(nil), job.Applicants...)
		out = append(out, copied)
	}
	return out, int64(len(out)), nil
}

func (m *memoryJobs) Update(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.jobs[job.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != job.Version {
		return repository.ErrConflict
	}
	job.Version++
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memoryJobs) Deactivate(ctx context.Context, id bson.ObjectID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	job.IsActive = false
	job.Version++
	copied := *job
	return &copied, nil
}

// Apply mirrors the guarded write: active, open and not yet applied.
func (m *memoryJobs) Apply(ctx context.Context, id bson.ObjectID, applicant models.JobApplicant) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if _, applied := job.Applicant(applicant.User); applied || !job.AcceptsApplications(applicant.AppliedAt) {
		return nil, repository.ErrConflict
	}
	job.Applicants = append(job.Applicants, applicant)
	job.Version++
	copied := *job
	return &copied, nil
}

func (m *memoryJobs) SetApplicationStatus(ctx context.Context, id, userID bson.ObjectID, status models.ApplicationStatus, at time.Time) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a, applied := job.Applicant(userID)
	if !applied {
		return nil, repository.ErrConflict
	}
	a.Status = status
	a.UpdatedAt = at
	job.Version++
	copied := *job
	return &copied, nil
}

func (m *memoryJobs) ListByApplicant(ctx context.Context, userID bson.ObjectID) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Job
	for _, job := range m.jobs {
		if _, applied := job.Applicant(userID); applied {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memoryJobs) ListWithApplications(ctx context.Context, owner *bson.ObjectID) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Job
	for _, job := range m.jobs {
		if len(job.Applicants) == 0 || (owner != nil && job.PostedBy != *owner) {
			continue
		}
		out = append(out, *job)
	}
	return out, nil
}

func jobFixture(t *testing.T) (*JobService, *memoryJobs, *models.User, *models.User, *models.Job) {
	t.Helper()
	repo := newMemoryJobs()
	svc := NewJobService(repo, nil, nil)
	poster := &models.User{ID: bson.NewObjectID(), Email: "p@example.com", Role: models.RoleAlumni, IsApproved: true}
	student := &models.User{ID: bson.NewObjectID(), Email: "s@example.com", Role: models.RoleStudent, IsApproved: true}
	job, err := svc.Create(context.Background(), claimsFor(poster), dto.CreateJobRequest{
		Title: "Backend Engineer", Company: "Acme", Location: "Remote", Type: models.JobFullTime, Description: "Go services",
	})
	require.NoError(t, err)
	return svc, repo, poster, student, job
}

func TestJobServiceCreateRequiresAlumni(t *testing.T) {
	svc := NewJobService(newMemoryJobs(), nil, nil)
	student := &models.User{ID: bson.NewObjectID(), Role: models.RoleStudent}

	_, err := svc.Create(context.Background(), claimsFor(student), dto.CreateJobRequest{
		Title: "x", Company: "y", Location: "z", Type: models.JobInternship, Description: "d",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestJobServiceApplyOnce(t *testing.T) {
	svc, _, poster, student, job := jobFixture(t)
	ctx := context.Background()

	applicant, err := svc.Apply(ctx, claimsFor(student), job.ID.Hex(), dto.ApplyJobRequest{CoverLetter: "hello"})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, applicant.Status)

	_, err = svc.Apply(ctx, claimsFor(student), job.ID.Hex(), dto.ApplyJobRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "already applied to this job", appErr.Message)

	_, err = svc.Apply(ctx, claimsFor(poster), job.ID.Hex(), dto.ApplyJobRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestJobServiceApplyAfterDeadline(t *testing.T) {
	svc, repo, _, student, job := jobFixture(t)
	deadline := time.Now().Add(-time.Hour)
	repo.jobs[job.ID].ApplicationDeadline = &deadline

	_, err := svc.Apply(context.Background(), claimsFor(student), job.ID.Hex(), dto.ApplyJobRequest{})
	require.Error(t, err)
	assert.Equal(t, "job is no longer accepting applications", appErrors.FromError(err).Message)
}

func TestJobServiceApplicationReview(t *testing.T) {
	svc, _, poster, student, job := jobFixture(t)
	ctx := context.Background()
	_, err := svc.Apply(ctx, claimsFor(student), job.ID.Hex(), dto.ApplyJobRequest{})
	require.NoError(t, err)

	_, err = svc.UpdateApplicationStatus(ctx, claimsFor(student), job.ID.Hex(), student.ID.Hex(), dto.UpdateApplicationStatusRequest{Status: models.ApplicationHired})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateApplicationStatus(ctx, claimsFor(poster), job.ID.Hex(), student.ID.Hex(), dto.UpdateApplicationStatusRequest{Status: "maybe"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateApplicationStatus(ctx, claimsFor(poster), job.ID.Hex(), bson.NewObjectID().Hex(), dto.UpdateApplicationStatusRequest{Status: models.ApplicationReviewed})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	updated, err := svc.UpdateApplicationStatus(ctx, claimsFor(poster), job.ID.Hex(), student.ID.Hex(), dto.UpdateApplicationStatusRequest{Status: models.ApplicationShortlisted})
	require.NoError(t, err)
	a, ok := updated.Applicant(student.ID)
	require.True(t, ok)
	assert.Equal(t, models.ApplicationShortlisted, a.Status)

	mine, err := svc.MyApplications(ctx, claimsFor(student))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, job.ID.Hex(), mine[0].JobID)
	assert.Equal(t, models.ApplicationShortlisted, mine[0].Status)

	received, err := svc.Applications(ctx, claimsFor(poster))
	require.NoError(t, err)
	assert.Len(t, received, 1)
}

func TestJobServiceRedactsApplicantsForOthers(t *testing.T) {
	svc, _, poster, student, job := jobFixture(t)
	ctx := context.Background()
	other := &models.User{ID: bson.NewObjectID(), Role: models.RoleStudent}
	_, err := svc.Apply(ctx, claimsFor(student), job.ID.Hex(), dto.ApplyJobRequest{})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, claimsFor(other), job.ID.Hex(), dto.ApplyJobRequest{})
	require.NoError(t, err)

	asPoster, err := svc.Get(ctx, claimsFor(poster), job.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, asPoster.Applicants, 2)

	asStudent, err := svc.Get(ctx, claimsFor(student), job.ID.Hex())
	require.NoError(t, err)
	require.Len(t, asStudent.Applicants, 1)
	assert.Equal(t, student.ID, asStudent.Applicants[0].User)
}

func TestJobServiceDeleteSoftDeactivates(t *testing.T) {
	svc, repo, poster, student, job := jobFixture(t)
	ctx := context.Background()

	err := svc.Delete(ctx, claimsFor(student), job.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(ctx, claimsFor(poster), job.ID.Hex()))
	assert.False(t, repo.jobs[job.ID].IsActive)

	jobs, _, err := svc.List(ctx, claimsFor(student), dto.JobQuery{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestJobServiceUpdateBumpsVersion(t *testing.T) {
	svc, repo, poster, _, job := jobFixture(t)
	ctx := context.Background()
	title := "Senior Backend Engineer"

	updated, err := svc.Update(ctx, claimsFor(poster), job.ID.Hex(), dto.UpdateJobRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, int64(2), repo.jobs[job.ID].Version)
}
