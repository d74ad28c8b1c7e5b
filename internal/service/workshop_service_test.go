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

type memoryWorkshops struct {
	mu        sync.Mutex
	workshops map[bson.ObjectID]*models.Workshop
}

func newMemoryWorkshops() *memoryWorkshops {
	return &memoryWorkshops{workshops: make(map[bson.ObjectID]*models.Workshop)}
}

func (m *memoryWorkshops) snapshot(w *models.Workshop) *models.Workshop {
	copied := *w
	copied.Attendees = append([]models.WorkshopAttendee{}, w.Attendees...)
	return &copied
}

func (m *memoryWorkshops) Create(ctx context.Context, w *models.Workshop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = bson.NewObjectID()
	w.Version = 1
	m.workshops[w.ID] = m.snapshot(w)
	return nil
}

func (m *memoryWorkshops) FindByID(ctx context.Context, id bson.ObjectID) (*models.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workshops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.snapshot(w), nil
}

func (m *memoryWorkshops) List(ctx context.Context, filter models.WorkshopFilter) ([]models.Workshop, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Workshop
	for _, w := range m.workshops {
		if w.IsActive {
			out = append(out, *m.snapshot(w))
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryWorkshops) Update(ctx context.Context, w *models.Workshop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.workshops[w.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != w.Version {
		return repository.ErrConflict
	}
	w.Version++
	m.workshops[w.ID] = m.snapshot(w)
	return nil
}

func (m *memoryWorkshops) Deactivate(ctx context.Context, id bson.ObjectID) (*models.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workshops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	w.IsActive = false
	w.Version++
	return m.snapshot(w), nil
}

// Register applies the same conditions as the guarded update.
func (m *memoryWorkshops) Register(ctx context.Context, id bson.ObjectID, attendee models.WorkshopAttendee) (*models.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workshops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !w.IsActive || w.IsRegistered(attendee.User) || w.IsFull() || !w.RegistrationOpen(attendee.RegisteredAt) {
		return nil, repository.ErrConflict
	}
	w.Attendees = append(w.Attendees, attendee)
	w.Version++
	return m.snapshot(w), nil
}

func (m *memoryWorkshops) Unregister(ctx context.Context, id, userID bson.ObjectID) (*models.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workshops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !w.IsRegistered(userID) {
		return nil, repository.ErrConflict
	}
	kept := w.Attendees[:0]
	for _, a := range w.Attendees {
		if a.User != userID {
			kept = append(kept, a)
		}
	}
	w.Attendees = kept
	w.Version++
	return m.snapshot(w), nil
}

func newWorkshopFixture(t *testing.T, capacity int) (*WorkshopService, *memoryWorkshops, *models.User, *models.Workshop) {
	t.Helper()
	repo := newMemoryWorkshops()
	svc := NewWorkshopService(repo, nil, nil)
	host := &models.User{ID: bson.NewObjectID(), Role: models.RoleAlumni, IsApproved: true}
	w, err := svc.Create(context.Background(), claimsFor(host), dto.CreateWorkshopRequest{
		Title:       "Intro to Go",
		Description: "Hands-on session",
		Date:        time.Now().Add(72 * time.Hour),
		Capacity:    capacity,
	})
	require.NoError(t, err)
	return svc, repo, host, w
}

func TestWorkshopServiceCapacityScenario(t *testing.T) {
	svc, _, _, w := newWorkshopFixture(t, 1)
	ctx := context.Background()
	a := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})
	b := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})

	registered, err := svc.Register(ctx, a, w.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, registered.Attendees, 1)

	_, err = svc.Register(ctx, b, w.ID.Hex())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCapacityReached.Code, appErr.Code)
	assert.Equal(t, "workshop is full", appErr.Message)

	_, err = svc.Unregister(ctx, a, w.ID.Hex())
	require.NoError(t, err)

	registered, err = svc.Register(ctx, b, w.ID.Hex())
	require.NoError(t, err)
	require.Len(t, registered.Attendees, 1)
	assert.Equal(t, b.UserID, registered.Attendees[0].User.Hex())
}

func TestWorkshopServiceRejectsDuplicateRegistration(t *testing.T) {
	svc, _, _, w := newWorkshopFixture(t, 5)
	ctx := context.Background()
	a := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})

	_, err := svc.Register(ctx, a, w.ID.Hex())
	require.NoError(t, err)
	_, err = svc.Register(ctx, a, w.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, "already registered for this workshop", appErrors.FromError(err).Message)
}

func TestWorkshopServiceConcurrentRegistrationsNeverOverfill(t *testing.T) {
	svc, repo, _, w := newWorkshopFixture(t, 3)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Register(ctx, claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent}), w.ID.Hex())
		}()
	}
	wg.Wait()

	stored, err := repo.FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Attendees, 3)
}

func TestWorkshopServiceDeadlineAndInactive(t *testing.T) {
	svc, repo, host, w := newWorkshopFixture(t, 5)
	ctx := context.Background()
	student := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})

	past := time.Now().Add(-time.Minute)
	repo.workshops[w.ID].RegistrationDeadline = &past
	_, err := svc.Register(ctx, student, w.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, "registration deadline has passed", appErrors.FromError(err).Message)

	repo.workshops[w.ID].RegistrationDeadline = nil
	require.NoError(t, svc.Delete(ctx, claimsFor(host), w.ID.Hex()))
	_, err = svc.Register(ctx, student, w.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, "workshop is no longer active", appErrors.FromError(err).Message)
}

func TestWorkshopServiceUpdateGuards(t *testing.T) {
	svc, _, host, w := newWorkshopFixture(t, 2)
	ctx := context.Background()
	student := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent})
	_, err := svc.Register(ctx, student, w.ID.Hex())
	require.NoError(t, err)

	title := "Advanced Go"
	_, err = svc.Update(ctx, student, w.ID.Hex(), dto.UpdateWorkshopRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(ctx, claimsFor(host), w.ID.Hex(), dto.UpdateWorkshopRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	_, err = svc.Unregister(ctx, claimsFor(host), w.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, "not registered for this workshop", appErrors.FromError(err).Message)
}
