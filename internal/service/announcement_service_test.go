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

// memoryAnnouncements applies the same visibility rules as the repository
// query.
type memoryAnnouncements struct {
	mu    sync.Mutex
	items map[bson.ObjectID]models.Announcement
}

func newMemoryAnnouncements() *memoryAnnouncements {
	return &memoryAnnouncements{items: make(map[bson.ObjectID]models.Announcement)}
}

func (m *memoryAnnouncements) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Announcement
	for _, a := range m.items {
		a := a
		if filter.All {
			if filter.Status == "" || a.Status == filter.Status {
				out = append(out, a)
			}
			continue
		}
		if a.IsActiveAt(filter.ActiveAt) && a.VisibleTo(filter.Audience) {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryAnnouncements) FindByID(ctx context.Context, id bson.ObjectID) (*models.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (m *memoryAnnouncements) Create(ctx context.Context, a *models.Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = bson.NewObjectID()
	a.Version = 1
	m.items[a.ID] = *a
	return nil
}

func (m *memoryAnnouncements) Update(ctx context.Context, a *models.Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != a.Version {
		return repository.ErrConflict
	}
	a.Version++
	m.items[a.ID] = *a
	return nil
}

func (m *memoryAnnouncements) Delete(ctx context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func announcementFixture(t *testing.T) (*AnnouncementService, *memoryAnnouncements, *models.JWTClaims, time.Time) {
	t.Helper()
	repo := newMemoryAnnouncements()
	svc := NewAnnouncementService(repo, nil, nil)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	admin := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleAdmin, IsApproved: true})
	return svc, repo, admin, now
}

func TestAnnouncementServiceStudentVisibility(t *testing.T) {
	svc, repo, admin, now := announcementFixture(t)
	ctx := context.Background()

	expiry := now.Add(48 * time.Hour)
	everyone, err := svc.Create(ctx, admin, dto.CreateAnnouncementRequest{Title: "Reunion", Content: "June 12", Publish: true, ExpiresAt: &expiry})
	require.NoError(t, err)
	alumniOnly, err := svc.Create(ctx, admin, dto.CreateAnnouncementRequest{Title: "Donations", Content: "...", TargetAudience: []string{"alumni"}, Publish: true})
	require.NoError(t, err)
	draft, err := svc.Create(ctx, admin, dto.CreateAnnouncementRequest{Title: "Draft", Content: "...", TargetAudience: []string{"student"}})
	require.NoError(t, err)
	assert.Equal(t, []string{models.AudienceAll}, everyone.TargetAudience)
	assert.Equal(t, models.AnnouncementNormal, everyone.Priority)

	student := claimsFor(&models.User{ID: bson.NewObjectID(), Role: models.RoleStudent, IsApproved: true})
	items, _, err := svc.List(ctx, student, dto.AnnouncementQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, everyone.ID, items[0].ID)

	_, err = svc.Get(ctx, student, alumniOnly.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	_, err = svc.Get(ctx, student, draft.ID.Hex())
	require.Error(t, err)

	// Once expired, the announcement disappears for students.
	svc.now = func() time.Time { return expiry.Add(time.Minute) }
	items, _, err = svc.List(ctx, student, dto.AnnouncementQuery{})
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = svc.Get(ctx, student, everyone.ID.Hex())
	require.Error(t, err)

	all, _, err := svc.List(ctx, admin, dto.AnnouncementQuery{View: "all"})
	require.NoError(t, err)
	assert.Len(t, all, len(repo.items))

	_, _, err = svc.List(ctx, student, dto.AnnouncementQuery{View: "all"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAnnouncementServicePublishKeepsFirstTimestamp(t *testing.T) {
	svc, _, admin, now := announcementFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, admin, dto.CreateAnnouncementRequest{Title: "Career fair", Content: "Hall B", TargetAudience: []string{"student", "student", "alumni"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"student", "alumni"}, a.TargetAudience)
	assert.Nil(t, a.PublishedAt)

	published, err := svc.Publish(ctx, a.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	assert.Equal(t, now, *published.PublishedAt)

	svc.now = func() time.Time { return now.Add(72 * time.Hour) }
	_, err = svc.Archive(ctx, a.ID.Hex())
	require.NoError(t, err)
	republished, err := svc.Publish(ctx, a.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, now, *republished.PublishedAt)
}

func TestAnnouncementServiceUpdateAndDelete(t *testing.T) {
	svc, repo, admin, now := announcementFixture(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, admin, dto.CreateAnnouncementRequest{Title: "Old", Content: "c"})
	require.NoError(t, err)

	past := now.Add(-time.Hour)
	_, err = svc.Update(ctx, a.ID.Hex(), dto.UpdateAnnouncementRequest{ExpiresAt: &past})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(ctx, a.ID.Hex(), dto.UpdateAnnouncementRequest{Title: ptr(" New "), TargetAudience: []string{"alumni", "all"}})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, []string{models.AudienceAll}, updated.TargetAudience)

	require.NoError(t, svc.Delete(ctx, a.ID.Hex()))
	assert.Empty(t, repo.items)
	err = svc.Delete(ctx, a.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
