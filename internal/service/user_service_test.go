package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/internal/dto"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

func ptr[T any](v T) *T { return &v }

func TestUserServiceDirectoryListsApprovedAlumniOnly(t *testing.T) {
	repo := newMemoryUsers(
		&models.User{Email: "a@example.com", Role: models.RoleAlumni, IsApproved: true},
		&models.User{Email: "b@example.com", Role: models.RoleAlumni},
		&models.User{Email: "c@example.com", Role: models.RoleStudent, IsApproved: true},
	)
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	users, pagination, err := svc.Directory(context.Background(), dto.UserQuery{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a@example.com", users[0].Email)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestUserServiceListRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(newMemoryUsers(), nil, nil)
	_, _, err := svc.List(context.Background(), dto.UserQuery{Role: "moderator"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateSelfAndAdmin(t *testing.T) {
	alumni := &models.User{Email: "a@example.com", FirstName: "Ann", Role: models.RoleAlumni, IsApproved: true}
	student := &models.User{Email: "s@example.com", Role: models.RoleStudent, IsApproved: true}
	admin := &models.User{Email: "root@example.com", Role: models.RoleAdmin, IsApproved: true}
	repo := newMemoryUsers(alumni, student, admin)
	svc := NewUserService(repo, validator.New(), zap.NewNop())
	ctx := context.Background()

	updated, err := svc.Update(ctx, claimsFor(alumni), alumni.ID.Hex(), dto.UpdateUserRequest{
		FirstName: ptr("Anna"),
		Company:   ptr("Acme"),
		IsMentor:  ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Anna", updated.FirstName)
	assert.Equal(t, "Acme", updated.Profile.Company)
	assert.True(t, updated.IsMentor)
	assert.Equal(t, int64(2), updated.Version)

	_, err = svc.Update(ctx, claimsFor(student), alumni.ID.Hex(), dto.UpdateUserRequest{FirstName: ptr("X")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(ctx, claimsFor(student), student.ID.Hex(), dto.UpdateUserRequest{IsApproved: ptr(false)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(ctx, claimsFor(student), student.ID.Hex(), dto.UpdateUserRequest{IsMentor: ptr(true)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	role := models.RoleAlumni
	promoted, err := svc.Update(ctx, claimsFor(admin), student.ID.Hex(), dto.UpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAlumni, promoted.Role)
}

func TestUserServiceDeleteRefusesContentOwners(t *testing.T) {
	owner := &models.User{Email: "o@example.com", Role: models.RoleAlumni, IsApproved: true}
	idle := &models.User{Email: "i@example.com", Role: models.RoleStudent, IsApproved: true}
	admin := &models.User{Email: "root@example.com", Role: models.RoleAdmin, IsApproved: true}
	repo := newMemoryUsers(owner, idle, admin)
	jobs := OwnedContent{Kind: "jobs", Count: func(ctx context.Context, id bson.ObjectID) (int64, error) {
		if id == owner.ID {
			return 2, nil
		}
		return 0, nil
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop(), jobs)
	ctx := context.Background()

	err := svc.Delete(ctx, claimsFor(owner), idle.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.Delete(ctx, claimsFor(admin), owner.ID.Hex())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "2 jobs")

	err = svc.Delete(ctx, claimsFor(admin), admin.ID.Hex())
	require.Error(t, err)

	require.NoError(t, svc.Delete(ctx, claimsFor(admin), idle.ID.Hex()))
	assert.Equal(t, []bson.ObjectID{idle.ID}, repo.deleted)
}
