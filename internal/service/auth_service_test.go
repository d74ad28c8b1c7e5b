package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/realtime"
	"github.com/noah-isme/alumni-connect-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

// memoryUsers is a users store shared by the service tests.
type memoryUsers struct {
	mu         sync.Mutex
	byID       map[bson.ObjectID]*models.User
	lastLogins int
	deleted    []bson.ObjectID
	findErr    error
}

func newMemoryUsers(users ...*models.User) *memoryUsers {
	m := &memoryUsers{byID: make(map[bson.ObjectID]*models.User)}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = bson.NewObjectID()
		}
		if u.Version == 0 {
			u.Version = 1
		}
		m.byID[u.ID] = u
	}
	return m
}

func (m *memoryUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = bson.NewObjectID()
	user.Version = 1
	copied := *user
	m.byID[user.ID] = &copied
	return nil
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memoryUsers) Approve(ctx context.Context, id, admin bson.ObjectID, at time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.IsApproved = true
	u.ApprovedBy = &admin
	u.ApprovedAt = &at
	u.Version++
	copied := *u
	return &copied, nil
}

func (m *memoryUsers) UpdateLastLogin(ctx context.Context, id bson.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLogins++
	return nil
}

func (m *memoryUsers) UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memoryUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	excluded := make(map[bson.ObjectID]bool, len(filter.Exclude))
	for _, id := range filter.Exclude {
		excluded[id] = true
	}
	var out []models.User
	for _, u := range m.byID {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.IsApproved != nil && u.IsApproved != *filter.IsApproved {
			continue
		}
		if filter.IsMentor != nil && u.IsMentor != *filter.IsMentor {
			continue
		}
		if excluded[u.ID] {
			continue
		}
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (m *memoryUsers) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byID[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != user.Version {
		return repository.ErrConflict
	}
	user.Version++
	copied := *user
	m.byID[user.ID] = &copied
	return nil
}

func (m *memoryUsers) Delete(ctx context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestAuthService(repo authUserRepository, events realtime.Broadcaster) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), events, AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "alumni-connect",
		PasswordCost:      bcrypt.MinCost,
	})
}

func claimsFor(u *models.User) *models.JWTClaims {
	return &models.JWTClaims{UserID: u.ID.Hex(), Role: u.Role, Email: u.Email, FullName: u.FullName()}
}

func TestAuthServiceRegisterCreatesUnapprovedAccount(t *testing.T) {
	repo := newMemoryUsers()
	svc := newTestAuthService(repo, nil)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "ana@example.com", Password: "password1", FirstName: "Ana", LastName: "Lee", Role: models.RoleAlumni,
	})
	require.NoError(t, err)
	assert.False(t, info.IsApproved)
	assert.Equal(t, models.RoleAlumni, info.Role)

	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Email: "ana@example.com", Password: "password2", FirstName: "Ana", LastName: "Lee", Role: models.RoleAlumni,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterRejectsAdminRole(t *testing.T) {
	svc := newTestAuthService(newMemoryUsers(), nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "root@example.com", Password: "password1", FirstName: "R", LastName: "T", Role: models.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServicePendingApprovalThenLogin(t *testing.T) {
	admin := &models.User{Email: "admin@example.com", Role: models.RoleAdmin, IsApproved: true}
	repo := newMemoryUsers(admin)
	rec := &realtime.Recorder{}
	svc := newTestAuthService(repo, rec)
	ctx := context.Background()

	info, err := svc.Register(ctx, models.RegisterRequest{
		Email: "sam@example.com", Password: "password1", FirstName: "Sam", LastName: "Ng", Role: models.RoleStudent,
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "sam@example.com", Password: "password1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPendingApproval.Code, appErr.Code)
	assert.Equal(t, 403, appErr.Status)

	approved, err := svc.Approve(ctx, claimsFor(admin), info.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	require.Len(t, rec.Events(), 1)
	evt := rec.Events()[0]
	assert.Equal(t, realtime.EventAccountApproved, evt.Name)
	assert.Equal(t, []string{realtime.UserRoom(info.ID)}, evt.Rooms)

	res, err := svc.Login(ctx, models.LoginRequest{Email: "sam@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, 1, repo.lastLogins)
}

func TestAuthServiceApproveIsIdempotentAndAdminOnly(t *testing.T) {
	admin := &models.User{Email: "admin@example.com", Role: models.RoleAdmin, IsApproved: true}
	member := &models.User{Email: "m@example.com", Role: models.RoleAlumni, IsApproved: true}
	rec := &realtime.Recorder{}
	svc := newTestAuthService(newMemoryUsers(admin, member), rec)

	_, err := svc.Approve(context.Background(), claimsFor(member), member.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Approve(context.Background(), claimsFor(admin), member.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, rec.Events())
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	user := &models.User{Email: "ana@example.com", PasswordHash: hashed(t, "password1"), Role: models.RoleStudent}
	svc := newTestAuthService(newMemoryUsers(user), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceAdminBypassesApproval(t *testing.T) {
	admin := &models.User{Email: "admin@example.com", PasswordHash: hashed(t, "password1"), Role: models.RoleAdmin}
	svc := newTestAuthService(newMemoryUsers(admin), nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password1"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID.Hex(), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceChangePassword(t *testing.T) {
	user := &models.User{Email: "ana@example.com", PasswordHash: hashed(t, "oldpassword"), Role: models.RoleAlumni, IsApproved: true}
	repo := newMemoryUsers(user)
	svc := newTestAuthService(repo, nil)

	err := svc.ChangePassword(context.Background(), user.ID.Hex(), models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newpassword"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.ChangePassword(context.Background(), user.ID.Hex(), models.ChangePasswordRequest{OldPassword: "oldpassword", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.byID[user.ID].PasswordHash), []byte("newpassword")))
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	user := &models.User{ID: bson.NewObjectID(), Email: "a@example.com", Role: models.RoleAlumni}
	other := NewAuthService(newMemoryUsers(), nil, nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour, Issuer: "alumni-connect"})
	token, _, err := other.generateAccessToken(user)
	require.NoError(t, err)

	_, err = newTestAuthService(newMemoryUsers(), nil).ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceAuthenticateTokenChecksAccount(t *testing.T) {
	pending := &models.User{Email: "p@example.com", Role: models.RoleStudent}
	approved := &models.User{Email: "a@example.com", Role: models.RoleAlumni, IsApproved: true}
	repo := newMemoryUsers(pending, approved)
	svc := newTestAuthService(repo, nil)

	token, _, err := svc.generateAccessToken(approved)
	require.NoError(t, err)
	claims, err := svc.AuthenticateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, approved.ID.Hex(), claims.UserID)

	token, _, err = svc.generateAccessToken(pending)
	require.NoError(t, err)
	_, err = svc.AuthenticateToken(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPendingApproval.Code, appErrors.FromError(err).Code)

	require.NoError(t, repo.Delete(context.Background(), approved.ID))
	token, _, err = svc.generateAccessToken(approved)
	require.NoError(t, err)
	_, err = svc.AuthenticateToken(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceSeedAdmin(t *testing.T) {
	repo := newMemoryUsers()
	svc := newTestAuthService(repo, nil)

	created, err := svc.SeedAdmin(context.Background(), "root@example.com", "password1", "Root User")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.SeedAdmin(context.Background(), "root@example.com", "password1", "Root User")
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := repo.FindByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "Root", admin.FirstName)
	assert.True(t, admin.CanAuthenticate())
}
