package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type fakeAuthService struct {
	lastLogin    models.LoginRequest
	lastRegister models.RegisterRequest
	loginErr     error
	approvedBy   *models.JWTClaims
}

func (f *fakeAuthService) Register(_ context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	f.lastRegister = req
	return &models.UserInfo{Email: req.Email, Role: req.Role}, nil
}

func (f *fakeAuthService) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastLogin = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "token"}, nil
}

func (f *fakeAuthService) Me(_ context.Context, userID string) (*models.User, error) {
	return &models.User{Email: userID + "@example.com"}, nil
}

func (f *fakeAuthService) Approve(_ context.Context, actor *models.JWTClaims, userID string) (*models.User, error) {
	f.approvedBy = actor
	return &models.User{IsApproved: true}, nil
}

func (f *fakeAuthService) ChangePassword(context.Context, string, models.ChangePasswordRequest) error {
	return nil
}

func TestAuthHandlerLoginCapturesClientMetadata(t *testing.T) {
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"secret123"}`, nil)
	c.Request.RemoteAddr = "203.0.113.7:5555"
	c.Request.Header.Set("User-Agent", "integration-test")
	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@example.com", svc.lastLogin.Email)
	assert.Equal(t, "203.0.113.7", svc.lastLogin.IP)
	assert.Equal(t, "integration-test", svc.lastLogin.UserAgent)
	assert.Contains(t, string(decode(t, rec).Data), `"token"`)
}

func TestAuthHandlerLoginPendingApproval(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{loginErr: appErrors.Clone(appErrors.ErrPendingApproval, "account pending approval")})

	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"secret123"}`, nil)
	h.Login(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "account pending approval", decode(t, rec).Error.Message)
}

func TestAuthHandlerRegisterRejectsMalformedBody(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{})

	c, rec := newTestContext(http.MethodPost, "/auth/register", `{"email":`, nil)
	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{})

	c, rec := newTestContext(http.MethodGet, "/auth/me", "", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/auth/me", "", alumniClaims)
	h.Me(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandlerApprovePassesActor(t *testing.T) {
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc)

	c, rec := newTestContext(http.MethodPut, "/auth/approve/u1", "", adminClaims, param("id", "u1"))
	h.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Same(t, adminClaims, svc.approvedBy)
}
