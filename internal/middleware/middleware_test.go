package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/service"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

type stubAuthenticator struct {
	claims  map[string]*models.JWTClaims
	pending map[string]bool
}

func (s stubAuthenticator) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := s.claims[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

func (s stubAuthenticator) AuthenticateToken(ctx context.Context, token string) (*models.JWTClaims, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if s.pending[token] {
		return nil, appErrors.Clone(appErrors.ErrPendingApproval, "account pending approval")
	}
	return claims, nil
}

func newAuthStub() stubAuthenticator {
	return stubAuthenticator{
		claims: map[string]*models.JWTClaims{
			"admin":   {UserID: "a1", Role: models.RoleAdmin},
			"alumni":  {UserID: "u1", Role: models.RoleAlumni},
			"pending": {UserID: "p1", Role: models.RoleStudent},
		},
		pending: map[string]bool{"pending": true},
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRequiresApprovedAccount(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWT(newAuthStub()), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).UserID)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "forged").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/me", "pending").Code)

	w := serve(r, http.MethodGet, "/me", "alumni")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	w = serve(r, http.MethodGet, "/me?token=admin", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1", w.Body.String())
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	r := gin.New()
	r.GET("/feed", OptionalJWT(newAuthStub()), func(c *gin.Context) {
		if claims := Claims(c); claims != nil {
			c.String(http.StatusOK, claims.UserID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	assert.Equal(t, "anonymous", serve(r, http.MethodGet, "/feed", "").Body.String())
	assert.Equal(t, "anonymous", serve(r, http.MethodGet, "/feed", "forged").Body.String())
	assert.Equal(t, "u1", serve(r, http.MethodGet, "/feed", "alumni").Body.String())
}

func TestRBAC(t *testing.T) {
	r := gin.New()
	auth := newAuthStub()
	r.GET("/admin", JWT(auth), AdminOnly(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.PUT("/users/:id", JWT(auth), RBAC(string(models.RoleAdmin), Self), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", "alumni").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/admin", "admin").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPut, "/users/u1", "alumni").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPut, "/users/u2", "alumni").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPut, "/users/u2", "admin").Code)

	unauthenticated := gin.New()
	unauthenticated.GET("/admin", AdminOnly(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusUnauthorized, serve(unauthenticated, http.MethodGet, "/admin", "").Code)
}

func TestMetricsRecordsRouteTemplates(t *testing.T) {
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/ws"))
	r.GET("/jobs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/jobs/1", "")
	serve(r, http.MethodGet, "/jobs/2", "")
	serve(r, http.MethodGet, "/ws", "")

	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}

func TestAuditLogsSuccessfulWrites(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.PUT("/auth/approve/:id", JWT(newAuthStub()), Audit(zap.New(core), "approve", "user"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodPut, "/auth/approve/u9", "admin")
	serve(r, http.MethodPut, "/auth/approve/missing", "admin")

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "approve", fields["action"])
	assert.Equal(t, "u9", fields["resource_id"])
	assert.Equal(t, "a1", fields["actor_id"])
}

func TestResponseMeta(t *testing.T) {
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/analytics", func(c *gin.Context) {
		SetCacheHit(c, true)
		time.Sleep(time.Millisecond)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodGet, "/analytics", "")
	require.NotNil(t, meta)
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, processingTimeMs)
}
