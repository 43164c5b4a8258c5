package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

type stubAuthenticator struct {
	user      *models.User
	err       error
	lastToken string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	s.lastToken = token
	return s.user, s.err
}

type observedRequest struct {
	method string
	path   string
	status int
}

type stubObserver struct {
	calls []observedRequest
}

func (s *stubObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	s.calls = append(s.calls, observedRequest{method: method, path: path, status: status})
}

func newProtectedRouter(auth Authenticator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Auth(auth), RequireRoles(roles...), func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": user.ID})
	})
	return r
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	auth := &stubAuthenticator{}
	r := newProtectedRouter(auth)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
	assert.Empty(t, auth.lastToken)
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	r := newProtectedRouter(&stubAuthenticator{})

	for _, header := range []string{"Token abc", "Bearer", "Bearer   "} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestAuthPropagatesAuthenticatorFailure(t *testing.T) {
	r := newProtectedRouter(&stubAuthenticator{err: appErrors.Clone(appErrors.ErrUnauthorized, "user account is deactivated")})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "deactivated")
}

func TestRequireRolesDistinguishesForbidden(t *testing.T) {
	auth := &stubAuthenticator{user: &models.User{ID: "u-1", Role: models.RoleSiteOfficer, IsActive: true}}
	r := newProtectedRouter(auth, models.RoleNationalAdmin, models.RoleStateAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer token-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))
	assert.Equal(t, "token-1", auth.lastToken)
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	auth := &stubAuthenticator{user: &models.User{ID: "u-1", Role: models.RoleStateAdmin, IsActive: true}}
	r := newProtectedRouter(auth, models.RoleNationalAdmin, models.RoleStateAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "u-1")
}

func TestRequireRolesWithoutUserIsUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/open", RequireRoles(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &stubObserver{}
	r := gin.New()
	r.Use(Metrics(observer, "/metrics"))
	r.GET("/sites/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/sites/abc", "/metrics", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, observer.calls, 2)
	assert.Equal(t, observedRequest{method: http.MethodGet, path: "/sites/:id", status: http.StatusOK}, observer.calls[0])
	assert.Equal(t, unmatchedRoute, observer.calls[1].path)
	assert.Equal(t, http.StatusNotFound, observer.calls[1].status)
}

func TestResponseMetaCollectsEntries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var captured map[string]interface{}
	r.GET("/x", func(c *gin.Context) {
		SetCacheHit(c, true)
		SetMeta(c, "unscopedApprovals", true)
		captured = ResponseMeta(c)
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, true, captured[cacheHitKey])
	assert.Equal(t, true, captured["unscopedApprovals"])
	assert.Contains(t, captured, processingKey)
}
