package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nccrd-api/internal/models"
	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
	"github.com/noah-isme/nccrd-api/pkg/response"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.token = token
	return s.claims, s.err
}

type recordingObserver struct {
	method string
	path   string
	status int
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.method, r.path, r.status = method, path, status
}

func newRouter(v TokenValidator, scope string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", JWT(v), RequireScope(scope), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).Subject)
	})
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *appErrors.Error {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return env.Error
}

func TestJWTAndScope(t *testing.T) {
	claims := &models.JWTClaims{Scopes: []string{models.ScopeSubmissionWrite}, RegisteredClaims: jwt.RegisteredClaims{Subject: "svc-importer"}}

	cases := []struct {
		name   string
		header string
		v      *stubValidator
		scope  string
		status int
		code   string
	}{
		{"no header", "", &stubValidator{claims: claims}, models.ScopeSubmissionRead, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", &stubValidator{claims: claims}, models.ScopeSubmissionRead, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"invalid token", "Bearer bad", &stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")}, models.ScopeSubmissionRead, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"missing scope", "Bearer ok", &stubValidator{claims: &models.JWTClaims{Scopes: []string{models.ScopeSubmissionRead}}}, models.ScopeSubmissionWrite, http.StatusForbidden, "AUTHORIZATION_DENIED"},
		{"write implies read", "Bearer ok", &stubValidator{claims: claims}, models.ScopeSubmissionRead, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			newRouter(tc.v, tc.scope).ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, decodeError(t, rec).Code)
				return
			}
			assert.Equal(t, "svc-importer", rec.Body.String())
			assert.Equal(t, "ok", tc.v.token)
		})
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/submissions/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/submissions/abc", nil))
	assert.Equal(t, "/submissions/:id", obs.path)
	assert.Equal(t, http.StatusNoContent, obs.status)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, "unmatched", obs.path)
	assert.Equal(t, http.StatusNotFound, obs.status)
}
