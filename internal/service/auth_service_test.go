package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nccrd-api/internal/models"
	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(nil, nil, AuthConfig{Secret: "test-secret", Issuer: "nccrd-api", Expiry: time.Hour})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newTestAuthService()

	token, expiresAt, err := svc.IssueToken(models.IssueTokenRequest{
		Subject: "user-42",
		Name:    "Data Capturer",
		Scopes:  []string{models.ScopeSubmissionWrite},
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.True(t, claims.HasScope(models.ScopeSubmissionWrite))
	assert.True(t, claims.HasScope(models.ScopeSubmissionRead))
}

func TestAuthServiceIssueTokenValidation(t *testing.T) {
	svc := newTestAuthService()

	_, _, err := svc.IssueToken(models.IssueTokenRequest{Subject: "user-1", Scopes: []string{"admin"}})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, _, err = svc.IssueToken(models.IssueTokenRequest{Scopes: []string{models.ScopeSubmissionRead}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceValidateTokenRejects(t *testing.T) {
	svc := newTestAuthService()

	sign := func(secret string, claims *models.JWTClaims, method jwt.SigningMethod) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := func() *models.JWTClaims {
		return &models.JWTClaims{
			Scopes: []string{models.ScopeSubmissionRead},
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "nccrd-api",
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"
	noSubject := valid()
	noSubject.Subject = ""

	cases := map[string]string{
		"wrong secret":  sign("other-secret", valid(), jwt.SigningMethodHS256),
		"wrong method":  sign("test-secret", valid(), jwt.SigningMethodHS512),
		"expired":       sign("test-secret", expired, jwt.SigningMethodHS256),
		"wrong issuer":  sign("test-secret", wrongIssuer, jwt.SigningMethodHS256),
		"no subject":    sign("test-secret", noSubject, jwt.SigningMethodHS256),
		"garbage token": "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
		})
	}
}
