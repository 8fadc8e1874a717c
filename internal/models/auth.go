package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Scopes understood by the registry API.
const (
	ScopeSubmissionRead  = "nccrd.submission:read"
	ScopeSubmissionWrite = "nccrd.submission:write"
)

// JWTClaims represents the bearer token payload. Subject identifies the caller and is recorded in audit fields.
type JWTClaims struct {
	Name   string   `json:"name,omitempty"`
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope. A write grant implies read.
func (c *JWTClaims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
		if scope == ScopeSubmissionRead && s == ScopeSubmissionWrite {
			return true
		}
	}
	return false
}

// IssueTokenRequest describes a token minted for a service account or operator.
type IssueTokenRequest struct {
	Subject string   `validate:"required"`
	Name    string   `validate:"omitempty"`
	Scopes  []string `validate:"required,min=1,dive,oneof=nccrd.submission:read nccrd.submission:write"`
}
