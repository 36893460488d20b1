// Package auth resolves who the caller is.
//
// A request is authenticated once, by the middleware, and the resulting
// Identity travels explicitly in the request context. Providers implement the
// session lifecycle (login, register, refresh, logout) against either the
// hosted auth service or the local user table.
package auth

import (
	"context"
	"errors"

	"content-planner-backend/pkg/apperr"
	"content-planner-backend/pkg/config"
	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/models"
	"content-planner-backend/pkg/utils"
)

// DefaultRedirect is where a client goes after logging in when it did not ask
// for a specific page.
const DefaultRedirect = "/dashboard"

// Identity is the authenticated caller.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
}

// DefaultResetRedirect is where a password reset link leads when the client
// did not ask for a specific page.
const DefaultResetRedirect = "/auth/update-password"

// Provider manages sessions.
type Provider interface {
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Register(ctx context.Context, email, password string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	Logout(ctx context.Context, accessToken string) error
	// Recover sends a password reset link for email. The link lands on
	// redirectTo with a short-lived code. Unknown addresses are not reported.
	Recover(ctx context.Context, email, redirectTo string) error
	// ExchangeCode trades the code from an emailed link for a session.
	ExchangeCode(ctx context.Context, code, verifier string) (*models.Session, error)
}

type identityKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// Require returns the caller's identity or an AuthError.
func Require(ctx context.Context) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return Identity{}, apperr.Auth(errors.New("no authenticated user in context"))
	}
	return id, nil
}

// Verifier turns a bearer token into an Identity.
type Verifier struct {
	jwt *utils.JWTService
}

// NewVerifier verifies tokens signed with secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{jwt: utils.NewJWTService(secret)}
}

// Verify checks the token's signature, expiry and type.
func (v *Verifier) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperr.Auth(errors.New("missing access token"))
	}
	claims, err := v.jwt.ValidateAccessToken(token)
	if err != nil {
		return Identity{}, apperr.Auth(err)
	}
	return Identity{UserID: claims.UserID(), Email: claims.Email, Role: claims.Role}, nil
}

// VerifierFor picks the signing secret that matches the configured provider.
func VerifierFor(cfg *config.Config) *Verifier {
	if cfg.UsesSupabase() {
		return NewVerifier(cfg.SupabaseJWTSecret)
	}
	return NewVerifier(cfg.JWTSecret)
}

// NewProvider returns the hosted provider when the hosted service is
// configured and the local provider otherwise.
func NewProvider(cfg *config.Config, db database.DatabaseInterface) Provider {
	if cfg.UsesSupabase() {
		key := cfg.SupabaseAnonKey
		if key == "" {
			key = cfg.SupabaseServiceKey
		}
		return NewSupabaseProvider(cfg.SupabaseURL, key)
	}
	return NewLocalProvider(db, cfg.JWTSecret)
}
