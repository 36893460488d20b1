package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User represents an authenticated account
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password_hash"` // Never return password in JSON
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Profile is the user-editable profile row
type Profile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	AvatarURL string     `json:"avatar_url"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// UserLoginRequest represents the request payload for login and registration
type UserLoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// Session is an issued token pair
type Session struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// RefreshTokenRequest represents the request payload for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Token types carried in TokenClaims.TokenType. Hosted access tokens carry
// no token_type and are treated as access tokens.
const (
	TokenTypeAccess      = "access"
	TokenTypeRefresh     = "refresh"
	TokenTypeSessionCode = "session_code"
)

// TokenClaims are the JWT claims of an access token. The layout matches the
// tokens issued by the hosted auth service (sub, email, role, aud).
type TokenClaims struct {
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *TokenClaims) UserID() string {
	return c.Subject
}

// IsRefresh reports whether the token may only be used to mint access tokens.
func (c *TokenClaims) IsRefresh() bool {
	return c.TokenType == TokenTypeRefresh
}

// IsAccess reports whether the token may authenticate API calls.
func (c *TokenClaims) IsAccess() bool {
	return c.TokenType == "" || c.TokenType == TokenTypeAccess
}
