package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"content-planner-backend/pkg/apperr"
	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/models"
	"content-planner-backend/pkg/utils"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// same wording as the hosted service
const msgInvalidCredentials = "Invalid login credentials"

// LocalProvider stores users in the configured database and issues its own
// HS256 tokens. Used when the hosted auth service is not configured.
type LocalProvider struct {
	db  database.DatabaseInterface
	jwt *utils.JWTService

	// deliver hands a reset link to the user. There is no mailer in local
	// mode, so the default writes the link to the log.
	deliver func(ctx context.Context, email, link string)
}

// NewLocalProvider 创建本地认证提供者
func NewLocalProvider(db database.DatabaseInterface, secret string) *LocalProvider {
	return &LocalProvider{db: db, jwt: utils.NewJWTService(secret), deliver: logResetLink}
}

func logResetLink(ctx context.Context, email, link string) {
	zerolog.Ctx(ctx).Info().Str("email", email).Str("link", link).Msg("password reset link")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *LocalProvider) issue(user models.User) (*models.Session, error) {
	access, refresh, expiresAt, err := p.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	return &models.Session{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

// Login 校验密码并签发令牌
func (p *LocalProvider) Login(ctx context.Context, email, password string) (*models.Session, error) {
	user, err := p.db.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.Validation(msgInvalidCredentials)
	}
	if err != nil {
		return nil, apperr.Remote(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Validation(msgInvalidCredentials)
	}

	return p.issue(*user)
}

// Register 创建用户并签发令牌
func (p *LocalProvider) Register(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
	}

	if _, err := p.db.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.Validation("User already registered")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, apperr.Remote(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Remote(fmt.Errorf("failed to hash password: %w", err))
	}

	user := &models.User{Email: email, Password: string(hash)}
	if err := p.db.CreateUser(ctx, user); err != nil {
		return nil, apperr.Remote(err)
	}

	return p.issue(*user)
}

// Refresh 校验刷新令牌并重新签发令牌对
func (p *LocalProvider) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	claims, err := p.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.Auth(err)
	}

	user, err := p.db.GetUserByEmail(ctx, claims.Email)
	if err != nil || user.ID != claims.UserID() {
		return nil, apperr.Auth(errors.New("user for refresh token no longer exists"))
	}

	return p.issue(*user)
}

// Logout 本地令牌是无状态的，客户端丢弃即可
func (p *LocalProvider) Logout(ctx context.Context, accessToken string) error {
	return nil
}

// Recover 生成短期会话码并投递重置链接；未注册的邮箱静默忽略
func (p *LocalProvider) Recover(ctx context.Context, email, redirectTo string) error {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Validation("a valid email is required")
	}

	user, err := p.db.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Remote(err)
	}

	code, err := p.jwt.GenerateSessionCode(user.ID, user.Email)
	if err != nil {
		return apperr.Remote(err)
	}
	p.deliver(ctx, user.Email, withCode(redirectTo, code))
	return nil
}

// ExchangeCode 校验会话码并签发令牌；本地会话码自带签名，不需要 verifier
func (p *LocalProvider) ExchangeCode(ctx context.Context, code, verifier string) (*models.Session, error) {
	claims, err := p.jwt.ValidateSessionCode(code)
	if err != nil {
		return nil, apperr.Auth(err)
	}

	user, err := p.db.GetUserByEmail(ctx, claims.Email)
	if err != nil || user.ID != claims.UserID() {
		return nil, apperr.Auth(errors.New("user for session code no longer exists"))
	}

	return p.issue(*user)
}

// withCode appends code to target's query string.
func withCode(target, code string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target + "?code=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()
	return u.String()
}
