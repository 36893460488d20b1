package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"content-planner-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
	sessionCodeTTL  = 5 * time.Minute

	// 与托管认证服务签发的令牌保持一致
	tokenAudience = "authenticated"
)

// JWTService JWT服务
type JWTService struct {
	secretKey []byte
	now       func() time.Time
}

// NewJWTService 创建JWT服务
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

func (j *JWTService) sign(userID, email, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := j.now()
	expiry := now.Add(ttl)

	jti, err := newTokenID()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token id: %w", err)
	}

	claims := &models.TokenClaims{
		Email:     email,
		Role:      tokenAudience,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate %s token: %w", tokenType, err)
	}
	return token, expiry, nil
}

// GenerateTokenPair 生成访问令牌和刷新令牌对
func (j *JWTService) GenerateTokenPair(userID, email string) (accessToken, refreshToken string, expiresAt int64, err error) {
	accessToken, expiry, err := j.sign(userID, email, models.TokenTypeAccess, accessTokenTTL)
	if err != nil {
		return "", "", 0, err
	}

	refreshToken, _, err = j.sign(userID, email, models.TokenTypeRefresh, refreshTokenTTL)
	if err != nil {
		return "", "", 0, err
	}

	return accessToken, refreshToken, expiry.Unix(), nil
}

// ValidateToken 验证令牌（签名、有效期）
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID() == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}

// ValidateAccessToken 只接受访问令牌；托管服务签发的令牌没有 token_type
func (j *JWTService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.IsAccess() {
		return nil, fmt.Errorf("invalid token type: %s token used as access token", claims.TokenType)
	}
	return claims, nil
}

// ValidateRefreshToken 验证刷新令牌
func (j *JWTService) ValidateRefreshToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if !claims.IsRefresh() {
		return nil, fmt.Errorf("invalid token type: expected refresh, got %q", claims.TokenType)
	}

	return claims, nil
}

// GenerateSessionCode 生成短期会话码（5分钟有效），用于回调中换取会话
func (j *JWTService) GenerateSessionCode(userID, email string) (string, error) {
	code, _, err := j.sign(userID, email, models.TokenTypeSessionCode, sessionCodeTTL)
	return code, err
}

// ValidateSessionCode 验证会话码
func (j *JWTService) ValidateSessionCode(code string) (*models.TokenClaims, error) {
	claims, err := j.ValidateToken(code)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != models.TokenTypeSessionCode {
		return nil, fmt.Errorf("invalid token type: expected %s, got %q", models.TokenTypeSessionCode, claims.TokenType)
	}
	return claims, nil
}

// newTokenID 生成 URL-safe 的随机 jti
func newTokenID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
