package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"content-planner-backend/pkg/apperr"
	"content-planner-backend/pkg/models"
)

// SupabaseProvider talks to the hosted auth service (GoTrue).
type SupabaseProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabaseProvider 创建托管认证客户端
func NewSupabaseProvider(baseURL, apiKey string) *SupabaseProvider {
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "https://" + baseURL
	}
	return &SupabaseProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetHTTPClient replaces the HTTP client (used by tests).
func (p *SupabaseProvider) SetHTTPClient(c *http.Client) {
	p.httpClient = c
}

type gotrueUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// gotrueSession is the token endpoint response. Signup returns either a
// session or, when email confirmation is on, the bare user.
type gotrueSession struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    int64       `json:"expires_at"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *gotrueUser `json:"user"`

	// bare-user form
	ID    string `json:"id"`
	Email string `json:"email"`
}

// gotrueError covers both error shapes the service uses.
type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (p *SupabaseProvider) do(ctx context.Context, method, path, bearer string, body interface{}) ([]byte, int, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+"/auth/v1"+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer == "" {
		bearer = p.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to reach auth service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read auth response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// statusError 把错误响应转换为 apperr；4xx 视为用户输入错误
func statusError(data []byte, status int) error {
	var gErr gotrueError
	_ = json.Unmarshal(data, &gErr)
	msg := gErr.text()
	if msg == "" {
		msg = fmt.Sprintf("auth request failed with status %d", status)
	}
	if status >= 500 {
		return apperr.Remote(errors.New(msg))
	}
	return apperr.Validation("%s", msg)
}

// session 发送请求并解析会话
func (p *SupabaseProvider) session(ctx context.Context, path string, body interface{}) (*models.Session, error) {
	data, status, err := p.do(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	if status >= 400 {
		return nil, statusError(data, status)
	}

	var gs gotrueSession
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, apperr.Remote(fmt.Errorf("failed to decode auth response: %w", err))
	}

	session := &models.Session{
		AccessToken:  gs.AccessToken,
		RefreshToken: gs.RefreshToken,
		ExpiresAt:    gs.ExpiresAt,
	}
	if session.ExpiresAt == 0 && gs.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Unix() + gs.ExpiresIn
	}
	switch {
	case gs.User != nil:
		session.User = models.User{ID: gs.User.ID, Email: gs.User.Email, CreatedAt: gs.User.CreatedAt}
	case gs.ID != "":
		session.User = models.User{ID: gs.ID, Email: gs.Email}
	}
	return session, nil
}

// Login 邮箱密码登录
func (p *SupabaseProvider) Login(ctx context.Context, email, password string) (*models.Session, error) {
	return p.session(ctx, "/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Register 注册；开启邮箱验证时返回的会话没有令牌
func (p *SupabaseProvider) Register(ctx context.Context, email, password string) (*models.Session, error) {
	return p.session(ctx, "/signup", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Refresh 使用刷新令牌换取新会话
func (p *SupabaseProvider) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	session, err := p.session(ctx, "/token?grant_type=refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
	if apperr.Is(err, apperr.KindValidation) {
		return nil, apperr.Auth(err)
	}
	return session, err
}

// Logout 撤销会话
func (p *SupabaseProvider) Logout(ctx context.Context, accessToken string) error {
	data, status, err := p.do(ctx, http.MethodPost, "/logout", accessToken, nil)
	if err != nil {
		return apperr.Remote(err)
	}
	// 会话已失效也算登出成功
	if status >= 400 && status != http.StatusUnauthorized && status != http.StatusNotFound {
		var gErr gotrueError
		_ = json.Unmarshal(data, &gErr)
		return apperr.Remote(fmt.Errorf("logout failed with status %d: %s", status, gErr.text()))
	}
	return nil
}

// Recover 发送重置密码邮件，链接跳回 redirectTo
func (p *SupabaseProvider) Recover(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	data, status, err := p.do(ctx, http.MethodPost, path, "", map[string]string{"email": email})
	if err != nil {
		return apperr.Remote(err)
	}
	if status >= 400 {
		return statusError(data, status)
	}
	return nil
}

// ExchangeCode 用邮件链接中的授权码（PKCE）换取会话
func (p *SupabaseProvider) ExchangeCode(ctx context.Context, code, verifier string) (*models.Session, error) {
	session, err := p.session(ctx, "/token?grant_type=pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if apperr.Is(err, apperr.KindValidation) {
		return nil, apperr.Auth(err)
	}
	return session, err
}
