package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"content-planner-backend/pkg/auth"
	"content-planner-backend/pkg/config"
	"content-planner-backend/pkg/ideas"
	"content-planner-backend/pkg/middleware"
	"content-planner-backend/pkg/models"
	"content-planner-backend/pkg/utils"

	"github.com/rs/zerolog/hlog"
)

// MsgConfirmEmail 注册后需要邮件确认时返回的提示
const MsgConfirmEmail = "Check your email to confirm your account."

// MsgResetSent 重置密码请求的统一回复，不透露邮箱是否注册
const MsgResetSent = "If an account exists for that email, a password reset link is on its way."

const (
	loginPath     = "/auth/login"
	msgAuthFailed = "Authentication failed"

	refreshCookieTTL = 7 * 24 * time.Hour
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config     *config.Config
	provider   auth.Provider
	verifier   *auth.Verifier
	workspaces *ideas.WorkspaceCache
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, provider auth.Provider, verifier *auth.Verifier, workspaces *ideas.WorkspaceCache) *AuthHandler {
	return &AuthHandler{
		config:     cfg,
		provider:   provider,
		verifier:   verifier,
		workspaces: workspaces,
	}
}

// sessionResponse 登录/注册成功后的响应体
type sessionResponse struct {
	*models.Session
	RedirectTo string `json:"redirect_to,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Login 用户登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		utils.WriteValidationErrorResponse(w, "Email and password are required", "")
		return
	}

	session, err := h.provider.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, sessionResponse{
		Session:    session,
		RedirectTo: safeRedirect(req.RedirectTo),
	})
}

// Register 用户注册
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		utils.WriteValidationErrorResponse(w, "Email and password are required", "")
		return
	}

	session, err := h.provider.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	resp := sessionResponse{Session: session}
	if session.AccessToken == "" {
		// 托管服务开启邮件确认时不会直接返回会话
		resp.Message = MsgConfirmEmail
	} else {
		resp.RedirectTo = safeRedirect(req.RedirectTo)
	}
	utils.WriteCreatedResponse(w, resp)
}

// RefreshToken 刷新令牌
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		utils.WriteBadRequestResponse(w, "refresh_token is required")
		return
	}

	session, err := h.provider.Refresh(r.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, session)
}

// resetPasswordRequest 重置密码请求
type resetPasswordRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// ResetPassword 发送重置密码邮件
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		utils.WriteValidationErrorResponse(w, "Email is required", "")
		return
	}

	target := h.appLink(safePath(req.RedirectTo, auth.DefaultResetRedirect))
	if err := h.provider.Recover(r.Context(), email, target); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"message": MsgResetSent,
	})
}

// AuthCallback 邮件链接回调
// 用 ?code= 换取会话并写入 cookie，成功跳到 ?next=（默认 /dashboard），
// 失败跳回登录页并带上 error。
func (h *AuthHandler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	query := r.URL.Query()
	logger := hlog.FromRequest(r)

	code := strings.TrimSpace(query.Get("code"))
	if code == "" {
		logger.Info().Msg("auth callback without code")
		http.Redirect(w, r, h.appLink(loginPath), http.StatusFound)
		return
	}

	verifier := query.Get("code_verifier")
	if verifier == "" {
		if cookie, err := r.Cookie(middleware.CodeVerifierCookie); err == nil {
			verifier = cookie.Value
		}
	}

	session, err := h.provider.ExchangeCode(r.Context(), code, verifier)
	if err != nil {
		logger.Warn().Err(err).Msg("auth callback code exchange failed")
		http.Redirect(w, r, h.appLink(loginPath+"?error="+url.PathEscape(msgAuthFailed)), http.StatusFound)
		return
	}

	h.setSessionCookies(w, session)
	http.Redirect(w, r, h.appLink(safeRedirect(query.Get("next"))), http.StatusFound)
}

// setSessionCookies 写入会话 cookie，并清掉已用过的 PKCE verifier
func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, session *models.Session) {
	secure := h.config.IsProduction()
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    session.AccessToken,
		Path:     "/",
		Expires:  time.Unix(session.ExpiresAt, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	if session.RefreshToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.RefreshTokenCookie,
			Value:    session.RefreshToken,
			Path:     "/",
			MaxAge:   int(refreshCookieTTL.Seconds()),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	expireCookie(w, middleware.CodeVerifierCookie)
}

func expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
}

// appLink 拼接前端地址；未配置 AppURL 时保持相对路径
func (h *AuthHandler) appLink(path string) string {
	return h.config.AppURL + path
}

// Logout 用户登出
// 没有有效令牌时同样返回成功，客户端总能清掉本地会话。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token != "" {
		if identity, err := h.verifier.Verify(token); err == nil {
			h.workspaces.Evict(identity.UserID)
		}
		if err := h.provider.Logout(r.Context(), token); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("logout failed upstream")
		}
	}

	expireCookie(w, middleware.AccessTokenCookie)
	expireCookie(w, middleware.RefreshTokenCookie)
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"message": "Logged out",
	})
}

// safeRedirect 只接受站内相对路径，避免开放重定向
func safeRedirect(target string) string {
	return safePath(target, auth.DefaultRedirect)
}

func safePath(target, fallback string) string {
	target = strings.TrimSpace(target)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	return target
}
