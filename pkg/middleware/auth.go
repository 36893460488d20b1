package middleware

import (
	"net/http"
	"strings"

	"content-planner-backend/pkg/auth"
	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/utils"

	"github.com/rs/zerolog"
)

// 浏览器会话使用的 cookie 名称
const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"
	// CodeVerifierCookie holds the PKCE verifier while an emailed link is
	// outstanding.
	CodeVerifierCookie = "sb-code-verifier"
)

// AuthMiddleware 认证中间件
// 每个请求只解析一次身份，之后以 auth.Identity 的形式放入上下文，
// 原始令牌同时传给存储层用于行级权限。
func AuthMiddleware(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			identity, err := verifier.Verify(token)
			if err != nil {
				utils.WriteAppError(w, err)
				return
			}

			ctx := auth.WithIdentity(r.Context(), identity)
			ctx = database.WithAccessToken(ctx, token)

			// 访问日志在外层记录，这里直接补充到共享的 logger 上
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("user_id", identity.UserID)
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken 依次从 Authorization 头和会话 cookie 读取令牌
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// BearerToken 返回请求携带的访问令牌（未校验）
func BearerToken(r *http.Request) string {
	return extractToken(r)
}
