package middleware

import (
	"net/http"
	"strings"

	"content-planner-backend/pkg/config"

	"github.com/go-chi/cors"
)

// CORS 跨域中间件配置
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
			"X-Requested-With",
			"X-Request-Id",
			"X-View-Id",
		},
		ExposedHeaders: []string{"Link", "Content-Range", "X-Request-Id"},
		MaxAge:         300, // 5分钟
	}

	// 通配或带前缀通配（https://*.example.com）时按规则匹配
	if hasPattern(cfg.AllowedOrigins) {
		origins := cfg.AllowedOrigins
		options.AllowOriginFunc = func(r *http.Request, origin string) bool {
			return isOriginAllowed(origin, origins)
		}
	} else {
		options.AllowedOrigins = cfg.AllowedOrigins
	}

	// 允许任意来源时不能携带凭证
	options.AllowCredentials = !contains(cfg.AllowedOrigins, "*")

	// 开发环境打开调试输出
	options.Debug = cfg.Debug && cfg.IsDevelopment()

	return cors.Handler(options)
}

// isOriginAllowed 检查来源是否被允许
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range allowedOrigins {
		switch {
		case allowed == "*", allowed == origin:
			return true
		case strings.Contains(allowed, "*"):
			prefix, suffix, _ := strings.Cut(allowed, "*")
			if len(origin) >= len(prefix)+len(suffix) &&
				strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				return true
			}
		}
	}
	return false
}

func hasPattern(origins []string) bool {
	for _, o := range origins {
		if strings.Contains(o, "*") {
			return true
		}
	}
	return false
}

// contains 检查切片是否包含指定元素
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
