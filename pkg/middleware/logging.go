package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Logger 请求日志中间件
// 每个请求得到一个带 req_id/ip/user_agent 的子 logger（hlog.FromRequest），
// 请求结束时输出一行访问日志。req_id 取自 chi 的 RequestID 中间件。
func Logger(logger zerolog.Logger) func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		hlog.NewHandler(logger),
		requestID,
		hlog.RemoteAddrHandler("ip"),
		hlog.UserAgentHandler("user_agent"),
		hlog.MethodHandler("method"),
		hlog.URLHandler("path"),
		hlog.AccessHandler(accessLog),
	}

	return func(next http.Handler) http.Handler {
		h := next
		for i := len(chain) - 1; i >= 0; i-- {
			h = chain[i](h)
		}
		return h
	}
}

// requestID 把 chi 生成的请求 ID 写入日志与响应头
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog 根据状态码选择日志级别
func accessLog(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)

	var event *zerolog.Event
	switch {
	case status >= 500:
		event = logger.Error()
	case status >= 400:
		event = logger.Warn()
	default:
		event = logger.Info()
	}

	event.
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
