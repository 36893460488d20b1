package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"content-planner-backend/pkg/config"
	"content-planner-backend/pkg/utils"

	"github.com/rs/zerolog/hlog"
)

// Recovery 恢复中间件，捕获 panic 并返回统一的错误响应
func Recovery(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// 客户端断开时 http.Server 自己处理
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				hlog.FromRequest(r).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				details := ""
				if cfg.IsDevelopment() || cfg.Debug {
					details = fmt.Sprintf("%v", rec)
				}
				utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
					"INTERNAL_SERVER_ERROR", "An unexpected error occurred", details)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
