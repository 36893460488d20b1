package handlers

import (
	"net/http"
	"time"

	"content-planner-backend/pkg/config"
	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/models"
	"content-planner-backend/pkg/utils"
)

// Version 服务版本，构建时可用 -ldflags 覆盖
var Version = "1.0.0"

// HealthHandler 健康检查处理器
type HealthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(cfg *config.Config, db database.DatabaseInterface) *HealthHandler {
	return &HealthHandler{config: cfg, db: db}
}

// HealthCheck 健康检查
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	// 测试数据库连接
	dbStatus := "healthy"
	if err := h.db.HealthCheck(r.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"service":     "content-planner-backend",
		"version":     Version,
		"environment": h.config.Environment,
		"database":    h.config.StoreKind(),
		"db_status":   dbStatus,
		"timestamp":   time.Now().Unix(),
		"status":      "healthy",
	})
}

// DatabaseStats 连接缓存状态（仅开发环境挂载）
func (h *HealthHandler) DatabaseStats(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, database.GetConnectionStats())
}

// ListContentTypes 返回固定的内容类型目录
func ListContentTypes(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, models.ContentTypes)
}
