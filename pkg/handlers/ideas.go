package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"content-planner-backend/pkg/config"
	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/ideas"
	"content-planner-backend/pkg/models"
	"content-planner-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// ViewIDHeader 前端页面实例的标识；同一页面的修改共用一个 Workspace，
// 保证同一时间只有一个写请求在途。不带该头时每个请求独立。
const ViewIDHeader = "X-View-Id"

// IdeasHandler 灵感（idea）处理器
type IdeasHandler struct {
	config     *config.Config
	db         database.DatabaseInterface
	repo       *ideas.Repository
	workspaces *ideas.WorkspaceCache
}

// NewIdeasHandler 创建灵感处理器
func NewIdeasHandler(cfg *config.Config, db database.DatabaseInterface, workspaces *ideas.WorkspaceCache) *IdeasHandler {
	return &IdeasHandler{
		config:     cfg,
		db:         db,
		repo:       ideas.NewRepository(db),
		workspaces: workspaces,
	}
}

func (h *IdeasHandler) workspace(w http.ResponseWriter, r *http.Request) (*ideas.Workspace, bool) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return nil, false
	}
	return h.workspaces.Get(identity.UserID, strings.TrimSpace(r.Header.Get(ViewIDHeader))), true
}

// ListIdeas 列出当前用户的灵感，按创建时间倒序，支持 q/status/priority/favorites 过滤
func (h *IdeasHandler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	filter, err := ideas.ParseFilter(r.URL.Query())
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	all, err := ws.Load(r.Context())
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	visible := ws.Ideas(filter)
	utils.WriteListResponse(w, visible, len(all), len(visible))
}

// GetIdea 获取单个灵感
func (h *IdeasHandler) GetIdea(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	idea, err := h.repo.Get(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, idea)
}

// CreateIdea 创建灵感
func (h *IdeasHandler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	var req models.NewIdea
	if !decodeBody(w, r, &req) {
		return
	}

	idea, err := ws.Create(r.Context(), req)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, idea)
}

// UpdateIdea 部分更新灵感
func (h *IdeasHandler) UpdateIdea(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	var patch models.IdeaPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	idea, err := ws.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, idea)
}

// ToggleFavorite 切换收藏
func (h *IdeasHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	idea, err := ws.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, idea)
}

// AddTag 添加标签
func (h *IdeasHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	var req struct {
		Tag string `json:"tag"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	idea, err := ws.AddTag(r.Context(), chi.URLParam(r, "id"), req.Tag)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, idea)
}

// RemoveTag 删除标签
func (h *IdeasHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	// chi 按 RawPath 路由时参数仍是编码形式，否则已经解码
	tag := chi.URLParam(r, "tag")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(tag)
		if err != nil {
			utils.WriteBadRequestResponse(w, "Invalid tag")
			return
		}
		tag = unescaped
	}

	idea, err := ws.RemoveTag(r.Context(), chi.URLParam(r, "id"), tag)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, idea)
}

// DeleteIdea 删除灵感，需要 ?confirm=true
func (h *IdeasHandler) DeleteIdea(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := ws.Delete(r.Context(), id, queryBool(r, "confirm")); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}

// CreateContentFromIdea 由灵感生成内容草稿，可选排期
func (h *IdeasHandler) CreateContentFromIdea(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		ScheduledDate *time.Time `json:"scheduled_date"`
	}
	// 请求体可以为空
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	idea, err := h.repo.Get(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if strings.TrimSpace(idea.Title) == "" || !idea.ContentType.Valid() {
		utils.WriteValidationErrorResponse(w, "Idea needs a title and a content type before it can become content", "")
		return
	}

	item, err := h.db.InsertContentItem(r.Context(), models.ContentItemFromIdea(idea, req.ScheduledDate))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, item)
}
