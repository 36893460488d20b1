package handlers

import (
	"net/http"
	"strings"

	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/ideas"
	"content-planner-backend/pkg/models"
	"content-planner-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// SwipeFilesHandler 灵感素材（swipe file）处理器
type SwipeFilesHandler struct {
	db database.DatabaseInterface
}

// NewSwipeFilesHandler 创建素材处理器
func NewSwipeFilesHandler(db database.DatabaseInterface) *SwipeFilesHandler {
	return &SwipeFilesHandler{db: db}
}

// ListSwipeFiles 列出素材，默认不含已归档
func (h *SwipeFilesHandler) ListSwipeFiles(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	files, err := h.db.ListSwipeFiles(r.Context(), identity.UserID, queryBool(r, "archived"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteListResponse(w, files, len(files), len(files))
}

// CreateSwipeFile 保存素材
func (h *SwipeFilesHandler) CreateSwipeFile(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req models.NewSwipeFile
	if !decodeBody(w, r, &req) {
		return
	}
	req.UserID = identity.UserID
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		utils.WriteValidationErrorResponse(w, "title is required", "")
		return
	}
	req.Tags = ideas.NormalizeTags(req.Tags)

	file, err := h.db.InsertSwipeFile(r.Context(), req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, file)
}

// UpdateSwipeFile 部分更新素材（收藏、归档、标签等）
func (h *SwipeFilesHandler) UpdateSwipeFile(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var patch models.SwipeFilePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if len(patch.Columns()) == 0 {
		utils.WriteValidationErrorResponse(w, "nothing to update", "")
		return
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			utils.WriteValidationErrorResponse(w, "title is required", "")
			return
		}
		patch.Title = &title
	}
	if patch.Tags != nil {
		patch.Tags = ideas.NormalizeTags(patch.Tags)
	}

	file, err := h.db.UpdateSwipeFile(r.Context(), identity.UserID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, file)
}

// DeleteSwipeFile 删除素材
func (h *SwipeFilesHandler) DeleteSwipeFile(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.db.DeleteSwipeFile(r.Context(), identity.UserID, id); err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}
