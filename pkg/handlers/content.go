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

// ContentHandler 内容日历处理器
type ContentHandler struct {
	db database.DatabaseInterface
}

// NewContentHandler 创建内容处理器
func NewContentHandler(db database.DatabaseInterface) *ContentHandler {
	return &ContentHandler{db: db}
}

func validContentStatus(s string) bool {
	switch s {
	case models.ContentStatusDraft, models.ContentStatusInProgress,
		models.ContentStatusScheduled, models.ContentStatusPublished:
		return true
	}
	return false
}

// ListContent 列出内容，支持 ?idea_id= 与 ?archived=true
func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	items, err := h.db.ListContentItems(r.Context(), identity.UserID, database.ContentFilter{
		IdeaID:          utils.GetQueryParam(r, "idea_id", ""),
		IncludeArchived: queryBool(r, "archived"),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteListResponse(w, items, len(items), len(items))
}

// CreateContent 创建内容
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req models.NewContentItem
	if !decodeBody(w, r, &req) {
		return
	}

	req.UserID = identity.UserID
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		utils.WriteValidationErrorResponse(w, "title is required", "")
		return
	}
	if req.ContentType == "" {
		utils.WriteValidationErrorResponse(w, "content type is required", "")
		return
	}
	if !req.ContentType.Valid() {
		utils.WriteValidationErrorResponse(w, "unknown content type "+req.ContentType.String(), "")
		return
	}
	if req.Status == "" {
		req.Status = models.ContentStatusDraft
		if req.ScheduledDate != nil {
			req.Status = models.ContentStatusScheduled
		}
	}
	if !validContentStatus(req.Status) {
		utils.WriteValidationErrorResponse(w, "unknown status "+req.Status, "")
		return
	}
	req.Tags = ideas.NormalizeTags(req.Tags)

	item, err := h.db.InsertContentItem(r.Context(), req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, item)
}

// UpdateContent 部分更新内容
func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var patch models.ContentItemPatch
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
	if patch.ContentType != nil && !patch.ContentType.Valid() {
		utils.WriteValidationErrorResponse(w, "unknown content type "+patch.ContentType.String(), "")
		return
	}
	if patch.Status != nil && !validContentStatus(*patch.Status) {
		utils.WriteValidationErrorResponse(w, "unknown status "+*patch.Status, "")
		return
	}
	if patch.Tags != nil {
		patch.Tags = ideas.NormalizeTags(patch.Tags)
	}

	item, err := h.db.UpdateContentItem(r.Context(), identity.UserID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, item)
}

// DeleteContent 删除内容
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.db.DeleteContentItem(r.Context(), identity.UserID, id); err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}
