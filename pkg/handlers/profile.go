package handlers

import (
	"errors"
	"net/http"
	"strings"

	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/models"
	"content-planner-backend/pkg/utils"
)

// ProfileHandler 个人资料处理器
type ProfileHandler struct {
	db database.DatabaseInterface
}

// NewProfileHandler 创建个人资料处理器
func NewProfileHandler(db database.DatabaseInterface) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// GetProfile 获取个人资料；还没有资料行时返回只含身份信息的默认资料
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	profile, err := h.db.GetProfile(r.Context(), identity.UserID)
	if errors.Is(err, database.ErrNotFound) {
		utils.WriteSuccessResponse(w, models.Profile{ID: identity.UserID, Email: identity.Email})
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, profile)
}

// UpdateProfile 更新个人资料，不存在时创建
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	profile := models.Profile{
		ID:        identity.UserID,
		Email:     identity.Email,
		FullName:  strings.TrimSpace(req.FullName),
		AvatarURL: strings.TrimSpace(req.AvatarURL),
	}
	created, err := h.db.UpsertProfile(r.Context(), profile)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if created {
		utils.WriteCreatedResponse(w, profile)
		return
	}
	utils.WriteSuccessResponse(w, profile)
}
