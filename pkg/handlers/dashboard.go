package handlers

import (
	"net/http"
	"time"

	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/ideas"
	"content-planner-backend/pkg/models"
	"content-planner-backend/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// UpcomingWindow 仪表盘“即将到期”统计的时间窗口
const UpcomingWindow = 7 * 24 * time.Hour

// DashboardStats 仪表盘统计
type DashboardStats struct {
	IdeasCaptured  int `json:"ideas_captured"`
	ContentCreated int `json:"content_created"`
	UpcomingDue    int `json:"upcoming_due"`
}

// Dashboard 仪表盘响应
type Dashboard struct {
	RecentIdeas []models.Idea  `json:"recent_ideas"`
	Stats       DashboardStats `json:"stats"`
	IsNewUser   bool           `json:"is_new_user"`
}

// DashboardHandler 仪表盘处理器
type DashboardHandler struct {
	db   database.DatabaseInterface
	repo *ideas.Repository
	now  func() time.Time
}

// NewDashboardHandler 创建仪表盘处理器
func NewDashboardHandler(db database.DatabaseInterface) *DashboardHandler {
	return &DashboardHandler{
		db:   db,
		repo: ideas.NewRepository(db),
		now:  time.Now,
	}
}

// GetDashboard 并发获取最近灵感与各项计数
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var out Dashboard
	now := h.now()
	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		recent, err := h.repo.Recent(ctx, identity.UserID, ideas.RecentLimit)
		out.RecentIdeas = recent
		return err
	})
	g.Go(func() error {
		n, err := h.repo.Count(ctx, identity.UserID)
		out.Stats.IdeasCaptured = n
		return err
	})
	g.Go(func() error {
		n, err := h.db.CountContentItems(ctx, identity.UserID)
		out.Stats.ContentCreated = n
		return database.AppError(err)
	})
	g.Go(func() error {
		n, err := h.db.CountScheduledBetween(ctx, identity.UserID, now, now.Add(UpcomingWindow))
		out.Stats.UpcomingDue = n
		return database.AppError(err)
	})

	if err := g.Wait(); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	if out.RecentIdeas == nil {
		out.RecentIdeas = []models.Idea{}
	}
	out.IsNewUser = out.Stats.IdeasCaptured == 0
	utils.WriteSuccessResponse(w, out)
}
