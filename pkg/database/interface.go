package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"content-planner-backend/pkg/models"
)

// DatabaseInterface 定义远程存储访问接口
// 所有按用户划分的数据操作都带 userID，实现必须只返回/修改该用户的行。
type DatabaseInterface interface {
	// 用户管理（仅本地认证模式使用）
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Ideas
	ListIdeas(ctx context.Context, userID string, opts ListOptions) ([]models.Idea, error)
	GetIdea(ctx context.Context, userID, id string) (*models.Idea, error)
	InsertIdea(ctx context.Context, idea models.NewIdea) (*models.Idea, error)
	UpdateIdea(ctx context.Context, userID, id string, patch models.IdeaPatch) (*models.Idea, error)
	DeleteIdea(ctx context.Context, userID, id string) error
	CountIdeas(ctx context.Context, userID string) (int, error)

	// Content items
	ListContentItems(ctx context.Context, userID string, filter ContentFilter) ([]models.ContentItem, error)
	InsertContentItem(ctx context.Context, item models.NewContentItem) (*models.ContentItem, error)
	UpdateContentItem(ctx context.Context, userID, id string, patch models.ContentItemPatch) (*models.ContentItem, error)
	DeleteContentItem(ctx context.Context, userID, id string) error
	CountContentItems(ctx context.Context, userID string) (int, error)
	CountScheduledBetween(ctx context.Context, userID string, from, to time.Time) (int, error)

	// Swipe files
	ListSwipeFiles(ctx context.Context, userID string, includeArchived bool) ([]models.SwipeFile, error)
	InsertSwipeFile(ctx context.Context, file models.NewSwipeFile) (*models.SwipeFile, error)
	UpdateSwipeFile(ctx context.Context, userID, id string, patch models.SwipeFilePatch) (*models.SwipeFile, error)
	DeleteSwipeFile(ctx context.Context, userID, id string) error

	// Profiles
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile models.Profile) (created bool, err error)

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// ListOptions narrows a list query.
type ListOptions struct {
	// Limit caps the number of rows; zero means no limit.
	Limit int
	// OldestFirst reverses the default newest-created-first ordering.
	OldestFirst bool
}

// ContentFilter narrows a content item query.
type ContentFilter struct {
	IdeaID          string
	IncludeArchived bool
}

var (
	// ErrNotFound is returned when a row is absent or not owned by the caller.
	ErrNotFound = errors.New("record not found")
	// ErrUnauthorized is returned when the store rejects the caller's session.
	ErrUnauthorized = errors.New("unauthorized")
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	UseLocalDB         bool
	LocalDBPath        string
	PostgresDSN        string
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	Debug              bool
}

// NewDatabase 根据配置选择数据库实现
// 优先级：本地 SQLite > PostgreSQL > Supabase
func NewDatabase(ctx context.Context, config DatabaseConfig) (DatabaseInterface, error) {
	switch {
	case config.UseLocalDB:
		return NewLocalDatabase(config.LocalDBPath)
	case config.PostgresDSN != "":
		return NewPostgresDatabase(ctx, config.PostgresDSN)
	case config.SupabaseURL != "" && (config.SupabaseAnonKey != "" || config.SupabaseServiceKey != ""):
		return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseAnonKey, config.SupabaseServiceKey), nil
	}
	return nil, fmt.Errorf("no valid database configuration found: configure POSTGRES_DSN or SUPABASE_URL+SUPABASE_ANON_KEY")
}

type accessTokenKey struct{}

// WithAccessToken attaches the caller's access token so stores that enforce
// row-level security can act on the caller's behalf.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFrom returns the token attached by WithAccessToken.
func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
