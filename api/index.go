package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"content-planner-backend/pkg/auth"
	"content-planner-backend/pkg/config"
	"content-planner-backend/pkg/database"
	"content-planner-backend/pkg/handlers"
	"content-planner-backend/pkg/ideas"
	"content-planner-backend/pkg/logger"
	customMiddleware "content-planner-backend/pkg/middleware"
	"content-planner-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Deps 路由依赖
type Deps struct {
	Config     *config.Config
	Logger     zerolog.Logger
	DB         database.DatabaseInterface
	Provider   auth.Provider
	Verifier   *auth.Verifier
	Workspaces *ideas.WorkspaceCache
}

// 进程级缓存（每次冷启动初始化一次）
var (
	loggerOnce   sync.Once
	cachedLogger zerolog.Logger

	workspacesMu     sync.Mutex
	cachedWorkspaces *ideas.WorkspaceCache
	workspacesDB     database.DatabaseInterface
)

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	// 加载配置
	cfg := config.GetCached()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	log := Logger(cfg)
	ctx := log.WithContext(r.Context())

	// 获取数据库连接（进程内复用）
	db, err := database.GetDatabase(ctx, StoreConfig(cfg))
	if err != nil {
		log.Error().Err(err).Msg("database unavailable")
		utils.WriteErrorResponseWithCode(w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE",
			"Database is not available", "")
		return
	}

	workspaces := workspacesFor(cfg, db)
	// 热调用之间没有后台协程，顺带清理空闲的工作区
	if n := workspaces.Sweep(); n > 0 {
		log.Debug().Int("evicted", n).Msg("swept idle workspaces")
	}

	router := NewRouter(Deps{
		Config:     cfg,
		Logger:     log,
		DB:         db,
		Provider:   auth.NewProvider(cfg, db),
		Verifier:   auth.VerifierFor(cfg),
		Workspaces: workspaces,
	})

	// 将请求传递给Chi路由器处理
	router.ServeHTTP(w, r)
}

// Logger 按配置构建进程级 logger
func Logger(cfg *config.Config) zerolog.Logger {
	loggerOnce.Do(func() {
		l, err := logger.New().
			FromPath(cfg.LogFile).
			Level(cfg.LogLevel).
			Console(cfg.IsDevelopment()).
			Make()
		if err != nil {
			l, _ = logger.New().Level(cfg.LogLevel).Make()
			l.Warn().Err(err).Str("path", cfg.LogFile).Msg("cannot open log file, logging to stdout")
		}
		cachedLogger = l
	})
	return cachedLogger
}

// StoreConfig 从应用配置得到数据库配置
func StoreConfig(cfg *config.Config) database.DatabaseConfig {
	return database.DatabaseConfig{
		UseLocalDB:         cfg.UseLocalDB,
		LocalDBPath:        cfg.LocalDBPath,
		PostgresDSN:        cfg.PostgresDSN,
		SupabaseURL:        cfg.SupabaseURL,
		SupabaseAnonKey:    cfg.SupabaseAnonKey,
		SupabaseServiceKey: cfg.SupabaseServiceKey,
		Debug:              cfg.Debug,
	}
}

// NewWorkspaceCache 创建绑定到 db 的工作区缓存
func NewWorkspaceCache(cfg *config.Config, db database.DatabaseInterface) *ideas.WorkspaceCache {
	repo := ideas.NewRepository(db)
	strategy := ideas.ApplyAfterConfirm
	if cfg.OptimisticUpdates {
		strategy = ideas.Optimistic
	}
	return ideas.NewWorkspaceCache(cfg.WorkspaceIdleTimeout, func(userID string) *ideas.Workspace {
		return ideas.NewWorkspace(userID, repo, ideas.WithStrategy(strategy))
	})
}

// workspacesFor 数据库实例被重建时，旧的工作区一并丢弃
func workspacesFor(cfg *config.Config, db database.DatabaseInterface) *ideas.WorkspaceCache {
	workspacesMu.Lock()
	defer workspacesMu.Unlock()

	if cachedWorkspaces == nil || workspacesDB != db {
		if cachedWorkspaces != nil {
			cachedWorkspaces.Close()
		}
		cachedWorkspaces = NewWorkspaceCache(cfg, db)
		workspacesDB = db
	}
	return cachedWorkspaces
}

// NewRouter 创建完整的路由器
func NewRouter(d Deps) http.Handler {
	router := chi.NewRouter()

	// 设置全局中间件
	setupMiddleware(router, d)

	// 设置路由
	setupRoutes(router, d)

	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, d Deps) {
	cfg := d.Config

	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(d.Logger))
	router.Use(customMiddleware.Recovery(cfg))

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件（Vercel函数有时间限制）
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	router.Use(middleware.Timeout(timeout))

	// 压缩中间件
	router.Use(middleware.Compress(5))

	// 请求体校验
	router.Use(customMiddleware.ContentTypeJSON)
	router.Use(customMiddleware.MaxBodySize(customMiddleware.DefaultMaxBodySize))

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, d Deps) {
	cfg, db := d.Config, d.DB

	// 创建处理器
	authHandler := handlers.NewAuthHandler(cfg, d.Provider, d.Verifier, d.Workspaces)
	healthHandler := handlers.NewHealthHandler(cfg, db)
	ideasHandler := handlers.NewIdeasHandler(cfg, db, d.Workspaces)
	contentHandler := handlers.NewContentHandler(db)
	swipeHandler := handlers.NewSwipeFilesHandler(db)
	dashboardHandler := handlers.NewDashboardHandler(db)
	profileHandler := handlers.NewProfileHandler(db)

	// 健康检查端点
	router.Get("/", healthHandler.HealthCheck)

	// 数据库连接状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", healthHandler.DatabaseStats)
	}

	// API路由组
	router.Route("/api", func(r chi.Router) {
		// 公开路由（不需要认证）
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.Get("/callback", authHandler.AuthCallback)
		})
		r.Get("/content-types", handlers.ListContentTypes)

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(d.Verifier))

			r.Get("/dashboard", dashboardHandler.GetDashboard)

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profileHandler.GetProfile)
				r.Put("/", profileHandler.UpdateProfile)
			})

			r.Route("/ideas", func(r chi.Router) {
				r.Get("/", ideasHandler.ListIdeas)
				r.Post("/", ideasHandler.CreateIdea)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", ideasHandler.GetIdea)
					r.Put("/", ideasHandler.UpdateIdea)
					r.Patch("/", ideasHandler.UpdateIdea)
					r.Delete("/", ideasHandler.DeleteIdea)
					r.Post("/favorite", ideasHandler.ToggleFavorite)
					r.Post("/tags", ideasHandler.AddTag)
					r.Delete("/tags/{tag}", ideasHandler.RemoveTag)
					r.Post("/content", ideasHandler.CreateContentFromIdea)
				})
			})

			r.Route("/content", func(r chi.Router) {
				r.Get("/", contentHandler.ListContent)
				r.Post("/", contentHandler.CreateContent)
				r.Put("/{id}", contentHandler.UpdateContent)
				r.Patch("/{id}", contentHandler.UpdateContent)
				r.Delete("/{id}", contentHandler.DeleteContent)
			})

			r.Route("/swipe-files", func(r chi.Router) {
				r.Get("/", swipeHandler.ListSwipeFiles)
				r.Post("/", swipeHandler.CreateSwipeFile)
				r.Put("/{id}", swipeHandler.UpdateSwipeFile)
				r.Patch("/{id}", swipeHandler.UpdateSwipeFile)
				r.Delete("/{id}", swipeHandler.DeleteSwipeFile)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
