package database

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// 空闲多久后重建连接
const poolMaxIdle = 30 * time.Minute

// DatabasePool 进程级数据库实例缓存
// 无服务器环境下每次冷启动创建一次，热调用复用。
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// GetDatabase 获取数据库连接（单例模式 + 连接池）
func GetDatabase(ctx context.Context, config DatabaseConfig) (DatabaseInterface, error) {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	logger := zerolog.Ctx(ctx)

	if globalPool != nil && !shouldRecreateConnection(ctx, globalPool, config) {
		globalPool.mu.Lock()
		globalPool.lastUsed = time.Now()
		globalPool.mu.Unlock()
		logger.Debug().Msg("reusing existing database connection")
		return globalPool.instance, nil
	}

	logger.Info().Bool("local", config.UseLocalDB).Msg("creating new database connection")

	// 关闭旧连接（如果存在）
	if globalPool != nil && globalPool.instance != nil {
		_ = globalPool.instance.Close()
		globalPool = nil
	}

	instance, err := NewDatabase(ctx, config)
	if err != nil {
		return nil, err
	}
	globalPool = &DatabasePool{
		instance: instance,
		config:   config,
		lastUsed: time.Now(),
	}
	return instance, nil
}

// shouldRecreateConnection 判断是否需要重新创建连接
func shouldRecreateConnection(ctx context.Context, pool *DatabasePool, newConfig DatabaseConfig) bool {
	if pool == nil || pool.instance == nil {
		return true
	}
	logger := zerolog.Ctx(ctx)

	// 检查配置是否发生变化
	if pool.config != newConfig {
		logger.Info().Msg("database configuration changed, recreating connection")
		return true
	}

	pool.mu.RLock()
	expired := time.Since(pool.lastUsed) > poolMaxIdle
	pool.mu.RUnlock()
	if expired {
		logger.Info().Msg("database connection expired, recreating")
		return true
	}

	// 检查连接健康状态
	if err := pool.instance.HealthCheck(ctx); err != nil {
		logger.Warn().Err(err).Msg("database health check failed, recreating")
		return true
	}

	return false
}

// CloseDatabase 关闭缓存的连接（进程退出时调用）
func CloseDatabase() error {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return nil
	}
	err := globalPool.instance.Close()
	globalPool = nil
	return err
}

// GetConnectionStats 获取连接池统计信息
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":    "no_connection",
			"last_used": nil,
		}
	}

	globalPool.mu.RLock()
	lastUsed := globalPool.lastUsed
	globalPool.mu.RUnlock()

	return map[string]interface{}{
		"status":    "connected",
		"last_used": lastUsed.Format(time.RFC3339),
		"age":       time.Since(lastUsed).String(),
		"config": map[string]interface{}{
			"use_local_db": globalPool.config.UseLocalDB,
			"has_postgres": globalPool.config.PostgresDSN != "",
			"has_supabase": globalPool.config.SupabaseURL != "",
		},
	}
}
