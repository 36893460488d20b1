package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string

	// 数据库配置
	UseLocalDB         bool
	LocalDBPath        string
	PostgresDSN        string
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// JWT配置
	// SupabaseJWTSecret verifies tokens issued by the hosted auth service;
	// JWTSecret signs and verifies tokens issued in local mode.
	SupabaseJWTSecret string
	JWTSecret         string

	// CORS配置
	AllowedOrigins []string

	// AppURL is the web app origin that email links and auth redirects
	// point at. Empty keeps redirects relative.
	AppURL string

	// 超时与缓存
	RequestTimeout       time.Duration
	WorkspaceIdleTimeout time.Duration

	// OptimisticUpdates applies idea edits before the store confirms them
	// and rolls them back on failure.
	OptimisticUpdates bool

	// 日志配置
	LogLevel string
	LogFile  string

	// 调试配置
	Debug bool
}

const defaultJWTSecret = "your-secret-key-change-in-production"

// LoadConfig 加载配置（支持 .env 文件、config.yaml 与环境变量）
func LoadConfig() *Config {
	// 根据环境加载对应的 .env 文件
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development" // 默认开发环境
	}

	// godotenv 不会覆盖已存在的环境变量
	switch env {
	case "production":
		_ = godotenv.Load(".env.production")
	default:
		_ = godotenv.Load(".env.local")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "WARNING: failed to read config file: %v\n", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("port", "3000")
	v.SetDefault("use_local_db", true)
	v.SetDefault("local_db_path", "./data/planner.db")
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("request_timeout", 25*time.Second)
	v.SetDefault("workspace_idle_timeout", 10*time.Minute)
	v.SetDefault("optimistic_updates", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("debug", false)
}

func fromViper(v *viper.Viper) *Config {
	config := &Config{
		Environment:          v.GetString("environment"),
		Port:                 v.GetString("port"),
		UseLocalDB:           v.GetBool("use_local_db"),
		LocalDBPath:          strings.TrimSpace(v.GetString("local_db_path")),
		JWTSecret:            v.GetString("jwt_secret"),
		RequestTimeout:       v.GetDuration("request_timeout"),
		WorkspaceIdleTimeout: v.GetDuration("workspace_idle_timeout"),
		OptimisticUpdates:    v.GetBool("optimistic_updates"),
		LogLevel:             v.GetString("log_level"),
		LogFile:              strings.TrimSpace(v.GetString("log_file")),
		Debug:                v.GetBool("debug"),
	}

	// 数据库配置
	// Trim whitespace to avoid trailing spaces/newlines from env sources
	config.PostgresDSN = strings.TrimSpace(v.GetString("postgres_dsn"))
	config.SupabaseURL = strings.TrimSpace(v.GetString("supabase_url"))
	config.SupabaseAnonKey = strings.TrimSpace(v.GetString("supabase_anon_key"))
	config.SupabaseServiceKey = strings.TrimSpace(v.GetString("supabase_service_key"))
	config.SupabaseJWTSecret = strings.TrimSpace(v.GetString("supabase_jwt_secret"))

	config.AppURL = strings.TrimRight(strings.TrimSpace(v.GetString("app_url")), "/")

	// CORS配置
	allowedOrigins := strings.TrimSpace(v.GetString("allowed_origins"))
	if allowedOrigins == "*" || allowedOrigins == "" {
		config.AllowedOrigins = []string{"*"}
	} else {
		for _, origin := range strings.Split(allowedOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, origin)
			}
		}
	}

	// 配置了外部数据库时不使用本地数据库
	if config.PostgresDSN != "" || config.UsesSupabase() {
		config.UseLocalDB = false
	}

	// 环境特定配置
	if config.IsProduction() {
		if config.UseLocalDB {
			fmt.Fprintln(os.Stderr, "WARNING: Production environment using local file database. Please configure POSTGRES_DSN or SUPABASE_URL+SUPABASE_ANON_KEY")
		}
		// 生产环境关闭调试
		config.Debug = false
	}

	return config
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless platforms it initializes once per cold start and
// is reused across warm invocations.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate 验证配置
func (c *Config) Validate() error {
	// 验证端口
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// 验证JWT密钥
	if c.UsesSupabase() {
		if c.SupabaseJWTSecret == "" {
			return fmt.Errorf("SUPABASE_JWT_SECRET is required when SUPABASE_URL is set")
		}
	} else if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	// 验证数据库配置
	switch {
	case c.UseLocalDB:
		if c.LocalDBPath == "" {
			return fmt.Errorf("LOCAL_DB_PATH is required when USE_LOCAL_DB is true")
		}
	case c.PostgresDSN != "":
	case c.UsesSupabase():
	default:
		return fmt.Errorf("incomplete database configuration: set POSTGRES_DSN or SUPABASE_URL+SUPABASE_ANON_KEY")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	return nil
}

// UsesSupabase reports whether the hosted backend is configured.
func (c *Config) UsesSupabase() bool {
	return c.SupabaseURL != "" && (c.SupabaseAnonKey != "" || c.SupabaseServiceKey != "")
}

// StoreKind names the configured store: "supabase", "postgresql" or "local".
func (c *Config) StoreKind() string {
	switch {
	case c.UseLocalDB:
		return "local"
	case c.PostgresDSN != "":
		return "postgresql"
	case c.UsesSupabase():
		return "supabase"
	}
	return "unknown"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
