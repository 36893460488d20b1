package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENVIRONMENT", "development")

	cfg := LoadConfig()

	assert.Equal(t, "3000", cfg.Port)
	assert.True(t, cfg.UseLocalDB)
	assert.Equal(t, "./data/planner.db", cfg.LocalDBPath)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 25*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.OptimisticUpdates)
	assert.Empty(t, cfg.AppURL)
	assert.Equal(t, "local", cfg.StoreKind())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigSupabase(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SUPABASE_URL", "https://demo.supabase.co ")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DEBUG", "true")
	t.Setenv("APP_URL", "https://planner.example/")

	cfg := LoadConfig()

	assert.Equal(t, "https://demo.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "https://planner.example", cfg.AppURL)
	assert.False(t, cfg.UseLocalDB)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "supabase", cfg.StoreKind())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Environment: "development", Port: "3000", UseLocalDB: true, LocalDBPath: "x.db", JWTSecret: "s", RequestTimeout: time.Second}
	}

	cfg := base()
	cfg.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.UseLocalDB = false
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.UseLocalDB = false
	cfg.SupabaseURL = "https://demo.supabase.co"
	cfg.SupabaseAnonKey = "anon"
	assert.ErrorContains(t, cfg.Validate(), "SUPABASE_JWT_SECRET")

	cfg = base()
	cfg.Environment = "production"
	cfg.JWTSecret = defaultJWTSecret
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	assert.NoError(t, base().Validate())
}

// chdir mirrors testing.T.Chdir (Go 1.24+): it changes the working directory
// for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
