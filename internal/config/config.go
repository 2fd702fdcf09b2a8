package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBQueryTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string
}

// BootstrapConfig はスキーマブートストラップ用の設定を保持する。
// マスターDBへの接続文字列とスクリプトディレクトリはブートストラップ時のみ必須。
type BootstrapConfig struct {
	MasterDatabaseURL string
	DatabaseURL       string
	ScriptsDir        string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBQueryTimeout = getEnvDuration("DB_QUERY_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

// LoadBootstrap は環境変数からBootstrapConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func LoadBootstrap() (*BootstrapConfig, error) {
	cfg := &BootstrapConfig{}

	var missing []string

	cfg.MasterDatabaseURL = os.Getenv("MASTER_DATABASE_URL")
	if cfg.MasterDatabaseURL == "" {
		missing = append(missing, "MASTER_DATABASE_URL")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.ScriptsDir = os.Getenv("BOOTSTRAP_SCRIPTS_DIR")
	if cfg.ScriptsDir == "" {
		missing = append(missing, "BOOTSTRAP_SCRIPTS_DIR")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
