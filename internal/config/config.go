package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// StoreBackendSQLite 使用本地 SQLite 保存键值数据
	StoreBackendSQLite = "sqlite"
	// StoreBackendRedis 使用 Redis 保存键值数据
	StoreBackendRedis = "redis"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string
	Port          string
	DatabasePath  string
	SessionSecret string
	GinMode       string

	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	AIProvider      string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	DeepSeekAPIKey  string
	DeepSeekBaseURL string
	DeepSeekModel   string

	OpenFoodFactsBaseURL string

	LogFile     string
	LogLevel    string
	CORSOrigins []string
}

// Load 先尝试读取 .env（不存在时忽略），再从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	_ = godotenv.Load()

	port := env("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	backend := strings.ToLower(env("STORE_BACKEND", StoreBackendSQLite))
	if backend != StoreBackendRedis {
		backend = StoreBackendSQLite
	}

	redisDB, err := strconv.Atoi(env("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		redisDB = 0
	}

	return AppConfig{
		ListenAddr:    listenAddr,
		Port:          port,
		DatabasePath:  env("DATABASE_PATH", "data/macrolog.db"),
		SessionSecret: env("SESSION_SECRET", "macrolog-dev-secret"),
		GinMode:       env("GIN_MODE", "release"),

		StoreBackend:  backend,
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPassword: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:       redisDB,
		RedisPrefix:   env("REDIS_PREFIX", "macrolog:"),

		AIProvider:      strings.ToLower(env("AI_PROVIDER", "openai")),
		OpenAIAPIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:   env("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:     env("OPENAI_MODEL", "gpt-4o-mini"),
		DeepSeekAPIKey:  strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY")),
		DeepSeekBaseURL: env("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		DeepSeekModel:   env("DEEPSEEK_MODEL", "deepseek-chat"),

		OpenFoodFactsBaseURL: env("OPENFOODFACTS_BASE_URL", "https://world.openfoodfacts.org"),

		LogFile:     strings.TrimSpace(os.Getenv("LOG_FILE")),
		LogLevel:    strings.ToLower(env("LOG_LEVEL", "info")),
		CORSOrigins: splitList(env("CORS_ORIGINS", "http://localhost:3000")),
	}
}

func env(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
