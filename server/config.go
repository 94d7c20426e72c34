package server

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 进程配置：先读 .env（若存在），再读环境变量，
// main 中还可用 flag 覆盖关键项
type Config struct {
	Addr           string
	DirectoryURL   string
	JWTSecret      string
	LogFile        string
	Debug          bool
	AllowAnonymous bool

	// 目录响应缺省时的空间参数与默认出生点
	SpaceWidth  int
	SpaceHeight int
	SpawnX      int
	SpawnY      int

	ReaperInterval time.Duration
}

// LoadConfig 加载配置；.env 是可选的，容器环境通常直接注入变量
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:           ":8080",
		DirectoryURL:   "http://localhost:3000/api/v1",
		LogFile:        "app.log",
		SpaceWidth:     100,
		SpaceHeight:    100,
		ReaperInterval: 30 * time.Second,
	}

	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("DIRECTORY_URL"); v != "" {
		cfg.DirectoryURL = v
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	cfg.Debug = envBool("DEBUG")
	cfg.AllowAnonymous = envBool("ALLOW_ANONYMOUS")
	if v := envInt("SPACE_WIDTH"); v > 0 {
		cfg.SpaceWidth = v
	}
	if v := envInt("SPACE_HEIGHT"); v > 0 {
		cfg.SpaceHeight = v
	}
	cfg.SpawnX = envInt("SPAWN_X")
	cfg.SpawnY = envInt("SPAWN_Y")
	if v := os.Getenv("REAPER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ReaperInterval = d
		}
	}
	return cfg
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "1" || strings.EqualFold(v, "true")
}

func envInt(key string) int {
	n, _ := strconv.Atoi(os.Getenv(key))
	return n
}
