package app

import (
	"time"

	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
	"github.com/yungbote/therapulse-backend/internal/utils"
)

type Config struct {
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	AllowedOrigins string

	AssemblyAIKey string
	RedisAddr     string
	RedisPassword string

	ChartFontPath string
	ChatRulesPath string

	RunWorker bool
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	return Config{
		JWTSecretKey:    jwtSecretKey,
		AccessTokenTTL:  time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL: time.Duration(refreshTokenTTLSeconds) * time.Second,
		AllowedOrigins:  utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log),
		AssemblyAIKey:   utils.GetEnv("ASSEMBLYAI_API_KEY", "", log),
		RedisAddr:       utils.GetEnv("REDIS_ADDR", "", log),
		RedisPassword:   utils.GetEnv("REDIS_PASSWORD", "", log),
		ChartFontPath:   utils.GetEnv("CHART_FONT", "", log),
		ChatRulesPath:   utils.GetEnv("CHAT_RULES_PATH", "", log),
		RunWorker:       utils.GetEnvAsInt("RUN_JOB_WORKER", 1, log) != 0,
	}
}
