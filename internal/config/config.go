package config

import (
	"os"
	"strconv"
	"time"

	"github.com/debdutta777/noobwriter-sub000/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Tipping
	MinTipAmount     int64
	MaxTipAmount     int64
	MaxTipsPerMinute int
	TipRateWindow    time.Duration

	// Author revenue share for tips and chapter unlocks (percent of coins
	// that reach the author; the remainder is the platform margin).
	AuthorSharePercent int64

	// Payout (self-service coins -> INR)
	PayoutMinCoins   int64
	PayoutBlockCoins int64
	PayoutBlockINR   float64

	// Exchange (admin-mediated coins -> INR)
	ExchangeMinCoins   int64
	ExchangeBlockCoins int64
	ExchangeBlockINR   float64

	// Coins granted when a wallet is first created.
	WelcomeCoins int64

	DevMode bool
}

// Load reads configuration from the environment (.env supported in dev).
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	cfg := &Config{
		AppPort:     port,
		DatabaseURL: dbURL,
		JWTSecret:   jwtSecret,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		MinTipAmount:     envInt64("MIN_TIP_AMOUNT", 10),
		MaxTipAmount:     envInt64("MAX_TIP_AMOUNT", 10000),
		MaxTipsPerMinute: int(envInt64("MAX_TIPS_PER_MINUTE", 10)),
		TipRateWindow:    time.Duration(envInt64("TIP_RATE_WINDOW_SECONDS", 60)) * time.Second,

		AuthorSharePercent: envInt64("AUTHOR_SHARE_PERCENT", 70),

		PayoutMinCoins:   envInt64("PAYOUT_MIN_COINS", 3000),
		PayoutBlockCoins: envInt64("PAYOUT_BLOCK_COINS", 300),
		PayoutBlockINR:   envFloat("PAYOUT_BLOCK_INR", 100),

		ExchangeMinCoins:   envInt64("EXCHANGE_MIN_COINS", 20000),
		ExchangeBlockCoins: envInt64("EXCHANGE_BLOCK_COINS", 2000),
		ExchangeBlockINR:   envFloat("EXCHANGE_BLOCK_INR", 1000),

		WelcomeCoins: envInt64("WELCOME_COINS", 50),

		DevMode: os.Getenv("DEV_MODE") == "true",
	}

	if cfg.AuthorSharePercent < 0 || cfg.AuthorSharePercent > 100 {
		logger.Fatal("AUTHOR_SHARE_PERCENT must be between 0 and 100")
	}

	return cfg
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}
