package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                   string
	DatabaseURL            string // empty selects the in-memory store
	BaseURL                string // Backend base URL, prefix of every short URL
	FrontendURL            string // Frontend base URL (for QR codes)
	RedisURL               string // empty disables the link cache
	JWTSecret              string // Secret key for JWT token signing
	JWTTTL                 int    // JWT token expiration time in hours
	CodeLength             int    // Length of generated short codes, at most 32
	CodeMaxAttempts        int    // Upper bound on code allocation attempts
	BcryptCost             int
	GeoIPDBPath            string // Optional GeoLite2-City database for direct redirects
	VisitAsync             bool   // Record visits off the redirect path
	VisitBufferSize        int
	LogLevel               string
	LogPretty              bool
	RateLimitRPS           float64 // Rate limit for general API endpoints (requests per second)
	RateLimitBurst         int     // Burst size for rate limiting
	RateLimitShortenRPS    float64 // Rate limit for link creation (stricter)
	RateLimitShortenBurst  int
	RateLimitRedirectRPS   float64 // Rate limit for redirects (lenient)
	RateLimitRedirectBurst int
}

func Load() *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		BaseURL:                getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:            getEnv("FRONTEND_URL", "http://localhost:8080"),
		RedisURL:               getEnv("REDIS_URL", ""),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		JWTTTL:                 getEnvInt("JWT_TTL_HOURS", 24),
		CodeLength:             getEnvInt("CODE_LENGTH", 6),
		CodeMaxAttempts:        getEnvInt("CODE_MAX_ATTEMPTS", 16),
		BcryptCost:             getEnvInt("BCRYPT_COST", 10),
		GeoIPDBPath:            getEnv("GEOIP_DB_PATH", ""),
		VisitAsync:             getEnvBool("VISIT_ASYNC", false),
		VisitBufferSize:        getEnvInt("VISIT_BUFFER_SIZE", 1000),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogPretty:              getEnvBool("LOG_PRETTY", true),
		RateLimitRPS:           getEnvFloat("RATE_LIMIT_RPS", 10),         // 10 requests per second for general API
		RateLimitBurst:         getEnvInt("RATE_LIMIT_BURST", 20),         // Allow bursts of 20
		RateLimitShortenRPS:    getEnvFloat("RATE_LIMIT_SHORTEN_RPS", 2),  // 2 requests per second for link creation
		RateLimitShortenBurst:  getEnvInt("RATE_LIMIT_SHORTEN_BURST", 5),  // Allow bursts of 5
		RateLimitRedirectRPS:   getEnvFloat("RATE_LIMIT_REDIRECT_RPS", 30), // More lenient for redirects
		RateLimitRedirectBurst: getEnvInt("RATE_LIMIT_REDIRECT_BURST", 60),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
