package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database config
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string // SQLite database file path

	// Auth config
	JWTSecret      string
	JWTExpiryHours int

	// App config
	Environment string

	// Payment config
	RazorpayKey    string
	RazorpaySecret string

	// Push notification config
	PushEndpoint string

	// View-as session config
	ViewAsTTLHours     int
	ViewAsSweepMinutes int
}

var AppConfig Config

// InitConfig initializes the application configuration
func InitConfig() {
	AppConfig = Config{
		DBDriver:           getEnv("DB_DRIVER", "postgres"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "aquacare"),
		DBPath:             getEnv("DB_PATH", "./aquacare.db"),
		JWTSecret:          getEnv("JWT_SECRET", "aquacare_default_secret_key"),
		JWTExpiryHours:     getEnvAsInt("JWT_EXPIRY_HOURS", 24),
		Environment:        getEnv("ENVIRONMENT", "development"),
		RazorpayKey:        getEnv("RAZORPAY_KEY", ""),
		RazorpaySecret:     getEnv("RAZORPAY_SECRET", ""),
		PushEndpoint:       getEnv("PUSH_ENDPOINT", "https://exp.host/--/api/v2/push/send"),
		ViewAsTTLHours:     getEnvAsInt("VIEW_AS_TTL_HOURS", 2),
		ViewAsSweepMinutes: getEnvAsInt("VIEW_AS_SWEEP_MINUTES", 30),
	}
}

// Helper function to get environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get integer environment variable with fallback
func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// GetJWTExpiration returns JWT expiration time
func GetJWTExpiration() time.Duration {
	return time.Duration(AppConfig.JWTExpiryHours) * time.Hour
}

// ViewAsTTL returns how long an admin view-as session stays valid
func ViewAsTTL() time.Duration {
	return time.Duration(AppConfig.ViewAsTTLHours) * time.Hour
}

// ViewAsSweepInterval returns how often expired view-as sessions are purged
func ViewAsSweepInterval() time.Duration {
	return time.Duration(AppConfig.ViewAsSweepMinutes) * time.Minute
}

// IsDevelopment returns true if the application is running in development mode
func IsDevelopment() bool {
	return AppConfig.Environment == "development"
}
