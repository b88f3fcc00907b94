package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/uma-arai/reservasabores/internal/common/database"
)

// DefaultTimezone はレストランの所在地のタイムゾーンです
const DefaultTimezone = "Europe/Madrid"

type Config struct {
	DB  database.Config
	SFN struct {
		TaskToken string
	}
	// Location は「今日」を判定するためのレストランのタイムゾーンです
	Location      *time.Location
	EnableTracing bool
}

// LoadConfig は設定を読み込みます
// カレントディレクトリに.envがあれば先に読み込みます（既存の環境変数は上書きしません）
func LoadConfig(taskToken string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	tz := getEnvOrDefault("RESTAURANT_TZ", DefaultTimezone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", tz, err)
	}

	cfg := &Config{
		DB: database.Config{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     GetEnvAsIntOrDefault("DB_PORT", 5432),
			UserName: getEnvOrDefault("DB_USERNAME", "reservas"),
			Password: getEnvOrDefault("DB_PASSWORD", "password"),
			DBName:   getEnvOrDefault("DB_NAME", "reservasabores"),
			SSLMode:  os.Getenv("DB_SSL_MODE"),
		},
		SFN: struct {
			TaskToken string
		}{
			TaskToken: taskToken,
		},
		Location:      loc,
		EnableTracing: false,
	}

	// 環境変数[SBCNTR_ENABLE_TRACING]を見てトレースを有効にする。対応しているTracingはAWS_XRAYのみ。
	// 環境変数[AWS_XRAY_SDK_DISABLED]がtrueの場合は必ずトレースを無効にする。
	enableKey := os.Getenv("SBCNTR_ENABLE_TRACING")
	if !sdkDisabled() && (strings.ToLower(enableKey) == "true" || enableKey == "1") {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "FALSE")
		cfg.EnableTracing = true
	} else {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "TRUE")
		cfg.EnableTracing = false
	}

	return cfg, nil
}

// LoadDotEnv はローカル開発用の.envファイルを読み込みます
func LoadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load .env: %w", err)
}

// GetEnvOrDefault は環境変数を取得し、未設定の場合は既定値を返します
func GetEnvOrDefault(key, defaultValue string) string {
	return getEnvOrDefault(key, defaultValue)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Printf("Environment variable %s is not set, using default value", key)
	return defaultValue
}

// GetEnvAsIntOrDefault は環境変数を整数として取得します
func GetEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Environment variable %s is not a number, using default value", key)
	}
	return defaultValue
}

// Check if SDK is disabled
func sdkDisabled() bool {
	disableKey := os.Getenv("AWS_XRAY_SDK_DISABLED")
	return strings.ToLower(disableKey) == "true"
}
