package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	common "github.com/uma-arai/reservasabores/internal/common/config"
)

// Config はAPIサーバーの設定です
type Config struct {
	*common.Config

	Port string
	JWT  struct {
		Secret string
		Expiry time.Duration
	}
	CORSOrigins []string
	MQ          struct {
		URL        string
		Exchange   string
		MaxRetries int
	}
}

// Load はAPIサーバーの設定を読み込みます
func Load() (*Config, error) {
	base, err := common.LoadConfig("")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Config: base,
		Port:   common.GetEnvOrDefault("API_PORT", "8080"),
	}

	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	if cfg.JWT.Secret == "" {
		if os.Getenv("ENV") != "LOCAL" {
			return nil, errors.New("JWT_SECRET is required")
		}
		cfg.JWT.Secret = "local-development-secret"
	}
	cfg.JWT.Expiry = time.Duration(common.GetEnvAsIntOrDefault("JWT_EXPIRY_MINUTES", 1440)) * time.Minute

	cfg.CORSOrigins = splitList(common.GetEnvOrDefault("CORS_ORIGINS", "*"))

	cfg.MQ.URL = os.Getenv("MQ_URL")
	cfg.MQ.Exchange = common.GetEnvOrDefault("MQ_EXCHANGE", "reservation_topic")
	cfg.MQ.MaxRetries = common.GetEnvAsIntOrDefault("MQ_MAX_RETRIES", 5)

	return cfg, nil
}

// Addr はechoのStartに渡すアドレスを返します
func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

func splitList(s string) []string {
	var list []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list
}

// AdminName は起動時に作成する管理者の表示名です
func AdminName() string {
	return common.GetEnvOrDefault("ADMIN_NAME", "Administrador")
}
