package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort  int `yaml:"apiPort"`
	Database struct {
		Type            string `yaml:"type"`
		Path            string `yaml:"path"`
		Host            string `yaml:"host"`
		Port            string `yaml:"port"`
		User            string `yaml:"user"`
		Password        string `yaml:"password"`
		Name            string `yaml:"name"`
		SSLMode         string `yaml:"sslMode"`
		MaxConns        int    `yaml:"maxConns"`
		MaxIdle         int    `yaml:"maxIdle"`
		ConnMaxLifetime string `yaml:"connMaxLifetime"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret     string        `yaml:"jwtSecret"`
		TokenTTL      time.Duration `yaml:"tokenTTL"`
		ResetTokenTTL time.Duration `yaml:"resetTokenTTL"`
	} `yaml:"auth"`
	Media struct {
		Enabled         bool   `yaml:"enabled"`
		Endpoint        string `yaml:"endpoint"`
		Region          string `yaml:"region"`
		Bucket          string `yaml:"bucket"`
		AccessKeyID     string `yaml:"accessKeyId"`
		SecretAccessKey string `yaml:"secretAccessKey"`
	} `yaml:"media"`
	Mail struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"mail"`
	Avatar struct {
		DefaultPublicID string `yaml:"defaultPublicId"`
		DefaultURL      string `yaml:"defaultUrl"`
	} `yaml:"avatar"`
	FrontendBaseURL string `yaml:"frontendBaseUrl"`
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SHOPIT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		log.Printf("Warning: Could not read config file: %s. Using defaults or environment variables.", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 4001
		log.Println("APIPort not specified, using default 4001")
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
		log.Println("Database type not specified, using default sqlite")
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "shopit.db"
		log.Println("Database path not specified, using default shopit.db")
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-me"
		log.Println("Warning: auth.jwtSecret not specified, using insecure development default")
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Auth.ResetTokenTTL == 0 {
		cfg.Auth.ResetTokenTTL = 30 * time.Minute
	}

	if cfg.Avatar.DefaultPublicID == "" {
		cfg.Avatar.DefaultPublicID = "default_avatar"
	}
	if cfg.Avatar.DefaultURL == "" {
		cfg.Avatar.DefaultURL = "/images/default_avatar.jpg"
	}

	if cfg.FrontendBaseURL == "" {
		cfg.FrontendBaseURL = "http://localhost:5173"
		log.Println("frontendBaseUrl not specified, using default http://localhost:5173")
	}

	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = "noreply@shopit.io"
	}

	log.Printf("Configuration loaded: apiPort=%d database=%s media.enabled=%v mail.enabled=%v",
		cfg.APIPort, cfg.Database.Type, cfg.Media.Enabled, cfg.Mail.Enabled)
	return &cfg, nil
}
