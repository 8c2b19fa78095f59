package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/andresmejia3/goober/internal/logger"
	"github.com/joho/godotenv"
)

type Config struct {
	API      APIConfig
	Camera   CameraConfig
	Preview  PreviewConfig
	Database DatabaseConfig
	App      AppConfig
}

type APIConfig struct {
	URL            string
	RequestTimeout time.Duration
	DetectInterval time.Duration
}

type CameraConfig struct {
	Device string
	Format string
	FPS    int
	Size   string
}

type PreviewConfig struct {
	Addr string
}

type DatabaseConfig struct {
	// URL wins over the POSTGRES_* parts when set.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type AppConfig struct {
	LogLevel string
	NoColor  bool
}

// Load reads .env (when present) then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := &Config{
		API: APIConfig{
			URL:            getEnv("GOOBER_API_URL", "http://localhost:3000"),
			RequestTimeout: getEnvAsDuration("GOOBER_REQUEST_TIMEOUT", 10*time.Second),
			DetectInterval: getEnvAsDuration("GOOBER_DETECT_INTERVAL", time.Second),
		},
		Camera: CameraConfig{
			Device: getEnv("GOOBER_CAMERA_DEVICE", "/dev/video0"),
			Format: getEnv("GOOBER_CAMERA_FORMAT", ""),
			FPS:    getEnvAsInt("GOOBER_CAMERA_FPS", 15),
			Size:   getEnv("GOOBER_CAMERA_SIZE", "640x480"),
		},
		Preview: PreviewConfig{
			Addr: getEnv("GOOBER_PREVIEW_ADDR", ""),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("POSTGRES_HOST", ""),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", ""),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "goober"),
		},
		App: AppConfig{
			LogLevel: getEnv("LOG_LEVEL", "warn"),
			NoColor:  getEnv("NO_COLOR", "") != "",
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API URL %q: must be absolute, e.g. http://localhost:3000", c.API.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API URL %q: scheme must be http or https", c.API.URL)
	}
	if c.API.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", c.API.RequestTimeout)
	}
	if c.API.DetectInterval <= 0 {
		return fmt.Errorf("detection interval must be positive, got %v", c.API.DetectInterval)
	}
	if c.Camera.FPS < 0 {
		return fmt.Errorf("camera fps must not be negative, got %d", c.Camera.FPS)
	}
	if _, err := logger.ParseLevel(c.App.LogLevel); err != nil {
		return err
	}
	return nil
}

// DatabaseURL returns the journal connection string, or "" when no journal is configured.
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	if c.Database.Host == "" {
		return ""
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   c.Database.Host + ":" + strconv.Itoa(c.Database.Port),
		Path:   "/" + c.Database.Name,
	}
	if c.Database.User != "" {
		if c.Database.Password != "" {
			u.User = url.UserPassword(c.Database.User, c.Database.Password)
		} else {
			u.User = url.User(c.Database.User)
		}
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Warn("Config", "invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Warn("Config", "invalid duration for %s, using default: %v", key, defaultValue)
		return defaultValue
	}
	return value
}
