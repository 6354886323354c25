package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"chat-screen-monitor/screenshot"
)

// Config holds process-level settings loaded from the environment.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	ClassifyModel     string
	Backend           string // "openai" or "ollama"
	EnableFileLogging bool
	DataDir           string
	ScreenshotDir     string
	SheetDir          string
}

// Load reads configuration from .env and the environment.
func Load() (*Config, error) {
	// Try to load .env from the working directory or the executable's directory.
	envPaths := []string{".env"}
	if execPath, err := os.Executable(); err == nil {
		envPaths = append(envPaths, filepath.Join(filepath.Dir(execPath), ".env"))
	}
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			godotenv.Load(envPath)
			break
		}
	}

	cfg := &Config{
		APIKey:            os.Getenv("API_KEY"),
		BaseURL:           getEnvWithDefault("BASE_URL", "http://localhost:1234/v1"),
		Model:             getEnvWithDefault("MODEL", "allenai/olmocr-2-7b"),
		ClassifyModel:     os.Getenv("CLASSIFY_MODEL"),
		Backend:           getEnvWithDefault("BACKEND", "openai"),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		DataDir:           getEnvWithDefault("DATA_DIR", "data"),
		ScreenshotDir:     getEnvWithDefault("SCREENSHOT_DIR", "screenshots"),
		SheetDir:          getEnvWithDefault("SHEET_DIR", "excel"),
	}
	if cfg.ClassifyModel == "" {
		cfg.ClassifyModel = cfg.Model
	}
	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Email holds SMTP settings for negative-sentiment alerts.
type Email struct {
	Enabled  bool     `json:"enabled"`
	SMTPHost string   `json:"smtpHost"`
	SMTPPort int      `json:"smtpPort"`
	SMTPUser string   `json:"smtpUser"`
	SMTPPass string   `json:"smtpPass"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

// Configured reports whether the transport settings are complete enough to
// attempt a send.
func (e Email) Configured() bool {
	return e.SMTPHost != "" && len(e.To) > 0
}

// Monitor is the per-session configuration. It is immutable once a session
// starts; changes apply only between sessions.
type Monitor struct {
	IntervalSeconds int               `json:"interval"`
	Area            screenshot.Region `json:"area"`
	AlertKeywords   []string          `json:"alertKeywords"`
	Email           Email             `json:"email"`
}

// Validate checks the session config before monitoring starts.
func (m Monitor) Validate() error {
	if m.IntervalSeconds < 1 {
		return fmt.Errorf("interval must be at least 1 second, got %d", m.IntervalSeconds)
	}
	if !m.Area.Valid() {
		return fmt.Errorf("invalid capture area: width=%d, height=%d", m.Area.Width, m.Area.Height)
	}
	return nil
}

// MonitorFromEnv builds a session config from environment variables, used by
// the CLI entrypoint when no UI supplies one.
func MonitorFromEnv() Monitor {
	m := Monitor{
		IntervalSeconds: envInt("MONITOR_INTERVAL", 30),
		Area: screenshot.Region{
			X:      envInt("MONITOR_X", 0),
			Y:      envInt("MONITOR_Y", 0),
			Width:  envInt("MONITOR_WIDTH", 0),
			Height: envInt("MONITOR_HEIGHT", 0),
		},
		Email: Email{
			Enabled:  strings.ToLower(os.Getenv("EMAIL_ENABLED")) == "true",
			SMTPHost: os.Getenv("SMTP_HOST"),
			SMTPPort: envInt("SMTP_PORT", 465),
			SMTPUser: os.Getenv("SMTP_USER"),
			SMTPPass: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("EMAIL_FROM"),
		},
	}
	if kw := os.Getenv("ALERT_KEYWORDS"); kw != "" {
		for _, k := range strings.Split(kw, ",") {
			if trimmed := strings.TrimSpace(k); trimmed != "" {
				m.AlertKeywords = append(m.AlertKeywords, trimmed)
			}
		}
	}
	if to := os.Getenv("EMAIL_TO"); to != "" {
		for _, addr := range strings.Split(to, ",") {
			if trimmed := strings.TrimSpace(addr); trimmed != "" {
				m.Email.To = append(m.Email.To, trimmed)
			}
		}
	}
	return m
}

func envInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
