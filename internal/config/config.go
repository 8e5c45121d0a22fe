package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the portal client
type Config struct {
	AppMode   string
	API       APIConfig
	Poll      PollConfig
	TokenFile string
}

// APIConfig holds backend API configuration
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PollConfig holds polling intervals for background refresh
type PollConfig struct {
	Messages  time.Duration
	Documents time.Duration
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:   appMode,
		API:       loadAPIConfig(appMode),
		Poll:      loadPollConfig(),
		TokenFile: getEnv("TOKEN_FILE", defaultTokenFile()),
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadAPIConfig loads backend API config based on mode
func loadAPIConfig(mode string) APIConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	timeoutSecs, _ := strconv.Atoi(getEnv("HTTP_TIMEOUT_SECONDS", "10"))
	if timeoutSecs < 1 {
		timeoutSecs = 10
	}

	return APIConfig{
		BaseURL: strings.TrimRight(getEnv(prefix+"API_BASE_URL", "http://localhost:3000/api/v1"), "/"),
		Timeout: time.Duration(timeoutSecs) * time.Second,
	}
}

// loadPollConfig loads polling intervals
func loadPollConfig() PollConfig {
	messagesSecs, _ := strconv.Atoi(getEnv("POLL_MESSAGES_SECONDS", "5"))
	if messagesSecs < 1 {
		messagesSecs = 5
	}
	documentsSecs, _ := strconv.Atoi(getEnv("POLL_DOCUMENTS_SECONDS", "30"))
	if documentsSecs < 1 {
		documentsSecs = 30
	}

	return PollConfig{
		Messages:  time.Duration(messagesSecs) * time.Second,
		Documents: time.Duration(documentsSecs) * time.Second,
	}
}

// defaultTokenFile returns the default token location in the user home dir
func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fingate_token"
	}
	return home + "/.fingate_token"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}
