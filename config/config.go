package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/korjavin/genrequizbot/quiz"
)

// Config holds all the configuration for the application
type Config struct {
	BotToken         string
	DeepseekAPIKey   string
	DatabasePath     string
	CatalogSource    string
	CatalogTimeout   time.Duration
	ExplanationDelay time.Duration
	ShuffleQuestions bool
	LogFile          string
	Debug            bool
}

// Load loads the configuration from environment variables, reading a .env file first when present
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	cfg := &Config{
		BotToken:         os.Getenv("BOT_TOKEN"),
		DeepseekAPIKey:   os.Getenv("DEEPSEEK_API_KEY"),
		DatabasePath:     getEnv("DB_PATH", "./data/genrequiz.db"),
		CatalogSource:    getEnv("CATALOG_SOURCE", "assets/quiz_data.json"),
		CatalogTimeout:   time.Duration(getEnvInt("CATALOG_TIMEOUT_SECONDS", 10)) * time.Second,
		ExplanationDelay: time.Duration(getEnvInt("EXPLANATION_DELAY_MS", int(quiz.DefaultExplanationDelay/time.Millisecond))) * time.Millisecond,
		ShuffleQuestions: getEnvBool("SHUFFLE_QUESTIONS", false),
		LogFile:          os.Getenv("LOG_FILE"),
		Debug:            getEnvBool("DEBUG", false),
	}
	return cfg, nil
}

// Validate checks the settings needed to run the bot
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN environment variable is required")
	}
	if c.CatalogTimeout <= 0 {
		return errors.New("CATALOG_TIMEOUT_SECONDS must be positive")
	}
	if c.ExplanationDelay < 0 {
		return errors.New("EXPLANATION_DELAY_MS must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}
