package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the single immutable configuration snapshot for the process.
// It is loaded once in main and passed down explicitly; nothing below main
// reads the environment directly.
type Config struct {
	HTTPAddr       string
	LogLevel       string
	RequestTimeout time.Duration

	LLM LLMConfig

	DefaultKLimit      int
	TurnBudget         time.Duration
	SearchMinResults   int
	BackendConcurrency int

	SessionTTL      time.Duration
	SessionStoreURL string

	LaptopsDBURL  string
	BooksDBURL    string
	VehiclesDBURL string

	CartServiceURL     string
	ResearchServiceURL string
}

// LLMConfig groups the knobs that parameterize every StructuredCompletion call.
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	ReasoningEffort string
}

// Load reads the process environment into a Config. It is called exactly
// once, from main.
func Load() (Config, error) {
	var cfg Config

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	reqTimeout, err := parseDuration(getEnv("HTTP_CLIENT_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_CLIENT_TIMEOUT: %w", err)
	}
	cfg.RequestTimeout = reqTimeout

	cfg.LLM = LLMConfig{
		APIKey:          getEnv("LLM_API_KEY", ""),
		BaseURL:         getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		Model:           getEnv("LLM_MODEL", ""),
		ReasoningEffort: getEnv("LLM_REASONING_EFFORT", "medium"),
	}
	switch cfg.LLM.ReasoningEffort {
	case "low", "medium", "high":
	default:
		return Config{}, fmt.Errorf("invalid LLM_REASONING_EFFORT: %s", cfg.LLM.ReasoningEffort)
	}

	kLimit, err := parseInt(getEnv("DEFAULT_K_LIMIT", "3"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DEFAULT_K_LIMIT: %w", err)
	}
	cfg.DefaultKLimit = kLimit

	turnBudgetMS, err := parseInt(getEnv("TURN_BUDGET_MS", "30000"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TURN_BUDGET_MS: %w", err)
	}
	cfg.TurnBudget = time.Duration(turnBudgetMS) * time.Millisecond

	minResults, err := parseInt(getEnv("SEARCH_MIN_RESULTS", "9"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SEARCH_MIN_RESULTS: %w", err)
	}
	cfg.SearchMinResults = minResults

	concurrency, err := parseInt(getEnv("SEARCH_BACKEND_CONCURRENCY", "8"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SEARCH_BACKEND_CONCURRENCY: %w", err)
	}
	cfg.BackendConcurrency = concurrency

	sessionTTL, err := parseDuration(getEnv("SESSION_TTL", "2h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = sessionTTL
	cfg.SessionStoreURL = getEnv("SESSION_STORE_URL", "")

	cfg.LaptopsDBURL = getEnv("LAPTOPS_DB_URL", "")
	cfg.BooksDBURL = getEnv("BOOKS_DB_URL", "")
	cfg.VehiclesDBURL = getEnv("VEHICLES_DB_URL", "")

	cfg.CartServiceURL = getEnv("CART_SERVICE_URL", "")
	cfg.ResearchServiceURL = getEnv("RESEARCH_SERVICE_URL", "")

	return cfg, nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("duration is empty")
	}
	return time.ParseDuration(value)
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("int is empty")
	}
	return strconv.Atoi(value)
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}
