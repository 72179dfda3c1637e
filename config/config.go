package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"perpbot/internal/model"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Symbols and timeframes
	Symbols       string // comma-separated, e.g. "BTCUSDT,ETHUSDT"
	ConfirmTF     string // confirmation metrics timeframe
	TriggerTF     string // entry trigger timeframe
	CandleLimit   int
	CycleInterval int // seconds between cycles

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	PositionsDB   string
	JournalDB     string
	ThresholdFile string
	MetricsAddr   string
	APIAddr       string
	BinanceREST   string
	BinanceWS     string

	// Trading
	DryRun           bool
	MaxOpenPositions int
	Concurrency      int
	CycleTimeoutS    int

	// Per-regime sizing. Fallbacks apply to regimes not listed.
	BudgetUSD      float64
	MaxLeverage    float64
	RegimeBudget   map[model.Regime]float64
	RegimeLeverage map[model.Regime]float64

	// Integrations
	TelegramToken  string
	TelegramChatID string
	TOTPSecret     string // guards the manual trigger endpoints
}

// Load reads configuration from the environment, sourcing .env first when
// present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	cfg := &Config{
		Symbols:       getEnv("SYMBOLS", "BTCUSDT,ETHUSDT,SOLUSDT"),
		ConfirmTF:     getEnv("CONFIRM_TF", "30m"),
		TriggerTF:     getEnv("TRIGGER_TF", "1h"),
		CandleLimit:   getEnvInt("CANDLE_LIMIT", 300),
		CycleInterval: getEnvInt("CYCLE_INTERVAL_S", 10),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		PositionsDB:   getEnv("POSITIONS_DB", "data/positions.db"),
		JournalDB:     getEnv("JOURNAL_DB", "data/trades.db"),
		ThresholdFile: getEnv("THRESHOLD_FILE", "data/thresholds.json"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		APIAddr:       getEnv("API_ADDR", ":8080"),
		BinanceREST:   getEnv("BINANCE_REST", ""),
		BinanceWS:     getEnv("BINANCE_WS", ""),

		DryRun:           getEnvBool("DRY_RUN", true),
		MaxOpenPositions: getEnvInt("MAX_OPEN_POSITIONS", 10),
		Concurrency:      getEnvInt("CONCURRENCY", 4),
		CycleTimeoutS:    getEnvInt("CYCLE_TIMEOUT_S", 120),

		BudgetUSD:   getEnvFloat("BUDGET_USD", 5),
		MaxLeverage: getEnvFloat("MAX_LEVERAGE", 100),

		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		TOTPSecret:     getEnv("API_TOTP_SECRET", ""),
	}

	cfg.RegimeBudget = parseRegimeMap(getEnv("REGIME_BUDGET", ""))
	cfg.RegimeLeverage = parseRegimeMap(getEnv("REGIME_LEVERAGE", ""))
	return cfg
}

// ParseSymbols splits the configured symbol list.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BudgetFor returns the USD budget for a regime.
func (c *Config) BudgetFor(regime model.Regime) float64 {
	if v, ok := c.RegimeBudget[regime]; ok {
		return v
	}
	return c.BudgetUSD
}

// LeverageFor returns the leverage cap for a regime.
func (c *Config) LeverageFor(regime model.Regime) float64 {
	if v, ok := c.RegimeLeverage[regime]; ok {
		return v
	}
	return c.MaxLeverage
}

// parseRegimeMap parses "bullish=10,bearish=5" style overrides.
func parseRegimeMap(raw string) map[model.Regime]float64 {
	out := make(map[model.Regime]float64)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			log.Printf("[config] skipping invalid regime override: %q", pair)
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil || v <= 0 {
			log.Printf("[config] skipping invalid regime override: %q", pair)
			continue
		}
		out[model.Regime(strings.TrimSpace(kv[0]))] = v
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}
