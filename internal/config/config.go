package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// AMQP change feed; disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string

	// Ledger
	BudgetsFile string
	TrendMonths int
	RecentLimit int
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/gastos.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gastos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		BudgetsFile: getEnv("BUDGETS_FILE", ""),
		TrendMonths: getEnvInt("TREND_MONTHS", 6),
		RecentLimit: getEnvInt("RECENT_LIMIT", 5),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.BudgetsFile != "" {
		if _, err := os.Stat(c.BudgetsFile); err != nil {
			errors = append(errors, fmt.Sprintf("budgets file is not readable: %s", c.BudgetsFile))
		}
	}

	if c.TrendMonths < 1 || c.TrendMonths > 60 {
		errors = append(errors, fmt.Sprintf("invalid trend months %d: must be between 1 and 60", c.TrendMonths))
	}
	if c.RecentLimit < 1 || c.RecentLimit > 100 {
		errors = append(errors, fmt.Sprintf("invalid recent limit %d: must be between 1 and 100", c.RecentLimit))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AMQPEnabled reports whether the change feed should be started.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

type budgetsFile struct {
	Budgets []struct {
		Category string `toml:"category"`
		Limit    any    `toml:"limit"`
	} `toml:"budget"`
}

// LoadBudgets reads the seed budgets from a TOML file of [[budget]]
// tables. An empty path yields nil so the built-in defaults apply.
func LoadBudgets(path string) ([]core.Budget, error) {
	if path == "" {
		return nil, nil
	}
	var f budgetsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode budgets file %s: %w", path, err)
	}

	out := make([]core.Budget, 0, len(f.Budgets))
	for i, b := range f.Budgets {
		limit, err := tomlDecimal(b.Limit)
		if err != nil {
			return nil, fmt.Errorf("budget %d (%s): invalid limit %v", i+1, b.Category, b.Limit)
		}
		budget := core.Budget{Category: core.NewCategory(b.Category), Limit: core.ClampAmount(limit)}
		if err := budget.Validate(); err != nil {
			return nil, fmt.Errorf("budget %d (%s): %w", i+1, b.Category, err)
		}
		out = append(out, budget)
	}
	return out, nil
}

// tomlDecimal accepts limits written as integers, floats or strings.
func tomlDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		return core.ParseAmount(x)
	default:
		return decimal.Zero, fmt.Errorf("unsupported limit type %T", v)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
