package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/expense-report/internal/classify"
	"github.com/example/expense-report/internal/period"
	"github.com/example/expense-report/internal/statement"
)

// EnvPrefix is the prefix for environment overrides, e.g. EXPENSE_REPORT_FORMAT
const EnvPrefix = "EXPENSE_REPORT"

// Output formats
const (
	FormatText   = "text"
	FormatXLSX   = "xlsx"
	FormatJSON   = "json"
	FormatSheets = "sheets"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	Input            []string           `mapstructure:"input"`
	Output           string             `mapstructure:"output"`
	Format           string             `mapstructure:"format"`
	PeriodStrategy   string             `mapstructure:"period_strategy"`
	Workers          int                `mapstructure:"workers"`
	FallbackCategory string             `mapstructure:"fallback_category"`
	Exclusions       []string           `mapstructure:"exclusions"`
	Categories       []CategoryRule     `mapstructure:"categories"`
	Formats          []statement.Format `mapstructure:"formats"`
	Sheets           SheetsConfig       `mapstructure:"sheets"`
}

// CategoryRule defines the keywords of one category. Order in the file is
// the order categories are tried in.
type CategoryRule struct {
	Name     string   `mapstructure:"name"`
	Keywords []string `mapstructure:"keywords"`
}

// SheetsConfig holds Google Sheets settings for the sheets format
type SheetsConfig struct {
	SpreadsheetID      string        `mapstructure:"spreadsheet_id"`
	SpreadsheetName    string        `mapstructure:"spreadsheet_name"`
	ServiceAccountPath string        `mapstructure:"service_account_path"`
	ClientID           string        `mapstructure:"client_id"`
	ClientSecret       string        `mapstructure:"client_secret"`
	RefreshToken       string        `mapstructure:"refresh_token"`
	RetryAttempts      uint          `mapstructure:"retry_attempts"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input", []string{})
	v.SetDefault("output", "report.txt")
	v.SetDefault("format", FormatText)
	v.SetDefault("period_strategy", string(period.PerRow))
	v.SetDefault("workers", 4)
	v.SetDefault("fallback_category", classify.DefaultFallback)
	v.SetDefault("categories", []map[string]any{
		{"name": "groceries", "keywords": []string{}},
		{"name": "fixedCosts", "keywords": []string{}},
	})
	v.SetDefault("sheets.spreadsheet_name", "Ausgaben")
	v.SetDefault("sheets.retry_attempts", 3)
	v.SetDefault("sheets.retry_delay", "30s")
}

// New returns a viper instance with defaults and environment overrides
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := New()
	if err := Read(v, configPath); err != nil {
		return nil, err
	}
	return Unmarshal(v)
}

// Read loads a TOML config file into v. Without an explicit path the
// working directory and $HOME/.config/expense-report are searched and a
// missing file is fine.
func Read(v *viper.Viper, configPath string) error {
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	v.SetConfigName("expense-report")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "expense-report"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Unmarshal decodes and validates the configuration held by v
func Unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that cannot be expressed as defaults
func (c *Config) Validate() error {
	switch c.Format {
	case FormatText, FormatXLSX, FormatJSON, FormatSheets:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}

	if _, err := period.ParseStrategy(c.PeriodStrategy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("%w: category without name", ErrInvalidConfig)
		}
		if seen[cat.Name] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidConfig, cat.Name)
		}
		seen[cat.Name] = true
	}

	for _, f := range c.Formats {
		if f.Name == "" || len(f.Header) == 0 {
			return fmt.Errorf("%w: csv format needs a name and header columns", ErrInvalidConfig)
		}
	}

	if c.Format == FormatSheets {
		hasOAuth := c.Sheets.ClientID != "" && c.Sheets.ClientSecret != "" && c.Sheets.RefreshToken != ""
		if !hasOAuth && c.Sheets.ServiceAccountPath == "" {
			return fmt.Errorf("%w: sheets format needs a service account or oauth credentials", ErrInvalidConfig)
		}
	}

	return nil
}

// Rules converts the keyword configuration for the classifier
func (c *Config) Rules() classify.Rules {
	rules := classify.Rules{
		Exclusions: c.Exclusions,
		Fallback:   c.FallbackCategory,
	}
	for _, cat := range c.Categories {
		rules.Categories = append(rules.Categories, classify.CategoryRule{
			Name:     cat.Name,
			Keywords: cat.Keywords,
		})
	}
	return rules
}

// CSVFormats returns configured formats first, then the built-in ones
func (c *Config) CSVFormats() []statement.Format {
	formats := make([]statement.Format, 0, len(c.Formats)+2)
	formats = append(formats, c.Formats...)
	return append(formats, statement.DefaultFormats()...)
}

// Strategy returns the validated period strategy
func (c *Config) Strategy() period.Strategy {
	s, err := period.ParseStrategy(c.PeriodStrategy)
	if err != nil {
		return period.PerRow
	}
	return s
}
