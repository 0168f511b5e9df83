// Package config provides Viper-based configuration loading for powerforge.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CatalogConfig locates the power and trait catalog files.
type CatalogConfig struct {
	// PowersFile is the path to the powers catalog (.xml, .yaml or .yml).
	PowersFile string `mapstructure:"powers_file"`
	// TraitsFile is the path to the traits catalog (.xml, .yaml or .yml).
	TraitsFile string `mapstructure:"traits_file"`
	// ScriptLimit caps the Lua opcodes one --where filter may run per record.
	ScriptLimit int `mapstructure:"script_limit"`
}

// HeroConfig holds hero file handling settings.
type HeroConfig struct {
	// StalePolicy controls selected identifiers missing from the catalog: "drop" or "strict".
	StalePolicy string `mapstructure:"stale_policy"`
	// DefaultFormat is the hero file extension used when none is given: "json", "yaml" or "toml".
	DefaultFormat string `mapstructure:"default_format"`
}

// ExportConfig holds document export settings.
type ExportConfig struct {
	// Format is the default export format: "pdf" or "markdown".
	Format string `mapstructure:"format"`
	// FontSize is the body font size in points for PDF output.
	FontSize float64 `mapstructure:"font_size"`
	// Columns is the number of text columns per PDF page.
	Columns int `mapstructure:"columns"`
	// Margin is the page margin in points for PDF output.
	Margin float64 `mapstructure:"margin"`
	// Width is the word wrap width for terminal rendering.
	Width int `mapstructure:"width"`
}

// LibraryConfig selects the backend used by "hero store" commands.
type LibraryConfig struct {
	// Backend is "sqlite" or "postgres".
	Backend string `mapstructure:"backend"`
	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Hero     HeroConfig     `mapstructure:"hero"`
	Export   ExportConfig   `mapstructure:"export"`
	Library  LibraryConfig  `mapstructure:"library"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateCatalog(c.Catalog),
		validateHero(c.Hero),
		validateExport(c.Export),
		validateLibrary(c.Library),
		validateLogging(c.Logging),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Library.Backend == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCatalog(c CatalogConfig) error {
	var errs []string
	if c.PowersFile == "" {
		errs = append(errs, "catalog.powers_file must not be empty")
	}
	if c.TraitsFile == "" {
		errs = append(errs, "catalog.traits_file must not be empty")
	}
	if c.ScriptLimit < 1 {
		errs = append(errs, fmt.Sprintf("catalog.script_limit must be >= 1, got %d", c.ScriptLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHero(h HeroConfig) error {
	var errs []string
	validPolicies := map[string]bool{"drop": true, "strict": true}
	if !validPolicies[h.StalePolicy] {
		errs = append(errs, fmt.Sprintf("hero.stale_policy must be one of [drop, strict], got %q", h.StalePolicy))
	}
	validFormats := map[string]bool{"json": true, "yaml": true, "toml": true}
	if !validFormats[h.DefaultFormat] {
		errs = append(errs, fmt.Sprintf("hero.default_format must be one of [json, yaml, toml], got %q", h.DefaultFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateExport(e ExportConfig) error {
	var errs []string
	validFormats := map[string]bool{"pdf": true, "markdown": true}
	if !validFormats[e.Format] {
		errs = append(errs, fmt.Sprintf("export.format must be one of [pdf, markdown], got %q", e.Format))
	}
	if e.FontSize < 4 || e.FontSize > 72 {
		errs = append(errs, fmt.Sprintf("export.font_size must be 4-72, got %g", e.FontSize))
	}
	if e.Columns < 1 || e.Columns > 4 {
		errs = append(errs, fmt.Sprintf("export.columns must be 1-4, got %d", e.Columns))
	}
	if e.Margin < 0 {
		errs = append(errs, "export.margin must not be negative")
	}
	if e.Width < 0 {
		errs = append(errs, "export.width must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLibrary(l LibraryConfig) error {
	switch l.Backend {
	case "sqlite":
		if l.SQLitePath == "" {
			return errors.New("library.sqlite_path must not be empty when library.backend is sqlite")
		}
	case "postgres":
	default:
		return fmt.Errorf("library.backend must be one of [sqlite, postgres], got %q", l.Backend)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file and uses
// defaults plus environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	return LoadWith(NewViper(), path)
}

// LoadWith is Load over a caller-prepared Viper, typically one from NewViper
// with command-line flags bound.
//
// Precondition: v must be non-nil.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and POWERFORGE_ environment
// overrides applied, ready for flag binding.
//
// Postcondition: Returns a non-nil *viper.Viper.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("POWERFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.powers_file", "powers.xml")
	v.SetDefault("catalog.traits_file", "traits.xml")
	v.SetDefault("catalog.script_limit", 100000)

	v.SetDefault("hero.stale_policy", "drop")
	v.SetDefault("hero.default_format", "json")

	v.SetDefault("export.format", "pdf")
	v.SetDefault("export.font_size", 9)
	v.SetDefault("export.columns", 2)
	v.SetDefault("export.margin", 50)
	v.SetDefault("export.width", 80)

	v.SetDefault("library.backend", "sqlite")
	v.SetDefault("library.sqlite_path", "heroes.db")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "powerforge")
	v.SetDefault("database.password", "powerforge")
	v.SetDefault("database.name", "powerforge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
