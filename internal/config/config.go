package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	DataFolder    string `mapstructure:"DATA_FOLDER"`
	OutputDir     string `mapstructure:"OUTPUT_DIR"`
	RegionFile    string `mapstructure:"REGION_FILE"`
	OverrideFile  string `mapstructure:"OVERRIDE_FILE"`
	OutputFormats string `mapstructure:"OUTPUT_FORMATS"`
	StrictJoin    bool   `mapstructure:"STRICT_JOIN"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	Port          string `mapstructure:"PORT"`
	Env           string `mapstructure:"ENV"`
}

var keys = []string{
	"DATA_FOLDER",
	"OUTPUT_DIR",
	"REGION_FILE",
	"OVERRIDE_FILE",
	"OUTPUT_FORMATS",
	"STRICT_JOIN",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
	"PORT",
	"ENV",
}

// Load reads configuration from the environment, falling back to a .env
// file in the working directory and then to defaults.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path. A missing file is not an
// error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("DATA_FOLDER", "data")
	v.SetDefault("OUTPUT_DIR", "output")
	v.SetDefault("REGION_FILE", "reference/regions.yaml")
	v.SetDefault("OVERRIDE_FILE", "")
	v.SetDefault("OUTPUT_FORMATS", "csv")
	v.SetDefault("STRICT_JOIN", true)
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "production")

	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading the env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.DataFolder) == "" {
		return nil, fmt.Errorf("DATA_FOLDER is required")
	}
	if strings.TrimSpace(cfg.RegionFile) == "" {
		return nil, fmt.Errorf("REGION_FILE is required")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.DBMinConns, cfg.DBMaxConns)
	}

	return cfg, nil
}

// RequireDatabase reports an error when no database is configured. Only
// commands that touch the report store need one.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
