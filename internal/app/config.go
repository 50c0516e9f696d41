// Package app provides the application initialization and wiring.
package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/2cd/getctr/internal/logging"
)

// EnvPrefix prefixes environment overrides, e.g. GETCTR_ZSTD_LEVEL.
const EnvPrefix = "GETCTR"

// Config holds the application configuration.
type Config struct {
	Workdir string         `mapstructure:"workdir"`
	Log     logging.Config `mapstructure:"log"`

	Registry struct {
		GHCR string `mapstructure:"ghcr"`
		Reg  string `mapstructure:"reg"`
	} `mapstructure:"registry"`

	Engine struct {
		Binary   string `mapstructure:"binary"`
		BuildKit bool   `mapstructure:"buildkit"`
	} `mapstructure:"engine"`

	Pool struct {
		Size int `mapstructure:"size"` // 0 = number of CPUs
	} `mapstructure:"pool"`

	Command struct {
		Attempts      int           `mapstructure:"attempts"`
		Timeout       time.Duration `mapstructure:"timeout"` // 0 = none
		ExitOnFailure bool          `mapstructure:"exit_on_failure"`
	} `mapstructure:"command"`

	Zstd struct {
		Level int `mapstructure:"level"`
	} `mapstructure:"zstd"`

	Pipeline struct {
		ContinueOnError bool `mapstructure:"continue_on_error"`
	} `mapstructure:"pipeline"`

	Catalog struct {
		Path string `mapstructure:"path"` // empty = embedded
	} `mapstructure:"catalog"`

	Rootfs struct {
		ScriptDir   string `mapstructure:"script_dir"`
		Debootstrap string `mapstructure:"debootstrap"`
	} `mapstructure:"rootfs"`
}

// LoadConfig reads .env, the config file and GETCTR_* overrides.
func LoadConfig(configPath string) (*viper.Viper, Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if err := loadConfig(v, configPath); err != nil {
		return nil, Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, Config{}, err
	}
	return v, cfg, nil
}

// loadConfig sets defaults and reads the config file, if any.
func loadConfig(v *viper.Viper, configPath string) error {
	v.SetDefault("workdir", "./tmp")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_backups", 3)
	v.SetDefault("log.file.max_age", 28)
	v.SetDefault("log.file.compress", true)
	v.SetDefault("registry.ghcr", "ghcr.io")
	v.SetDefault("registry.reg", "reg.tmoe.me:2096")
	v.SetDefault("engine.binary", "docker")
	v.SetDefault("engine.buildkit", true)
	v.SetDefault("pool.size", 0)
	v.SetDefault("command.attempts", 3)
	v.SetDefault("command.timeout", "0s")
	v.SetDefault("command.exit_on_failure", true)
	v.SetDefault("zstd.level", 19)
	v.SetDefault("pipeline.continue_on_error", false)
	v.SetDefault("catalog.path", "")
	v.SetDefault("rootfs.script_dir", "")
	v.SetDefault("rootfs.debootstrap", "")

	ConfigureViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return nil
}

func (c Config) validate() error {
	if c.Zstd.Level < 0 || c.Zstd.Level > 22 {
		return fmt.Errorf("zstd.level must be within 0..22, got %d", c.Zstd.Level)
	}
	if c.Workdir == "" {
		return fmt.Errorf("workdir must not be empty")
	}
	if c.Pool.Size < 0 {
		return fmt.Errorf("pool.size must not be negative")
	}
	return nil
}
