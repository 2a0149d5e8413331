// Package config loads bunseki settings from defaults, an optional settings
// file, BUNSEKI_* environment variables and command-line flags, in rising
// order of precedence.
//
// The settings file is .bunseki/settings.yaml under the working directory
// unless a path is given explicitly:
//
//	catalog: twitter          # built-in name or catalog file
//	interpreter: python3      # command prefix, catalog's own when empty
//	sources: https://example.org/twbunseki/
//	output: out.zip
//	strict: true
//	log_level: debug
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys understood in the settings file, the environment and flags.
const (
	KeyCatalog     = "catalog"
	KeyInterpreter = "interpreter"
	KeySources     = "sources"
	KeyOutput      = "output"
	KeyStrict      = "strict"
	KeyLogLevel    = "log_level"
)

// EnvPrefix prefixes every environment variable: BUNSEKI_CATALOG, ...
const EnvPrefix = "BUNSEKI"

// Config is the resolved configuration.
type Config struct {
	Catalog     string `mapstructure:"catalog"`
	Interpreter string `mapstructure:"interpreter"`
	Sources     string `mapstructure:"sources"`
	Output      string `mapstructure:"output"`
	Strict      bool   `mapstructure:"strict"`
	LogLevel    string `mapstructure:"log_level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Catalog:  "twitter",
		Sources:  ".",
		LogLevel: "info",
	}
}

// Options select where Load looks.
type Options struct {
	// Root is the directory holding .bunseki/settings.yaml. Defaults to ".".
	Root string
	// File, when set, is the only settings file read and must exist.
	File string
	// Flags are bound by key name; only flags the user changed take effect.
	Flags *pflag.FlagSet
}

// SettingsPath returns the conventional settings file under root.
func SettingsPath(root string) string {
	return filepath.Join(root, ".bunseki", "settings.yaml")
}

// Load resolves the configuration. It returns the settings file that was
// read, or "" when none was.
func Load(opts Options) (*Config, string, error) {
	v := viper.New()

	def := Default()
	v.SetDefault(KeyCatalog, def.Catalog)
	v.SetDefault(KeyInterpreter, def.Interpreter)
	v.SetDefault(KeySources, def.Sources)
	v.SetDefault(KeyOutput, def.Output)
	v.SetDefault(KeyStrict, def.Strict)
	v.SetDefault(KeyLogLevel, def.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path := opts.File
	if path == "" {
		root := opts.Root
		if root == "" {
			root = "."
		}
		path = SettingsPath(root)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	if opts.Flags != nil {
		for _, key := range []string{KeyCatalog, KeyInterpreter, KeySources, KeyOutput, KeyStrict, KeyLogLevel} {
			f := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, "", fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("decode settings: %w", err)
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return nil, "", fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return &cfg, path, nil
}

// Level returns the parsed log level. Load has already validated it.
func (c *Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return l
}
