package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meysamhadeli/astview/hierarchy"
	"github.com/meysamhadeli/astview/layout"
	"github.com/meysamhadeli/astview/snapshot_store"
	"github.com/meysamhadeli/astview/workspace"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LayoutConfig holds the tree drawing settings
type LayoutConfig struct {
	Mode         string  `mapstructure:"mode"`
	Width        float64 `mapstructure:"width"`
	Height       float64 `mapstructure:"height"`
	NodeSpacing  float64 `mapstructure:"node_spacing"`
	LevelSpacing float64 `mapstructure:"level_spacing"`
	MinZoom      float64 `mapstructure:"min_zoom"`
	MaxZoom      float64 `mapstructure:"max_zoom"`
}

// ServerConfig holds the HTTP front end settings
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config represents the structure of the configuration file
type Config struct {
	Version       string        `mapstructure:"version"`
	Theme         string        `mapstructure:"theme"`
	LogLevel      string        `mapstructure:"log_level"`
	EnableCache   bool          `mapstructure:"enable_cache"`
	CacheDir      string        `mapstructure:"cache_dir"`
	StoragePath   string        `mapstructure:"storage_path"`
	AutosaveDelay time.Duration `mapstructure:"autosave_delay"`
	ParseDelay    time.Duration `mapstructure:"parse_delay"`
	MaxDepth      int           `mapstructure:"max_depth"`
	OnParseError  string        `mapstructure:"on_parse_error"`
	Placeholder   string        `mapstructure:"placeholder"`
	Layout        LayoutConfig  `mapstructure:"layout"`
	Server        ServerConfig  `mapstructure:"server"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:       "0.3.0",
	Theme:         "dracula",
	LogLevel:      "info",
	EnableCache:   true,
	CacheDir:      ".cache",
	StoragePath:   filepath.Join(".astview", "astview.db"),
	AutosaveDelay: 300 * time.Millisecond,
	ParseDelay:    150 * time.Millisecond,
	MaxDepth:      hierarchy.DefaultMaxDepth,
	OnParseError:  string(workspace.RetainOnError),
	Placeholder:   snapshot_store.DefaultPlaceholder,
	Layout: LayoutConfig{
		Mode:         string(layout.Fixed),
		Width:        600,
		Height:       400,
		NodeSpacing:  30,
		LevelSpacing: 160,
		MinZoom:      0.5,
		MaxZoom:      2,
	},
	Server: ServerConfig{
		Addr: "127.0.0.1:8080",
	},
}

// viewportInset is subtracted from the viewport to get the bounded layout area.
const viewportInset = 50

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
// Relative paths are resolved against cwd.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	v := viper.New()

	// Set default values using Viper
	setDefaults(v)

	// Explicitly bind environment variables to config keys
	bindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		// Look for astview-config.{yaml,yml,json} in the current working directory
		v.SetConfigName("astview-config")
		v.AddConfigPath(cwd)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Bind CLI flags to override config values
	if rootCmd != nil {
		bindFlags(v, rootCmd)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	config.CacheDir = resolvePath(cwd, config.CacheDir)
	config.StoragePath = resolvePath(cwd, config.StoragePath)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ConfigFileUsed reports the file passed with --config, if any.
func ConfigFileUsed() string {
	return cfgFile
}

func resolvePath(cwd, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", DefaultConfig.Version)
	v.SetDefault("theme", DefaultConfig.Theme)
	v.SetDefault("log_level", DefaultConfig.LogLevel)
	v.SetDefault("enable_cache", DefaultConfig.EnableCache)
	v.SetDefault("cache_dir", DefaultConfig.CacheDir)
	v.SetDefault("storage_path", DefaultConfig.StoragePath)
	v.SetDefault("autosave_delay", DefaultConfig.AutosaveDelay)
	v.SetDefault("parse_delay", DefaultConfig.ParseDelay)
	v.SetDefault("max_depth", DefaultConfig.MaxDepth)
	v.SetDefault("on_parse_error", DefaultConfig.OnParseError)
	v.SetDefault("placeholder", DefaultConfig.Placeholder)
	v.SetDefault("layout.mode", DefaultConfig.Layout.Mode)
	v.SetDefault("layout.width", DefaultConfig.Layout.Width)
	v.SetDefault("layout.height", DefaultConfig.Layout.Height)
	v.SetDefault("layout.node_spacing", DefaultConfig.Layout.NodeSpacing)
	v.SetDefault("layout.level_spacing", DefaultConfig.Layout.LevelSpacing)
	v.SetDefault("layout.min_zoom", DefaultConfig.Layout.MinZoom)
	v.SetDefault("layout.max_zoom", DefaultConfig.Layout.MaxZoom)
	v.SetDefault("server.addr", DefaultConfig.Server.Addr)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("theme", "THEME")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("enable_cache", "ENABLE_CACHE")
	_ = v.BindEnv("cache_dir", "CACHE_DIR")
	_ = v.BindEnv("storage_path", "STORAGE_PATH")
	_ = v.BindEnv("autosave_delay", "AUTOSAVE_DELAY")
	_ = v.BindEnv("parse_delay", "PARSE_DELAY")
	_ = v.BindEnv("max_depth", "MAX_DEPTH")
	_ = v.BindEnv("on_parse_error", "ON_PARSE_ERROR")
	_ = v.BindEnv("layout.mode", "LAYOUT_MODE")
	_ = v.BindEnv("server.addr", "SERVER_ADDR")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(v *viper.Viper, rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("theme", flags.Lookup("theme"))
	_ = v.BindPFlag("log_level", flags.Lookup("log_level"))
	_ = v.BindPFlag("enable_cache", flags.Lookup("enable_cache"))
	_ = v.BindPFlag("storage_path", flags.Lookup("storage_path"))
	_ = v.BindPFlag("max_depth", flags.Lookup("max_depth"))
	_ = v.BindPFlag("on_parse_error", flags.Lookup("on_parse_error"))
	_ = v.BindPFlag("layout.mode", flags.Lookup("layout_mode"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Chroma style used to highlight source text (e.g., 'dracula', 'monokai', 'github').")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Log level: 'debug', 'info', 'warn' or 'error'.")
	rootCmd.PersistentFlags().Bool("enable_cache", DefaultConfig.EnableCache, "Enable or disable the parse tree cache.")
	rootCmd.PersistentFlags().String("storage_path", DefaultConfig.StoragePath, "Path of the SQLite file holding the current text and snapshots.")
	rootCmd.PersistentFlags().Int("max_depth", DefaultConfig.MaxDepth, "Maximum syntax tree depth before a parse is rejected.")
	rootCmd.PersistentFlags().String("on_parse_error", DefaultConfig.OnParseError, "What the view shows after a parse error: 'retain' or 'clear'.")
	rootCmd.PersistentFlags().String("layout_mode", DefaultConfig.Layout.Mode, "Tree layout: 'fixed' spacing or 'bounded' to the viewport.")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	if _, err := layout.ParseMode(c.Layout.Mode); err != nil {
		return err
	}
	if _, err := workspace.ParseErrorPolicy(c.OnParseError); err != nil {
		return err
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.Layout.MinZoom <= 0 || c.Layout.MaxZoom < c.Layout.MinZoom {
		return fmt.Errorf("invalid zoom extent [%g, %g]", c.Layout.MinZoom, c.Layout.MaxZoom)
	}
	if c.Layout.Width <= viewportInset || c.Layout.Height <= viewportInset {
		return fmt.Errorf("layout viewport %gx%g is too small", c.Layout.Width, c.Layout.Height)
	}
	return nil
}

// SessionOptions converts the configuration into workspace options.
func (c *Config) SessionOptions() workspace.Options {
	mode, _ := layout.ParseMode(c.Layout.Mode)
	policy, _ := workspace.ParseErrorPolicy(c.OnParseError)

	return workspace.Options{
		MaxDepth:       c.MaxDepth,
		TrackLocations: true,
		ErrorPolicy:    policy,
		Layout: layout.Options{
			Mode:         mode,
			Width:        c.Layout.Width - viewportInset,
			Height:       c.Layout.Height - viewportInset,
			NodeSpacing:  c.Layout.NodeSpacing,
			LevelSpacing: c.Layout.LevelSpacing,
			Separation:   1,
		},
		Width:       c.Layout.Width,
		Height:      c.Layout.Height,
		ScaleExtent: layout.ScaleExtent{Min: c.Layout.MinZoom, Max: c.Layout.MaxZoom},
	}
}

// StoreOptions converts the configuration into snapshot store options.
func (c *Config) StoreOptions() snapshot_store.Options {
	return snapshot_store.Options{
		Placeholder: c.Placeholder,
		MaxDepth:    c.MaxDepth,
	}
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}

// WorkingDir returns the process working directory, falling back to ".".
func WorkingDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}
