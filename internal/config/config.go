package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// APIConfig points the client at the API gateway.
type APIConfig struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// LogConfig configures the file logger.
type LogConfig struct {
	File  string `yaml:"file" validate:"required"`
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	DarkMode  bool   `yaml:"dark_mode"`
	ExportDir string `yaml:"export_dir" validate:"required"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	API APIConfig `yaml:"api"`
	Log LogConfig `yaml:"log"`
	UI  UIConfig  `yaml:"ui"`
}

// Environment overrides, applied after the file is read.
const (
	EnvBaseURL     = "RAGCONSOLE_API_BASE_URL"
	EnvTimeoutSecs = "RAGCONSOLE_API_TIMEOUT_SECS"
	EnvLogFile     = "RAGCONSOLE_LOG_FILE"
	EnvLogLevel    = "RAGCONSOLE_LOG_LEVEL"
)

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, validate(cfg)
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, validate(&cfg)
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragconsole/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragconsole/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnv(cfg)
	return cfg, userPath, validate(cfg)
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragconsole", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{BaseURL: "http://localhost:8000", TimeoutSecs: 120},
		Log: LogConfig{File: "ragconsole.log", Level: "info"},
		UI:  UIConfig{DarkMode: true, ExportDir: "charts"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = def.API.BaseURL
	}
	if cfg.API.TimeoutSecs == 0 {
		cfg.API.TimeoutSecs = def.API.TimeoutSecs
	}
	if cfg.Log.File == "" {
		cfg.Log.File = def.Log.File
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.UI.ExportDir == "" {
		cfg.UI.ExportDir = def.UI.ExportDir
	}
}

func applyEnv(cfg *AppConfig) {
	if v, ok := os.LookupEnv(EnvBaseURL); ok && v != "" {
		cfg.API.BaseURL = v
	}
	if v, ok := os.LookupEnv(EnvTimeoutSecs); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.TimeoutSecs = n
		}
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok && v != "" {
		cfg.Log.File = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
}

func validate(cfg *AppConfig) error {
	return validator.New().Struct(cfg)
}
