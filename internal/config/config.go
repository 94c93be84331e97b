package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds daemon configuration paths and listener settings.
type Config struct {
	ConfigPath           string
	DataDir              string
	LogDir               string
	RunDir               string
	SocketPath           string
	DBPath               string
	MetricsListen        string
	SyncIntervalSeconds  int
	TokensDir            string
	TokensBundle         string
	AgeKeyPath           string
	AllowPlaintextTokens bool
}

// FileConfig represents supported YAML config overrides.
type FileConfig struct {
	DataDir              string `yaml:"data_dir"`
	LogDir               string `yaml:"log_dir"`
	RunDir               string `yaml:"run_dir"`
	SocketPath           string `yaml:"socket_path"`
	DBPath               string `yaml:"db_path"`
	MetricsListen        string `yaml:"metrics_listen"`
	SyncIntervalSeconds  int    `yaml:"sync_interval_seconds"`
	TokensDir            string `yaml:"tokens_dir"`
	TokensBundle         string `yaml:"tokens_bundle"`
	AgeKeyPath           string `yaml:"age_key_path"`
	AllowPlaintextTokens bool   `yaml:"allow_plaintext_tokens"`
}

func DefaultConfig() Config {
	dataDir := "/var/lib/windvault"
	runDir := "/run/windvault"
	return Config{
		ConfigPath:          "/etc/windvault/config.yaml",
		DataDir:             dataDir,
		LogDir:              "/var/log/windvault",
		RunDir:              runDir,
		SocketPath:          filepath.Join(runDir, "windvaultd.sock"),
		DBPath:              filepath.Join(dataDir, "windvault.db"),
		MetricsListen:       "",
		SyncIntervalSeconds: 30,
		TokensDir:           "/etc/windvault/tokens",
		TokensBundle:        "default",
		AgeKeyPath:          "/etc/windvault/keys/age.key",
	}
}

// Load reads the YAML config file and applies overrides to defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		cfg.ConfigPath = path
	}
	data, err := os.ReadFile(cfg.ConfigPath)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", cfg.ConfigPath, err)
	}
	var fileCfg FileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", cfg.ConfigPath, err)
	}
	applyFileConfig(&cfg, fileCfg)
	if fileCfg.DataDir != "" && fileCfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "windvault.db")
	}
	if fileCfg.RunDir != "" && fileCfg.SocketPath == "" {
		cfg.SocketPath = filepath.Join(cfg.RunDir, "windvaultd.sock")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFileConfig(cfg *Config, fileCfg FileConfig) {
	if fileCfg.DataDir != "" {
		cfg.DataDir = fileCfg.DataDir
	}
	if fileCfg.LogDir != "" {
		cfg.LogDir = fileCfg.LogDir
	}
	if fileCfg.RunDir != "" {
		cfg.RunDir = fileCfg.RunDir
	}
	if fileCfg.SocketPath != "" {
		cfg.SocketPath = fileCfg.SocketPath
	}
	if fileCfg.DBPath != "" {
		cfg.DBPath = fileCfg.DBPath
	}
	if fileCfg.MetricsListen != "" {
		cfg.MetricsListen = fileCfg.MetricsListen
	}
	if fileCfg.SyncIntervalSeconds > 0 {
		cfg.SyncIntervalSeconds = fileCfg.SyncIntervalSeconds
	}
	if fileCfg.TokensDir != "" {
		cfg.TokensDir = fileCfg.TokensDir
	}
	if fileCfg.TokensBundle != "" {
		cfg.TokensBundle = fileCfg.TokensBundle
	}
	if fileCfg.AgeKeyPath != "" {
		cfg.AgeKeyPath = fileCfg.AgeKeyPath
	}
	if fileCfg.AllowPlaintextTokens {
		cfg.AllowPlaintextTokens = true
	}
}

// Validate performs basic validation without exposing secrets.
func (c Config) Validate() error {
	if c.ConfigPath == "" {
		return fmt.Errorf("config_path is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.RunDir == "" {
		return fmt.Errorf("run_dir is required")
	}
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.SyncIntervalSeconds <= 0 {
		return fmt.Errorf("sync_interval_seconds must be positive")
	}
	if c.TokensDir == "" {
		return fmt.Errorf("tokens_dir is required")
	}
	if c.TokensBundle == "" {
		return fmt.Errorf("tokens_bundle is required")
	}
	if c.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(c.MetricsListen); err != nil {
			return fmt.Errorf("metrics_listen %q: %w", c.MetricsListen, err)
		}
	}
	return nil
}
