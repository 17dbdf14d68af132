package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/vidharvest/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	// Set up viper
	v := viper.New()
	v.SetConfigType("yaml")

	// If config path is provided, use it
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.vidharvest")
		v.AddConfigPath("/etc/vidharvest")
	}

	// Read environment variables
	v.SetEnvPrefix("VIDHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	// Unmarshal into config struct
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand environment variables in paths
	config = expandPaths(config)

	// Validate config
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers every key so env overrides apply without a config file
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"pipeline.input_file", "pipeline.workers", "pipeline.queue_size", "pipeline.max_page_bytes",
		"download.base_dir", "download.chunk_size", "download.default_ext",
		"ledger.backend", "ledger.path", "ledger.sync", "ledger.database_path", "ledger.redis_addr", "ledger.redis_key",
		"history.enabled", "history.database_path",
		"http.timeout", "http.user_agent", "http.referrer", "http.robots_url", "http.max_conns_per_host",
		"extractor.selector",
		"server.enabled", "server.host", "server.port",
		"notification.enabled", "notification.sound", "notification.method",
		"logging.level", "logging.format", "logging.output_path", "logging.logs_dir",
	} {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Pipeline.InputFile = expandPath(config.Pipeline.InputFile)
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Ledger.Path = expandPath(config.Ledger.Path)
	config.Ledger.DatabasePath = expandPath(config.Ledger.DatabasePath)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	// Expand home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// Replace $HOME even when the variable is unset
	if strings.Contains(path, "$HOME") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// ValidateConfig validates the configuration
func ValidateConfig(config *domain.Config) error {
	if config.Pipeline.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	if config.Pipeline.QueueSize < 1 {
		return fmt.Errorf("queue size must be at least 1")
	}

	if config.Pipeline.MaxPageBytes < 1 {
		return fmt.Errorf("max page bytes must be positive")
	}

	if config.Download.BaseDir == "" {
		return fmt.Errorf("download base directory not configured")
	}

	switch config.Ledger.Backend {
	case domain.LedgerFile:
		if config.Ledger.Path == "" {
			return fmt.Errorf("ledger path not configured")
		}
	case domain.LedgerSQLite:
		if config.Ledger.DatabasePath == "" {
			return fmt.Errorf("ledger database path not configured")
		}
	case domain.LedgerRedis:
		if config.Ledger.RedisAddr == "" || config.Ledger.RedisKey == "" {
			return fmt.Errorf("ledger redis address and key must be configured")
		}
	default:
		return fmt.Errorf("invalid ledger backend: %q", config.Ledger.Backend)
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.HTTP.Timeout < 0 {
		return fmt.Errorf("http timeout cannot be negative")
	}

	if config.Server.Enabled && (config.Server.Port < 1 || config.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	// Marshal config to viper
	v.Set("pipeline", map[string]interface{}{
		"input_file":     config.Pipeline.InputFile,
		"workers":        config.Pipeline.Workers,
		"queue_size":     config.Pipeline.QueueSize,
		"max_page_bytes": config.Pipeline.MaxPageBytes,
	})
	v.Set("download", map[string]interface{}{
		"base_dir":    config.Download.BaseDir,
		"chunk_size":  config.Download.ChunkSize,
		"default_ext": config.Download.DefaultExt,
	})
	v.Set("ledger", map[string]interface{}{
		"backend":       string(config.Ledger.Backend),
		"path":          config.Ledger.Path,
		"sync":          config.Ledger.Sync,
		"database_path": config.Ledger.DatabasePath,
		"redis_addr":    config.Ledger.RedisAddr,
		"redis_key":     config.Ledger.RedisKey,
	})
	v.Set("history", map[string]interface{}{
		"enabled":       config.History.Enabled,
		"database_path": config.History.DatabasePath,
	})
	v.Set("http", map[string]interface{}{
		"timeout":            config.HTTP.Timeout.String(),
		"user_agent":         config.HTTP.UserAgent,
		"referrer":           config.HTTP.Referrer,
		"robots_url":         config.HTTP.RobotsURL,
		"max_conns_per_host": config.HTTP.MaxConnsPerHost,
	})
	v.Set("extractor", map[string]interface{}{
		"selector": config.Extractor.Selector,
	})
	v.Set("server", map[string]interface{}{
		"enabled": config.Server.Enabled,
		"host":    config.Server.Host,
		"port":    config.Server.Port,
	})
	v.Set("notification", map[string]interface{}{
		"enabled": config.Notification.Enabled,
		"sound":   config.Notification.Sound,
		"method":  config.Notification.Method,
	})
	v.Set("logging", map[string]interface{}{
		"level":       config.Logging.Level,
		"format":      config.Logging.Format,
		"output_path": config.Logging.OutputPath,
		"logs_dir":    config.Logging.LogsDir,
	})

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config file
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
