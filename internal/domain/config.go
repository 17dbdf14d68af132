package domain

import "time"

// Config represents the application configuration
type Config struct {
	Pipeline     PipelineConfig     `mapstructure:"pipeline"`
	Download     DownloadConfig     `mapstructure:"download"`
	Ledger       LedgerConfig       `mapstructure:"ledger"`
	History      HistoryConfig      `mapstructure:"history"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Extractor    ExtractorConfig    `mapstructure:"extractor"`
	Server       ServerConfig       `mapstructure:"server"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// PipelineConfig contains worker pool configuration
type PipelineConfig struct {
	InputFile    string `mapstructure:"input_file"`
	Workers      int    `mapstructure:"workers"`
	QueueSize    int    `mapstructure:"queue_size"`
	MaxPageBytes int64  `mapstructure:"max_page_bytes"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir    string `mapstructure:"base_dir"`
	ChunkSize  int    `mapstructure:"chunk_size"`
	DefaultExt string `mapstructure:"default_ext"`
}

// LedgerBackend selects where completed work items are recorded
type LedgerBackend string

const (
	LedgerFile   LedgerBackend = "file"
	LedgerSQLite LedgerBackend = "sqlite"
	LedgerRedis  LedgerBackend = "redis"
)

// LedgerConfig contains completion ledger configuration
type LedgerConfig struct {
	Backend      LedgerBackend `mapstructure:"backend"`
	Path         string        `mapstructure:"path"`
	Sync         bool          `mapstructure:"sync"` // fsync after every append (file backend)
	DatabasePath string        `mapstructure:"database_path"`
	RedisAddr    string        `mapstructure:"redis_addr"`
	RedisKey     string        `mapstructure:"redis_key"`
}

// HistoryConfig contains run history configuration
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// HTTPConfig contains outbound HTTP client configuration
type HTTPConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	Referrer        string        `mapstructure:"referrer"`
	RobotsURL       string        `mapstructure:"robots_url"` // optional, picks a user agent allowed by robots.txt
	MaxConnsPerHost int           `mapstructure:"max_conns_per_host"`
}

// ExtractorConfig contains media extraction configuration
type ExtractorConfig struct {
	Selector string `mapstructure:"selector"`
}

// ServerConfig contains status server configuration
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // pipeline/error event files
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			InputFile:    "videolist.txt",
			Workers:      4,
			QueueSize:    1000,
			MaxPageBytes: 10 << 20,
		},
		Download: DownloadConfig{
			BaseDir:    "./videos",
			ChunkSize:  1 << 20,
			DefaultExt: ".mp4",
		},
		Ledger: LedgerConfig{
			Backend:      LedgerFile,
			Path:         "completed.txt",
			Sync:         false,
			DatabasePath: "$HOME/.vidharvest/vidharvest.db",
			RedisAddr:    "localhost:6379",
			RedisKey:     "vidharvest:completed",
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.vidharvest/vidharvest.db",
		},
		HTTP: HTTPConfig{
			Timeout:         5 * time.Minute,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/80.0.3987.149 Safari/537.36",
			Referrer:        "",
			RobotsURL:       "",
			MaxConnsPerHost: 0,
		},
		Extractor: ExtractorConfig{
			Selector: "video",
		},
		Server: ServerConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    8080,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   true,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.vidharvest/logs",
		},
	}
}
