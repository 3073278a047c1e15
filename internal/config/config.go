// Package config loads service configuration from defaults, an optional
// YAML/JSON file, and environment variable overrides, in that order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Storage paths for artifacts and job workspaces
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Job pipeline configuration
	Jobs JobsConfig `yaml:"jobs" json:"jobs"`

	// Resolver (yt-dlp) configuration
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`

	// Transcoder (ffmpeg) configuration
	Transcoder TranscoderConfig `yaml:"transcoder" json:"transcoder"`

	// Event bus configuration
	Events EventsConfig `yaml:"events" json:"events"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host        string        `yaml:"host" json:"host" env:"MUXFETCH_HOST" default:"0.0.0.0"`
	Port        int           `yaml:"port" json:"port" env:"MUXFETCH_PORT" default:"8080"`
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout" env:"MUXFETCH_READ_TIMEOUT" default:"30s"`
	// WriteTimeout of zero disables the write deadline; artifact downloads can
	// run far longer than any fixed timeout.
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout" env:"MUXFETCH_WRITE_TIMEOUT" default:"0s"`
	MaxHeaderBytes int           `yaml:"max_header_bytes" json:"max_header_bytes" env:"MUXFETCH_MAX_HEADER_BYTES" default:"1048576"`
	EnableCORS     bool          `yaml:"enable_cors" json:"enable_cors" env:"MUXFETCH_ENABLE_CORS" default:"true"`
	// PublicBaseURL overrides the request-derived base for download URLs,
	// e.g. when the service sits behind a reverse proxy.
	PublicBaseURL string `yaml:"public_base_url" json:"public_base_url" env:"MUXFETCH_PUBLIC_BASE_URL"`
}

// StorageConfig holds artifact and workspace path configuration
type StorageConfig struct {
	DataDir      string `yaml:"data_dir" json:"data_dir" env:"MUXFETCH_DATA_DIR" default:"./muxfetch-data"`
	DownloadsDir string `yaml:"downloads_dir" json:"downloads_dir" env:"MUXFETCH_DOWNLOADS_DIR"`
	WorkDir      string `yaml:"work_dir" json:"work_dir" env:"MUXFETCH_WORK_DIR"`
}

// JobsConfig holds job pipeline configuration
type JobsConfig struct {
	// MaxConcurrent bounds simultaneously running jobs; 0 means unbounded.
	MaxConcurrent   int           `yaml:"max_concurrent" json:"max_concurrent" env:"MUXFETCH_MAX_CONCURRENT_JOBS" default:"0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"MUXFETCH_JOB_SHUTDOWN_TIMEOUT" default:"30s"`
}

// ResolverConfig holds yt-dlp invocation configuration
type ResolverConfig struct {
	// AutoInstall lets the service download a yt-dlp binary at startup when
	// none is on PATH.
	AutoInstall bool `yaml:"auto_install" json:"auto_install" env:"MUXFETCH_RESOLVER_AUTO_INSTALL" default:"false"`
}

// TranscoderConfig holds ffmpeg invocation configuration
type TranscoderConfig struct {
	FFmpegPath string `yaml:"ffmpeg_path" json:"ffmpeg_path" env:"FFMPEG_PATH" default:"ffmpeg"`
}

// EventsConfig holds event bus configuration
type EventsConfig struct {
	BufferSize      int `yaml:"buffer_size" json:"buffer_size" env:"MUXFETCH_EVENT_BUFFER_SIZE" default:"256"`
	MaxRecentEvents int `yaml:"max_recent_events" json:"max_recent_events" env:"MUXFETCH_EVENT_MAX_RECENT" default:"100"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" env:"MUXFETCH_LOG_LEVEL" default:"info"`
}

// ConfigManager manages application configuration with reload support
type ConfigManager struct {
	config     *Config
	configPath string
	watchers   []ConfigWatcher
	mu         sync.RWMutex
}

// ConfigWatcher is called when configuration changes
type ConfigWatcher func(oldConfig, newConfig *Config)

var (
	globalConfigManager *ConfigManager
	configOnce          sync.Once
)

// GetConfigManager returns the global configuration manager instance
func GetConfigManager() *ConfigManager {
	configOnce.Do(func() {
		globalConfigManager = NewConfigManager()
	})
	return globalConfigManager
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config:   DefaultConfig(),
		watchers: make([]ConfigWatcher, 0),
	}
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   0,
			MaxHeaderBytes: 1 << 20,
			EnableCORS:     true,
		},
		Storage: StorageConfig{
			DataDir: "./muxfetch-data",
		},
		Jobs: JobsConfig{
			MaxConcurrent:   0,
			ShutdownTimeout: 30 * time.Second,
		},
		Resolver: ResolverConfig{
			AutoInstall: false,
		},
		Transcoder: TranscoderConfig{
			FFmpegPath: "ffmpeg",
		},
		Events: EventsConfig{
			BufferSize:      256,
			MaxRecentEvents: 100,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldConfig := *cm.config
	cm.configPath = configPath

	// Start with default configuration
	newConfig := DefaultConfig()

	// Load from file if it exists
	if configPath != "" && fileExists(configPath) {
		if err := cm.loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	if err := cm.loadFromEnv(newConfig); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cm.validateConfig(newConfig); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Apply derived configurations
	cm.applyDerivedConfig(newConfig)

	cm.config = newConfig

	// Notify watchers of config change
	for _, watcher := range cm.watchers {
		go watcher(&oldConfig, newConfig)
	}

	return nil
}

// GetConfig returns the current configuration (thread-safe)
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	// Return a copy to prevent external modifications
	configCopy := *cm.config
	return &configCopy
}

// AddWatcher adds a configuration change watcher
func (cm *ConfigManager) AddWatcher(watcher ConfigWatcher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.watchers = append(cm.watchers, watcher)
}

// SaveConfig saves the current configuration to file
func (cm *ConfigManager) SaveConfig() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.configPath == "" {
		return fmt.Errorf("no config path set")
	}

	return cm.saveToFile(cm.configPath, cm.config)
}

// Helper methods

func (cm *ConfigManager) loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

func (cm *ConfigManager) saveToFile(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	var data []byte
	var err error

	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (cm *ConfigManager) loadFromEnv(config *Config) error {
	return loadStructFromEnv(reflect.ValueOf(config).Elem())
}

func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		// Handle nested structs recursively
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		// Defaults are seeded by DefaultConfig before the file loads; the
		// environment only ever overrides.
		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s: %w", fieldType.Name, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Float32, reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatVal)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			values := strings.Split(value, ",")
			for i, v := range values {
				values[i] = strings.TrimSpace(v)
			}
			field.Set(reflect.ValueOf(values))
		}
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

func (cm *ConfigManager) validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Jobs.MaxConcurrent < 0 {
		return fmt.Errorf("invalid max concurrent jobs: %d", config.Jobs.MaxConcurrent)
	}

	if config.Storage.DataDir == "" && (config.Storage.DownloadsDir == "" || config.Storage.WorkDir == "") {
		return fmt.Errorf("storage data_dir is required when downloads_dir or work_dir is unset")
	}

	switch config.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

func (cm *ConfigManager) applyDerivedConfig(config *Config) {
	if config.Storage.DownloadsDir == "" {
		config.Storage.DownloadsDir = filepath.Join(config.Storage.DataDir, "downloads")
	}

	if config.Storage.WorkDir == "" {
		config.Storage.WorkDir = filepath.Join(config.Storage.DataDir, "temp")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Global convenience functions

// Get returns the current global configuration
func Get() *Config {
	return GetConfigManager().GetConfig()
}

// Load loads configuration from the specified path
func Load(configPath string) error {
	return GetConfigManager().LoadConfig(configPath)
}

// AddWatcher adds a global configuration watcher
func AddWatcher(watcher ConfigWatcher) {
	GetConfigManager().AddWatcher(watcher)
}
