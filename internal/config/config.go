package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a project directory.
const FileName = "ryoshu.yaml"

// EnvPrefix prefixes environment overrides, e.g. RYOSHU_SERVER_ADDRESS.
const EnvPrefix = "RYOSHU"

// Config represents the top-level ryoshu.yaml configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Capture  CaptureConfig  `yaml:"capture" mapstructure:"capture"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig selects and locates the record store.
type DatabaseConfig struct {
	Driver  string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "mysql"
	Path    string `yaml:"path" mapstructure:"path"`     // sqlite file, relative to the project dir
	DSN     string `yaml:"dsn,omitempty" mapstructure:"dsn"`
	LogMode bool   `yaml:"log_mode" mapstructure:"log_mode"`
}

// ServerConfig controls `ryoshu serve`.
type ServerConfig struct {
	Address      string   `yaml:"address" mapstructure:"address"`
	Mode         string   `yaml:"mode" mapstructure:"mode"`
	AllowOrigins []string `yaml:"allow_origins" mapstructure:"allow_origins"`
}

// CaptureConfig controls image intake.
type CaptureConfig struct {
	Extractor string       `yaml:"extractor" mapstructure:"extractor"`
	InboxDir  string       `yaml:"inbox_dir" mapstructure:"inbox_dir"`
	Camera    CameraConfig `yaml:"camera" mapstructure:"camera"`
}

// CameraConfig holds the ideal capture resolution.
type CameraConfig struct {
	Width  int `yaml:"width" mapstructure:"width"`
	Height int `yaml:"height" mapstructure:"height"`
}

// ExportConfig controls CSV/XLSX output.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
	BOM bool   `yaml:"bom" mapstructure:"bom"`
}

// LogConfig sets the log level (debug, info, warn, error).
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Load reads a ryoshu.yaml file from disk. Values can be overridden by
// RYOSHU_* environment variables; a .env file next to the config is loaded
// first when present.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join("data", "receipts.db"),
		},
		Server: ServerConfig{
			Address:      "127.0.0.1:8080",
			Mode:         "release",
			AllowOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		},
		Capture: CaptureConfig{
			Extractor: "mock",
			InboxDir:  "inbox",
			Camera:    CameraConfig{Width: 1920, Height: 1080},
		},
		Export: ExportConfig{
			Dir: "exports",
			BOM: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Resolve makes relative paths in cfg absolute against the project directory.
func (c *Config) Resolve(projectDir string) {
	c.Database.Path = resolve(projectDir, c.Database.Path)
	c.Capture.InboxDir = resolve(projectDir, c.Capture.InboxDir)
	c.Export.Dir = resolve(projectDir, c.Export.Dir)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// setDefaults registers every key so AutomaticEnv can override values the
// file leaves out.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.log_mode", d.Database.LogMode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.allow_origins", d.Server.AllowOrigins)
	v.SetDefault("capture.extractor", d.Capture.Extractor)
	v.SetDefault("capture.inbox_dir", d.Capture.InboxDir)
	v.SetDefault("capture.camera.width", d.Capture.Camera.Width)
	v.SetDefault("capture.camera.height", d.Capture.Camera.Height)
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("export.bom", d.Export.BOM)
	v.SetDefault("log.level", d.Log.Level)
}
