// Package config loads the daemon and front-end settings from YAML.
package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	LLM struct {
		APIKey    string        `yaml:"api_key"` // falls back to GEMINI_API_KEY
		ModelName string        `yaml:"model_name"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"llm"`

	Presets struct {
		File string `yaml:"file"`
	} `yaml:"presets"`

	// Monitors are [left, top, right, bottom] in virtual screen pixels.
	Monitors struct {
		Main  []int `yaml:"main"`
		Left  []int `yaml:"left,omitempty"`
		Right []int `yaml:"right,omitempty"`
	} `yaml:"monitors"`

	Browser struct {
		ControlURL string `yaml:"control_url,omitempty"`
		Launch     bool   `yaml:"launch"`
	} `yaml:"browser"`

	History struct {
		Path string `yaml:"path"`
	} `yaml:"history"`

	Query struct {
		Memory int `yaml:"memory"`
	} `yaml:"query"`

	URLShorthands map[string]string `yaml:"url_shorthands,omitempty"`

	Refresh struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"refresh"`

	Log struct {
		Level string `yaml:"level,omitempty"` // debug, info, warn, error
		File  string `yaml:"file,omitempty"`
	} `yaml:"log,omitempty"`
}

const (
	defaultConfigDirName  = ".paleta"
	defaultConfigFileName = "config.yaml"
	defaultAddr           = "127.0.0.1:8770"
	defaultModelName      = "gemini-1.5-flash"
	defaultLLMTimeout     = 20 * time.Second
	defaultQueryMemory    = 5
	defaultRefresh        = 10 * time.Second
	defaultLogLevel       = "info"
)

// Dir is the per-user directory holding config, presets and history.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not get user home directory")
	}
	return filepath.Join(home, defaultConfigDirName), nil
}

// Load reads explicitPath when given. Otherwise it tries ./config.yaml and
// then ~/.paleta/config.yaml, falling back to defaults. It returns the path
// actually read, or "" for defaults.
func Load(explicitPath string) (*Config, string, error) {
	if explicitPath != "" {
		cfg, err := loadFromFile(explicitPath)
		if err != nil {
			return nil, "", err
		}
		return finish(cfg, explicitPath)
	}

	candidates := []string{defaultConfigFileName}
	if dir, err := Dir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, defaultConfigFileName))
	}
	for _, path := range candidates {
		cfg, err := loadFromFile(path)
		if err == nil {
			return finish(cfg, path)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", err
		}
	}
	return finish(&Config{}, "")
}

func finish(cfg *Config, path string) (*Config, string, error) {
	if err := applyDefaults(cfg); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, path, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config yaml %s", path)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.LLM.ModelName == "" {
		cfg.LLM.ModelName = defaultModelName
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = defaultLLMTimeout
	}
	if cfg.Query.Memory <= 0 {
		cfg.Query.Memory = defaultQueryMemory
	}
	if cfg.Refresh.Interval <= 0 {
		cfg.Refresh.Interval = defaultRefresh
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if len(cfg.Monitors.Main) == 0 {
		cfg.Monitors.Main = []int{0, 0, 1920, 1080}
	}
	if cfg.Presets.File != "" && cfg.History.Path != "" {
		return nil
	}
	dir, err := Dir()
	if err != nil {
		return err
	}
	if cfg.Presets.File == "" {
		cfg.Presets.File = filepath.Join(dir, "presets.yaml")
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(dir, "history.db")
	}
	return nil
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	if err := CheckLoopback(c.Server.Addr); err != nil {
		return err
	}
	for name, r := range map[string][]int{"main": c.Monitors.Main, "left": c.Monitors.Left, "right": c.Monitors.Right} {
		if len(r) == 0 {
			continue
		}
		if len(r) != 4 {
			return errors.Errorf("monitors.%s must be [left, top, right, bottom]", name)
		}
		if r[0] >= r[2] || r[1] >= r[3] {
			return errors.Errorf("monitors.%s has an empty area: %v", name, r)
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// CheckLoopback rejects listen addresses that are reachable off-host.
func CheckLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.Wrapf(err, "invalid listen address %q", addr)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return errors.Errorf("listen address %q is not a loopback address", addr)
	}
	return nil
}
