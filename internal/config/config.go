package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath   = "config.json"
	DefaultSymbol = "002050.SZ"
	DefaultMonths = 6
)

type Provider struct {
	BaseURL               string `json:"base_url" yaml:"base_url"`
	UT                    string `json:"ut" yaml:"ut"`
	RequestTimeoutSec     int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
	Adjust                string `json:"adjust" yaml:"adjust"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	Burst                 int    `json:"burst" yaml:"burst"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	CacheMaxItems         int    `json:"cache_max_items" yaml:"cache_max_items"`
}

type Archive struct {
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`
}

type Schedule struct {
	Cron    string   `json:"cron" yaml:"cron"`
	Symbols []string `json:"symbols" yaml:"symbols"`
	Months  int      `json:"months" yaml:"months"`
}

type Server struct {
	Port string `json:"port" yaml:"port"`
}

type Log struct {
	Env   string `json:"env" yaml:"env"`
	Level string `json:"level" yaml:"level"`
}

type Config struct {
	DataDir  string   `json:"data_dir" yaml:"data_dir"`
	CacheKey string   `json:"cache_key" yaml:"cache_key"`
	Provider Provider `json:"provider" yaml:"provider"`
	Archive  Archive  `json:"archive" yaml:"archive"`
	Schedule Schedule `json:"schedule" yaml:"schedule"`
	Server   Server   `json:"server" yaml:"server"`
	Log      Log      `json:"log" yaml:"log"`
}

// bootstrap is what a freshly created config file holds.
type bootstrap struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

func Default() Config {
	dataDir := "stock_data"
	if wd, err := os.Getwd(); err == nil {
		dataDir = filepath.Join(wd, "stock_data")
	}
	return Config{
		DataDir:  dataDir,
		CacheKey: "symbol",
		Provider: Provider{
			BaseURL:           "https://push2his.eastmoney.com",
			RequestTimeoutSec: 15,
			CacheMaxItems:     1000,
		},
		Schedule: Schedule{
			// weekdays after the A-share close
			Cron:    "0 30 15 * * 1-5",
			Symbols: []string{DefaultSymbol},
			Months:  DefaultMonths,
		},
		Server: Server{Port: "8080"},
	}
}

// Load reads the config file at path (config.json when empty) over the
// defaults. A missing file is created holding only data_dir. Files ending in
// .yaml or .yml are YAML, anything else JSON. Environment variables override
// select fields afterwards.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := writeBootstrap(path, bootstrap{DataDir: cfg.DataDir}); err != nil {
			return cfg, err
		}
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := decode(path, b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func decode(path string, b []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(b, cfg)
	}
	return json.Unmarshal(b, cfg)
}

func writeBootstrap(path string, v bootstrap) error {
	var b []byte
	var err error
	if isYAML(path) {
		b, err = yaml.Marshal(v)
	} else {
		b, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("STOCKBARS_DATA_DIR"); v != "" { cfg.DataDir = v }
	if v := os.Getenv("STOCKBARS_CACHE_KEY"); v != "" { cfg.CacheKey = v }
	if v := os.Getenv("EASTMONEY_BASE_URL"); v != "" { cfg.Provider.BaseURL = v }
	if v := os.Getenv("EASTMONEY_UT"); v != "" { cfg.Provider.UT = v }
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Provider.RequestTimeoutSec = x }
	}
	if v := os.Getenv("PROVIDER_MAX_RPM"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Provider.MaxRequestsPerMinute = x }
	}
	if v := os.Getenv("PROVIDER_BURST"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Provider.Burst = x }
	}
	if v := os.Getenv("PROVIDER_MIN_INTERVAL_SEC"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Provider.MinRequestIntervalSec = x }
	}
	if v := os.Getenv("ARCHIVE_SQLITE_PATH"); v != "" { cfg.Archive.SQLitePath = v }
	if v := os.Getenv("SCHEDULE_CRON"); v != "" { cfg.Schedule.Cron = v }
	if v := os.Getenv("SCHEDULE_SYMBOLS"); v != "" { cfg.Schedule.Symbols = SplitCSV(v) }
	if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
	if v := os.Getenv("LOG_ENV"); v != "" { cfg.Log.Env = v }
	if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.Log.Level = v }
}

func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" { out = append(out, p) }
	}
	return out
}
