// Package config loads service settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"kuanb/gosm-scene/geom"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Overpass  OverpassConfig  `yaml:"overpass"`
	Nominatim NominatimConfig `yaml:"nominatim"`
	Log       LogConfig       `yaml:"log"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	// PBFPath switches the feature source to a local extract when set.
	PBFPath string `yaml:"pbf_path,omitempty"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

type OverpassConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type NominatimConfig struct {
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	Limit     int           `yaml:"limit"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultsConfig seeds new sessions. Layer toggles left unset are on.
type DefaultsConfig struct {
	Lat       float64 `yaml:"lat"`
	Lon       float64 `yaml:"lon"`
	Radius    float64 `yaml:"radius"`
	Buildings *bool   `yaml:"buildings,omitempty"`
	Water     *bool   `yaml:"water,omitempty"`
	Parks     *bool   `yaml:"parks,omitempty"`
}

// Layers resolves the layer toggles.
func (d DefaultsConfig) Layers() (buildings, water, parks bool) {
	return boolOr(d.Buildings, true), boolOr(d.Water, true), boolOr(d.Parks, true)
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

func boolPtr(b bool) *bool { return &b }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			MetricsInterval: 30 * time.Second,
		},
		Overpass: OverpassConfig{
			URL:     "https://overpass-api.de/api/interpreter",
			Timeout: 30 * time.Second,
		},
		Nominatim: NominatimConfig{
			URL:       "https://nominatim.openstreetmap.org",
			Timeout:   10 * time.Second,
			UserAgent: "gosm-scene/1.0",
			Limit:     5,
		},
		Log: LogConfig{Level: "info"},
		Defaults: DefaultsConfig{
			Lat:       41.0082,
			Lon:       28.9784,
			Radius:    500,
			Buildings: boolPtr(true),
			Water:     boolPtr(true),
			Parks:     boolPtr(true),
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.Server.Addr = getEnv("GOSM_ADDR", cfg.Server.Addr)
	cfg.Overpass.URL = getEnv("GOSM_OVERPASS_URL", cfg.Overpass.URL)
	cfg.Nominatim.URL = getEnv("GOSM_NOMINATIM_URL", cfg.Nominatim.URL)
	cfg.Log.Level = getEnv("GOSM_LOG_LEVEL", cfg.Log.Level)
	cfg.PBFPath = getEnv("GOSM_PBF", cfg.PBFPath)
	cfg.Defaults.Radius = getEnvAsFloat("GOSM_DEFAULT_RADIUS", cfg.Defaults.Radius)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unusable settings and clamps the default radius.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is empty")
	}
	if c.PBFPath == "" && c.Overpass.URL == "" {
		return errors.New("config: either overpass.url or pbf_path is required")
	}
	if c.Defaults.Lat < -90 || c.Defaults.Lat > 90 || c.Defaults.Lon < -180 || c.Defaults.Lon > 180 {
		return fmt.Errorf("config: default center %v,%v out of range", c.Defaults.Lat, c.Defaults.Lon)
	}
	if c.Nominatim.Limit <= 0 {
		c.Nominatim.Limit = 5
	}
	c.Defaults.Radius = geom.ClampRadius(c.Defaults.Radius)
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
