package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Tiles   TilesConfig   `mapstructure:"tiles"`
	Source  SourceConfig  `mapstructure:"source"`
	View    ViewConfig    `mapstructure:"view"`
	Input   InputConfig   `mapstructure:"input"`
	Overlay OverlayConfig `mapstructure:"overlay"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type TilesConfig struct {
	Size         int           `mapstructure:"size"`
	ZoomMin      int           `mapstructure:"zoom_min"`
	ZoomMax      int           `mapstructure:"zoom_max"`
	Workers      int           `mapstructure:"workers"`
	Queue        int           `mapstructure:"queue"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	RetryAfter   time.Duration `mapstructure:"retry_after"`
	CacheMax     int64         `mapstructure:"cache_max"`
}

type SourceConfig struct {
	Kind       string        `mapstructure:"kind"`
	URL        string        `mapstructure:"url"`
	Subdomains []string      `mapstructure:"subdomains"`
	UserAgent  string        `mapstructure:"user_agent"`
	Driver     string        `mapstructure:"driver"`
	DSN        string        `mapstructure:"dsn"`
	Fallback   bool          `mapstructure:"fallback"`
	RedisAddr  string        `mapstructure:"redis_addr"`
	RedisTTL   time.Duration `mapstructure:"redis_ttl"`
}

type ViewConfig struct {
	Width  int     `mapstructure:"width"`
	Height int     `mapstructure:"height"`
	Lat    float64 `mapstructure:"lat"`
	Lng    float64 `mapstructure:"lng"`
	Zoom   int     `mapstructure:"zoom"`
	TickHz int     `mapstructure:"tick_hz"`
}

type InputConfig struct {
	DragThreshold float64 `mapstructure:"drag_threshold"`
	ZoomStep      int     `mapstructure:"zoom_step"`
	ClickSlop     float64 `mapstructure:"click_slop"`
}

type OverlayConfig struct {
	Margin float64 `mapstructure:"margin"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

const (
	SourceHTTP    = "http"
	SourceMBTiles = "mbtiles"
	SourceDebug   = "debug"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("tiles.size", 256)
	v.SetDefault("tiles.zoom_min", 2)
	v.SetDefault("tiles.zoom_max", 18)
	v.SetDefault("tiles.workers", 4)
	v.SetDefault("tiles.queue", 64)
	v.SetDefault("tiles.fetch_timeout", "15s")
	v.SetDefault("tiles.retry_after", "30s")
	v.SetDefault("tiles.cache_max", 0)

	v.SetDefault("source.kind", SourceDebug)
	v.SetDefault("source.url", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("source.subdomains", []string{})
	v.SetDefault("source.user_agent", "")
	v.SetDefault("source.driver", "sqlite3")
	v.SetDefault("source.dsn", "")
	v.SetDefault("source.fallback", true)
	v.SetDefault("source.redis_addr", "")
	v.SetDefault("source.redis_ttl", "24h")

	v.SetDefault("view.width", 800)
	v.SetDefault("view.height", 600)
	v.SetDefault("view.lat", 28.6139)
	v.SetDefault("view.lng", 77.2090)
	v.SetDefault("view.zoom", 12)
	v.SetDefault("view.tick_hz", 60)

	v.SetDefault("input.drag_threshold", 0)
	v.SetDefault("input.zoom_step", 1)
	v.SetDefault("input.click_slop", 4)
	v.SetDefault("overlay.margin", 6)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")
}

// Load reads configuration from defaults, an optional TOML file and
// FIELDMAP_ environment variables, in increasing priority. With an empty
// path fieldmap.toml is looked up in . and ./configs.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("fieldmap")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// FIELDMAP_TILES_WORKERS → tiles.workers
	v.SetEnvPrefix("FIELDMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that configuration values are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Tiles.Size <= 0 {
		errs = append(errs, fmt.Sprintf("tiles.size must be positive, got %d", c.Tiles.Size))
	}
	if c.Tiles.ZoomMin < 0 || c.Tiles.ZoomMax > 30 || c.Tiles.ZoomMin > c.Tiles.ZoomMax {
		errs = append(errs, fmt.Sprintf("tiles.zoom_min/zoom_max must satisfy 0 <= min <= max <= 30, got %d/%d", c.Tiles.ZoomMin, c.Tiles.ZoomMax))
	}
	if c.Tiles.Workers <= 0 {
		errs = append(errs, "tiles.workers must be positive")
	}
	if c.Tiles.Queue < 0 {
		errs = append(errs, "tiles.queue must not be negative")
	}
	if c.Tiles.FetchTimeout < 0 || c.Tiles.RetryAfter < 0 {
		errs = append(errs, "tiles.fetch_timeout and tiles.retry_after must not be negative")
	}
	if c.Tiles.CacheMax < 0 {
		errs = append(errs, "tiles.cache_max must not be negative")
	}

	switch c.Source.Kind {
	case SourceDebug:
	case SourceHTTP:
		if c.Source.URL == "" {
			errs = append(errs, "source.url is required for http sources")
		}
	case SourceMBTiles:
		if c.Source.DSN == "" {
			errs = append(errs, "source.dsn is required for mbtiles sources")
		}
		if c.Source.Driver != "sqlite3" && c.Source.Driver != "mysql" {
			errs = append(errs, fmt.Sprintf("source.driver must be sqlite3 or mysql, got %q", c.Source.Driver))
		}
	default:
		errs = append(errs, fmt.Sprintf("source.kind must be http, mbtiles or debug, got %q", c.Source.Kind))
	}

	if c.View.Width <= 0 || c.View.Height <= 0 {
		errs = append(errs, fmt.Sprintf("view size must be positive, got %dx%d", c.View.Width, c.View.Height))
	}
	if c.View.Lat < -90 || c.View.Lat > 90 {
		errs = append(errs, fmt.Sprintf("view.lat must be within [-90, 90], got %g", c.View.Lat))
	}
	if c.View.TickHz <= 0 {
		errs = append(errs, "view.tick_hz must be positive")
	}
	if c.Input.DragThreshold < 0 || c.Input.ClickSlop < 0 {
		errs = append(errs, "input.drag_threshold and input.click_slop must not be negative")
	}
	if c.Input.ZoomStep <= 0 {
		errs = append(errs, "input.zoom_step must be positive")
	}
	if c.Overlay.Margin < 0 {
		errs = append(errs, "overlay.margin must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not a known level", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
