package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Content sources the API can read items from.
const (
	SourceDirectus = "directus"
	SourcePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Content   ContentConfig   `mapstructure:"content"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Search    SearchConfig    `mapstructure:"search"`
	Overpass  OverpassConfig  `mapstructure:"overpass"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// ContentConfig points at the Directus-compatible content API.
type ContentConfig struct {
	Source     string `mapstructure:"source"`
	BaseURL    string `mapstructure:"base_url"`
	Token      string `mapstructure:"token"`
	Collection string `mapstructure:"collection"`
	Timeout    int    `mapstructure:"timeout"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type SearchConfig struct {
	DefaultRadiusKm float64 `mapstructure:"default_radius_km"`
	MaxRadiusKm     float64 `mapstructure:"max_radius_km"`
	MaxLimit        int     `mapstructure:"max_limit"`
	CacheTTL        int     `mapstructure:"cache_ttl"`
	ClusterRes      int     `mapstructure:"cluster_resolution"`
}

type OverpassConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Timeout  int    `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: LOKAL_CONTENT_BASE_URL → content.base_url
	v.SetEnvPrefix("LOKAL")
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

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "lokal")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "lokalconnect")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("content.source", SourceDirectus)
	v.SetDefault("content.base_url", "http://localhost:8056")
	v.SetDefault("content.token", "")
	v.SetDefault("content.collection", "base_items")
	v.SetDefault("content.timeout", 10)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "item-sync")
	v.SetDefault("search.default_radius_km", 5.0)
	v.SetDefault("search.max_radius_km", 100.0)
	v.SetDefault("search.max_limit", 200)
	v.SetDefault("search.cache_ttl", 300)
	v.SetDefault("search.cluster_resolution", 8)
	v.SetDefault("overpass.endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	switch c.Content.Source {
	case SourceDirectus:
		if c.Content.BaseURL == "" {
			errs = append(errs, "content.base_url is required for the directus source")
		}
		if c.Content.Collection == "" {
			errs = append(errs, "content.collection is required for the directus source")
		}
	case SourcePostgres:
	default:
		errs = append(errs, fmt.Sprintf("content.source must be %q or %q, got %q", SourceDirectus, SourcePostgres, c.Content.Source))
	}
	if c.Content.Timeout <= 0 {
		errs = append(errs, "content.timeout must be positive")
	}
	if c.Search.DefaultRadiusKm <= 0 {
		errs = append(errs, "search.default_radius_km must be positive")
	}
	if c.Search.MaxRadiusKm < c.Search.DefaultRadiusKm {
		errs = append(errs, "search.max_radius_km must not be below search.default_radius_km")
	}
	if c.Search.MaxLimit <= 0 {
		errs = append(errs, "search.max_limit must be positive")
	}
	if c.Search.ClusterRes < 0 || c.Search.ClusterRes > 15 {
		errs = append(errs, fmt.Sprintf("search.cluster_resolution must be 0-15, got %d", c.Search.ClusterRes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
