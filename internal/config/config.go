package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config represents the dashboard configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	API         APIConfig         `yaml:"api"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Devices     DevicesConfig     `yaml:"devices"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Storage     StorageConfig     `yaml:"storage"`
	Session     SessionConfig     `yaml:"session"`
	NATS        NATSConfig        `yaml:"nats"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents the HTTP listener configuration
type APIConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// TelemetryConfig points at the external uplink API. Both fields may be empty
// at startup; the client reports the gap on every call instead.
type TelemetryConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// DevicesConfig tunes the admin device aggregation
type DevicesConfig struct {
	FetchConcurrency int `yaml:"fetch_concurrency"`
	DefaultDays      int `yaml:"default_days"`
}

// CredentialsConfig locates the static login list
type CredentialsConfig struct {
	File string `yaml:"file"`
}

// StorageConfig selects where session flags are persisted
type StorageConfig struct {
	Driver          string        `yaml:"driver"` // memory | sqlite | postgres
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// SessionConfig represents the session cookie configuration
type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"` // 0 keeps the cookie until logout
	Secure     bool          `yaml:"secure"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	Subject           string        `yaml:"subject"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// MQTTConfig represents MQTT configuration
type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Topic     string `yaml:"topic"`
	QoS       byte   `yaml:"qos"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from file. A missing file is not an error: the
// dashboard can run from defaults and environment variables alone.
func Load(filename string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	var cfg Config

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Warn().Str("file", filename).Msg("Config file not found, using defaults")
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TELEMETRY_BASE_URL"); v != "" {
		c.Telemetry.BaseURL = v
	}

	if v := os.Getenv("TELEMETRY_API_KEY"); v != "" {
		c.Telemetry.APIKey = v
	}

	if v := os.Getenv("CREDENTIALS_FILE"); v != "" {
		c.Credentials.File = v
	}

	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Storage.DSN = dsn
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Session.Secret = secret
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if broker := os.Getenv("MQTT_BROKER_URL"); broker != "" {
		c.MQTT.BrokerURL = broker
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.API.Port = p
		}
	}
}

// setDefaults fills every unset field
func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "LoRaWAN UMS"
	}
	if c.Server.Version == "" {
		c.Server.Version = "1.0.0"
	}

	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"*"}
	}

	if c.Devices.FetchConcurrency <= 0 {
		c.Devices.FetchConcurrency = 8
	}

	if c.Credentials.File == "" {
		c.Credentials.File = "auth/users.json"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Driver == "sqlite" && c.Storage.DSN == "" {
		c.Storage.DSN = "data/sessions.db"
	}
	if c.Storage.MaxOpenConns == 0 {
		c.Storage.MaxOpenConns = 10
	}

	if c.Session.CookieName == "" {
		c.Session.CookieName = "lorawan_session"
	}

	if c.NATS.Subject == "" {
		c.NATS.Subject = "dashboard.devices.refreshed"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 2 * time.Second
	}

	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "lorawan-ums/devices/refreshed"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "lorawan-ums-dashboard"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validate rejects settings the dashboard cannot start with
func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid storage driver: %s", c.Storage.Driver)
	}

	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage dsn is required for postgres")
	}

	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt qos: %d", c.MQTT.QoS)
	}

	return nil
}

// ValidateServer checks the settings only the HTTP server needs. The
// operator CLI never signs session cookies and skips it.
func (c *Config) ValidateServer() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("session secret is required (set session.secret or JWT_SECRET)")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// PrintConfigSummary logs the effective configuration without secrets
func (c *Config) PrintConfigSummary() {
	log.Info().
		Str("name", c.Server.Name).
		Str("addr", c.Addr()).
		Str("telemetry", c.Telemetry.BaseURL).
		Bool("apiKeySet", c.Telemetry.APIKey != "").
		Str("storage", c.Storage.Driver).
		Str("credentials", c.Credentials.File).
		Bool("nats", c.NATS.URL != "").
		Bool("mqtt", c.MQTT.BrokerURL != "").
		Msg("Configuration loaded")
}
