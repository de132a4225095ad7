// Package config loads and saves PawPrint's application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Version is the software version reported in the APRS-IS login line.
const Version = "1.0"

// Config represents the complete application configuration.
type Config struct {
	Station   StationConfig   `json:"station"`
	APRSIS    APRSISConfig    `json:"aprs_is"`
	AGW       AGWConfig       `json:"agw"`
	Server    ServerConfig    `json:"server"`
	Data      DataConfig      `json:"data"`
	Direwolf  DirewolfConfig  `json:"direwolf"`
	Retention RetentionConfig `json:"retention"`
}

// StationConfig identifies this node on the APRS network.
type StationConfig struct {
	// Callsign with SSID, e.g. "KI9NG-10"
	Callsign string `json:"callsign"`

	// Passcode is the APRS-IS passcode for the callsign. "-1" logs in
	// unverified (receive only).
	Passcode string `json:"passcode"`
}

// APRSISConfig contains the inbound feed connection settings.
type APRSISConfig struct {
	// Host is the tier-2 APRS-IS server (default: "noam.aprs2.net")
	Host string `json:"host"`

	// Port is the filtered-feed port (default: 14580)
	Port int `json:"port"`

	// FilterRadiusKM is the radius of the geographic subscription
	FilterRadiusKM float64 `json:"filter_radius_km"`

	// FilterCenterLat/Lon seed the login-line filter before our own
	// position is known
	FilterCenterLat float64 `json:"filter_center_lat"`
	FilterCenterLon float64 `json:"filter_center_lon"`

	// ReconnectDelaySeconds is the fixed delay between reconnect attempts.
	// There is no backoff cap and no retry limit; the feed never gives up.
	ReconnectDelaySeconds int `json:"reconnect_delay_seconds"`

	// FilterMoveKM is the hysteresis threshold: the subscription is only
	// re-centered when our position has moved at least this far
	FilterMoveKM float64 `json:"filter_move_km"`
}

// AGWConfig contains the AGW send-channel registration settings.
type AGWConfig struct {
	// Enabled controls whether we register with the local AGW port at all
	Enabled bool `json:"enabled"`

	// Host is the Direwolf AGW network interface (default: "localhost")
	Host string `json:"host"`

	// Port is the AGW TCP port (default: 8080)
	Port int `json:"port"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: "5000")
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`
}

// DataConfig selects and configures the persistence backend.
type DataConfig struct {
	// Driver is "file" (JSON blobs in Dir) or "postgres"
	Driver string `json:"driver"`

	// Dir is the blob directory for the file driver
	// (default: "/var/lib/pawprint", with automatic fallback to ./data
	// when it is not writable)
	Dir string `json:"dir"`

	// Postgres connection settings, used only by the postgres driver
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty"`
}

// DirewolfConfig points at the local Direwolf installation.
type DirewolfConfig struct {
	// ConfPath is the direwolf.conf location (default: "/etc/direwolf.conf")
	ConfPath string `json:"conf_path"`

	// LogPath is the console log tailed for our own beacons
	// (default: "/var/log/direwolf/direwolf_console.log")
	LogPath string `json:"log_path"`
}

// RetentionConfig bounds the in-memory and persisted state.
type RetentionConfig struct {
	// StationMaxAgeHours culls stations and track points not heard within
	// this window (default: 168 = 7 days)
	StationMaxAgeHours int `json:"station_max_age_hours"`

	// MaxStations caps how many stations are persisted, most recent first
	MaxStations int `json:"max_stations"`

	// TrackMaxPoints caps each station's track
	// (2016 points at 5-minute intervals is about 7 days)
	TrackMaxPoints int `json:"track_max_points"`

	// MessageHistory caps the persisted message ledger
	MessageHistory int `json:"message_history"`
}

// ReconnectDelay returns the feed reconnect delay as a duration.
func (c *APRSISConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySeconds) * time.Second
}

// StationMaxAge returns the retention window as a duration.
func (c *RetentionConfig) StationMaxAge() time.Duration {
	return time.Duration(c.StationMaxAgeHours) * time.Hour
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Station: StationConfig{
			Callsign: "N0CALL",
			Passcode: "-1",
		},
		APRSIS: APRSISConfig{
			Host:                  "noam.aprs2.net",
			Port:                  14580,
			FilterRadiusKM:        50,
			FilterCenterLat:       41.54,
			FilterCenterLon:       -87.14,
			ReconnectDelaySeconds: 30,
			FilterMoveKM:          2.0,
		},
		AGW: AGWConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    8080,
		},
		Server: ServerConfig{
			Port: "5000",
			Host: "0.0.0.0",
		},
		Data: DataConfig{
			Driver: "file",
			Dir:    "/var/lib/pawprint",
		},
		Direwolf: DirewolfConfig{
			ConfPath: "/etc/direwolf.conf",
			LogPath:  "/var/log/direwolf/direwolf_console.log",
		},
		Retention: RetentionConfig{
			StationMaxAgeHours: 168,
			MaxStations:        500,
			TrackMaxPoints:     2016,
			MessageHistory:     200,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides.
// This keeps the passcode and database password out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if call := os.Getenv("PAWPRINT_CALLSIGN"); call != "" {
		c.Station.Callsign = call
	}
	if pass := os.Getenv("PAWPRINT_PASSCODE"); pass != "" {
		c.Station.Passcode = pass
	}
	if port := os.Getenv("PAWPRINT_PORT"); port != "" {
		c.Server.Port = port
	}
	if dbPassword := os.Getenv("PAWPRINT_DB_PASSWORD"); dbPassword != "" {
		c.Data.Password = dbPassword
	}
}
