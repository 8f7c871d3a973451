// Package config loads zone5 settings from defaults, an optional YAML file,
// a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/zone"
)

// ErrConfiguration marks a missing or inconsistent setting.
var ErrConfiguration = errors.New("configuration error")

// Store backends.
const (
	BackendGitHub = "github"
	BackendBadger = "badger"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Config is the top-level configuration. Field tags use mapstructure for
// viper unmarshalling.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Zone    ZoneConfig    `mapstructure:"zone"`
	Store   StoreConfig   `mapstructure:"store"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	Badger  BadgerConfig  `mapstructure:"badger"`
	GCS     GCSConfig     `mapstructure:"gcs"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Influx  InfluxConfig  `mapstructure:"influx"`
	Monitor MonitorConfig `mapstructure:"monitor"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
	File   string `mapstructure:"file"`   // optional second sink
}

// ZoneConfig describes the athlete and the target band. Min and Max of zero
// derive the band from Age.
type ZoneConfig struct {
	Age  int           `mapstructure:"age"`
	Min  int           `mapstructure:"min"`
	Max  int           `mapstructure:"max"`
	Tick time.Duration `mapstructure:"tick"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend       string        `mapstructure:"backend"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBase     time.Duration `mapstructure:"retry_base"`
}

// GitHubConfig locates the document in a repository.
type GitHubConfig struct {
	Token  string `mapstructure:"token"`
	Repo   string `mapstructure:"repo"`
	Path   string `mapstructure:"path"`
	Branch string `mapstructure:"branch"`
	APIURL string `mapstructure:"api_url"`
}

// BadgerConfig locates the embedded database.
type BadgerConfig struct {
	Path string `mapstructure:"path"`
}

// GCSConfig locates the document in Cloud Storage.
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Object          string `mapstructure:"object"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Endpoint        string `mapstructure:"endpoint"`
}

// HTTPConfig configures the web server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	// Secret guards ingest when set.
	Secret string  `mapstructure:"secret"`
	Rate   float64 `mapstructure:"rate"` // ingest requests per second, 0 = unlimited
	Burst  int     `mapstructure:"burst"`
}

// MQTTConfig configures event publishing. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker     string `mapstructure:"broker"`
	ClientID   string `mapstructure:"client_id"`
	BufferSize int    `mapstructure:"buffer_size"`
}

// InfluxConfig configures the time-series export. An empty URL disables it.
type InfluxConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

// MonitorConfig configures the live sensor daemon. An empty Remote flushes
// into the local store; otherwise batches are posted to that zone5 server.
type MonitorConfig struct {
	Remote    string        `mapstructure:"remote"`
	Pin       int           `mapstructure:"pin"`
	Poll      time.Duration `mapstructure:"poll"`
	Flush     time.Duration `mapstructure:"flush"`
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

// Band returns the configured band, derived from age unless both bounds are set.
func (c *Config) Band() zone.Band {
	if c.Zone.Min > 0 || c.Zone.Max > 0 {
		return zone.Band{Min: c.Zone.Min, Max: c.Zone.Max}
	}
	return zone.BandForAge(c.Zone.Age)
}

// Profile returns the syncer profile for this configuration.
func (c *Config) Profile() syncer.Profile {
	return syncer.Profile{Age: c.Zone.Age, Band: c.Band(), Tick: c.Zone.Tick}
}

// Validate checks settings that do not depend on the selected command.
func (c *Config) Validate() error {
	if c.Zone.Age <= 0 || c.Zone.Age >= 220 {
		return fmt.Errorf("%w: zone.age %d out of range", ErrConfiguration, c.Zone.Age)
	}
	if !c.Band().Valid() {
		return fmt.Errorf("%w: zone band %d-%d is empty or inverted", ErrConfiguration, c.Zone.Min, c.Zone.Max)
	}
	if c.Zone.Tick <= 0 || c.Zone.Tick > syncer.MaxTickSeconds*time.Second {
		return fmt.Errorf("%w: zone.tick %v must be in (0, 1h]", ErrConfiguration, c.Zone.Tick)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q must be text or json", ErrConfiguration, c.Log.Format)
	}
	if c.Store.RetryAttempts < 1 {
		return fmt.Errorf("%w: store.retry_attempts must be at least 1", ErrConfiguration)
	}
	if c.HTTP.Rate < 0 {
		return fmt.Errorf("%w: http.rate must not be negative", ErrConfiguration)
	}
	return nil
}

// ValidateStore checks that the selected backend has what it needs. It is
// separate from Validate so read-only commands still start without
// credentials and the server can report the problem on ingest.
func (c *Config) ValidateStore() error {
	switch c.Store.Backend {
	case BackendGitHub:
		if c.GitHub.Token == "" {
			return fmt.Errorf("%w: Missing GITHUB_TOKEN", ErrConfiguration)
		}
		if c.GitHub.Repo == "" || c.GitHub.Path == "" {
			return fmt.Errorf("%w: github.repo and github.path are required", ErrConfiguration)
		}
	case BackendBadger:
		if c.Badger.Path == "" {
			return fmt.Errorf("%w: badger.path is required", ErrConfiguration)
		}
	case BackendGCS:
		if c.GCS.Bucket == "" || c.GCS.Object == "" {
			return fmt.Errorf("%w: gcs.bucket and gcs.object are required", ErrConfiguration)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrConfiguration, c.Store.Backend)
	}
	return nil
}

// ValidateMonitor checks the live daemon settings.
func (c *Config) ValidateMonitor() error {
	if c.Monitor.Poll <= 0 {
		return fmt.Errorf("%w: monitor.poll must be positive", ErrConfiguration)
	}
	if c.Monitor.Flush <= 0 {
		return fmt.Errorf("%w: monitor.flush must be positive", ErrConfiguration)
	}
	if c.Monitor.Heartbeat < 0 {
		return fmt.Errorf("%w: monitor.heartbeat must not be negative", ErrConfiguration)
	}
	if c.Monitor.Pin < 0 {
		return fmt.Errorf("%w: monitor.pin must not be negative", ErrConfiguration)
	}
	return nil
}
