package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sweeney/zone5/internal/sensor"
	"github.com/sweeney/zone5/internal/store"
	"github.com/sweeney/zone5/internal/zone"
)

const (
	configName = ".zone5"
	configType = "yaml"
	envPrefix  = "ZONE5"
)

// legacyEnv maps keys to the unprefixed variable names the hosted ingest
// function used. The prefixed name wins when both are set.
var legacyEnv = map[string]string{
	"github.token": "GITHUB_TOKEN",
	"http.secret":  "SYNC_SECRET",
}

// Load reads configuration from defaults, the config file, envFile and the
// environment. If configPath is empty, .zone5.yaml is searched in CWD and
// $HOME. A missing config file or env file is not an error.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("zone.age", 30)
	v.SetDefault("zone.min", 0)
	v.SetDefault("zone.max", 0)
	v.SetDefault("zone.tick", zone.DefaultTick)

	v.SetDefault("store.backend", BackendGitHub)
	v.SetDefault("store.retry_attempts", 3)
	v.SetDefault("store.retry_base", 500*time.Millisecond)

	v.SetDefault("github.token", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.path", "zone5-data.json")
	v.SetDefault("github.branch", "")
	v.SetDefault("github.api_url", store.DefaultGitHubAPI)

	v.SetDefault("badger.path", "zone5.db")

	v.SetDefault("gcs.bucket", "")
	v.SetDefault("gcs.object", "zone5-data.json")
	v.SetDefault("gcs.credentials_file", "")
	v.SetDefault("gcs.endpoint", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.secret", "")
	v.SetDefault("http.rate", 1.0)
	v.SetDefault("http.burst", 5)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "zone5")
	v.SetDefault("mqtt.buffer_size", 256)

	v.SetDefault("influx.url", "")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "zone5")

	v.SetDefault("monitor.remote", "")
	v.SetDefault("monitor.pin", sensor.DefaultBeatPin)
	v.SetDefault("monitor.poll", time.Second)
	v.SetDefault("monitor.flush", 5*time.Minute)
	v.SetDefault("monitor.heartbeat", 15*time.Minute)
}
