package config

import (
	"encoding/json"
	"os"

	"github.com/perfcanvas/scriptstore/internal/flagx"
	"github.com/perfcanvas/scriptstore/internal/timex"
)

// JsonConfig is the intermediate DTO used only for reading JSON
// configuration files. Interval fields use timex.Duration, accepting both
// string values such as "3s" and integer nanoseconds. After unmarshalling,
// values are copied into the runtime Config.
type JsonConfig struct {
	BindAddr          string         `json:"bind_addr"`
	DatabaseDSN       string         `json:"database_dsn"`
	RedisAddr         string         `json:"redis_addr"`
	RepoRoot          string         `json:"repo_root"`
	SecretKey         string         `json:"secret_key"`
	ListingRetryDelay timex.Duration `json:"listing_retry_delay"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. No flag means no JSON layer.
// An unreadable or invalid file panics; the server must not start on a
// half-applied config.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.BindAddr != "" {
		config.BindAddr = c.BindAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.RedisAddr != "" {
		config.RedisAddr = c.RedisAddr
	}
	if c.RepoRoot != "" {
		config.RepoRoot = c.RepoRoot
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.ListingRetryDelay.Duration != 0 {
		config.ListingRetryDelay = c.ListingRetryDelay.Duration
	}
}
