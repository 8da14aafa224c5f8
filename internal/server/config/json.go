package config

import (
	"encoding/json"
	"os"

	"github.com/accountd/accountd/internal/flagx"
	"github.com/accountd/accountd/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "24h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr            string         `json:"endpoint_addr"`
	DatabaseDSN             string         `json:"database_dsn"`
	SessionStore            string         `json:"session_store"`
	RedisDSN                string         `json:"redis_dsn"`
	SessionValidityDuration timex.Duration `json:"session_validity_duration"`
	SessionCleanupInterval  timex.Duration `json:"session_cleanup_interval"`
	SecureCookies           bool           `json:"secure_cookies"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SessionStore != "" {
		config.SessionStore = c.SessionStore
	}
	if c.RedisDSN != "" {
		config.RedisDSN = c.RedisDSN
	}
	if c.SessionValidityDuration.Duration != 0 {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if c.SessionCleanupInterval.Duration != 0 {
		config.SessionCleanupInterval = c.SessionCleanupInterval.Duration
	}
	if c.SecureCookies {
		config.SecureCookies = true
	}
}
