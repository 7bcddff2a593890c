package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns the limits used by the API server.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Batches drive a browser and submit real applications.
		{Path: "/autopilot/run", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/autopilot/run/stream", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/apply", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},

		// Imports fetch remote pages and may call the LLM.
		{Path: "/jobs/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

// WithLists returns a copy of c with the given comma-separated IP lists applied.
func (c Config) WithLists(whitelist, blacklist string) *Config {
	c.Whitelist = parseIPList(whitelist)
	c.Blacklist = parseIPList(blacklist)
	return &c
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
