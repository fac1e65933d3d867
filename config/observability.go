package config

import (
	"strings"
	"time"
)

const (
	defaultMetricsPrefix        = "filetrack"
	defaultMetricsFlushInterval = time.Second
)

// ObservabilityConfig groups configuration that controls metrics.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to StatsD.
// Tags are attached to every metric, e.g. METRICS_TAGS="env:prod,region:us-east".
type ObservabilityMetricsConfig struct {
	Enabled       bool              `env:"METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string            `env:"STATSD_ADDR"            envDefault:"127.0.0.1:8125"`
	Prefix        string            `env:"METRICS_PREFIX"         envDefault:"filetrack"`
	Tags          map[string]string `env:"METRICS_TAGS"                                      envKeyValSeparator:":"`
	FlushInterval time.Duration     `env:"METRICS_FLUSH_INTERVAL" envDefault:"1s"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
	c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), ".")
	if c.Prefix == "" {
		c.Prefix = defaultMetricsPrefix
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultMetricsFlushInterval
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}
