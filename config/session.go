package config

import "time"

// SessionConfig contains session state machine configuration.
type SessionConfig struct {
	// InitDeadline bounds how long startup may wait for the current-user
	// fetch before committing to unauthenticated.
	InitDeadline time.Duration `env:"INIT_DEADLINE" envDefault:"3s"`

	// MonitorInterval is how often an active session is revalidated.
	MonitorInterval time.Duration `env:"MONITOR_INTERVAL" envDefault:"5m"`
}

// Sanitize applies guardrails to session configuration values.
func (c *SessionConfig) Sanitize() {
	if c.InitDeadline <= 0 {
		c.InitDeadline = 3 * time.Second
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = 5 * time.Minute
	}
}
