package config

import (
	"strings"
	"time"
)

// APIConfig contains the SprintDeck API endpoint configuration.
type APIConfig struct {
	// BaseURL is the root of the API, e.g. https://api.sprintdeck.example.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:3000/api"`

	// Timeout is the single request budget applied to every auth call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to API configuration values.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}
