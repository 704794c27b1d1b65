package config

import "time"

type Security struct{}

var _ SecurityConfig = Security{}

// GetBrowserIdleTimeout is how long an unseen browser keeps its in-memory session state.
// The stored credential survives this; the browser just hydrates again.
func (Security) GetBrowserIdleTimeout() time.Duration {
	return 2 * time.Hour
}

func (Security) GetSweepInterval() time.Duration {
	return 5 * time.Minute
}

func (Security) GetAuthFlowTimeout() time.Duration {
	return 10 * time.Minute
}

func (Security) GetBrowserCookieMaxAge() time.Duration {
	return 365 * 24 * time.Hour
}
