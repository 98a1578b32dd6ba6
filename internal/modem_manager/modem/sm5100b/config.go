package sm5100b

import (
	"time"

	"github.com/LeoCommon/gprsclient/pkg/timer"
)

const (
	DefaultLongTimeout        = 60 * time.Second
	DefaultShortTimeout       = 10 * time.Second
	DefaultStatusPollInterval = time.Second
	DefaultUserAgent          = "gprsclient/0.1"

	// HTTPPort is the remote port of the request socket
	HTTPPort = 80
)

// Config is fixed for the life of a session. Empty APN fields are not rejected
// here, the session reports them when they are first needed.
type Config struct {
	APN         string
	APNUser     string
	APNPassword string
	// DNS is the textual IPv4 address of the resolver
	DNS string

	// LongTimeout guards module bring-up and PDP (re)activation
	LongTimeout time.Duration
	// ShortTimeout guards every other reply
	ShortTimeout time.Duration
	// StatusPollInterval is the pause before re-querying a socket that is not connected yet
	StatusPollInterval time.Duration

	// ResetPDPBeforeRequest deactivates and reactivates an already active PDP
	// context before each request
	ResetPDPBeforeRequest bool

	UserAgent string
}

// DefaultConfig returns the timing defaults with the PDP reset policy enabled
func DefaultConfig() Config {
	return Config{
		LongTimeout:           DefaultLongTimeout,
		ShortTimeout:          DefaultShortTimeout,
		StatusPollInterval:    DefaultStatusPollInterval,
		ResetPDPBeforeRequest: true,
		UserAgent:             DefaultUserAgent,
	}
}

func (c *Config) setDefaults() {
	if c.LongTimeout <= 0 {
		c.LongTimeout = DefaultLongTimeout
	}
	if c.ShortTimeout <= 0 {
		c.ShortTimeout = DefaultShortTimeout
	}
	if c.StatusPollInterval <= 0 {
		c.StatusPollInterval = DefaultStatusPollInterval
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

// apnConfigured reports whether everything needed for PDP setup and DNS is present
func (c *Config) apnConfigured() bool {
	return c.APN != "" && c.APNUser != "" && c.APNPassword != "" && c.DNS != ""
}

func (c *Config) timeout(class timeoutClass) time.Duration {
	switch class {
	case timeoutLong:
		return c.LongTimeout
	case timeoutShort:
		return c.ShortTimeout
	default:
		return 0
	}
}

// Sleeper pauses the caller, the status poll loop uses it between queries
type Sleeper func(d time.Duration)

type Option func(s *Session)

// WithClock drives the step timer from the given clock
func WithClock(clock timer.Clock) Option {
	return func(s *Session) {
		s.timer = timer.New(clock)
	}
}

// WithSleeper replaces the bounded sleep of the status poll loop
func WithSleeper(sleep Sleeper) Option {
	return func(s *Session) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}
