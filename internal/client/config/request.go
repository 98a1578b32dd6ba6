package config

import (
	"errors"
	"time"
)

const (
	DefaultRequestInterval = time.Minute
)

type RequestConfig struct {
	Host      string       `toml:"host,omitempty"`
	Path      string       `toml:"path,omitempty"`
	UserAgent string       `toml:"user_agent,omitempty"`
	Interval  TOMLDuration `toml:"interval,omitempty" comment:"pause between two requests"`
	Count     int          `toml:"count,omitempty" comment:"number of requests, 0 runs until stopped"`
}

type RequestConfigManager struct {
	BaseConfigManager[RequestConfig]
}

// Verify verifies the "hard" conditions that the rest of the code relies on
func (a *RequestConfigManager) Verify() error {
	if a.conf.Interval < 0 {
		return errors.New("request interval must not be negative")
	}

	if a.conf.Count < 0 {
		return errors.New("request count must not be negative")
	}

	// Fill in the defaults
	if a.conf.Interval == 0 {
		a.conf.Interval = TOMLDuration(DefaultRequestInterval)
	}

	return nil
}

func NewRequestConfigManager(config *RequestConfig) *RequestConfigManager {
	return &RequestConfigManager{newBase(config)}
}
