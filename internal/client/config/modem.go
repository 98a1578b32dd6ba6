package config

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/sm5100b"
)

type ModemConfig struct {
	Device   string `toml:"device" comment:"serial device of the modem, e.g. /dev/ttyUSB0"`
	BaudRate int    `toml:"baud_rate,omitempty"`

	// The APN settings are checked by the modem session when it needs them
	APN         string `toml:"apn,omitempty"`
	APNUser     string `toml:"apn_user,omitempty"`
	APNPassword string `toml:"apn_password,omitempty"`
	DNS         string `toml:"dns,omitempty" comment:"IPv4 address of the DNS server"`

	LongTimeout        TOMLDuration `toml:"long_timeout,omitempty" comment:"reply timeout during bring-up and PDP activation"`
	ShortTimeout       TOMLDuration `toml:"short_timeout,omitempty" comment:"reply timeout for every other command"`
	StatusPollInterval TOMLDuration `toml:"status_poll_interval,omitempty"`

	ResetPDPBeforeRequest *bool    `toml:"reset_pdp_before_request,omitempty" comment:"deactivate and reactivate the PDP context before each request, defaults to true"`
	ResetOnTimeout        bool     `toml:"reset_on_timeout"`
	StopUnits             []string `toml:"stop_units,omitempty" comment:"systemd units that would grab the serial port, stopped before it is opened"`
}

// Session converts the section into the modem session configuration
func (m ModemConfig) Session(userAgent string) sm5100b.Config {
	c := sm5100b.DefaultConfig()
	c.APN = m.APN
	c.APNUser = m.APNUser
	c.APNPassword = m.APNPassword
	c.DNS = m.DNS

	if m.LongTimeout > 0 {
		c.LongTimeout = m.LongTimeout.Value()
	}
	if m.ShortTimeout > 0 {
		c.ShortTimeout = m.ShortTimeout.Value()
	}
	if m.StatusPollInterval > 0 {
		c.StatusPollInterval = m.StatusPollInterval.Value()
	}
	if m.ResetPDPBeforeRequest != nil {
		c.ResetPDPBeforeRequest = *m.ResetPDPBeforeRequest
	}
	if userAgent != "" {
		c.UserAgent = userAgent
	}
	return c
}

type ModemConfigManager struct {
	BaseConfigManager[ModemConfig]
}

// Verify verifies the "hard" conditions that the rest of the code relies on
func (a *ModemConfigManager) Verify() error {
	if a.conf.Device == "" {
		return errors.New("no modem device configured")
	}

	if a.conf.BaudRate < 0 {
		return fmt.Errorf("invalid baud rate %d", a.conf.BaudRate)
	}

	if a.conf.LongTimeout < 0 || a.conf.ShortTimeout < 0 || a.conf.StatusPollInterval < 0 {
		return errors.New("modem timeouts must not be negative")
	}

	if a.conf.DNS != "" {
		addr, err := netip.ParseAddr(a.conf.DNS)
		if err != nil || !addr.Is4() {
			return fmt.Errorf("dns server %q is not an IPv4 address", a.conf.DNS)
		}
	}

	return nil
}

func NewModemConfigManager(config *ModemConfig) *ModemConfigManager {
	return &ModemConfigManager{newBase(config)}
}
