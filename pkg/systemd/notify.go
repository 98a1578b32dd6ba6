package systemd

import (
	"errors"
	"net"
	"os"
	"strings"

	"github.com/LeoCommon/gprsclient/pkg/log"
	"go.uber.org/zap"
)

var ErrNoNotifySocket = errors.New("systemd-notify socket was not available")

// Status is the free form STATUS= field shown by systemctl status
func Status(text string) string {
	return "STATUS=" + text
}

// EntertainWatchdog is the runner watchdog, it keeps WatchdogSec= from firing
func EntertainWatchdog() error {
	log.Debug("Notifying systemd watchdog")
	return Notify(NotifyWatchdog)
}

// Notify sends all fields in one datagram, one assignment per line
func Notify(fields ...string) error {
	name := os.Getenv(NotifySocketEnvVar)
	if name == "" {
		return ErrNoNotifySocket
	}

	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Net: "unixgram", Name: name})
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(strings.Join(fields, "\n"))); err != nil {
		log.Warn("systemd notification was not delivered", zap.Strings("fields", fields), zap.Error(err))
		return err
	}
	return nil
}
