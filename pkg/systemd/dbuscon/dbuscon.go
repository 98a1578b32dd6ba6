package dbuscon

import (
	"github.com/LeoCommon/gprsclient/pkg/log"
	"go.uber.org/zap"

	"github.com/godbus/dbus/v5"
)

type NotConnectedError struct{}

func (e *NotConnectedError) Error() string {
	return "client is not connected"
}

func (e *NotConnectedError) Is(target error) bool {
	_, ok := target.(*NotConnectedError)
	return ok
}

// Client holds the system bus connection
type Client struct {
	conn *dbus.Conn
}

func (d *Client) Shutdown() (err error) {
	if d.conn == nil {
		return
	}

	err = d.conn.Close()
	d.conn = nil
	return
}

// Connected returns whether the bus connection is established or not
func (d *Client) Connected() (*dbus.Conn, bool) {
	return d.conn, d.conn != nil && d.conn.Connected()
}

func (d *Client) Connect() error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		log.Error("Failed to connect to system bus", zap.Error(err))
		return err
	}

	d.conn = conn
	return nil
}

func (d *Client) GetConnection() *dbus.Conn {
	return d.conn
}

func NewDbusClient() *Client {
	return &Client{}
}
