package client

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeoCommon/gprsclient/internal/client/config"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/serialport"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/sm5100b"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/runner"
	"github.com/LeoCommon/gprsclient/pkg/log"
	"github.com/LeoCommon/gprsclient/pkg/systemd"
	"github.com/LeoCommon/gprsclient/pkg/usb"
	"go.uber.org/zap"
)

const unitTimeout = 30 * time.Second

// App global app struct that contains all services
type App struct {
	ExitSignal chan os.Signal

	Conf *config.Manager

	SystemdConnector *systemd.Connector
	UsbManager       *usb.USBDeviceManager

	Transport *serialport.Transport
	Session   *sm5100b.Session
	Runner    *runner.Runner

	// units stopped to free the serial port, started again on shutdown
	stoppedUnits []string
}

func (a *App) Shutdown() {
	if a.Session != nil {
		a.Session.Kill()
	}

	if a.Transport != nil {
		if err := a.Transport.Close(); err != nil {
			log.Warn("closing the serial port failed", zap.Error(err))
		}
	}

	if a.SystemdConnector != nil {
		if len(a.stoppedUnits) != 0 {
			ctx, cancel := context.WithTimeout(context.Background(), unitTimeout)
			a.SystemdConnector.StartUnits(ctx, a.stoppedUnits)
			cancel()
		}
		_ = a.SystemdConnector.Shutdown()
	}

	if a.UsbManager != nil {
		a.UsbManager.Shutdown()
	}

	_ = log.Sync()
}

func (a *App) loadConfiguration(flags config.CLIFlags) error {
	// Create the new config manager and load the configuration
	a.Conf = config.NewManager()
	if err := a.Conf.Load(flags.ConfigPath, false); err != nil {
		if flags.ConfigPath == config.DefaultConfigPath {
			return err
		}

		log.Error("an error occurred while trying to load the config file, trying default path", zap.String("path", flags.ConfigPath), zap.Error(err))
		a.Conf = config.NewManager()
		if err = a.Conf.Load(config.DefaultConfigPath, false); err != nil {
			return err
		}
	}

	a.Conf.ApplyFlags(flags)
	return nil
}

// freeSerialPort stops services like ModemManager that probe serial ports
func (a *App) freeSerialPort() {
	units := a.Conf.Modem().C().StopUnits
	if len(units) == 0 {
		return
	}

	connector, err := systemd.NewConnector()
	if err != nil {
		log.Warn("could not connect to dbus, units holding the modem are not stopped", zap.Strings("units", units), zap.Error(err))
		return
	}
	a.SystemdConnector = connector

	ctx, cancel := context.WithTimeout(context.Background(), unitTimeout)
	defer cancel()
	a.stoppedUnits = connector.StopActiveUnits(ctx, units)
}

// openModem opens the serial port and builds the session and its runner
func (a *App) openModem() error {
	modemConf := a.Conf.Modem().C()
	requestConf := a.Conf.Request().C()

	transport, err := serialport.Open(modemConf.Device, modemConf.BaudRate)
	if err != nil {
		return err
	}
	a.Transport = transport

	var tracer modem.Tracer = log.TraceSink("sm5100b")
	a.Session = sm5100b.New(transport, tracer, modemConf.Session(requestConf.UserAgent))

	options := []runner.Option{runner.WithWatchdog(systemd.EntertainWatchdog)}
	if modemConf.ResetOnTimeout {
		options = append(options, runner.WithResetter(usb.ModemResetter{Manager: a.UsbManager}))
	}
	a.Runner = runner.New(a.Session, options...)

	log.Info("modem opened", zap.String("device", transport.Name()))
	return nil
}

func Setup(flags config.CLIFlags) (*App, error) {
	app := App{}

	// Register a quit signal
	app.ExitSignal = make(chan os.Signal, 1)
	signal.Notify(app.ExitSignal, os.Interrupt, syscall.SIGTERM)

	// Initialize logger
	log.Init(flags.Debug)

	log.Info("client starting")

	// Load the configuration file
	if err := app.loadConfiguration(flags); err != nil {
		log.Error("could not load configuration", zap.Error(err))
		return nil, err
	}

	// The config file may ask for debug output as well
	if !flags.Debug && app.Conf.Client().C().Debug {
		log.Init(true)
	}

	app.freeSerialPort()

	// Setup usb and run the device scan to get startup output
	app.UsbManager = usb.NewUSBDeviceManager()
	if len(app.UsbManager.FindSupportedDevices()) == 0 {
		log.Warn("no supported usb serial adapter found, modem resets are not available")
	}

	if err := app.openModem(); err != nil {
		app.Shutdown()
		log.Error("could not open the modem, aborting", zap.Error(err))
		return nil, err
	}

	return &app, nil
}
