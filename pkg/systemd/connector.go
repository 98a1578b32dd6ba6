package systemd

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/LeoCommon/gprsclient/pkg/log"
	"github.com/LeoCommon/gprsclient/pkg/systemd/dbuscon"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

// Connector manages systemd units over the system bus
type Connector struct {
	sync.Mutex

	client            *dbuscon.Client
	signalCh          chan *dbus.Signal
	jobRemoveListener struct {
		sync.Mutex
		jobs    map[dbus.ObjectPath]chan<- string
		matcher []dbus.MatchOption
	}
}

// init initializes the systemd connector
func (c *Connector) init() error {
	c.jobRemoveListener.jobs = make(map[dbus.ObjectPath]chan<- string)
	c.client = dbuscon.NewDbusClient()

	c.jobRemoveListener.matcher = []dbus.MatchOption{
		dbus.WithMatchInterface(BusManagerInterface),
		dbus.WithMatchMember(BusMemberJobRemoved),
	}

	// Connect to dbus
	if err := c.client.Connect(); err != nil {
		return err
	}

	conn := c.client.GetConnection()
	if conn == nil {
		log.Error("connection was nil")
		return &dbuscon.NotConnectedError{}
	}

	// Create a slightly buffered channel
	c.signalCh = make(chan *dbus.Signal, 10)
	conn.Signal(c.signalCh)

	// Start the signal listener
	go c.listenForSignals()

	// Match all jobs removed signal so we can get their results
	if err := conn.AddMatchSignal(c.jobRemoveListener.matcher...); err != nil {
		return err
	}
	log.Info("systemd/dbus initialization complete")

	return nil
}

// Create a new connector for systemd
func NewConnector() (*Connector, error) {
	c := Connector{}
	c.Lock()
	defer c.Unlock()

	return &c, c.init()
}

func (c *Connector) Shutdown() error {
	if !c.Connected() {
		return c.client.Shutdown()
	}

	conn := c.client.GetConnection()
	err := conn.RemoveMatchSignal(c.jobRemoveListener.matcher...)
	conn.RemoveSignal(c.signalCh)

	// Close the signal channel
	close(c.signalCh)

	if cerr := c.client.Shutdown(); err == nil {
		err = cerr
	}
	return err
}

func (c *Connector) jobCompleteSignal(signal *dbus.Signal) {
	var id uint32
	var job dbus.ObjectPath
	var unit string
	var result string
	if err := dbus.Store(signal.Body, &id, &job, &unit, &result); err != nil {
		log.Debug("malformed job removed signal", zap.Error(err))
		return
	}

	c.jobRemoveListener.Lock()
	// If a listener for this exists, inform it
	out, ok := c.jobRemoveListener.jobs[job]
	if ok {
		out <- result
		delete(c.jobRemoveListener.jobs, job)
	}
	c.jobRemoveListener.Unlock()
}

// manageUnits starts the job and registers ch for its result
func (c *Connector) manageUnits(ctx context.Context, unitName string, method string, ch chan<- string) error {
	if !c.Connected() {
		return &dbuscon.NotConnectedError{}
	}

	conn := c.client.GetConnection()

	// Hold the listener lock so the job cannot complete before it is registered
	c.jobRemoveListener.Lock()
	defer c.jobRemoveListener.Unlock()

	service := conn.Object(BusObjectSystemdDest, BusObjectSystemdPath)
	result := service.CallWithContext(ctx, method, 0, unitName, "replace")
	if result.Err != nil {
		return result.Err
	}

	if ch != nil {
		var p dbus.ObjectPath
		if err := result.Store(&p); err != nil {
			return err
		}
		c.jobRemoveListener.jobs[p] = ch
	}

	return nil
}

// manageUnitSync waits for the job result
func (c *Connector) manageUnitSync(ctx context.Context, unitName string, method string) (bool, error) {
	ch := make(chan string, 1)

	if err := c.manageUnits(ctx, unitName, method, ch); err != nil {
		return false, err
	}

	select {
	case result := <-ch:
		return result == JobResultDone, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// StopUnit synchronously stops an unit and returns true if it succeded
func (c *Connector) StopUnit(ctx context.Context, unitName string) (bool, error) {
	return c.manageUnitSync(ctx, unitName, BusInterfaceStopUnit)
}

// StartUnit synchronously starts an unit and returns true if it succeded
func (c *Connector) StartUnit(ctx context.Context, unitName string) (bool, error) {
	return c.manageUnitSync(ctx, unitName, BusInterfaceStartUnit)
}

// unitObjectPath is the bus path of a unit. Bytes other than [A-Za-z0-9], and a
// leading digit, are written as _xx the way systemd escapes them.
func unitObjectPath(unitName string) dbus.ObjectPath {
	var b strings.Builder
	b.WriteString(BusObjectSystemdPath + "/unit/")
	if unitName == "" {
		b.WriteByte('_')
	}

	for i := 0; i < len(unitName); i++ {
		c := unitName[i]
		digit := c >= '0' && c <= '9'
		letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if (i == 0 && digit) || (!digit && !letter) {
			fmt.Fprintf(&b, "_%02x", c)
			continue
		}
		b.WriteByte(c)
	}
	return dbus.ObjectPath(b.String())
}

// CheckUnitState retrieves the active state of an unit
func (c *Connector) CheckUnitState(ctx context.Context, unitName string) (string, error) {
	if !c.Connected() {
		return "", &dbuscon.NotConnectedError{}
	}

	conn := c.client.GetConnection()
	unit := conn.Object(BusObjectSystemdDest, unitObjectPath(unitName))

	var state string
	err := unit.CallWithContext(ctx, BusMemberGetProp, 0,
		BusObjectSystemdDestUnit, BusObjectPropertyActiveState).Store(&state)

	return state, err
}

// StopActiveUnits stops every active unit of the list and returns the ones it stopped
func (c *Connector) StopActiveUnits(ctx context.Context, units []string) []string {
	var stopped []string
	for _, unit := range units {
		state, err := c.CheckUnitState(ctx, unit)
		if err != nil {
			log.Warn("could not query unit state", zap.String("unit", unit), zap.Error(err))
			continue
		}
		if state != ServiceStateActive {
			continue
		}

		ok, err := c.StopUnit(ctx, unit)
		if err != nil || !ok {
			log.Warn("could not stop unit", zap.String("unit", unit), zap.Bool("done", ok), zap.Error(err))
			continue
		}
		log.Info("stopped unit holding the modem", zap.String("unit", unit))
		stopped = append(stopped, unit)
	}
	return stopped
}

// StartUnits starts the given units again, e.g. the ones StopActiveUnits stopped
func (c *Connector) StartUnits(ctx context.Context, units []string) {
	for _, unit := range units {
		if ok, err := c.StartUnit(ctx, unit); err != nil || !ok {
			log.Warn("could not start unit", zap.String("unit", unit), zap.Bool("done", ok), zap.Error(err))
		}
	}
}

// Connected returns if the client is correctly connected
func (c *Connector) Connected() bool {
	_, ok := c.client.Connected()
	return ok
}

// This go-routine listens for signals
func (c *Connector) listenForSignals() {
	for {
		signal, ok := <-c.signalCh
		if !ok {
			log.Debug("signal channel terminated")
			return
		}

		// If its a job removed signal, our job terminated
		if signal.Name == BusSignalJobRemoved {
			c.jobCompleteSignal(signal)
		}
	}
}
