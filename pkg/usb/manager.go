package usb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/DiscoResearchSat/go-udev/netlink"
	"github.com/LeoCommon/gprsclient/pkg/log"
	"github.com/google/gousb"
	"go.uber.org/zap"
)

func (d *Device) String() string {
	return fmt.Sprintf("%s pid: %s vid: %s", d.Name, d.ProductID.String(), d.VendorID.String())
}

type USBDeviceManager struct {
	sync.Mutex
	sync.WaitGroup

	// A map of currently connected devices
	devices DeviceMap
	// Channel to close the udev monitor if its enabled
	udevCloseChannel chan struct{}
	// The udev event connection, if not nil, udev monitoring is active
	udev *netlink.UEventConn
}

func NewUSBDeviceManager() *USBDeviceManager {
	m := &USBDeviceManager{
		devices:          make(DeviceMap),
		udev:             new(netlink.UEventConn),
		udevCloseChannel: make(chan struct{}),
	}

	// Connect to udev
	if err := m.udev.Connect(netlink.UdevEvent); err != nil {
		log.Error("Could not connect to udev, hotplug support not available!", zap.Error(err))
		m.udev = nil
	} else {
		// run monitor
		m.Add(1)
		go m.monitor()
	}

	return m
}

func (m *USBDeviceManager) FindSupportedDevices() DeviceMap {
	m.Lock()
	defer m.Unlock()

	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	for devType, d := range SupportedDevices {
		dev, err := usbCtx.OpenDeviceWithVIDPID(d.VendorID, d.ProductID)
		if dev == nil {
			log.Debug("device not attached", zap.String("device", d.String()))
			continue
		}

		// close the device
		dev.Close()

		if err != nil {
			log.Error("error while iterating over usb devices", zap.Error(err))
			continue
		}

		// Add the device to the found devices
		m.devices[devType] = d
		log.Info("found supported device", zap.String("device", d.String()))
	}

	return m.devices
}

// Attached returns the attached device with the lowest type, the modem adapter in a single modem setup
func (m *USBDeviceManager) Attached() (DeviceType, bool) {
	m.Lock()
	defer m.Unlock()

	types := make([]DeviceType, 0, len(m.devices))
	for t := range m.devices {
		types = append(types, t)
	}
	if len(types) == 0 {
		return Unknown, false
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types[0], true
}

func (m *USBDeviceManager) HotplugReceived(vendorID uint16, productID uint16, wasAdded bool) {
	m.Lock()
	defer m.Unlock()

	// Try to find device, silently ignore if not supported
	tuple, found := FindSupportedDeviceTuple(gousb.ID(vendorID), gousb.ID(productID))
	if !found {
		log.Debug("no matching device found", zap.String("vid", gousb.ID(vendorID).String()), zap.String("pid", gousb.ID(productID).String()))
		return
	}

	// No further checks, no duplicates as key is unique
	if !wasAdded {
		delete(m.devices, tuple.DeviceType)
		log.Info("hotplug device removed", zap.String("device", tuple.Device.String()))
	} else {
		log.Info("hotplug device added", zap.String("device", tuple.Device.String()))
		m.devices[tuple.DeviceType] = tuple.Device
	}
}

func (m *USBDeviceManager) Shutdown() {
	m.Lock()

	// Close the udev monitor if it exists
	if m.udev != nil {
		log.Info("closing udev monitor channel")
		m.udevCloseChannel <- struct{}{}
	}

	m.Unlock()
	m.Wait()
}

func (m *USBDeviceManager) ResetDevice(target DeviceType) error {
	m.Lock()
	defer m.Unlock()

	// Grab the details for more descriptive errors
	supd, exists := SupportedDevices[target]
	if !exists {
		return fmt.Errorf("device unknown, add it to the code")
	}

	d, exists := m.devices[target]
	if !exists {
		return &NotFoundError{Device: supd.Name}
	}

	// Try acquiring the device and issuing a simple usb reset, this power cycles the modem behind it as well
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()
	dev, _ := usbCtx.OpenDeviceWithVIDPID(d.VendorID, d.ProductID)
	if dev == nil {
		log.Error("the device was detected previously, but disappeared!", zap.String("device", d.String()))
		return &VanishedError{Device: d.String()}
	}

	// Close when we are done
	defer dev.Close()

	if err := dev.Reset(); err != nil {
		log.Error("resetting usb device failed", zap.String("device", d.String()))
		return err
	}

	log.Info("usb device reset", zap.String("device", d.String()))
	return nil
}

// ModemResetter resets whichever supported adapter is attached
type ModemResetter struct {
	Manager *USBDeviceManager
}

func (r ModemResetter) Reset() error {
	target, ok := r.Manager.Attached()
	if !ok {
		return &NotFoundError{}
	}
	return r.Manager.ResetDevice(target)
}

// Monitor events
func (m *USBDeviceManager) monitor() {
	errors := make(chan error)

	// BIND OR UNBIND
	matchRule := fmt.Sprintf("%s|%s", netlink.BIND, netlink.UNBIND)
	deviceMatcher := &netlink.RuleDefinitions{
		Rules: []netlink.RuleDefinition{
			{
				// Only match usb_device binds and unbinds
				Action: &matchRule,
				Env: map[string]string{
					"DEVTYPE": "usb_device",
				},
			},
		},
	}

	// Start he monitor
	ctx, cancelUdevMonitor := context.WithCancel(context.Background())
	queue := m.udev.Monitor(ctx, errors, deviceMatcher)

	// Defer the channel closing and marking wg as done
	defer func() {
		m.Lock()
		m.udev.Close()
		m.Done()
		m.Unlock()
	}()

udevMonitorLoop:
	for {
		select {
		case <-m.udevCloseChannel:
			// Wait until the queue terminates
			cancelUdevMonitor()
			// Wait for context-cancelled error
			<-errors
			break udevMonitorLoop

		case uevent := <-queue:
			pstr, pok := uevent.Env["PRODUCT"]
			if !pok {
				log.Debug("device did not contain product indicator", zap.Any("env", uevent.String()))
				continue
			}

			vid, pid, err := ParseProduct(pstr)
			if err != nil {
				log.Error("could not parse usb product", zap.Error(err))
				continue
			}

			// Forward the event to the usb matcher
			m.HotplugReceived(vid, pid, uevent.Action == netlink.BIND)
		case err := <-errors:
			log.Error("udev monitor encountered an error", zap.Error(err))
		}
	}

	log.Info("stopped observing udev events")
}
