package usb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

type DeviceType int

const (
	Unknown DeviceType = iota
	// USB serial bridges the modem hangs off
	SerialFTDI
	SerialPL2303
	SerialCP210x
	SerialCH340
)

var (
	SupportedDevices = DeviceMap{
		SerialFTDI: {
			VendorID:  0x0403,
			ProductID: 0x6001,
			Name:      "FTDI FT232R",
		},
		SerialPL2303: {
			VendorID:  0x067b,
			ProductID: 0x2303,
			Name:      "Prolific PL2303",
		},
		SerialCP210x: {
			VendorID:  0x10c4,
			ProductID: 0xea60,
			Name:      "Silicon Labs CP210x",
		},
		SerialCH340: {
			VendorID:  0x1a86,
			ProductID: 0x7523,
			Name:      "WCH CH340",
		},
	}
)

type Device struct {
	Name      string
	VendorID  gousb.ID
	ProductID gousb.ID
}

type DeviceMap map[DeviceType]*Device

type DeviceTuple struct {
	*Device
	DeviceType
}

func FindSupportedDeviceTuple(vendorID gousb.ID, productID gousb.ID) (DeviceTuple, bool) {
	for k, device := range SupportedDevices {
		if device.VendorID == vendorID && device.ProductID == productID {
			return DeviceTuple{DeviceType: k, Device: device}, true
		}
	}
	return DeviceTuple{}, false
}

func ParseHexUINT16(str string) (uint16, error) {
	val, err := strconv.ParseUint(str, 16, 16)
	if err != nil {
		return 0, err
	}

	return uint16(val), nil
}

// ParseProduct splits the udev PRODUCT value, e.g "403/6001/600" VID/PID/REVISION
func ParseProduct(product string) (vid uint16, pid uint16, err error) {
	s := strings.Split(product, "/")
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("malformed product string %q", product)
	}

	if vid, err = ParseHexUINT16(s[0]); err != nil {
		return 0, 0, fmt.Errorf("could not parse hex vid %q: %w", s[0], err)
	}
	if pid, err = ParseHexUINT16(s[1]); err != nil {
		return 0, 0, fmt.Errorf("could not parse hex pid %q: %w", s[1], err)
	}
	return vid, pid, nil
}
