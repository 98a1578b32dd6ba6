package usb

import (
	"testing"

	"github.com/LeoCommon/gprsclient/pkg/log"
	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSupportedDeviceTuple(t *testing.T) {
	tuple, ok := FindSupportedDeviceTuple(0x0403, 0x6001)
	require.True(t, ok)
	assert.Equal(t, SerialFTDI, tuple.DeviceType)
	assert.Equal(t, "FTDI FT232R", tuple.Name)

	_, ok = FindSupportedDeviceTuple(0x1d50, 0x6089)
	assert.False(t, ok)
}

func TestParseProduct(t *testing.T) {
	vid, pid, err := ParseProduct("1a86/7523/264")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1a86), vid)
	assert.Equal(t, uint16(0x7523), pid)

	vid, _, err = ParseProduct("403/6001")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0403), vid)

	for _, bad := range []string{"", "403", "xyz/6001/1", "403/10000/1"} {
		_, _, err := ParseProduct(bad)
		assert.Error(t, err, bad)
	}
}

// a manager without udev and usb access, only the bookkeeping
func offlineManager() *USBDeviceManager {
	return &USBDeviceManager{devices: make(DeviceMap)}
}

func TestHotplugBookkeeping(t *testing.T) {
	log.Init(true)

	m := offlineManager()
	_, ok := m.Attached()
	assert.False(t, ok)

	m.HotplugReceived(0x10c4, 0xea60, true)
	m.HotplugReceived(0x067b, 0x2303, true)
	m.HotplugReceived(0xdead, 0xbeef, true)

	attached, ok := m.Attached()
	require.True(t, ok)
	assert.Equal(t, SerialPL2303, attached)

	m.HotplugReceived(0x067b, 0x2303, false)
	attached, _ = m.Attached()
	assert.Equal(t, SerialCP210x, attached)
}

func TestResetErrors(t *testing.T) {
	m := offlineManager()

	err := m.ResetDevice(SerialCH340)
	assert.ErrorIs(t, err, &NotFoundError{})
	assert.EqualError(t, err, "device 'WCH CH340' not attached")

	assert.Error(t, m.ResetDevice(DeviceType(99)))

	err = ModemResetter{Manager: m}.Reset()
	assert.ErrorIs(t, err, &NotFoundError{})
}

func TestDeviceString(t *testing.T) {
	d := Device{Name: "x", VendorID: gousb.ID(0x0403), ProductID: gousb.ID(0x6001)}
	assert.Equal(t, "x pid: 6001 vid: 0403", d.String())
}
