package usb

import "fmt"

// NotFoundError no supported device of the requested kind is attached
type NotFoundError struct {
	Device string
}

func (n *NotFoundError) Error() string {
	if n.Device == "" {
		return "no supported usb serial adapter attached"
	}
	return fmt.Sprintf("device '%s' not attached", n.Device)
}

func (n *NotFoundError) Is(e error) bool {
	_, ok := e.(*NotFoundError)
	return ok
}

// VanishedError the device was seen before but could not be opened anymore
type VanishedError struct {
	Device string
}

func (n *VanishedError) Error() string {
	return fmt.Sprintf("%s disappeared but was detected before", n.Device)
}

func (n *VanishedError) Is(e error) bool {
	_, ok := e.(*VanishedError)
	return ok
}
