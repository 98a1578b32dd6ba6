// Package serialport adapts a go.bug.st/serial port to the non-blocking
// modem.Transport the session polls.
package serialport

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/LeoCommon/gprsclient/pkg/log"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	DefaultBaudRate = 115200

	// ReadTimeout wakes the reader up so it notices Close
	ReadTimeout = 100 * time.Millisecond

	rxBufferSize = 4096
	readChunk    = 256
)

var ErrClosed = errors.New("serial port closed")

// Port is the part of serial.Port the transport needs
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

type Transport struct {
	name string
	port Port

	rx       chan byte
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu  sync.Mutex
	err error
}

// Open opens the device in 8N1 mode and starts receiving
func Open(device string, baudRate int) (*Transport, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	p, err := serial.Open(device, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		log.Error("error while opening serial device", zap.String("device", device), zap.Error(err))
		return nil, err
	}

	return New(device, p), nil
}

// New wraps an already opened port, the transport owns it from now on
func New(name string, port Port) *Transport {
	t := &Transport{
		name: name,
		port: port,
		rx:   make(chan byte, rxBufferSize),
		stop: make(chan struct{}),
	}

	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		log.Warn("could not set serial read timeout", zap.String("device", name), zap.Error(err))
	}

	t.wg.Add(1)
	go t.readLoop()

	return t
}

func (t *Transport) readLoop() {
	defer t.wg.Done()

	buf := make([]byte, readChunk)
	for {
		n, err := t.port.Read(buf)
		if err != nil {
			select {
			case <-t.stop:
				return
			default:
			}

			log.Error("serial read failed", zap.String("device", t.name), zap.Error(err))
			t.setErr(err)
			return
		}

		// n == 0 is a read timeout
		for _, c := range buf[:n] {
			select {
			case t.rx <- c:
			case <-t.stop:
				return
			}
		}

		select {
		case <-t.stop:
			return
		default:
		}
	}
}

// PollByte returns the next received byte without blocking
func (t *Transport) PollByte() (byte, bool) {
	select {
	case c := <-t.rx:
		return c, true
	default:
		return 0, false
	}
}

func (t *Transport) Write(p []byte) (int, error) {
	if err := t.Err(); err != nil {
		return 0, err
	}
	return t.port.Write(p)
}

// Err is the error that stopped the reader, if any
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Transport) setErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err == nil {
		t.err = err
	}
}

func (t *Transport) Name() string {
	return t.name
}

// Close stops the reader and closes the port, it is safe to call more than once
func (t *Transport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stop)
		err = t.port.Close()
		t.wg.Wait()
		t.setErr(ErrClosed)
	})
	return err
}
