// Package framing turns single modem bytes into lines or decoded binary parts.
package framing

import "errors"

var (
	// ErrBufferFull is returned when a write would exceed the fixed capacity
	ErrBufferFull = errors.New("framing: buffer full")

	// ErrReadPastEnd is returned when more hex data arrives than the message declared
	ErrReadPastEnd = errors.New("framing: read past response end")
)

// Buffer is a fixed capacity byte buffer, it never grows
type Buffer struct {
	data []byte
	n    int
}

func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// WriteByte appends c or reports ErrBufferFull without touching the content
func (b *Buffer) WriteByte(c byte) error {
	if b.n >= len(b.data) {
		return ErrBufferFull
	}
	b.data[b.n] = c
	b.n++
	return nil
}

// Bytes returns the written part, valid until the next write or reset
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

func (b *Buffer) Len() int {
	return b.n
}

func (b *Buffer) Cap() int {
	return len(b.data)
}

func (b *Buffer) Reset() {
	b.n = 0
}
