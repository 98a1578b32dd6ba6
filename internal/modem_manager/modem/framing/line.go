package framing

import "bytes"

// DefaultLineCapacity fits every reply line the modem sends outside of binary payloads
const DefaultLineCapacity = 256

// LineAccumulator collects bytes until a CRLF terminated line is complete
type LineAccumulator struct {
	buf *Buffer

	// the previous byte is tracked apart from buf so CRLF is detected even after an overflow
	prev    byte
	hasPrev bool

	line      []byte
	lineReady bool
	truncated bool
}

func NewLineAccumulator(capacity int) *LineAccumulator {
	return &LineAccumulator{
		buf:  NewBuffer(capacity),
		line: make([]byte, 0, capacity),
	}
}

// Feed appends one byte and reports whether it completed a line
func (l *LineAccumulator) Feed(c byte) bool {
	if err := l.buf.WriteByte(c); err != nil {
		l.truncated = true
	}

	complete := c == '\n' && l.hasPrev && l.prev == '\r'
	l.prev, l.hasPrev = c, true

	if !complete {
		l.lineReady = false
		l.line = l.line[:0]
		return false
	}

	content := l.buf.Bytes()
	if !l.truncated {
		content = content[:len(content)-2]
	} else {
		// the terminator may have been dropped, strip whatever part of it made it in
		content = bytes.TrimRight(content, "\r\n")
	}

	l.line = append(l.line[:0], content...)
	l.lineReady = true
	l.resetPending()
	return true
}

// Line returns the line completed by the last Feed call
func (l *LineAccumulator) Line() (string, bool) {
	if !l.lineReady {
		return "", false
	}
	return string(l.line), true
}

// Pending is the in-progress content that has no line terminator yet
func (l *LineAccumulator) Pending() []byte {
	return l.buf.Bytes()
}

// PendingEquals compares the in-progress content with s
func (l *LineAccumulator) PendingEquals(s string) bool {
	return string(l.buf.Bytes()) == s
}

// Truncated reports whether bytes of the in-progress line were dropped
func (l *LineAccumulator) Truncated() bool {
	return l.truncated
}

// Discard drops the in-progress content, e.g. after a prompt was consumed
func (l *LineAccumulator) Discard() {
	l.resetPending()
	l.lineReady = false
	l.line = l.line[:0]
}

func (l *LineAccumulator) resetPending() {
	l.buf.Reset()
	l.truncated = false
	l.hasPrev = false
	l.prev = 0
}
