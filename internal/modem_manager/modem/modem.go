package modem

import "strings"

// Transport is the byte stream towards the modem
type Transport interface {
	// Write sends bytes to the modem, no backpressure is signaled
	Write(p []byte) (int, error)
	// PollByte returns the next received byte if one is available, it never blocks
	PollByte() (byte, bool)
}

// Tracer receives human readable trace text, it never affects control flow
type Tracer interface {
	Trace(text string)
}

// NopTracer drops everything
type NopTracer struct{}

func (NopTracer) Trace(string) {}

// Printable renders control characters of modem traffic visible, e.g. "\r" or "<1a>"
func Printable(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c < 0x20 || c >= 0x7f:
			sb.WriteByte('<')
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0x0f])
			sb.WriteByte('>')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

const hexDigits = "0123456789abcdef"
