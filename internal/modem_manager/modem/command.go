package modem

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// CtrlZ terminates a raw payload written after a data-send prompt
const CtrlZ byte = 0x1a

// Fragment is one piece of an outgoing command, either text or raw binary
type Fragment struct {
	data   []byte
	binary bool
}

// Text is a literal or runtime string fragment
func Text(s string) Fragment {
	return Fragment{data: []byte(s)}
}

// Int renders a decimal number
func Int(n int) Fragment {
	return Text(strconv.Itoa(n))
}

// Raw is a binary fragment, it is traced as hex
func Raw(b []byte) Fragment {
	return Fragment{data: b, binary: true}
}

// Byte is a single raw byte such as CtrlZ
func Byte(b byte) Fragment {
	return Raw([]byte{b})
}

// Command is an ordered list of fragments that is written in one piece
type Command []Fragment

func Cmd(fragments ...Fragment) Command {
	return Command(fragments)
}

// Len is the exact number of bytes the command puts on the wire
func (c Command) Len() int {
	n := 0
	for _, f := range c {
		n += len(f.data)
	}
	return n
}

// Bytes returns the on-wire byte sequence
func (c Command) Bytes() []byte {
	out := make([]byte, 0, c.Len())
	for _, f := range c {
		out = append(out, f.data...)
	}
	return out
}

// String renders the command for traces, binary fragments as [hex]
func (c Command) String() string {
	var sb strings.Builder
	for _, f := range c {
		if f.binary {
			sb.WriteByte('[')
			sb.WriteString(hex.EncodeToString(f.data))
			sb.WriteByte(']')
			continue
		}
		sb.WriteString(Printable(f.data))
	}
	return sb.String()
}

// Emit writes the command to the transport and the tracer together
func (c Command) Emit(t Transport, tr Tracer) error {
	if tr == nil {
		tr = NopTracer{}
	}
	tr.Trace(">> " + c.String())

	_, err := t.Write(c.Bytes())
	if err != nil {
		tr.Trace("write failed: " + err.Error())
	}
	return err
}
