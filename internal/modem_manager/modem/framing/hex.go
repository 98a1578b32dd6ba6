package framing

// DefaultScratchCapacity bounds one decoded part of a binary message
const DefaultScratchCapacity = 32

// HexDecoder decodes ASCII hex pairs of a length prefixed binary message into
// a small scratch buffer, one part at a time
type HexDecoder struct {
	// bytes of the whole message not decoded yet
	remaining int

	// current part
	want   int
	got    int
	ignore bool

	readingHigh bool
	pair        [2]byte

	scratch *Buffer
}

func NewHexDecoder(capacity int) *HexDecoder {
	return &HexDecoder{
		scratch:     NewBuffer(capacity),
		readingHigh: true,
	}
}

// Begin starts a new binary message of n bytes
func (h *HexDecoder) Begin(n int) {
	h.remaining = n
	h.Expect(0, false)
}

// Expect starts a part of n bytes, ignored parts only advance the counters
func (h *HexDecoder) Expect(n int, ignore bool) {
	h.want = n
	h.got = 0
	h.ignore = ignore
	h.readingHigh = true
	h.scratch.Reset()
}

// Feed consumes one hex character and reports whether the current part is complete
func (h *HexDecoder) Feed(c byte) (bool, error) {
	if h.remaining <= 0 {
		return false, ErrReadPastEnd
	}

	if h.readingHigh {
		if !h.ignore {
			h.pair[0] = c
		}
		h.readingHigh = false
		return false, nil
	}

	h.readingHigh = true
	if !h.ignore {
		h.pair[1] = c
		if err := h.scratch.WriteByte(nibble(h.pair[0])<<4 | nibble(h.pair[1])); err != nil {
			return false, err
		}
	}

	h.got++
	h.remaining--
	return h.got >= h.want, nil
}

// Part returns the decoded bytes of the current part
func (h *HexDecoder) Part() []byte {
	return h.scratch.Bytes()
}

// Remaining is the number of message bytes still to come
func (h *HexDecoder) Remaining() int {
	return h.remaining
}

// Reset forgets the message and the current part
func (h *HexDecoder) Reset() {
	h.Begin(0)
	h.pair = [2]byte{}
}

// nibble maps a hex digit to its value, anything else counts as zero
func nibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
