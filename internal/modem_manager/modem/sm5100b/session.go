// Package sm5100b drives an SM5100B style GPRS modem one byte at a time: PDP
// bring-up, DNS resolution over a raw UDP socket and an HTTP GET over TCP.
//
// The Session never blocks on the transport. The owner feeds every received
// byte to Step and calls Tick when nothing arrived, so silence on the line is
// detected as a timeout. The only pause is the bounded sleep between two
// socket status queries.
package sm5100b

import (
	"net/netip"
	"time"

	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/dnswire"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/framing"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/sm5100b/atparser"
	"github.com/LeoCommon/gprsclient/pkg/timer"
)

// Session is single owner and single threaded, callers must not share it between goroutines
type Session struct {
	transport modem.Transport
	tracer    modem.Tracer
	config    Config
	timer     *timer.Timer
	sleep     Sleeper

	// request
	host           string
	path           string
	pendingRequest bool
	address        [4]byte

	state     State
	lastError ErrorKind

	lines *framing.LineAccumulator
	hex   *framing.HexDecoder

	connectionStatus atparser.SocketStatus
	answersLeft      int
	// bytes of the next answer prefix that came with the previous record
	carry   [dnswire.InlineDataLen]byte
	carried int

	// survive BeginRequest and Kill
	moduleReady bool
	pdpReady    bool
}

// New creates the session for one modem and starts waiting for the module to
// report readiness. The configuration is not validated here.
func New(transport modem.Transport, tracer modem.Tracer, config Config, options ...Option) *Session {
	if tracer == nil {
		tracer = modem.NopTracer{}
	}
	config.setDefaults()

	s := &Session{
		transport: transport,
		tracer:    tracer,
		config:    config,
		timer:     timer.New(timer.SystemClock),
		sleep:     time.Sleep,
		lines:     framing.NewLineAccumulator(framing.DefaultLineCapacity),
		hex:       framing.NewHexDecoder(framing.DefaultScratchCapacity),
	}

	for _, option := range options {
		option(s)
	}

	s.succeed(StateWaitForModule)
	return s
}

// BeginRequest starts resolving host and fetching path. Configuration and
// request errors are reported before anything is sent to the modem. While the
// module is still coming up ErrPrerequisitesNotReady is returned and the
// bring-up continues undisturbed.
func (s *Session) BeginRequest(host string, path string) ErrorKind {
	kind := NoError
	switch {
	case !s.config.apnConfigured():
		kind = ErrAPNNotConfigured
	case host == "" || path == "" || dnswire.ValidateName(host) != nil:
		kind = ErrRequestNotConfigured
	case s.state.Phase() == PhaseBringUp:
		kind = ErrPrerequisitesNotReady
	}

	if s.state.Phase() == PhaseBringUp {
		if kind != NoError {
			s.tracer.Trace("request rejected during bring-up: " + kind.String())
		}
		return kind
	}

	// Drop whatever a previous request left behind before anything is sent
	s.reset()
	if kind != NoError {
		s.fail(kind)
		return kind
	}

	s.host = host
	s.path = path
	s.pendingRequest = true

	switch {
	case !s.pdpReady && s.moduleReady:
		s.emit(cmdQueryAttach())
		s.succeed(StateQueryAttach)
	case !s.pdpReady:
		s.succeed(StateWaitForModule)
	case s.config.ResetPDPBeforeRequest:
		s.pdpReady = false
		s.emit(cmdDeactivatePDP())
		s.succeed(StateDeactivatePDP)
	default:
		s.startDNS()
	}

	return NoError
}

// ReadyForCommands reports whether no bring-up or request is in flight
func (s *Session) ReadyForCommands() bool {
	return s.state.Terminal()
}

// LastError is the failure of the current or last request cycle
func (s *Session) LastError() ErrorKind {
	return s.lastError
}

func (s *Session) State() State {
	return s.state
}

// ResolvedAddress is only meaningful once the DNS phase completed
func (s *Session) ResolvedAddress() [4]byte {
	return s.address
}

// PDPReady reports whether the packet data context is known to be active
func (s *Session) PDPReady() bool {
	return s.pdpReady
}

// Kill cancels anything in flight and parks the session in StateDead
func (s *Session) Kill() {
	s.reset()
	s.pendingRequest = false
	s.state = StateDead
	s.tracer.Trace("killed")
}

// Restart forgets module and PDP readiness and waits for the module to come
// up again, e.g. after it was power cycled
func (s *Session) Restart() {
	s.reset()
	s.pendingRequest = false
	s.moduleReady = false
	s.pdpReady = false
	s.tracer.Trace("restart")
	s.succeed(StateWaitForModule)
}

// Step consumes one byte received from the modem
func (s *Session) Step(c byte) {
	if s.checkTimeout() {
		return
	}

	def := &states[s.state]
	switch def.framing {
	case framingLine:
		if s.lines.Feed(c) {
			line, _ := s.lines.Line()
			s.tracer.Trace("<< " + modem.Printable([]byte(line)))
		}
		def.handle(s)

	case framingHex:
		done, err := s.hex.Feed(c)
		if err != nil {
			s.failDecode(err)
			return
		}
		if done {
			def.handle(s)
		}
	}
}

// Tick is the "no input" step, it only checks the timeout
func (s *Session) Tick() {
	s.checkTimeout()
}

// Poll pulls at most one byte from the transport and steps or ticks
func (s *Session) Poll() bool {
	c, ok := s.transport.PollByte()
	if ok {
		s.Step(c)
	} else {
		s.Tick()
	}
	return ok
}

func (s *Session) checkTimeout() bool {
	if !s.timer.Expired() {
		return false
	}
	s.tracer.Trace("no reply in " + s.state.String())
	s.fail(ErrTimeout)
	return true
}

// fail enters the terminal state carrying kind
func (s *Session) fail(kind ErrorKind) {
	s.tracer.Trace("error: " + kind.String() + " in " + s.state.String())
	s.state = StateDone
	s.lastError = kind
	s.pendingRequest = false
	s.timer.Disarm()
}

// succeed enters next and applies its timeout policy
func (s *Session) succeed(next State) {
	s.state = next
	s.lastError = NoError

	if d := s.config.timeout(states[next].timeout); d > 0 {
		s.timer.Arm(d)
	} else {
		s.timer.Disarm()
	}
}

func (s *Session) emit(c modem.Command) {
	// write errors surface as a timeout, the modem never answers a lost command
	_ = c.Emit(s.transport, s.tracer)
}

func (s *Session) reset() {
	s.address = [4]byte{}
	s.lines.Discard()
	s.hex.Reset()
	s.connectionStatus = atparser.SocketNotConnected
	s.answersLeft = 0
	s.carried = 0
	s.lastError = NoError
	s.timer.Disarm()
}

func (s *Session) remoteAddr() string {
	return netip.AddrFrom4(s.address).String()
}
