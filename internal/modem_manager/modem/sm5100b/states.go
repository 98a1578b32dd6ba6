package sm5100b

import "fmt"

// State is the single source of truth for what the session expects next
type State int

const (
	// Bring-up
	StateWaitForModule State = iota
	StateQueryAttach
	StateSetPDPContext
	StateSetPDPCredentials
	StateActivatePDP

	// Request bring-up, reset of an already active PDP context
	StateDeactivatePDP
	StateReactivatePDP

	// DNS resolution over UDP socket 2
	StateConfigureDNSHost
	StateStartDNSConnection
	StateDNSStatusWaitStatus
	StateDNSStatusWaitOK
	StateSendDNSQuery
	StateReadDNSPrefix
	StateReadDNSHeader
	StateSkipDNSQuestion
	StateReadDNSAnswer
	StateSkipDNSAnswer
	StateDrainDNSResponse
	StateCloseDNSConnection

	// HTTP request over TCP socket 1
	StateConfigureRemoteHost
	StateStartTCPConnection
	StateTCPStatusWaitStatus
	StateTCPStatusWaitOK
	StateSendHTTPRequest
	StateWaitForData

	// Terminal
	StateDone
	StateDead

	stateCount
)

// Phase groups states into closed sub-ranges of the enumeration
type Phase int

const (
	PhaseBringUp Phase = iota
	PhaseRequestBringUp
	PhaseDNS
	PhaseRequest
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhaseBringUp:
		return "bring-up"
	case PhaseRequestBringUp:
		return "request bring-up"
	case PhaseDNS:
		return "dns"
	case PhaseRequest:
		return "request"
	case PhaseTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

func (s State) Phase() Phase {
	switch {
	case s <= StateActivatePDP:
		return PhaseBringUp
	case s <= StateReactivatePDP:
		return PhaseRequestBringUp
	case s <= StateCloseDNSConnection:
		return PhaseDNS
	case s <= StateWaitForData:
		return PhaseRequest
	default:
		return PhaseTerminal
	}
}

// Terminal reports whether no reply is expected in this state
func (s State) Terminal() bool {
	return s.Phase() == PhaseTerminal
}

func (s State) String() string {
	if s >= 0 && s < stateCount {
		return states[s].name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// framingKind selects how incoming bytes are grouped for a state
type framingKind int

const (
	framingNone framingKind = iota
	framingLine
	framingHex
)

// timeoutClass selects which configured duration guards a state
type timeoutClass int

const (
	timeoutNone timeoutClass = iota
	timeoutShort
	timeoutLong
)

type stateDef struct {
	name    string
	framing framingKind
	timeout timeoutClass
	// handle runs after the framer produced input: for line framing after every
	// byte (so pending prefixes can be inspected), for hex framing once a part is complete
	handle func(s *Session)
}

// states pairs every state with its framing, timeout policy and transition
var states [stateCount]stateDef

func init() {
	states = [stateCount]stateDef{
		StateWaitForModule:     {"wait-for-module", framingLine, timeoutLong, (*Session).onModuleReady},
		StateQueryAttach:       {"query-attach", framingLine, timeoutLong, (*Session).onAttachQueried},
		StateSetPDPContext:     {"set-pdp-context", framingLine, timeoutLong, (*Session).onPDPContextSet},
		StateSetPDPCredentials: {"set-pdp-credentials", framingLine, timeoutLong, (*Session).onPDPCredentialsSet},
		StateActivatePDP:       {"activate-pdp", framingLine, timeoutLong, (*Session).onPDPActivated},

		StateDeactivatePDP: {"deactivate-pdp", framingLine, timeoutLong, (*Session).onPDPDeactivated},
		StateReactivatePDP: {"reactivate-pdp", framingLine, timeoutLong, (*Session).onPDPReactivated},

		StateConfigureDNSHost:    {"configure-dns-host", framingLine, timeoutShort, (*Session).onDNSHostConfigured},
		StateStartDNSConnection:  {"start-dns-connection", framingLine, timeoutShort, (*Session).onDNSConnectionStarted},
		StateDNSStatusWaitStatus: {"dns-status-wait-status", framingLine, timeoutShort, (*Session).onDNSStatus},
		StateDNSStatusWaitOK:     {"dns-status-wait-ok", framingLine, timeoutShort, (*Session).onDNSStatusOK},
		StateSendDNSQuery:        {"send-dns-query", framingLine, timeoutShort, (*Session).onDNSPrompt},
		StateReadDNSPrefix:       {"read-dns-prefix", framingLine, timeoutShort, (*Session).onDNSPrefix},
		StateReadDNSHeader:       {"read-dns-header", framingHex, timeoutShort, (*Session).onDNSHeader},
		StateSkipDNSQuestion:     {"skip-dns-question", framingHex, timeoutShort, (*Session).onDNSQuestionSkipped},
		StateReadDNSAnswer:       {"read-dns-answer", framingHex, timeoutShort, (*Session).onDNSAnswer},
		StateSkipDNSAnswer:       {"skip-dns-answer", framingHex, timeoutShort, (*Session).onDNSAnswerSkipped},
		StateDrainDNSResponse:    {"drain-dns-response", framingHex, timeoutShort, (*Session).onDNSResponseDrained},
		StateCloseDNSConnection:  {"close-dns-connection", framingLine, timeoutShort, (*Session).onDNSConnectionClosed},

		StateConfigureRemoteHost: {"configure-remote-host", framingLine, timeoutShort, (*Session).onRemoteHostConfigured},
		StateStartTCPConnection:  {"start-tcp-connection", framingLine, timeoutShort, (*Session).onTCPConnectionStarted},
		StateTCPStatusWaitStatus: {"tcp-status-wait-status", framingLine, timeoutShort, (*Session).onTCPStatus},
		StateTCPStatusWaitOK:     {"tcp-status-wait-ok", framingLine, timeoutShort, (*Session).onTCPStatusOK},
		StateSendHTTPRequest:     {"send-http-request", framingLine, timeoutShort, (*Session).onHTTPPrompt},
		StateWaitForData:         {"wait-for-data", framingLine, timeoutShort, (*Session).onDataReceived},

		StateDone: {"done", framingNone, timeoutNone, nil},
		StateDead: {"dead", framingNone, timeoutNone, nil},
	}
}
