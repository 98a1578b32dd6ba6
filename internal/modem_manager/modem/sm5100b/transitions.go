package sm5100b

import (
	"errors"

	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/dnswire"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/framing"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/sm5100b/atparser"
	"github.com/LeoCommon/gprsclient/pkg/log"
	"go.uber.org/zap"
)

// lineIs reports whether the byte just fed completed a line equal to token
func (s *Session) lineIs(token string) bool {
	line, ok := s.lines.Line()
	return ok && line == token
}

// prompt consumes the data-send prompt once it is the only pending content
func (s *Session) prompt() bool {
	if !s.lines.PendingEquals(tokenPrompt) {
		return false
	}
	s.lines.Discard()
	return true
}

/*
	Bring-up
*/

func (s *Session) onModuleReady() {
	if !s.lineIs(tokenModuleReady) {
		return
	}
	s.moduleReady = true
	s.emit(cmdQueryAttach())
	s.succeed(StateQueryAttach)
}

func (s *Session) onAttachQueried() {
	if !s.lineIs(tokenOK) {
		return
	}
	if s.config.APN == "" {
		s.fail(ErrAPNNotConfigured)
		return
	}
	s.emit(cmdSetPDPContext(s.config.APN))
	s.succeed(StateSetPDPContext)
}

func (s *Session) onPDPContextSet() {
	if !s.lineIs(tokenOK) {
		return
	}
	if s.config.APNUser == "" || s.config.APNPassword == "" {
		s.fail(ErrAPNNotConfigured)
		return
	}
	s.emit(cmdSetPDPCredentials(s.config.APNUser, s.config.APNPassword))
	s.succeed(StateSetPDPCredentials)
}

func (s *Session) onPDPCredentialsSet() {
	if !s.lineIs(tokenOK) {
		return
	}
	s.emit(cmdActivatePDP())
	s.succeed(StateActivatePDP)
}

func (s *Session) onPDPActivated() {
	if !s.lineIs(tokenOK) {
		return
	}
	s.pdpReady = true
	if !s.pendingRequest {
		s.succeed(StateDone)
		return
	}
	s.startDNS()
}

func (s *Session) onPDPDeactivated() {
	if !s.lineIs(tokenNoCarrier) {
		return
	}
	s.emit(cmdActivatePDP())
	s.succeed(StateReactivatePDP)
}

func (s *Session) onPDPReactivated() {
	if !s.lineIs(tokenOK) {
		return
	}
	s.pdpReady = true
	s.startDNS()
}

/*
	DNS
*/

func (s *Session) startDNS() {
	if s.config.DNS == "" {
		s.fail(ErrAPNNotConfigured)
		return
	}
	s.emit(cmdConfigureSocket(dnsSocket, "UDP", s.config.DNS, dnswire.Port))
	s.succeed(StateConfigureDNSHost)
}

func (s *Session) onDNSHostConfigured() {
	if !s.lineIs(tokenOK) {
		return
	}
	s.emit(cmdStartSocket(dnsSocket, true))
	s.succeed(StateStartDNSConnection)
}

func (s *Session) onDNSConnectionStarted() {
	if !s.lineIs(tokenOK) {
		return
	}
	s.emit(cmdSocketStatus(dnsSocket))
	s.succeed(StateDNSStatusWaitStatus)
}

func (s *Session) onDNSStatus() {
	s.onSocketStatus(StateDNSStatusWaitOK)
}

func (s *Session) onDNSStatusOK() {
	s.onSocketStatusOK(dnsSocket, StateDNSStatusWaitStatus, func() {
		s.emit(cmdSend(dnsSocket, dnswire.QueryLen(s.host)))
		s.succeed(StateSendDNSQuery)
	})
}

func (s *Session) onDNSPrompt() {
	if !s.prompt() {
		return
	}

	query, err := dnswire.EncodeQuery(make([]byte, 0, dnswire.QueryLen(s.host)), s.host)
	if err != nil {
		s.fail(ErrRequestNotConfigured)
		return
	}
	s.emit(payload(modem.Cmd(modem.Raw(query))))
	s.succeed(StateReadDNSPrefix)
}

func (s *Session) onDNSPrefix() {
	socket, n, ok := atparser.DataPrefix(s.lines.Pending())
	if !ok || socket != dnsSocket {
		return
	}
	s.lines.Discard()

	s.hex.Begin(n)
	s.hex.Expect(dnswire.HeaderLen, false)
	s.succeed(StateReadDNSHeader)
}

func (s *Session) onDNSHeader() {
	header, err := dnswire.DecodeHeader(s.hex.Part())
	if err == nil {
		err = header.Validate()
	}
	if err != nil {
		s.tracer.Trace("dns reply rejected: " + err.Error())
		s.fail(ErrDNSNoAnswer)
		return
	}

	s.answersLeft = int(header.Answers)
	s.hex.Expect(dnswire.QuestionLen(s.host), true)
	s.succeed(StateSkipDNSQuestion)
}

func (s *Session) onDNSQuestionSkipped() {
	s.readAnswer()
}

func (s *Session) readAnswer() {
	if s.answersLeft <= 0 {
		s.fail(ErrDNSNoAnswer)
		return
	}
	s.answersLeft--
	s.hex.Expect(dnswire.AnswerPrefixLen-s.carried, false)
	s.succeed(StateReadDNSAnswer)
}

func (s *Session) onDNSAnswer() {
	var prefix [dnswire.AnswerPrefixLen]byte
	n := copy(prefix[:], s.carry[:s.carried])
	copy(prefix[n:], s.hex.Part())
	s.carried = 0

	answer, err := dnswire.DecodeAnswerPrefix(prefix[:])
	if err != nil {
		s.fail(ErrDNSNoAnswer)
		return
	}

	if answer.IsA() {
		address, err := answer.Address()
		if err != nil {
			s.fail(ErrDNSNoAnswer)
			return
		}
		s.address = address
		s.tracer.Trace("resolved " + s.host + " to " + s.remoteAddr())
		s.drainDNS()
		return
	}

	// e.g. a CNAME ahead of the A record, a short one already holds the
	// start of the next record
	s.carried = copy(s.carry[:], answer.Surplus())
	skip := answer.SkipLen()
	if skip == 0 {
		s.readAnswer()
		return
	}
	s.hex.Expect(skip, true)
	s.succeed(StateSkipDNSAnswer)
}

func (s *Session) onDNSAnswerSkipped() {
	s.readAnswer()
}

func (s *Session) drainDNS() {
	if rest := s.hex.Remaining(); rest > 0 {
		s.hex.Expect(rest, true)
		s.succeed(StateDrainDNSResponse)
		return
	}
	s.closeDNS()
}

func (s *Session) onDNSResponseDrained() {
	s.closeDNS()
}

func (s *Session) closeDNS() {
	s.emit(cmdStartSocket(dnsSocket, false))
	s.succeed(StateCloseDNSConnection)
}

func (s *Session) onDNSConnectionClosed() {
	if !s.lineIs(tokenOK) {
		return
	}
	s.emit(cmdConfigureSocket(tcpSocket, "TCP", s.remoteAddr(), HTTPPort))
	s.succeed(StateConfigureRemoteHost)
}

// failDecode maps hex framer errors
func (s *Session) failDecode(err error) {
	if errors.Is(err, framing.ErrBufferFull) {
		log.Error("dns part exceeds the decode scratch", zap.String("state", s.state.String()), zap.Error(err))
	}
	s.fail(ErrReadPastResponseEnd)
}

/*
	Request
*/

func (s *Session) onRemoteHostConfigured() {
	if !s.lineIs(tokenOK) {
		return
	}
	s.emit(cmdStartSocket(tcpSocket, true))
	s.succeed(StateStartTCPConnection)
}

func (s *Session) onTCPConnectionStarted() {
	if !s.lineIs(tokenOK) {
		return
	}
	s.emit(cmdSocketStatus(tcpSocket))
	s.succeed(StateTCPStatusWaitStatus)
}

func (s *Session) onTCPStatus() {
	s.onSocketStatus(StateTCPStatusWaitOK)
}

func (s *Session) onTCPStatusOK() {
	s.onSocketStatusOK(tcpSocket, StateTCPStatusWaitStatus, func() {
		s.emit(cmdSend(tcpSocket, httpRequest(s.host, s.path, s.config.UserAgent).Len()))
		s.succeed(StateSendHTTPRequest)
	})
}

func (s *Session) onHTTPPrompt() {
	if !s.prompt() {
		return
	}
	s.emit(payload(httpRequest(s.host, s.path, s.config.UserAgent)))
	s.succeed(StateWaitForData)
}

func (s *Session) onDataReceived() {
	if !s.lineIs(tokenDataReceived) {
		return
	}
	s.emit(cmdRead(tcpSocket))
	s.pendingRequest = false
	s.succeed(StateDone)
}

/*
	Socket status polling, shared by both sockets
*/

func (s *Session) onSocketStatus(next State) {
	line, ok := s.lines.Line()
	if !ok || !atparser.IsSockStatus(line) {
		return
	}

	status, err := atparser.SockStatus(line)
	if err != nil {
		s.tracer.Trace(err.Error())
		s.fail(ErrConnStatusMalformed)
		return
	}
	s.connectionStatus = status
	s.succeed(next)
}

func (s *Session) onSocketStatusOK(socket int, retry State, connected func()) {
	if !s.lineIs(tokenOK) {
		return
	}

	switch s.connectionStatus {
	case atparser.SocketNotConnected:
		s.sleep(s.config.StatusPollInterval)
		s.emit(cmdSocketStatus(socket))
		s.succeed(retry)
	case atparser.SocketConnected:
		connected()
	default:
		s.fail(ErrConnStatusInvalidValue)
	}
}
