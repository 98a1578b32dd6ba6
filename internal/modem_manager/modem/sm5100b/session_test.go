package sm5100b

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/dns/dnsmessage"

	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/dnswire"
	"github.com/LeoCommon/gprsclient/pkg/timer"
)

const (
	testHost = "example.com"
	testPath = "/index.html"
)

var testAddress = [4]byte{93, 184, 216, 34}

type fakeModem struct {
	written bytes.Buffer
	rx      []byte
}

func (f *fakeModem) Write(p []byte) (int, error) {
	return f.written.Write(p)
}

func (f *fakeModem) PollByte() (byte, bool) {
	if len(f.rx) == 0 {
		return 0, false
	}
	c := f.rx[0]
	f.rx = f.rx[1:]
	return c, true
}

// take returns and forgets everything written so far
func (f *fakeModem) take() string {
	s := f.written.String()
	f.written.Reset()
	return s
}

type traceLog []string

func (l *traceLog) Trace(text string) {
	*l = append(*l, text)
}

type harness struct {
	*Session
	modem  *fakeModem
	clock  *timer.ManualClock
	sleeps []time.Duration
	traces traceLog
}

func testConfig() Config {
	return Config{
		APN:                "internet",
		APNUser:            "user",
		APNPassword:        "pass",
		DNS:                "8.8.8.8",
		LongTimeout:        time.Minute,
		ShortTimeout:       10 * time.Second,
		StatusPollInterval: time.Second,
		UserAgent:          "test-agent",
	}
}

func newHarness(config Config) *harness {
	h := &harness{
		modem: &fakeModem{},
		clock: timer.NewManualClock(time.Unix(1700000000, 0)),
	}
	h.Session = New(h.modem, &h.traces, config,
		WithClock(h.clock),
		WithSleeper(func(d time.Duration) { h.sleeps = append(h.sleeps, d) }),
	)
	return h
}

// feed steps the session one byte at a time
func (h *harness) feed(text string) {
	for i := 0; i < len(text); i++ {
		h.Step(text[i])
	}
}

func (h *harness) reply(t *testing.T, text string, want string) {
	t.Helper()
	h.feed(text)
	require.Equal(t, want, h.modem.take(), "after %q in %v", text, h.State())
}

func (h *harness) bringUp(t *testing.T) {
	t.Helper()
	h.reply(t, "\r\n+SIND: 4\r\n", "AT+CGATT?\r")
	h.reply(t, "AT+CGATT?\r\r\n+CGATT: 1\r\n\r\nOK\r\n", "AT+CGDCONT=1,\"IP\",\"internet\"\r")
	h.reply(t, "\r\nOK\r\n", "AT+CGPCO=0,\"user\",\"pass\", 1\r")
	h.reply(t, "\r\nOK\r\n", "AT+CGACT=1,1\r")
}

// runDNS drives a started request up to the point where the reply text is delivered
func (h *harness) runDNS(t *testing.T, reply string) {
	t.Helper()
	h.reply(t, "\r\nOK\r\n", "AT+SDATASTART=2,1\r")
	h.reply(t, "\r\nOK\r\n", "AT+SDATASTATUS=2\r")
	h.reply(t, "\r\n+SOCKSTATUS:  2,1,0102,0,0,0\r\n\r\nOK\r\n",
		fmt.Sprintf("AT+SDATATSEND=2,%d\r", dnswire.QueryLen(testHost)))

	query, err := dnswire.EncodeQuery(nil, testHost)
	require.NoError(t, err)
	h.reply(t, "\r\n>", string(query)+"\x1a")
	h.reply(t, " \r\nOK\r\n\r\n+STCPD:2\r\n", "")
	h.feed(reply)
}

func (h *harness) runRequest(t *testing.T) {
	t.Helper()
	request := "GET " + testPath + " HTTP/1.1\r\nHost: " + testHost + "\r\nUser-Agent: test-agent\r\n\r\n"

	h.reply(t, "\r\nOK\r\n", "AT+SDATASTART=1,1\r")
	h.reply(t, "\r\nOK\r\n", "AT+SDATASTATUS=1\r")
	h.reply(t, "\r\n+SOCKSTATUS:  1,1,0102,0,0,0\r\n\r\nOK\r\n", fmt.Sprintf("AT+SDATATSEND=1,%d\r", len(request)))
	h.reply(t, "\r\n>", request+"\x1a")
	h.reply(t, " \r\nOK\r\n", "")
	h.reply(t, "\r\n+STCPD:1\r\n", "AT+SDATATREAD=1\r")
}

func sdata(msg []byte) string {
	return fmt.Sprintf("\r\n+SDATA:2,%d,%s\r\n", len(msg), strings.ToUpper(hex.EncodeToString(msg)))
}

func dnsReply(t *testing.T, id uint16, answers func(b *dnsmessage.Builder)) []byte {
	t.Helper()

	b := dnsmessage.NewBuilder(nil, dnsmessage.Header{ID: id, Response: true, RecursionDesired: true, RecursionAvailable: true})
	b.EnableCompression()
	require.NoError(t, b.StartQuestions())
	require.NoError(t, b.Question(dnsmessage.Question{Name: dnsmessage.MustNewName(testHost + "."), Type: dnsmessage.TypeA, Class: dnsmessage.ClassINET}))
	require.NoError(t, b.StartAnswers())
	if answers != nil {
		answers(&b)
	}
	msg, err := b.Finish()
	require.NoError(t, err)
	return msg
}

func aRecord(t *testing.T, name string, address [4]byte) func(b *dnsmessage.Builder) {
	return func(b *dnsmessage.Builder) {
		require.NoError(t, b.AResource(dnsmessage.ResourceHeader{
			Name:  dnsmessage.MustNewName(name),
			Class: dnsmessage.ClassINET,
			TTL:   300,
		}, dnsmessage.AResource{A: address}))
	}
}

func cnameRecord(t *testing.T, target string) func(b *dnsmessage.Builder) {
	return func(b *dnsmessage.Builder) {
		require.NoError(t, b.CNAMEResource(dnsmessage.ResourceHeader{
			Name:  dnsmessage.MustNewName(testHost + "."),
			Class: dnsmessage.ClassINET,
			TTL:   300,
		}, dnsmessage.CNAMEResource{CNAME: dnsmessage.MustNewName(target)}))
	}
}

func TestStateTable(t *testing.T) {
	names := map[string]bool{}
	for s := State(0); s < stateCount; s++ {
		def := states[s]
		assert.NotEmpty(t, def.name, "state %d", s)
		assert.False(t, names[def.name], "duplicate name %v", def.name)
		names[def.name] = true

		if s.Terminal() {
			assert.Nil(t, def.handle, "%v", s)
			assert.Equal(t, timeoutNone, def.timeout, "%v", s)
			continue
		}
		assert.NotNil(t, def.handle, "%v", s)
		assert.NotEqual(t, framingNone, def.framing, "%v", s)
		assert.NotEqual(t, timeoutNone, def.timeout, "%v", s)
	}

	assert.Equal(t, PhaseBringUp, StateWaitForModule.Phase())
	assert.Equal(t, PhaseRequestBringUp, StateReactivatePDP.Phase())
	assert.Equal(t, PhaseDNS, StateCloseDNSConnection.Phase())
	assert.Equal(t, PhaseRequest, StateWaitForData.Phase())
	assert.True(t, StateDead.Terminal())
	assert.Equal(t, "State(99)", State(99).String())
}

func TestModuleReadyQueriesAttach(t *testing.T) {
	h := newHarness(testConfig())
	assert.Equal(t, StateWaitForModule, h.State())
	assert.False(t, h.ReadyForCommands())

	h.reply(t, "\r\n+SIND: 1\r\n\r\n+SIND: 10,\"SM\",1,\"FD\",1\r\n", "")
	h.reply(t, "\r\n+SIND: 4\r\n", "AT+CGATT?\r")
	assert.Equal(t, StateQueryAttach, h.State())
}

func TestBringUp(t *testing.T) {
	h := newHarness(testConfig())
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")

	assert.Equal(t, StateDone, h.State())
	assert.True(t, h.ReadyForCommands())
	assert.True(t, h.PDPReady())
	assert.Equal(t, NoError, h.LastError())
	assert.Contains(t, h.traces, ">> AT+CGATT?\\r")
	assert.Contains(t, h.traces, "<< +SIND: 4")
}

func TestHappyPath(t *testing.T) {
	h := newHarness(testConfig())
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")

	require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
	assert.Equal(t, "AT+SDATACONF=2,\"UDP\",\"8.8.8.8\",53\r", h.modem.take())

	h.runDNS(t, sdata(dnsReply(t, dnswire.TransactionID, aRecord(t, testHost+".", testAddress))))
	assert.Equal(t, "AT+SDATASTART=2,0\r", h.modem.take())
	assert.Equal(t, testAddress, h.ResolvedAddress())

	h.reply(t, "\r\nOK\r\n", "AT+SDATACONF=1,\"TCP\",\"93.184.216.34\",80\r")
	h.runRequest(t)

	assert.Equal(t, StateDone, h.State())
	assert.Equal(t, NoError, h.LastError())
	assert.True(t, h.ReadyForCommands())
}

func TestRequestDuringBringUpIsRejected(t *testing.T) {
	h := newHarness(testConfig())

	assert.Equal(t, ErrPrerequisitesNotReady, h.BeginRequest(testHost, testPath))
	assert.Equal(t, StateWaitForModule, h.State())
	assert.Equal(t, NoError, h.LastError())
	assert.Empty(t, h.modem.take())

	// the bring-up is not disturbed
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")
	assert.Equal(t, StateDone, h.State())
}

func TestRequestStartsBringUpWhenPDPIsDown(t *testing.T) {
	h := newHarness(testConfig())
	h.reply(t, "\r\n+SIND: 4\r\n", "AT+CGATT?\r")

	// the attach query never gets an answer
	h.clock.Advance(time.Minute + time.Millisecond)
	h.Tick()
	require.Equal(t, ErrTimeout, h.LastError())

	// the module was seen ready already, so the request restarts at the attach query
	require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
	assert.Equal(t, "AT+CGATT?\r", h.modem.take())
	h.reply(t, "\r\nOK\r\n", "AT+CGDCONT=1,\"IP\",\"internet\"\r")
	h.reply(t, "\r\nOK\r\n", "AT+CGPCO=0,\"user\",\"pass\", 1\r")
	h.reply(t, "\r\nOK\r\n", "AT+CGACT=1,1\r")
	h.reply(t, "\r\nOK\r\n", "AT+SDATACONF=2,\"UDP\",\"8.8.8.8\",53\r")
	assert.Equal(t, StateConfigureDNSHost, h.State())
}

func TestPDPResetBeforeRequest(t *testing.T) {
	config := testConfig()
	config.ResetPDPBeforeRequest = true
	h := newHarness(config)
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")

	require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
	assert.Equal(t, "AT+CGACT=0,1\r", h.modem.take())
	assert.Equal(t, StateDeactivatePDP, h.State())
	assert.False(t, h.PDPReady())

	h.reply(t, "\r\nOK\r\n", "")
	h.reply(t, "\r\nNO CARRIER\r\n", "AT+CGACT=1,1\r")
	h.reply(t, "\r\nOK\r\n", "AT+SDATACONF=2,\"UDP\",\"8.8.8.8\",53\r")
	assert.True(t, h.PDPReady())
}

func TestNoPDPResetBeforeRequest(t *testing.T) {
	h := newHarness(testConfig())
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")

	require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
	assert.Equal(t, "AT+SDATACONF=2,\"UDP\",\"8.8.8.8\",53\r", h.modem.take())
}

func TestAPNNotConfigured(t *testing.T) {
	for name, unset := range map[string]func(c *Config){
		"apn":      func(c *Config) { c.APN = "" },
		"user":     func(c *Config) { c.APNUser = "" },
		"password": func(c *Config) { c.APNPassword = "" },
		"dns":      func(c *Config) { c.DNS = "" },
	} {
		t.Run(name, func(t *testing.T) {
			config := testConfig()
			unset(&config)
			h := newHarness(config)

			assert.Equal(t, ErrAPNNotConfigured, h.BeginRequest(testHost, testPath))
			assert.Empty(t, h.modem.take())

			h.Kill()
			assert.Equal(t, ErrAPNNotConfigured, h.BeginRequest(testHost, testPath))
			assert.Empty(t, h.modem.take())
			assert.Equal(t, ErrAPNNotConfigured, h.LastError())
			assert.True(t, h.ReadyForCommands())
		})
	}
}

func TestBringUpWithoutAPN(t *testing.T) {
	config := testConfig()
	config.APN = ""
	h := newHarness(config)

	h.reply(t, "\r\n+SIND: 4\r\n", "AT+CGATT?\r")
	h.reply(t, "\r\nOK\r\n", "")
	assert.Equal(t, StateDone, h.State())
	assert.Equal(t, ErrAPNNotConfigured, h.LastError())
	assert.False(t, h.PDPReady())
}

func TestRequestNotConfigured(t *testing.T) {
	h := newHarness(testConfig())
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")

	for _, request := range [][2]string{
		{"", testPath},
		{testHost, ""},
		{"example..com", testPath},
	} {
		assert.Equal(t, ErrRequestNotConfigured, h.BeginRequest(request[0], request[1]), "%q", request)
		assert.Empty(t, h.modem.take())
		assert.Equal(t, ErrRequestNotConfigured, h.LastError())
		assert.Equal(t, StateDone, h.State())
	}
}

func TestTimeout(t *testing.T) {
	h := newHarness(testConfig())

	h.clock.Advance(time.Minute)
	h.Tick()
	assert.Equal(t, StateWaitForModule, h.State())

	h.clock.Advance(time.Millisecond)
	h.Tick()
	assert.Equal(t, StateDone, h.State())
	assert.Equal(t, ErrTimeout, h.LastError())

	// idempotent and later bytes are ignored
	h.Tick()
	h.reply(t, "\r\n+SIND: 4\r\n", "")
	assert.Equal(t, StateDone, h.State())
	assert.Equal(t, ErrTimeout, h.LastError())
}

func TestTimeoutIsCheckedBeforeTheByte(t *testing.T) {
	h := newHarness(testConfig())
	h.feed("\r\n+SIND: 4\r")

	h.clock.Advance(2 * time.Minute)
	h.reply(t, "\n", "")
	assert.Equal(t, ErrTimeout, h.LastError())
}

func TestShortTimeoutDuringRequest(t *testing.T) {
	h := newHarness(testConfig())
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")
	require.Equal(t, NoError, h.BeginRequest(testHost, testPath))

	h.clock.Advance(10*time.Second + time.Millisecond)
	h.Tick()
	assert.Equal(t, ErrTimeout, h.LastError())
	assert.True(t, h.PDPReady())
}

func TestPoll(t *testing.T) {
	h := newHarness(testConfig())
	h.modem.rx = []byte("\r\n+SIND: 4\r\n")

	for h.Poll() {
	}
	assert.Equal(t, "AT+CGATT?\r", h.modem.take())

	h.clock.Advance(2 * time.Minute)
	assert.False(t, h.Poll())
	assert.Equal(t, ErrTimeout, h.LastError())
}

func startedRequest(t *testing.T) *harness {
	t.Helper()
	h := newHarness(testConfig())
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")
	require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
	h.modem.take()
	h.reply(t, "\r\nOK\r\n", "AT+SDATASTART=2,1\r")
	h.reply(t, "\r\nOK\r\n", "AT+SDATASTATUS=2\r")
	return h
}

func TestSocketStatusPolling(t *testing.T) {
	h := startedRequest(t)

	h.reply(t, "\r\n+SOCKSTATUS:  2,0,0102,0,0,0\r\n", "")
	assert.Equal(t, StateDNSStatusWaitOK, h.State())
	h.reply(t, "\r\nOK\r\n", "AT+SDATASTATUS=2\r")
	assert.Equal(t, []time.Duration{time.Second}, h.sleeps)
	assert.Equal(t, StateDNSStatusWaitStatus, h.State())

	h.reply(t, "\r\n+SOCKSTATUS:  2,0\r\n\r\nOK\r\n", "AT+SDATASTATUS=2\r")
	h.reply(t, "\r\n+SOCKSTATUS:  2,1\r\n\r\nOK\r\n", "AT+SDATATSEND=2,29\r")
	assert.Len(t, h.sleeps, 2)
	assert.Equal(t, StateSendDNSQuery, h.State())
}

func TestSocketStatusInvalidValue(t *testing.T) {
	h := startedRequest(t)

	h.reply(t, "\r\n+SOCKSTATUS:  2,7,0102\r\n\r\nOK\r\n", "")
	assert.Equal(t, StateDone, h.State())
	assert.Equal(t, ErrConnStatusInvalidValue, h.LastError())
}

func TestSocketStatusMalformed(t *testing.T) {
	for _, line := range []string{"+SOCKSTATUS:  2", "+SOCKSTATUS:  2,", "+SOCKSTATUS:  2,x"} {
		h := startedRequest(t)
		h.reply(t, "\r\n"+line+"\r\n", "")
		assert.Equal(t, ErrConnStatusMalformed, h.LastError(), line)
	}
}

func TestDNSNoAnswer(t *testing.T) {
	for name, reply := range map[string]func(t *testing.T) []byte{
		"no answers": func(t *testing.T) []byte {
			return dnsReply(t, dnswire.TransactionID, nil)
		},
		"wrong id": func(t *testing.T) []byte {
			return dnsReply(t, 0x1234, aRecord(t, testHost+".", testAddress))
		},
		"only cname": func(t *testing.T) []byte {
			return dnsReply(t, dnswire.TransactionID, cnameRecord(t, "cdn.example.net."))
		},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(testConfig())
			h.bringUp(t)
			h.reply(t, "\r\nOK\r\n", "")
			require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
			h.modem.take()

			h.runDNS(t, sdata(reply(t)))
			assert.Equal(t, ErrDNSNoAnswer, h.LastError())
			assert.Equal(t, StateDone, h.State())
			assert.Empty(t, h.modem.take())
		})
	}
}

func TestDNSCNAMEBeforeA(t *testing.T) {
	h := newHarness(testConfig())
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")
	require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
	h.modem.take()

	reply := dnsReply(t, dnswire.TransactionID, func(b *dnsmessage.Builder) {
		cnameRecord(t, "cdn.example.net.")(b)
		aRecord(t, "cdn.example.net.", testAddress)(b)
	})
	h.runDNS(t, sdata(reply))

	assert.Equal(t, NoError, h.LastError())
	assert.Equal(t, testAddress, h.ResolvedAddress())
	assert.Equal(t, "AT+SDATASTART=2,0\r", h.modem.take())
}

func TestDNSCNAMEPointerTarget(t *testing.T) {
	h := newHarness(testConfig())
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")
	require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
	h.modem.take()

	// "com." compresses to a pointer into the question, rdlength is 2
	reply := dnsReply(t, dnswire.TransactionID, func(b *dnsmessage.Builder) {
		cnameRecord(t, "com.")(b)
		aRecord(t, "com.", testAddress)(b)
	})
	h.runDNS(t, sdata(reply))

	assert.Equal(t, NoError, h.LastError())
	assert.Equal(t, testAddress, h.ResolvedAddress())
	assert.Equal(t, StateCloseDNSConnection, h.State())
	assert.Equal(t, "AT+SDATASTART=2,0\r", h.modem.take())
}

func TestDNSReadPastResponseEnd(t *testing.T) {
	h := newHarness(testConfig())
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")
	require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
	h.modem.take()

	reply := dnsReply(t, dnswire.TransactionID, aRecord(t, testHost+".", testAddress))
	h.runDNS(t, "\r\n+SDATA:2,10,")
	require.Equal(t, StateReadDNSHeader, h.State())

	// the header alone is longer than the declared length
	h.feed(hex.EncodeToString(reply[:10]))
	assert.Equal(t, StateReadDNSHeader, h.State())
	h.feed(hex.EncodeToString(reply[10:]))
	assert.Equal(t, StateDone, h.State())
	assert.Equal(t, ErrReadPastResponseEnd, h.LastError())
}

func TestDNSIgnoresOtherSockets(t *testing.T) {
	h := startedRequest(t)
	h.reply(t, "\r\n+SOCKSTATUS:  2,1\r\n\r\nOK\r\n", "AT+SDATATSEND=2,29\r")
	h.feed("\r\n>")
	h.modem.take()
	h.feed("\r\n+SDATA:1,4,01020304\r\n")
	assert.Equal(t, StateReadDNSPrefix, h.State())
}

func TestKill(t *testing.T) {
	h := startedRequest(t)
	h.Kill()

	assert.Equal(t, StateDead, h.State())
	assert.True(t, h.ReadyForCommands())
	assert.True(t, h.PDPReady())
	assert.Equal(t, NoError, h.LastError())

	h.clock.Advance(time.Hour)
	h.Tick()
	h.reply(t, "\r\n+SOCKSTATUS:  2,1\r\n\r\nOK\r\n", "")
	assert.Equal(t, StateDead, h.State())
	assert.Equal(t, NoError, h.LastError())

	// a killed session accepts a new request
	require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
	assert.Equal(t, "AT+SDATACONF=2,\"UDP\",\"8.8.8.8\",53\r", h.modem.take())
}

func TestKillFromAnyState(t *testing.T) {
	for _, tc := range []struct {
		name     string
		setup    func(t *testing.T) *harness
		state    State
		pdpReady bool
		next     string
	}{
		{
			name: "bring-up",
			setup: func(t *testing.T) *harness {
				h := newHarness(testConfig())
				h.reply(t, "\r\n+SIND: 4\r\n", "AT+CGATT?\r")
				return h
			},
			state: StateQueryAttach,
			next:  "AT+CGATT?\r",
		},
		{
			name: "inside a hex part",
			setup: func(t *testing.T) *harness {
				h := newHarness(testConfig())
				h.bringUp(t)
				h.reply(t, "\r\nOK\r\n", "")
				require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
				h.modem.take()

				reply := dnsReply(t, dnswire.TransactionID, aRecord(t, testHost+".", testAddress))
				h.runDNS(t, fmt.Sprintf("\r\n+SDATA:2,%d,%s", len(reply), hex.EncodeToString(reply[:3])))
				require.Equal(t, len(reply)-3, h.hex.Remaining())
				return h
			},
			state:    StateReadDNSHeader,
			pdpReady: true,
			next:     "AT+SDATACONF=2,\"UDP\",\"8.8.8.8\",53\r",
		},
		{
			name: "done",
			setup: func(t *testing.T) *harness {
				h := newHarness(testConfig())
				h.bringUp(t)
				h.reply(t, "\r\nOK\r\n", "")
				return h
			},
			state:    StateDone,
			pdpReady: true,
			next:     "AT+SDATACONF=2,\"UDP\",\"8.8.8.8\",53\r",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := tc.setup(t)
			require.Equal(t, tc.state, h.State())

			h.Kill()
			assert.Equal(t, StateDead, h.State())
			assert.True(t, h.ReadyForCommands())
			assert.Equal(t, NoError, h.LastError())
			assert.Equal(t, tc.pdpReady, h.PDPReady())
			assert.Zero(t, h.hex.Remaining())
			assert.Empty(t, h.lines.Pending())

			// no timeout fires and input is dropped
			h.clock.Advance(time.Hour)
			h.Tick()
			h.reply(t, "\r\nOK\r\n00000000\r\n", "")
			assert.Equal(t, StateDead, h.State())
			assert.Equal(t, NoError, h.LastError())

			require.Equal(t, NoError, h.BeginRequest(testHost, testPath))
			assert.Equal(t, tc.next, h.modem.take())
		})
	}
}

func TestBeginRequestRestartsRequestInFlight(t *testing.T) {
	h := startedRequest(t)

	require.Equal(t, NoError, h.BeginRequest("other.example.org", "/"))
	assert.Equal(t, "AT+SDATACONF=2,\"UDP\",\"8.8.8.8\",53\r", h.modem.take())
	assert.Equal(t, StateConfigureDNSHost, h.State())
}

func TestConfigDefaults(t *testing.T) {
	h := newHarness(Config{})
	assert.Equal(t, DefaultLongTimeout, h.config.LongTimeout)
	assert.Equal(t, DefaultShortTimeout, h.config.ShortTimeout)
	assert.Equal(t, DefaultStatusPollInterval, h.config.StatusPollInterval)
	assert.Equal(t, DefaultUserAgent, h.config.UserAgent)

	assert.True(t, DefaultConfig().ResetPDPBeforeRequest)
}

func TestErrorKind(t *testing.T) {
	assert.NoError(t, NoError.Err())
	assert.EqualError(t, ErrTimeout.Err(), "sm5100b: timeout")
	assert.Equal(t, "dns no answer", ErrDNSNoAnswer.String())
}

func TestRestart(t *testing.T) {
	h := newHarness(testConfig())
	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")
	require.True(t, h.PDPReady())

	h.Restart()
	assert.Equal(t, StateWaitForModule, h.State())
	assert.False(t, h.PDPReady())
	assert.False(t, h.ReadyForCommands())
	assert.Equal(t, ErrPrerequisitesNotReady, h.BeginRequest(testHost, testPath))

	h.bringUp(t)
	h.reply(t, "\r\nOK\r\n", "")
	assert.True(t, h.PDPReady())
}
