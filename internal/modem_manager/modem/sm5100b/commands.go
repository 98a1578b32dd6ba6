package sm5100b

import (
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem"
)

const (
	// socket ids
	tcpSocket = 1
	dnsSocket = 2

	pdpContext = 1
)

// Reply tokens, compared against complete lines or the pending prompt
const (
	tokenOK           = "OK"
	tokenModuleReady  = "+SIND: 4"
	tokenNoCarrier    = "NO CARRIER"
	tokenPrompt       = ">"
	tokenDataReceived = "+STCPD:1"
)

func cmdQueryAttach() modem.Command {
	return modem.Cmd(modem.Text("AT+CGATT?\r"))
}

func cmdSetPDPContext(apn string) modem.Command {
	return modem.Cmd(
		modem.Text("AT+CGDCONT="), modem.Int(pdpContext),
		modem.Text(`,"IP","`), modem.Text(apn), modem.Text("\"\r"),
	)
}

func cmdSetPDPCredentials(user, password string) modem.Command {
	return modem.Cmd(
		modem.Text(`AT+CGPCO=0,"`), modem.Text(user),
		modem.Text(`","`), modem.Text(password),
		modem.Text(`", `), modem.Int(pdpContext), modem.Text("\r"),
	)
}

func cmdActivatePDP() modem.Command {
	return modem.Cmd(modem.Text("AT+CGACT=1,"), modem.Int(pdpContext), modem.Text("\r"))
}

func cmdDeactivatePDP() modem.Command {
	return modem.Cmd(modem.Text("AT+CGACT=0,"), modem.Int(pdpContext), modem.Text("\r"))
}

func cmdConfigureSocket(socket int, protocol string, host string, port int) modem.Command {
	return modem.Cmd(
		modem.Text("AT+SDATACONF="), modem.Int(socket),
		modem.Text(`,"`), modem.Text(protocol), modem.Text(`","`), modem.Text(host),
		modem.Text(`",`), modem.Int(port), modem.Text("\r"),
	)
}

func cmdStartSocket(socket int, start bool) modem.Command {
	on := 0
	if start {
		on = 1
	}
	return modem.Cmd(modem.Text("AT+SDATASTART="), modem.Int(socket), modem.Text(","), modem.Int(on), modem.Text("\r"))
}

func cmdSocketStatus(socket int) modem.Command {
	return modem.Cmd(modem.Text("AT+SDATASTATUS="), modem.Int(socket), modem.Text("\r"))
}

// cmdSend announces a payload of n bytes, the modem answers with a prompt
func cmdSend(socket int, n int) modem.Command {
	return modem.Cmd(modem.Text("AT+SDATATSEND="), modem.Int(socket), modem.Text(","), modem.Int(n), modem.Text("\r"))
}

func cmdRead(socket int) modem.Command {
	return modem.Cmd(modem.Text("AT+SDATATREAD="), modem.Int(socket), modem.Text("\r"))
}

// payload terminates a raw payload so the modem leaves data mode
func payload(c modem.Command) modem.Command {
	return append(c, modem.Byte(modem.CtrlZ))
}

func httpRequest(host, path, userAgent string) modem.Command {
	return modem.Cmd(
		modem.Text("GET "), modem.Text(path), modem.Text(" HTTP/1.1\r\n"),
		modem.Text("Host: "), modem.Text(host), modem.Text("\r\n"),
		modem.Text("User-Agent: "), modem.Text(userAgent), modem.Text("\r\n"),
		modem.Text("\r\n"),
	)
}
