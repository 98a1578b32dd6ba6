package atparser

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	SockStatusHeader = "+SOCKSTATUS:"
	DataHeader       = "+SDATA:"
)

// SocketStatus is the connection state reported by +SOCKSTATUS
type SocketStatus int

const (
	SocketNotConnected SocketStatus = 0
	SocketConnected    SocketStatus = 1
)

var ErrMalformed = errors.New("malformed status line")

// IsSockStatus reports whether the line is a socket status reply
func IsSockStatus(line string) bool {
	return strings.HasPrefix(line, SockStatusHeader)
}

// SockStatus parses "+SOCKSTATUS:  <id>,<status>[,...]" into the status, the
// status are the digits right after the first comma
func SockStatus(line string) (SocketStatus, error) {
	if !IsSockStatus(line) {
		return 0, fmt.Errorf("unknown header %v: %w", line, ErrMalformed)
	}

	comma := strings.IndexByte(line, ',')
	if comma < 0 {
		return 0, fmt.Errorf("no status delimiter in %v: %w", line, ErrMalformed)
	}

	rest := strings.TrimLeft(line[comma+1:], " ")
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("no status value in %v: %w", line, ErrMalformed)
	}

	status, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, fmt.Errorf("status value out of range in %v: %w", line, ErrMalformed)
	}
	return SocketStatus(status), nil
}

// DataPrefix recognizes the complete "+SDATA:<socket>,<length>," prefix of a
// hex payload line while it is still being received
func DataPrefix(pending []byte) (socket int, length int, ok bool) {
	if !bytes.HasPrefix(pending, []byte(DataHeader)) || pending[len(pending)-1] != ',' {
		return 0, 0, false
	}

	fields := bytes.Split(pending[len(DataHeader):len(pending)-1], []byte{','})
	if len(fields) != 2 {
		return 0, 0, false
	}

	socket, err := strconv.Atoi(string(bytes.TrimSpace(fields[0])))
	if err != nil {
		return 0, 0, false
	}
	length, err = strconv.Atoi(string(bytes.TrimSpace(fields[1])))
	if err != nil || length < 0 {
		return 0, 0, false
	}
	return socket, length, true
}
