// Package dnswire builds the fixed single-question DNS query used over the
// modem's UDP socket and decodes the parts of the reply the session reads.
package dnswire

import (
	"encoding/binary"
	"errors"
	"strings"

	"golang.org/x/net/dns/dnsmessage"
)

const (
	// TransactionID is the fixed id of every query, replies must echo it
	TransactionID uint16 = 0x0002

	// Port is the DNS server port
	Port = 53

	HeaderLen = 12
	// AnswerPrefixLen is the part of an answer record read in one go: name pointer,
	// type, class, ttl, rdlength and four bytes of inline data
	AnswerPrefixLen = 16
	// InlineDataLen is the data already consumed with the answer prefix
	InlineDataLen = 4

	maxLabelLen = 63
	maxNameLen  = 253
)

var (
	// header: id, flags with recursion desired, one question, no other records
	queryHeader = [HeaderLen]byte{
		byte(TransactionID >> 8), byte(TransactionID), 0x01, 0x00,
		0x00, 0x01, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}

	// root label, QTYPE=A, QCLASS=IN
	querySuffix = [5]byte{
		0x00,
		byte(dnsmessage.TypeA >> 8), byte(dnsmessage.TypeA),
		byte(dnsmessage.ClassINET >> 8), byte(dnsmessage.ClassINET),
	}
)

var (
	ErrInvalidName = errors.New("dnswire: host is not a valid dns name")
	// ErrNoAnswer covers every reply that cannot produce an A record
	ErrNoAnswer = errors.New("dnswire: no usable answer")
)

// ValidateName checks that host can be encoded as a query
func ValidateName(host string) error {
	if len(host) == 0 || len(host) > maxNameLen {
		return ErrInvalidName
	}
	for _, label := range strings.Split(host, ".") {
		if len(label) == 0 || len(label) > maxLabelLen {
			return ErrInvalidName
		}
	}
	return nil
}

// QueryLen is the size of the encoded query, one length octet per label is
// accounted for by the leading octet plus the dots inside the host
func QueryLen(host string) int {
	return HeaderLen + QuestionLen(host)
}

// QuestionLen is the size of the question section the server echoes back
func QuestionLen(host string) int {
	return 1 + len(host) + len(querySuffix)
}

// EncodeQuery appends the A/IN query for host to dst
func EncodeQuery(dst []byte, host string) ([]byte, error) {
	if err := ValidateName(host); err != nil {
		return dst, err
	}

	dst = append(dst, queryHeader[:]...)
	for _, label := range strings.Split(host, ".") {
		dst = append(dst, byte(len(label)))
		dst = append(dst, label...)
	}
	return append(dst, querySuffix[:]...), nil
}

// Header is the part of the reply header the session checks
type Header struct {
	ID          uint16
	Flags       uint16
	Questions   uint16
	Answers     uint16
	Authorities uint16
	Additionals uint16
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrNoAnswer
	}
	return Header{
		ID:          binary.BigEndian.Uint16(b[0:2]),
		Flags:       binary.BigEndian.Uint16(b[2:4]),
		Questions:   binary.BigEndian.Uint16(b[4:6]),
		Answers:     binary.BigEndian.Uint16(b[6:8]),
		Authorities: binary.BigEndian.Uint16(b[8:10]),
		Additionals: binary.BigEndian.Uint16(b[10:12]),
	}, nil
}

// Validate accepts only replies to our transaction that carry answers
func (h Header) Validate() error {
	if h.ID != TransactionID || h.Answers == 0 {
		return ErrNoAnswer
	}
	return nil
}

// Answer is an answer record decoded from its 16 byte prefix
type Answer struct {
	Type     dnsmessage.Type
	Class    dnsmessage.Class
	TTL      uint32
	RDLength uint16
	Inline   [InlineDataLen]byte
}

func DecodeAnswerPrefix(b []byte) (Answer, error) {
	if len(b) < AnswerPrefixLen {
		return Answer{}, ErrNoAnswer
	}
	a := Answer{
		Type:     dnsmessage.Type(binary.BigEndian.Uint16(b[2:4])),
		Class:    dnsmessage.Class(binary.BigEndian.Uint16(b[4:6])),
		TTL:      binary.BigEndian.Uint32(b[6:10]),
		RDLength: binary.BigEndian.Uint16(b[10:12]),
	}
	copy(a.Inline[:], b[12:16])
	return a, nil
}

// IsA reports whether the record is an Internet class address record
func (a Answer) IsA() bool {
	return a.Type == dnsmessage.TypeA && a.Class == dnsmessage.ClassINET
}

// Address returns the IPv4 address of an A/IN record
func (a Answer) Address() ([4]byte, error) {
	if !a.IsA() || a.RDLength != InlineDataLen {
		return [4]byte{}, ErrNoAnswer
	}
	return a.Inline, nil
}

// SkipLen is the number of bytes left of a record that is not used, the
// inline data was already read with the prefix
func (a Answer) SkipLen() int {
	if int(a.RDLength) <= InlineDataLen {
		return 0
	}
	return int(a.RDLength) - InlineDataLen
}

// Surplus returns the inline bytes that already belong to the next record.
// A CNAME whose target is a bare name pointer has only two bytes of data.
func (a Answer) Surplus() []byte {
	if int(a.RDLength) >= InlineDataLen {
		return nil
	}
	return a.Inline[a.RDLength:]
}
