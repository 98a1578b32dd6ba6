package dnswire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/dns/dnsmessage"
)

func TestQueryLen(t *testing.T) {
	assert.Equal(t, 29, QueryLen("example.com"))
	assert.Equal(t, 17, QuestionLen("example.com"))

	q, err := EncodeQuery(nil, "example.com")
	require.NoError(t, err)
	assert.Len(t, q, QueryLen("example.com"))
}

func TestEncodeQuery(t *testing.T) {
	q, err := EncodeQuery(nil, "example.com")
	require.NoError(t, err)

	assert.Equal(t, []byte{
		0x00, 0x02, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm',
		0x00, 0x00, 0x01, 0x00, 0x01,
	}, q)

	// an independent parser agrees on the content
	var p dnsmessage.Parser
	h, err := p.Start(q)
	require.NoError(t, err)
	assert.Equal(t, TransactionID, h.ID)
	assert.True(t, h.RecursionDesired)
	assert.False(t, h.Response)

	question, err := p.Question()
	require.NoError(t, err)
	assert.Equal(t, "example.com.", question.Name.String())
	assert.Equal(t, dnsmessage.TypeA, question.Type)
	assert.Equal(t, dnsmessage.ClassINET, question.Class)
}

func TestEncodeQueryInvalidNames(t *testing.T) {
	for _, host := range []string{
		"",
		"example..com",
		".example.com",
		"example.com.",
		string(make([]byte, 64)) + ".com",
	} {
		_, err := EncodeQuery(nil, host)
		assert.ErrorIs(t, err, ErrInvalidName, "host %q", host)
	}
}

func buildReply(t *testing.T, id uint16, answers func(b *dnsmessage.Builder)) []byte {
	t.Helper()

	name := dnsmessage.MustNewName("example.com.")
	b := dnsmessage.NewBuilder(nil, dnsmessage.Header{ID: id, Response: true, RecursionDesired: true, RecursionAvailable: true})
	b.EnableCompression()
	require.NoError(t, b.StartQuestions())
	require.NoError(t, b.Question(dnsmessage.Question{Name: name, Type: dnsmessage.TypeA, Class: dnsmessage.ClassINET}))
	require.NoError(t, b.StartAnswers())
	if answers != nil {
		answers(&b)
	}
	msg, err := b.Finish()
	require.NoError(t, err)
	return msg
}

func TestDecodeHeader(t *testing.T) {
	reply := buildReply(t, TransactionID, func(b *dnsmessage.Builder) {
		require.NoError(t, b.AResource(dnsmessage.ResourceHeader{
			Name:  dnsmessage.MustNewName("example.com."),
			Class: dnsmessage.ClassINET,
			TTL:   300,
		}, dnsmessage.AResource{A: [4]byte{93, 184, 216, 34}}))
	})

	h, err := DecodeHeader(reply)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), h.Questions)
	assert.Equal(t, uint16(1), h.Answers)
	assert.NoError(t, h.Validate())

	a, err := DecodeAnswerPrefix(reply[HeaderLen+QuestionLen("example.com"):])
	require.NoError(t, err)
	assert.True(t, a.IsA())
	assert.Equal(t, uint32(300), a.TTL)
	addr, err := a.Address()
	require.NoError(t, err)
	assert.Equal(t, [4]byte{93, 184, 216, 34}, addr)
}

func TestDecodeHeaderNoAnswer(t *testing.T) {
	h, err := DecodeHeader(buildReply(t, TransactionID, nil))
	require.NoError(t, err)
	assert.ErrorIs(t, h.Validate(), ErrNoAnswer)

	_, err = DecodeHeader([]byte{0x00, 0x02})
	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestDecodeHeaderWrongID(t *testing.T) {
	reply := buildReply(t, 0x1234, func(b *dnsmessage.Builder) {
		require.NoError(t, b.AResource(dnsmessage.ResourceHeader{
			Name:  dnsmessage.MustNewName("example.com."),
			Class: dnsmessage.ClassINET,
		}, dnsmessage.AResource{A: [4]byte{1, 2, 3, 4}}))
	})

	h, err := DecodeHeader(reply)
	require.NoError(t, err)
	assert.ErrorIs(t, h.Validate(), ErrNoAnswer)
}

func TestAnswerSkipping(t *testing.T) {
	reply := buildReply(t, TransactionID, func(b *dnsmessage.Builder) {
		require.NoError(t, b.CNAMEResource(dnsmessage.ResourceHeader{
			Name:  dnsmessage.MustNewName("example.com."),
			Class: dnsmessage.ClassINET,
			TTL:   60,
		}, dnsmessage.CNAMEResource{CNAME: dnsmessage.MustNewName("www.example.com.")}))
		require.NoError(t, b.AResource(dnsmessage.ResourceHeader{
			Name:  dnsmessage.MustNewName("www.example.com."),
			Class: dnsmessage.ClassINET,
			TTL:   60,
		}, dnsmessage.AResource{A: [4]byte{10, 0, 0, 7}}))
	})

	offset := HeaderLen + QuestionLen("example.com")
	cname, err := DecodeAnswerPrefix(reply[offset:])
	require.NoError(t, err)
	assert.Equal(t, dnsmessage.TypeCNAME, cname.Type)
	assert.False(t, cname.IsA())

	_, err = cname.Address()
	assert.ErrorIs(t, err, ErrNoAnswer)

	assert.Empty(t, cname.Surplus())
	offset += AnswerPrefixLen + cname.SkipLen()
	a, err := DecodeAnswerPrefix(reply[offset:])
	require.NoError(t, err)
	addr, err := a.Address()
	require.NoError(t, err)
	assert.Equal(t, [4]byte{10, 0, 0, 7}, addr)
	assert.Len(t, reply, offset+AnswerPrefixLen)
}

func TestAnswerPointerCNAME(t *testing.T) {
	reply := buildReply(t, TransactionID, func(b *dnsmessage.Builder) {
		require.NoError(t, b.CNAMEResource(dnsmessage.ResourceHeader{
			Name:  dnsmessage.MustNewName("example.com."),
			Class: dnsmessage.ClassINET,
		}, dnsmessage.CNAMEResource{CNAME: dnsmessage.MustNewName("com.")}))
		require.NoError(t, b.AResource(dnsmessage.ResourceHeader{
			Name:  dnsmessage.MustNewName("com."),
			Class: dnsmessage.ClassINET,
		}, dnsmessage.AResource{A: [4]byte{10, 0, 0, 8}}))
	})

	offset := HeaderLen + QuestionLen("example.com")
	cname, err := DecodeAnswerPrefix(reply[offset:])
	require.NoError(t, err)
	require.Equal(t, uint16(2), cname.RDLength)
	assert.Equal(t, 0, cname.SkipLen())

	// the surplus is the name pointer of the A record
	surplus := cname.Surplus()
	require.Len(t, surplus, 2)
	offset += AnswerPrefixLen

	prefix := append(append([]byte{}, surplus...), reply[offset:offset+AnswerPrefixLen-len(surplus)]...)
	a, err := DecodeAnswerPrefix(prefix)
	require.NoError(t, err)
	addr, err := a.Address()
	require.NoError(t, err)
	assert.Equal(t, [4]byte{10, 0, 0, 8}, addr)
	assert.Len(t, reply, offset+AnswerPrefixLen-len(surplus))
}

func TestAnswerUnexpectedSizes(t *testing.T) {
	a := Answer{Type: dnsmessage.TypeA, Class: dnsmessage.ClassINET, RDLength: 16}
	_, err := a.Address()
	assert.ErrorIs(t, err, ErrNoAnswer)

	short := Answer{Type: dnsmessage.TypeCNAME, Class: dnsmessage.ClassINET, RDLength: 2, Inline: [4]byte{0xc0, 0x14, 0x00, 0x01}}
	assert.Equal(t, 0, short.SkipLen())
	assert.Equal(t, []byte{0x00, 0x01}, short.Surplus())

	_, err = DecodeAnswerPrefix(make([]byte, 15))
	assert.ErrorIs(t, err, ErrNoAnswer)
}
