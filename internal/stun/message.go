// Package stun implements the STUN (Session Traversal Utilities for NAT)
// message format and binding transaction defined in RFC 5389, scoped to
// the attributes ICE connectivity checks need.
package stun

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"
)

// magicCookie is the fixed STUN magic cookie value from RFC 5389 section 6.
const magicCookie = 0x2112A442

const messageHeaderLength = 20

// Class is the STUN message class (request, indication, success or error response).
type Class uint8

// STUN message classes.
const (
	ClassRequest Class = iota
	ClassIndication
	ClassSuccessResponse
	ClassErrorResponse
)

// Method is the STUN method, e.g. Binding.
type Method uint16

// STUN methods.
const (
	MethodBinding Method = 0x001
)

// AttrType identifies a STUN message attribute.
type AttrType uint16

// STUN attribute types used by ICE connectivity checks.
const (
	AttrMappedAddress    AttrType = 0x0001
	AttrUsername         AttrType = 0x0006
	AttrMessageIntegrity AttrType = 0x0008
	AttrErrorCode        AttrType = 0x0009
	AttrUnknownAttrs     AttrType = 0x000A
	AttrRealm            AttrType = 0x0014
	AttrNonce            AttrType = 0x0015
	AttrXORMappedAddress AttrType = 0x0020
	AttrPriority         AttrType = 0x0024
	AttrUseCandidate     AttrType = 0x0025
	AttrSoftware         AttrType = 0x8022
	AttrAlternateServer  AttrType = 0x8023
	AttrFingerprint      AttrType = 0x8028
	AttrIceControlled    AttrType = 0x8029
	AttrIceControlling   AttrType = 0x802A
)

// Attribute is a single STUN message attribute as it appears on the wire.
type Attribute struct {
	Type  AttrType
	Value []byte
}

// Message is a parsed or to-be-encoded STUN message.
type Message struct {
	Class         Class
	Method        Method
	TransactionID [12]byte
	Attributes    []*Attribute

	// Raw holds the fully encoded message once Build or Decode has run.
	Raw []byte
}

// Setter packs one attribute (and, for MessageIntegrity/Fingerprint,
// the running checksum over the message built so far) onto a Message.
type Setter interface {
	Pack(message *Message) error
}

var (
	errMessageTooShort = errors.New("stun: message shorter than header")
	errNotSTUN         = errors.New("stun: magic cookie mismatch")
	errAttrTruncated   = errors.New("stun: attribute truncated")
)

func encodeMessageType(class Class, method Method) uint16 {
	m := uint16(method)
	a := m & 0x000F
	b := (m & 0x0070) << 1
	c := (m & 0x0F80) << 2
	c0 := (uint16(class) & 0x01) << 4
	c1 := (uint16(class) & 0x02) << 7

	return a | b | c | c0 | c1
}

func decodeMessageType(t uint16) (Class, Method) {
	a := t & 0x000F
	b := (t & 0x00E0) >> 1
	c := (t & 0x3E00) >> 2
	c0 := (t >> 4) & 0x01
	c1 := (t >> 7) & 0x01

	return Class(c0 | c1<<1), Method(a | b | c)
}

// GenerateTransactionID returns a fresh random STUN transaction id.
func GenerateTransactionID() [12]byte {
	var t [12]byte
	if _, err := rand.Read(t[:]); err != nil {
		// crypto/rand.Read on the standard Reader only fails if the OS
		// entropy source is unavailable, which is unrecoverable here.
		panic(err)
	}

	return t
}

// IsSTUN reports whether packet looks like a STUN message, per the
// RFC 7983 demultiplexing rule: at least a header long, the two most
// significant bits of the first byte are 0, and the magic cookie matches.
func IsSTUN(packet []byte) bool {
	if len(packet) < messageHeaderLength {
		return false
	}
	if packet[0]&0xC0 != 0 {
		return false
	}

	return binary.BigEndian.Uint32(packet[4:8]) == magicCookie
}

// Build constructs a Message of the given class/method/transaction id,
// applying each Setter in order, and encodes it to Raw.
func Build(class Class, method Method, transactionID [12]byte, setters ...Setter) (*Message, error) {
	m := &Message{
		Class:         class,
		Method:        method,
		TransactionID: transactionID,
	}

	for _, s := range setters {
		if err := s.Pack(m); err != nil {
			return nil, err
		}
	}

	m.Raw = m.marshal()

	return m, nil
}

func (m *Message) addAttr(t AttrType, value []byte) {
	m.Attributes = append(m.Attributes, &Attribute{Type: t, Value: value})
}

func (m *Message) marshal() []byte {
	var body []byte
	for _, a := range m.Attributes {
		body = appendAttr(body, a)
	}

	header := make([]byte, messageHeaderLength)
	binary.BigEndian.PutUint16(header[0:2], encodeMessageType(m.Class, m.Method))
	//nolint:gosec // G115 - STUN attribute length is bounded well under 2^31
	binary.BigEndian.PutUint16(header[2:4], uint16(len(body)))
	binary.BigEndian.PutUint32(header[4:8], magicCookie)
	copy(header[8:20], m.TransactionID[:])

	return append(header, body...)
}

func appendAttr(buf []byte, a *Attribute) []byte {
	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], uint16(a.Type))
	//nolint:gosec // G115
	binary.BigEndian.PutUint16(header[2:4], uint16(len(a.Value)))

	buf = append(buf, header...)
	buf = append(buf, a.Value...)
	if pad := (4 - len(a.Value)%4) % 4; pad > 0 {
		buf = append(buf, make([]byte, pad)...)
	}

	return buf
}

// Decode parses a raw STUN message.
func Decode(raw []byte) (*Message, error) {
	if !IsSTUN(raw) {
		return nil, errNotSTUN
	}

	length := binary.BigEndian.Uint16(raw[2:4])
	if len(raw) < messageHeaderLength+int(length) {
		return nil, errMessageTooShort
	}

	class, method := decodeMessageType(binary.BigEndian.Uint16(raw[0:2]))
	m := &Message{
		Class:  class,
		Method: method,
		Raw:    raw,
	}
	copy(m.TransactionID[:], raw[8:20])

	body := raw[messageHeaderLength : messageHeaderLength+int(length)]
	for len(body) >= 4 {
		attrType := AttrType(binary.BigEndian.Uint16(body[0:2]))
		attrLen := int(binary.BigEndian.Uint16(body[2:4]))
		if len(body) < 4+attrLen {
			return nil, errAttrTruncated
		}

		m.Attributes = append(m.Attributes, &Attribute{
			Type:  attrType,
			Value: body[4 : 4+attrLen],
		})

		pad := (4 - attrLen%4) % 4
		body = body[4+attrLen+pad:]
	}

	return m, nil
}

// GetOneAttribute returns the first attribute of the given type, if present.
func (m *Message) GetOneAttribute(t AttrType) (*Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Type == t {
			return a, true
		}
	}

	return nil, false
}
