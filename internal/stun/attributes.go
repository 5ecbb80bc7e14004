package stun

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // required by RFC 5389 MESSAGE-INTEGRITY
	"encoding/binary"
	"hash/crc32"
	"net"

	"github.com/pkg/errors"
)

// Username carries the STUN USERNAME attribute.
type Username struct {
	Username string
}

// Pack implements Setter.
func (u *Username) Pack(m *Message) error {
	m.addAttr(AttrUsername, []byte(u.Username))

	return nil
}

// Priority carries the ICE PRIORITY attribute (RFC 8445 section 7.1.1).
type Priority struct {
	Priority uint32
}

// Pack implements Setter.
func (p *Priority) Pack(m *Message) error {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, p.Priority)
	m.addAttr(AttrPriority, v)

	return nil
}

// UseCandidate carries the ICE USE-CANDIDATE attribute, which has no value.
type UseCandidate struct{}

// Pack implements Setter.
func (UseCandidate) Pack(m *Message) error {
	m.addAttr(AttrUseCandidate, nil)

	return nil
}

// IceControlling carries the ICE ICE-CONTROLLING attribute.
type IceControlling struct {
	TieBreaker uint64
}

// Pack implements Setter.
func (c *IceControlling) Pack(m *Message) error {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, c.TieBreaker)
	m.addAttr(AttrIceControlling, v)

	return nil
}

// IceControlled carries the ICE ICE-CONTROLLED attribute.
type IceControlled struct {
	TieBreaker uint64
}

// Pack implements Setter.
func (c *IceControlled) Pack(m *Message) error {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, c.TieBreaker)
	m.addAttr(AttrIceControlled, v)

	return nil
}

// MessageIntegrity computes and appends the MESSAGE-INTEGRITY attribute,
// an HMAC-SHA1 over every byte of the message built so far (RFC 5389
// section 15.4). It must be the last Setter but for Fingerprint.
type MessageIntegrity struct {
	Key []byte
}

// Pack implements Setter.
func (mi *MessageIntegrity) Pack(m *Message) error {
	// the HMAC covers the header with a length field that accounts for
	// this attribute's own 24 bytes (4 header + 20 HMAC), per RFC 5389.
	body := m.encodedAttributes()
	finalLength := len(body) + 24

	header := make([]byte, messageHeaderLength)
	binary.BigEndian.PutUint16(header[0:2], encodeMessageType(m.Class, m.Method))
	//nolint:gosec // G115
	binary.BigEndian.PutUint16(header[2:4], uint16(finalLength))
	binary.BigEndian.PutUint32(header[4:8], magicCookie)
	copy(header[8:20], m.TransactionID[:])

	mac := hmac.New(sha1.New, mi.Key)
	mac.Write(header)
	mac.Write(body)
	sum := mac.Sum(nil)

	m.addAttr(AttrMessageIntegrity, sum)

	return nil
}

// Fingerprint computes and appends the FINGERPRINT attribute, a CRC-32
// checksum of the message XORed with a fixed value (RFC 5389 section 15.5).
// It must be the final Setter applied to a message.
type Fingerprint struct{}

// Pack implements Setter.
func (Fingerprint) Pack(m *Message) error {
	const fingerprintXOR = 0x5354554e

	body := m.encodedAttributes()
	finalLength := len(body) + 8 // this attribute itself: 4 header + 4 crc

	header := make([]byte, messageHeaderLength)
	binary.BigEndian.PutUint16(header[0:2], encodeMessageType(m.Class, m.Method))
	//nolint:gosec // G115
	binary.BigEndian.PutUint16(header[2:4], uint16(finalLength))
	binary.BigEndian.PutUint32(header[4:8], magicCookie)
	copy(header[8:20], m.TransactionID[:])

	crc := crc32.ChecksumIEEE(append(header, body...)) ^ fingerprintXOR

	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, crc)
	m.addAttr(AttrFingerprint, v)

	return nil
}

func (m *Message) encodedAttributes() []byte {
	var body []byte
	for _, a := range m.Attributes {
		body = appendAttr(body, a)
	}

	return body
}

// XorAddress is a transport address as carried in XOR-MAPPED-ADDRESS:
// IPv4/IPv6 and port, obfuscated by XORing with the magic cookie and
// transaction id (RFC 5389 section 15.2).
type XorAddress struct {
	IP   net.IP
	Port int
}

const (
	addressFamilyIPv4 = 0x01
	addressFamilyIPv6 = 0x02
)

func (x *XorAddress) encode(transactionID [12]byte) []byte {
	ip4 := x.IP.To4()
	family := byte(addressFamilyIPv4)
	ipBytes := ip4
	if ip4 == nil {
		family = addressFamilyIPv6
		ipBytes = x.IP.To16()
	}

	v := make([]byte, 4+len(ipBytes))
	v[0] = 0
	v[1] = family
	//nolint:gosec // G115
	binary.BigEndian.PutUint16(v[2:4], uint16(x.Port)^uint16(magicCookie>>16))

	xorKey := make([]byte, 4+12)
	binary.BigEndian.PutUint32(xorKey[0:4], magicCookie)
	copy(xorKey[4:], transactionID[:])

	for i, b := range ipBytes {
		v[4+i] = b ^ xorKey[i]
	}

	return v
}

// Unpack decodes attr (an XOR-MAPPED-ADDRESS value) from message, undoing
// the XOR transform relative to message's transaction id. A plain
// MAPPED-ADDRESS value is not XORed and is not decoded correctly here.
func (x *XorAddress) Unpack(message *Message, attr *Attribute) error {
	if len(attr.Value) < 4 {
		return errAttrTruncated
	}

	family := attr.Value[1]

	xorKey := make([]byte, 4+12)
	binary.BigEndian.PutUint32(xorKey[0:4], magicCookie)
	copy(xorKey[4:], message.TransactionID[:])

	portXor := binary.BigEndian.Uint16(attr.Value[2:4])
	x.Port = int(portXor ^ uint16(magicCookie>>16))

	ipBytes := attr.Value[4:]
	switch family {
	case addressFamilyIPv4:
		if len(ipBytes) < 4 {
			return errAttrTruncated
		}
		ip := make(net.IP, 4)
		for i := 0; i < 4; i++ {
			ip[i] = ipBytes[i] ^ xorKey[i]
		}
		x.IP = ip
	case addressFamilyIPv6:
		if len(ipBytes) < 16 {
			return errAttrTruncated
		}
		ip := make(net.IP, 16)
		for i := 0; i < 16; i++ {
			ip[i] = ipBytes[i] ^ xorKey[i]
		}
		x.IP = ip
	default:
		return errors.Errorf("stun: unknown address family %d", family)
	}

	return nil
}

// XorMappedAddress carries the XOR-MAPPED-ADDRESS attribute (RFC 5389
// section 15.2), the reflexive transport address as seen by the STUN
// server or ICE peer.
type XorMappedAddress struct {
	XorAddress
}

// Pack implements Setter.
func (x *XorMappedAddress) Pack(m *Message) error {
	m.addAttr(AttrXORMappedAddress, x.encode(m.TransactionID))

	return nil
}
