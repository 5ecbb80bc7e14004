package codecs

import "errors"

var errLEB128Overflow = errors.New("leb128 value exceeds 8 bytes")

// AV1Packet represents the AV1 payload structure defined in
// draft-ietf-avtcore-rtp-av1. A single RTP payload carries one or more
// OBU (Open Bitstream Unit) elements, possibly fragmented across packets.
type AV1Packet struct {
	Z bool // first OBU element is a continuation of a previous packet's last element
	Y bool // last OBU element extends into the next packet
	W uint8 // number of OBU elements in this packet, 0 means "determine from length prefixes until payload end"
	N bool // this packet is the first packet of a coded video sequence

	// OBUs holds each OBU element's raw bytes as carried in this packet.
	// An element may be a fragment: Z indicates OBUs[0] is a fragment
	// continuing previous data, Y indicates OBUs[len(OBUs)-1] continues
	// into a following packet.
	OBUs [][]byte
}

// Unmarshal parses the passed byte slice and stores the result in the AV1Packet this method is called upon
func (p *AV1Packet) Unmarshal(payload []byte) ([]byte, error) {
	if payload == nil {
		return nil, errNilPacket
	}
	if len(payload) < 1 {
		return nil, errShortPacket
	}

	p.Z = payload[0]&0x80 != 0
	p.Y = payload[0]&0x40 != 0
	p.W = (payload[0] >> 4) & 0x03
	p.N = payload[0]&0x08 != 0

	p.OBUs = nil
	buf := payload[1:]

	count := int(p.W)
	for i := 0; count == 0 || i < count-1; i++ {
		if len(buf) == 0 {
			if count == 0 {
				break
			}

			return nil, errShortPacket
		}

		length, n, err := readLEB128(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[n:]

		if uint64(len(buf)) < length {
			return nil, errShortPacket
		}

		p.OBUs = append(p.OBUs, buf[:length])
		buf = buf[length:]

		if count == 0 && len(buf) == 0 {
			break
		}
	}

	// the final OBU element (or the only element, if W <= 1) runs to the
	// end of the payload and carries no explicit length prefix.
	p.OBUs = append(p.OBUs, buf)

	return nil, nil //nolint:nilnil // depacketized output is delivered via frame reassembly, not this return value
}

func readLEB128(buf []byte) (value uint64, bytesRead int, err error) {
	for i := 0; i < 8; i++ {
		if i >= len(buf) {
			return 0, 0, errShortPacket
		}
		b := buf[i]
		value |= uint64(b&0x7F) << (i * 7)
		bytesRead++
		if b&0x80 == 0 {
			return value, bytesRead, nil
		}
	}

	return 0, 0, errLEB128Overflow
}
