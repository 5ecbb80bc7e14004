package codecs

// VP9Packet represents the VP9 header that is stored in the payload of an RTP Packet
type VP9Packet struct {
	// Required Header
	I bool // PictureID is present
	P bool // Inter-picture predicted frame
	L bool // Layer indices is present
	F bool // Flexible mode
	B bool // Start of a frame
	E bool // End of a frame
	V bool // Scalability structure (SS) data present

	// Recommended headers
	PictureID uint16 // 7 or 16 bits, picture ID

	// Flexible mode headers
	PDiff []uint8 // If F: reference indices

	// Non-flexible mode headers
	TL0PICIDX uint8 // If not F: TL0PICIDX

	// Layer indices headers
	TID uint8 // Temporal layer ID
	U   bool  // Switching up point
	SID uint8 // Spatial layer ID
	D   bool  // Inter-layer dependency used

	Payload []byte
}

// Unmarshal parses the passed byte slice and stores the result in the VP9Packet this method is called upon
func (p *VP9Packet) Unmarshal(payload []byte) ([]byte, error) { //nolint:cyclop
	if payload == nil {
		return nil, errNilPacket
	}
	if len(payload) < 1 {
		return nil, errShortPacket
	}

	p.I = payload[0]&0x80 != 0
	p.P = payload[0]&0x40 != 0
	p.L = payload[0]&0x20 != 0
	p.F = payload[0]&0x10 != 0
	p.B = payload[0]&0x08 != 0
	p.E = payload[0]&0x04 != 0
	p.V = payload[0]&0x02 != 0

	pos := 1
	var err error

	if p.I {
		pos, err = p.parsePictureID(payload, pos)
		if err != nil {
			return nil, err
		}
	}

	if p.L {
		pos, err = p.parseLayerInfo(payload, pos)
		if err != nil {
			return nil, err
		}
	}

	if p.F && p.P {
		pos, err = p.parseRefIndices(payload, pos)
		if err != nil {
			return nil, err
		}
	}

	if p.V {
		pos, err = p.parseSSData(payload, pos)
		if err != nil {
			return nil, err
		}
	}

	p.Payload = payload[pos:]

	return p.Payload, nil
}

func (p *VP9Packet) parsePictureID(payload []byte, pos int) (int, error) {
	if len(payload) <= pos {
		return 0, errShortPacket
	}

	if payload[pos]&0x80 != 0 { // M == 1, 15 bit picture ID
		if len(payload) < pos+2 {
			return 0, errShortPacket
		}
		p.PictureID = (uint16(payload[pos]&0x7F) << 8) | uint16(payload[pos+1])
		pos += 2
	} else {
		p.PictureID = uint16(payload[pos] & 0x7F)
		pos++
	}

	return pos, nil
}

func (p *VP9Packet) parseLayerInfo(payload []byte, pos int) (int, error) {
	if len(payload) <= pos {
		return 0, errShortPacket
	}

	p.TID = payload[pos] >> 5
	p.U = payload[pos]&0x10 != 0
	p.SID = (payload[pos] >> 1) & 0x07
	p.D = payload[pos]&0x01 != 0
	pos++

	if !p.F {
		if len(payload) <= pos {
			return 0, errShortPacket
		}
		p.TL0PICIDX = payload[pos]
		pos++
	}

	return pos, nil
}

func (p *VP9Packet) parseRefIndices(payload []byte, pos int) (int, error) {
	for {
		if len(payload) <= pos {
			return 0, errShortPacket
		}
		refIdx := payload[pos]
		p.PDiff = append(p.PDiff, refIdx>>1)
		pos++
		if refIdx&0x01 == 0 {
			break
		}
	}

	return pos, nil
}

// parseSSData skips the scalability structure block; decoders that need
// the spatial/temporal layer structure should parse VP9Packet.Payload
// themselves once the SS block length is known.
func (p *VP9Packet) parseSSData(payload []byte, pos int) (int, error) {
	if len(payload) <= pos {
		return 0, errShortPacket
	}
	nS := int(payload[pos]>>5) + 1
	yBit := payload[pos]&0x10 != 0
	gBit := payload[pos]&0x08 != 0
	pos++

	if yBit {
		pos += 4 * nS
	}

	if gBit {
		if len(payload) <= pos {
			return 0, errShortPacket
		}
		nG := int(payload[pos])
		pos++
		for i := 0; i < nG; i++ {
			if len(payload) <= pos {
				return 0, errShortPacket
			}
			numRefPics := int(payload[pos] >> 2 & 0x03)
			pos += 1 + numRefPics
		}
	}

	if len(payload) < pos {
		return 0, errShortPacket
	}

	return pos, nil
}
