package codecs

const (
	h265NaluHeaderSize = 2
	h265FuHeaderSize   = 1
	h265APLengthSize   = 2

	h265NaluTypeAP = 48 // Aggregation Packet (RFC 7798 section 4.4.2)
	h265NaluTypeFU = 49 // Fragmentation Unit (RFC 7798 section 4.4.3)

	h265FuStartBitmask = 0x80
	h265FuTypeBitmask  = 0x3F

	annexbStartCode = "\x00\x00\x00\x01"
)

// H265Depacketizer reassembles H.265/HEVC NAL units carried in RTP payloads
// per RFC 7798 into an Annex B bytestream. It is stateful: fragmentation
// units (FU) spanning multiple RTP packets are buffered internally across
// successive calls to Unmarshal.
type H265Depacketizer struct {
	fragmentBuffer []byte
	fragmenting    bool
}

// Unmarshal parses a single RTP payload and returns any Annex B NAL unit
// data completed as a result. It returns a nil, nil result while a
// fragmented NAL unit is still being reassembled.
func (d *H265Depacketizer) Unmarshal(payload []byte) ([]byte, error) { //nolint:cyclop
	if len(payload) < h265NaluHeaderSize {
		return nil, errShortPacket
	}

	naluType := (payload[0] & 0x7E) >> 1

	switch naluType {
	case h265NaluTypeAP:
		return d.unmarshalAP(payload)
	case h265NaluTypeFU:
		return d.unmarshalFU(payload)
	default:
		out := make([]byte, 0, len(annexbStartCode)+len(payload))
		out = append(out, annexbStartCode...)
		out = append(out, payload...)

		return out, nil
	}
}

func (d *H265Depacketizer) unmarshalAP(payload []byte) ([]byte, error) {
	offset := h265NaluHeaderSize
	var out []byte

	for offset+h265APLengthSize <= len(payload) {
		naluSize := int(payload[offset])<<8 | int(payload[offset+1])
		offset += h265APLengthSize

		if offset+naluSize > len(payload) {
			return nil, errShortPacket
		}

		out = append(out, annexbStartCode...)
		out = append(out, payload[offset:offset+naluSize]...)
		offset += naluSize
	}

	return out, nil
}

func (d *H265Depacketizer) unmarshalFU(payload []byte) ([]byte, error) {
	if len(payload) < h265NaluHeaderSize+h265FuHeaderSize {
		return nil, errShortPacket
	}

	fuHeader := payload[h265NaluHeaderSize]
	isStart := fuHeader&h265FuStartBitmask != 0
	fuType := fuHeader & h265FuTypeBitmask
	fragment := payload[h265NaluHeaderSize+h265FuHeaderSize:]

	if isStart {
		reconstructedHeader := []byte{
			(payload[0] & 0x81) | (fuType << 1),
			payload[1],
		}
		d.fragmentBuffer = append(append([]byte{}, reconstructedHeader...), fragment...)
		d.fragmenting = true

		return nil, nil //nolint:nilnil // fragment is buffered until the terminating FU arrives
	}

	if !d.fragmenting {
		return nil, nil //nolint:nilnil // no start fragment seen yet, drop orphaned continuation
	}

	d.fragmentBuffer = append(d.fragmentBuffer, fragment...)

	isEnd := fuHeader&0x40 != 0
	if !isEnd {
		return nil, nil //nolint:nilnil // still assembling
	}

	out := make([]byte, 0, len(annexbStartCode)+len(d.fragmentBuffer))
	out = append(out, annexbStartCode...)
	out = append(out, d.fragmentBuffer...)
	d.fragmentBuffer = nil
	d.fragmenting = false

	return out, nil
}
