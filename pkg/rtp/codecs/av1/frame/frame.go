// Package frame reassembles AV1 OBUs (Open Bitstream Units) carried across
// one or more RTP packets into complete temporal units, as described in
// draft-ietf-avtcore-rtp-av1.
package frame

import (
	"github.com/embedrtc/webrtc/pkg/rtp/codecs"
)

const (
	obuTypeTemporalDelimiter = 2
	obuHeaderHasExtensionBit = 0x04
	obuHeaderHasSizeBit      = 0x02
)

// AV1 reassembles fragmented OBUs delivered in AV1Packet payloads into
// complete temporal units (frames) ready to be written to a container.
type AV1 struct {
	// pendingOBU accumulates bytes for an OBU element still being
	// fragmented across RTP packets (AV1Packet.Z/.Y).
	pendingOBU []byte
	fragmented bool

	// obus holds complete OBUs collected for the temporal unit in progress.
	obus [][]byte
}

// ReadFrames consumes the OBU elements carried in packet and returns any
// complete frames (one or more concatenated OBUs terminated by the start of
// the next temporal unit) that became available as a result.
func (f *AV1) ReadFrames(packet *codecs.AV1Packet) ([][]byte, error) {
	var frames [][]byte

	for i, obu := range packet.OBUs {
		isFirst := i == 0
		isLast := i == len(packet.OBUs)-1

		switch {
		case isFirst && packet.Z:
			// continues a fragment started in a previous packet
			f.pendingOBU = append(f.pendingOBU, obu...)
		default:
			if f.fragmented && isFirst {
				f.pendingOBU = append(f.pendingOBU, obu...)
			} else {
				f.flushPending()
				f.pendingOBU = append([]byte{}, obu...)
			}
		}

		if isLast && packet.Y {
			f.fragmented = true

			continue
		}

		f.fragmented = false
		if frame := f.completeOBU(); frame != nil {
			frames = append(frames, frame)
		}
	}

	return frames, nil
}

// flushPending drops a never-completed fragment; this only happens when a
// packet is lost and the reassembly can no longer be trusted.
func (f *AV1) flushPending() {
	f.pendingOBU = nil
	f.fragmented = false
}

// completeOBU finalizes the current OBU, appends it to the in-progress
// temporal unit, and if the OBU is a temporal delimiter, returns the
// previously accumulated temporal unit as a complete, concatenated frame.
func (f *AV1) completeOBU() []byte {
	obu := f.pendingOBU
	f.pendingOBU = nil

	if len(obu) == 0 {
		return nil
	}

	obuType := (obu[0] >> 3) & 0x0F

	if obuType == obuTypeTemporalDelimiter && len(f.obus) > 0 {
		var completed []byte
		for _, o := range f.obus {
			completed = append(completed, o...)
		}
		f.obus = [][]byte{obu}

		return completed
	}

	f.obus = append(f.obus, obu)

	return nil
}
