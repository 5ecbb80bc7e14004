// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package h264writer implements H264 media container writer
package h264writer

import (
	"errors"
	"io"
	"os"

	"github.com/embedrtc/webrtc/pkg/rtp"
)

const (
	naluTypeBitmask   = 0x1F
	naluRefIdcBitmask = 0x60
	naluTypeSPS       = 7
	naluTypeStapA     = 24
	naluTypeFuA       = 28

	fuAHeaderSize    = 2
	stapAHeaderSize  = 1
	stapANALULenSize = 2

	fuAStartBitmask = 0x80
	fuAEndBitmask   = 0x40

	annexbNALUStartCode = "\x00\x00\x00\x01"
)

var errShortPayload = errors.New("payload is not large enough to contain header")

// H264Writer is used to take RTP packets containing H264 NAL units defined
// in RFC 6184 and write the resulting Annex B bytestream to an io.Writer.
type H264Writer struct {
	writer       io.Writer
	hasKeyFrame  bool
	cachedPacket []byte
}

// New builds a new H264 writer.
func New(fileName string) (*H264Writer, error) {
	f, err := os.Create(fileName) //nolint:gosec
	if err != nil {
		return nil, err
	}

	return NewWith(f), nil
}

// NewWith initializes a new H264 writer with an io.Writer output.
func NewWith(w io.Writer) *H264Writer {
	return &H264Writer{
		writer: w,
	}
}

func annexbNALU(nalu []byte) []byte {
	return append([]byte(annexbNALUStartCode), nalu...)
}

func isKeyFrame(payload []byte) bool {
	if len(payload) < 1 {
		return false
	}

	switch payload[0] & naluTypeBitmask {
	case naluTypeSPS:
		return true
	case naluTypeStapA:
		offset := stapAHeaderSize
		for offset+stapANALULenSize <= len(payload) {
			naluSize := int(payload[offset])<<8 | int(payload[offset+1])
			offset += stapANALULenSize
			if offset+naluSize > len(payload) {
				return false
			}
			if payload[offset]&naluTypeBitmask == naluTypeSPS {
				return true
			}
			offset += naluSize
		}

		return false
	default:
		return false
	}
}

// WriteRTP adds a new packet and writes the appropriate headers for it.
func (h *H264Writer) WriteRTP(packet *rtp.Packet) error { //nolint:cyclop
	if len(packet.Payload) == 0 {
		return nil
	}

	if !h.hasKeyFrame {
		if h.hasKeyFrame = isKeyFrame(packet.Payload); !h.hasKeyFrame {
			// key frame not defined yet, discard the packet
			return nil
		}
	}

	payload := packet.Payload
	naluType := payload[0] & naluTypeBitmask

	switch {
	case naluType > 0 && naluType < naluTypeStapA:
		if _, err := h.writer.Write(annexbNALU(payload)); err != nil {
			return err
		}
	case naluType == naluTypeStapA:
		offset := stapAHeaderSize
		for offset+stapANALULenSize <= len(payload) {
			naluSize := int(payload[offset])<<8 | int(payload[offset+1])
			offset += stapANALULenSize
			if offset+naluSize > len(payload) {
				return errShortPayload
			}
			if _, err := h.writer.Write(annexbNALU(payload[offset : offset+naluSize])); err != nil {
				return err
			}
			offset += naluSize
		}
	case naluType == naluTypeFuA:
		if len(payload) < fuAHeaderSize {
			return errShortPayload
		}

		fuHeader := payload[1]
		fragmentedType := fuHeader & naluTypeBitmask

		if fuHeader&fuAStartBitmask != 0 {
			naluHeader := (payload[0] & naluRefIdcBitmask) | fragmentedType
			h.cachedPacket = append([]byte{naluHeader}, payload[fuAHeaderSize:]...)

			return nil
		}

		h.cachedPacket = append(h.cachedPacket, payload[fuAHeaderSize:]...)

		if fuHeader&fuAEndBitmask != 0 {
			_, err := h.writer.Write(annexbNALU(h.cachedPacket))
			h.cachedPacket = nil

			return err
		}
	}

	return nil
}

// Close closes the underlying writer.
func (h *H264Writer) Close() error {
	h.hasKeyFrame = false
	h.cachedPacket = nil
	if h.writer != nil {
		if closer, ok := h.writer.(io.Closer); ok {
			return closer.Close()
		}
	}

	return nil
}
