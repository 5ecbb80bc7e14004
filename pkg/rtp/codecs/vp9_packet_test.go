package codecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVP9Packet_Unmarshal(t *testing.T) {
	pck := VP9Packet{}

	_, err := pck.Unmarshal(nil)
	assert.Error(t, err)

	// No optional headers set
	raw := []byte{0x00, 0xAA, 0xBB}
	payload, err := pck.Unmarshal(raw)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, payload)

	// Picture ID present, short form
	raw = []byte{0x80, 0x05, 0xCC}
	payload, err = pck.Unmarshal(raw)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xCC}, payload)
	assert.Equal(t, uint16(5), pck.PictureID)

	// Picture ID present, 16 bit form
	raw = []byte{0x80, 0x81, 0x02, 0xDD}
	payload, err = pck.Unmarshal(raw)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xDD}, payload)
	assert.Equal(t, uint16(0x0102), pck.PictureID)
}
