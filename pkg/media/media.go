// Package media provides media writer and filters
package media

import (
	"time"

	"github.com/embedrtc/webrtc/pkg/rtp"
)

// Sample contains media, and the amount of samples in it
type Sample struct {
	Data    []byte
	Samples uint32
}

// NSamples returns the number of samples in media of duration d sampled at
// frequency freq, e.g. 960 for 20ms at 48000Hz.
func NSamples(d time.Duration, freq int) uint32 {
	return uint32(time.Duration(freq) * d / time.Second)
}

// Writer defines an interface to handle
// the creation of media files
type Writer interface {
	// Add the content of an RTP packet to the media
	WriteRTP(packet *rtp.Packet) error
	// Close the media
	// Note: Close implementation must be idempotent
	Close() error
}
