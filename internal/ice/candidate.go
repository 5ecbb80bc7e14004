package ice

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/embedrtc/webrtc/internal/stun"
	"github.com/pkg/errors"
)

// Candidate represents an ICE candidate, a transport address that is a
// potential point of contact for receipt of media (RFC 8445 section 2).
type Candidate struct {
	Foundation  string
	NetworkType NetworkType
	Typ         CandidateType
	Component   Component

	IP   net.IP
	Port int

	RelatedAddress string
	RelatedPort    int

	// priority overrides the computed RFC 8445 priority when non-zero,
	// used to preserve a remote-signaled priority across SDP round trips.
	priority uint32

	conn *net.UDPConn

	lastSent     atomic.Value
	lastReceived atomic.Value
}

func newCandidate(
	network string,
	candidateType CandidateType,
	ip net.IP,
	port int,
	component Component,
	relAddr string,
	relPort int,
	priority uint32,
) (*Candidate, error) {
	networkType, err := determineNetworkType(network, ip)
	if err != nil {
		return nil, err
	}

	c := &Candidate{
		Foundation:     "foundation",
		NetworkType:    networkType,
		Typ:            candidateType,
		Component:      component,
		IP:             ip,
		Port:           port,
		RelatedAddress: relAddr,
		RelatedPort:    relPort,
		priority:       priority,
	}
	c.lastSent.Store(time.Time{})
	c.lastReceived.Store(time.Time{})

	return c, nil
}

// NewCandidateHost creates a new host candidate, a transport address
// obtained directly from a local interface.
func NewCandidateHost(network string, ip net.IP, port int, component Component) (*Candidate, error) {
	return newCandidate(network, CandidateTypeHost, ip, port, component, "", 0, 0)
}

// NewCandidateServerReflexive creates a new server reflexive candidate, the
// mapped address learned from a STUN Binding response.
func NewCandidateServerReflexive(
	network string, ip net.IP, port int, component Component, relAddr string, relPort int,
) (*Candidate, error) {
	return newCandidate(network, CandidateTypeServerReflexive, ip, port, component, relAddr, relPort, 0)
}

// NewCandidatePeerReflexive creates a new peer reflexive candidate, learned
// from the source address of an inbound connectivity check.
func NewCandidatePeerReflexive(
	network string, ip net.IP, port int, component Component, relAddr string, relPort int,
) (*Candidate, error) {
	return newCandidate(network, CandidateTypePeerReflexive, ip, port, component, relAddr, relPort, 0)
}

// NewCandidateRelay creates a new relayed candidate, allocated on a TURN server.
func NewCandidateRelay(
	network string, ip net.IP, port int, component Component, relAddr string, relPort int,
) (*Candidate, error) {
	return newCandidate(network, CandidateTypeRelay, ip, port, component, relAddr, relPort, 0)
}

// SetComponent overrides the candidate's component id, used when the same
// base candidate is signaled once per RTP/RTCP component.
func (c *Candidate) SetComponent(component int) {
	c.Component = Component(component)
}

// SetPriority overrides the candidate's priority, used to preserve a
// remote-signaled priority across SDP round trips.
func (c *Candidate) SetPriority(priority uint32) {
	c.priority = priority
}

// Priority returns the candidate's priority: the explicit value set via
// SetPriority/signaling if present, else the value computed per RFC 8445
// section 5.1.2.1.
func (c *Candidate) Priority() uint32 {
	if c.priority != 0 {
		return c.priority
	}

	localPreference := uint32(65535)

	return (uint32(c.Typ.Preference()) << 24) |
		(localPreference << 8) |
		(256 - uint32(c.Component))
}

// Marshal encodes the candidate as an SDP candidate-attribute value
// (RFC 8839 section 5.1), without the leading "candidate:" token.
func (c *Candidate) Marshal() string {
	val := fmt.Sprintf("%s %d %s %d %s %d typ %s",
		c.Foundation, c.Component, c.NetworkType.NetworkShort(), c.Priority(), c.IP, c.Port, c.Typ)

	if c.RelatedAddress != "" {
		val += fmt.Sprintf(" raddr %s rport %d", c.RelatedAddress, c.RelatedPort)
	}

	return val
}

// UnmarshalCandidate parses an SDP candidate-attribute value (without the
// leading "candidate:" token) into a Candidate.
func UnmarshalCandidate(value string) (*Candidate, error) {
	fields := strings.Fields(value)
	if len(fields) < 8 {
		return nil, errors.Errorf("stun: malformed candidate-attribute %q", value)
	}

	component, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return nil, errors.Wrap(err, "malformed candidate component")
	}

	priority, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return nil, errors.Wrap(err, "malformed candidate priority")
	}

	ip := net.ParseIP(fields[4])
	if ip == nil {
		return nil, errors.Errorf("malformed candidate address %q", fields[4])
	}

	port, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, errors.Wrap(err, "malformed candidate port")
	}

	var candidateType CandidateType
	switch fields[7] {
	case "host":
		candidateType = CandidateTypeHost
	case "srflx":
		candidateType = CandidateTypeServerReflexive
	case "prflx":
		candidateType = CandidateTypePeerReflexive
	case "relay":
		candidateType = CandidateTypeRelay
	default:
		return nil, errors.Errorf("unknown candidate type %q", fields[7])
	}

	var relAddr string
	var relPort int
	for i := 8; i+1 < len(fields); i += 2 {
		switch fields[i] {
		case "raddr":
			relAddr = fields[i+1]
		case "rport":
			relPort, _ = strconv.Atoi(fields[i+1]) //nolint:errcheck // malformed rport falls back to 0
		}
	}

	c, err := newCandidate(fields[2], candidateType, ip, port, Component(component), relAddr, relPort, uint32(priority))
	if err != nil {
		return nil, err
	}
	c.Foundation = fields[0]

	return c, nil
}

// start spawns the candidate's read loop: STUN traffic is handed to the
// agent's connectivity check state machine, everything else is handed to
// the agent's application-data buffer for the selected Conn to read.
func (c *Candidate) start(a *Agent, conn *net.UDPConn) {
	c.conn = conn

	go func() {
		buf := make([]byte, receiveMTU)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}

			if err := a.run(func(agent *Agent) {
				handleCandidatePacket(agent, c, from, append([]byte{}, buf[:n]...))
			}); err != nil {
				return
			}
		}
	}()
}

func handleCandidatePacket(a *Agent, local *Candidate, from net.Addr, buf []byte) {
	if stun.IsSTUN(buf) {
		msg, err := stun.Decode(buf)
		if err != nil {
			iceLog.Warnf("discarding malformed STUN packet from %s: %v", from, err)
			return
		}
		a.handleInbound(msg, local, from)
		return
	}

	a.noSTUNSeen(local, from)
	if a.buffer != nil {
		if _, err := a.buffer.Write(buf); err != nil {
			iceLog.Warnf("failed to buffer inbound data: %v", err)
		}
	}
}

// writeTo sends buf to the candidate's remote transport address via the
// local candidate's socket.
func (c *Candidate) writeTo(buf []byte, to *Candidate) (int, error) {
	if c.conn == nil {
		return 0, errors.Errorf("candidate %s has no underlying connection", c)
	}

	n, err := c.conn.WriteTo(buf, &net.UDPAddr{IP: to.IP, Port: to.Port})
	if err != nil {
		return n, err
	}

	c.lastSent.Store(time.Now())

	return n, nil
}

// seen updates the candidate's last-seen timestamp; outgoing marks
// whether this is as a result of sending (true) or receiving (false).
func (c *Candidate) seen(outgoing bool) {
	if outgoing {
		c.lastSent.Store(time.Now())
	} else {
		c.lastReceived.Store(time.Now())
	}
}

// LastReceived returns the last time traffic was received from the peer
// reachable via this candidate.
func (c *Candidate) LastReceived() time.Time {
	t, _ := c.lastReceived.Load().(time.Time)

	return t
}

// LastSent returns the last time traffic was sent to the peer reachable
// via this candidate.
func (c *Candidate) LastSent() time.Time {
	t, _ := c.lastSent.Load().(time.Time)

	return t
}

// Equal reports whether c and other describe the same transport address.
func (c *Candidate) Equal(other *Candidate) bool {
	if other == nil {
		return false
	}

	return c.NetworkType == other.NetworkType &&
		c.IP.Equal(other.IP) &&
		c.Port == other.Port
}

func (c *Candidate) close() error {
	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}

func (c *Candidate) String() string {
	return fmt.Sprintf("%s %s:%d %s", c.Typ, c.IP, c.Port, c.NetworkType)
}
