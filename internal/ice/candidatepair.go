package ice

import "fmt"

// candidatePair represents a combination of a local and remote candidate,
// the basic unit ICE connectivity checks are performed against
// (RFC 8445 section 6.1.2).
type candidatePair struct {
	local, remote *Candidate
	controlling   bool
}

func newCandidatePair(local, remote *Candidate, controlling bool) *candidatePair {
	return &candidatePair{
		local:       local,
		remote:      remote,
		controlling: controlling,
	}
}

// Priority computes the pair priority per RFC 8445 section 6.1.2.3:
// 2^32*MIN(G,D) + 2*MAX(G,D) + (G>D?1:0), where G is the controlling
// agent's candidate priority and D is the controlled agent's.
func (p *candidatePair) Priority() uint64 {
	var g, d uint64
	if p.controlling {
		g = uint64(p.local.Priority())
		d = uint64(p.remote.Priority())
	} else {
		g = uint64(p.remote.Priority())
		d = uint64(p.local.Priority())
	}

	min, max := g, d
	if max < min {
		min, max = max, min
	}

	extra := uint64(0)
	if g > d {
		extra = 1
	}

	return (min << 32) + 2*max + extra
}

// Equal reports whether p and other connect the same pair of candidates.
func (p *candidatePair) Equal(other *candidatePair) bool {
	if p == nil || other == nil {
		return p == other
	}

	return p.local.Equal(other.local) && p.remote.Equal(other.remote)
}

// Write sends p to the remote side of the pair via the local candidate.
func (p *candidatePair) Write(buf []byte) (int, error) {
	return p.local.writeTo(buf, p.remote)
}

func (p *candidatePair) String() string {
	return fmt.Sprintf("prio %d (local, prflx) %s <-> %s (remote)", p.Priority(), p.local, p.remote)
}
