package ice

// ConnectionState represents the current state of an Agent's selected
// candidate pair.
type ConnectionState int

const (
	// ConnectionStateUnknown is the enum's zero-value
	ConnectionStateUnknown ConnectionState = iota

	// ConnectionStateNew indicates the Agent is waiting for remote
	// candidates to be supplied.
	ConnectionStateNew

	// ConnectionStateChecking indicates the Agent has received at least
	// one remote candidate and is performing connectivity checks.
	ConnectionStateChecking

	// ConnectionStateConnected indicates the Agent has a successfully
	// selected candidate pair, but is still checking other candidate
	// pairs to see if there is a better connection.
	ConnectionStateConnected

	// ConnectionStateCompleted indicates the Agent tested all
	// appropriate candidate pairs and at least one functioning
	// candidate pair has been found.
	ConnectionStateCompleted

	// ConnectionStateFailed indicates all candidate pairs have either
	// failed connectivity checks or have lost consent.
	ConnectionStateFailed

	// ConnectionStateDisconnected indicates the Agent has received at
	// least one local and remote candidate, but consent has been lost
	// on the previously selected candidate pair.
	ConnectionStateDisconnected

	// ConnectionStateClosed indicates the Agent has shut down and is
	// no longer responding to STUN requests.
	ConnectionStateClosed
)

func (c ConnectionState) String() string {
	switch c {
	case ConnectionStateNew:
		return "new"
	case ConnectionStateChecking:
		return "checking"
	case ConnectionStateConnected:
		return "connected"
	case ConnectionStateCompleted:
		return "completed"
	case ConnectionStateFailed:
		return "failed"
	case ConnectionStateDisconnected:
		return "disconnected"
	case ConnectionStateClosed:
		return "closed"
	default:
		return ErrUnknownType.Error()
	}
}
