package ice

import "errors"

var (
	// ErrUnknownType indicates an error with Unknown info.
	ErrUnknownType = errors.New("unknown")

	// ErrNoTurnCredencials indicates that a TURN server URL was provided
	// without required credentials.
	ErrNoTurnCredencials = errors.New("turn server credentials required")

	// ErrTurnCredencials indicates that provided TURN credentials are partial
	// or malformed.
	ErrTurnCredencials = errors.New("invalid turn server credentials")

	// ErrClosed indicates the agent has been closed.
	ErrClosed = errors.New("the agent is closed")

	// ErrPort indicates an unusable port: a port range whose minimum is
	// above its maximum, a range with no free port left, or a malformed
	// port in a URL.
	ErrPort = errors.New("portmin must be <= portmax")

	// ErrNoCandidatePairs indicates that no valid candidate pair is
	// available yet to carry traffic.
	ErrNoCandidatePairs = errors.New("no valid candidate pairs available")

	// ErrSchemeType indicates the scheme type could not be parsed.
	ErrSchemeType = errors.New("unknown scheme type")

	// ErrSTUNQuery indicates query arguments are provided in a STUN URL.
	ErrSTUNQuery = errors.New("queries not supported in stun address")

	// ErrInvalidQuery indicates an malformed query was provided in a URL.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrHost indicates malformed hostname was provided in a URL.
	ErrHost = errors.New("invalid hostname")

	// ErrProtoType indicates an unknown transport protocol was provided
	// in a URL's query arguments.
	ErrProtoType = errors.New("invalid transport protocol type")
)
