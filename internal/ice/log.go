package ice

import "github.com/pion/logging"

var iceLog = logging.NewDefaultLoggerFactory().NewLogger("ice") //nolint:gochecknoglobals
