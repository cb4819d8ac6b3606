package routing

import "github.com/btcsuite/btclog"

// log is the package-wide logger, defaulting to disabled until the caller
// wires one in via UseLogger.
var log btclog.Logger

func init() {
	UseLogger(btclog.Disabled)
}

// UseLogger sets the package-wide logger used by the router.
func UseLogger(logger btclog.Logger) {
	log = logger
}
