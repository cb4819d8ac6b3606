package discovery

import "fmt"

var (
	// ErrAlreadyStarted is returned by Start if Control is already
	// running.
	ErrAlreadyStarted = fmt.Errorf("control already started")

	// ErrAlreadyStopped is returned by Stop if Control is not running.
	ErrAlreadyStopped = fmt.Errorf("control already stopped")

	// ErrUnrecognizedMessage is returned when ProcessRemoteAnnouncement
	// is handed a message type that does not belong in the gossip
	// protocol.
	ErrUnrecognizedMessage = fmt.Errorf("message type does not belong to the gossip protocol")
)
