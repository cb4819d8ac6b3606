package channeldb

import "fmt"

var (
	// ErrGraphNodeNotFound is returned when a node lookup by its
	// identity key finds nothing.
	ErrGraphNodeNotFound = fmt.Errorf("unable to find node")

	// ErrEdgeNotFound is returned when a channel lookup by its
	// short_channel_id finds nothing.
	ErrEdgeNotFound = fmt.Errorf("edge for short_channel_id not found")

	// ErrChannelSelfLoop is returned when an announcement names the
	// same node as both endpoints.
	ErrChannelSelfLoop = fmt.Errorf("channel announcement self-referential: both endpoints are the same node")

	// ErrChainHashMismatch is returned when a message's chain hash
	// does not match the graph's configured chain.
	ErrChainHashMismatch = fmt.Errorf("chain hash in message does not match graph's chain")

	// ErrInvalidSignature is returned when a gossip message's embedded
	// signature fails to verify.
	ErrInvalidSignature = fmt.Errorf("signature does not verify under advertised key")

	// ErrChannelAlreadyExists is returned when a channel_announcement
	// re-announces an existing short_channel_id with different bytes
	// than what was previously accepted.
	ErrChannelAlreadyExists = fmt.Errorf("channel already exists with conflicting announcement")

	// ErrNoFundingTransaction is returned when the funding oracle
	// cannot locate the channel's funding output.
	ErrNoFundingTransaction = fmt.Errorf("unable to find funding transaction for channel")

	// ErrInvalidFundingScript is returned when the funding oracle's
	// reported output script does not match the 2-of-2 multisig implied
	// by the announcement's bitcoin keys.
	ErrInvalidFundingScript = fmt.Errorf("funding output script does not match advertised bitcoin keys")

	// ErrVertexNotFound is returned internally when an edge references
	// an endpoint no longer present in the node index.
	ErrVertexNotFound = fmt.Errorf("vertex not found")

	// ErrStoreCorrupted is returned by Store.Load when a record fails
	// its checksum, is truncated, or carries an unrecognized wrapper
	// tag; the caller is expected to treat this as "tail discarded",
	// not as a fatal error.
	ErrStoreCorrupted = fmt.Errorf("gossip store record failed validation")

	// ErrStoreClosed is returned by Append/Load once the store's file
	// descriptor has been released by Close.
	ErrStoreClosed = fmt.Errorf("gossip store is closed")
)
