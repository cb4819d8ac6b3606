package routing

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnd-gossipd/channeldb"
	"github.com/lightningnetwork/lnd-gossipd/lnwire"
)

// FailCode classifies an onion routing failure the way BOLT #4 does: the
// high bits of the code name its category, and the low bits name the
// specific reason within it.
type FailCode uint16

const (
	// FlagBadOnion marks a failure caused by a malformed onion packet
	// itself, rather than anything the erring node decided.
	FlagBadOnion FailCode = 0x8000

	// FlagPerm marks a failure that will not resolve itself: the erring
	// node or channel should be treated as gone until a fresh
	// announcement says otherwise.
	FlagPerm FailCode = 0x4000

	// FlagNode marks a failure attributed to the erring node as a whole,
	// rather than to one of its channels.
	FlagNode FailCode = 0x2000

	// FlagUpdate marks a failure that carries a piggybacked
	// channel_update the erring node wants propagated.
	FlagUpdate FailCode = 0x1000
)

const (
	// FailTemporaryChannelFailure is reported when a channel can't carry
	// the HTLC right now (e.g. insufficient outbound liquidity) but may
	// be able to later; it always carries an update.
	FailTemporaryChannelFailure = FailCode(0x1007)

	// FailPermanentChannelFailure is reported when a channel is gone for
	// good (e.g. closed).
	FailPermanentChannelFailure = FailCode(0x4007) | FlagPerm

	// FailPermanentNodeFailure is reported when a node itself is gone for
	// good.
	FailPermanentNodeFailure = FailCode(0x4002) | FlagPerm | FlagNode

	// FailUnknownNextPeer is reported when a hop can't find the next
	// node at all; treated as a permanent channel failure.
	FailUnknownNextPeer = FailCode(0x4006) | FlagPerm
)

// IsPermanent reports whether code names a failure that should persist
// until a fresh announcement overrides it.
func (c FailCode) IsPermanent() bool {
	return c&FlagPerm != 0
}

// IsNode reports whether code is attributed to the erring node as a whole
// rather than to a single channel.
func (c FailCode) IsNode() bool {
	return c&FlagNode != 0
}

// HasUpdate reports whether code carries a piggybacked channel_update that
// must be admitted before the failure's own effect is applied.
func (c FailCode) HasUpdate() bool {
	return c&FlagUpdate != 0
}

// RoutingFailure applies the routing-table effect of an onion failure
// reported by erringNode on erringChannel/erringDirection: a piggybacked
// channel_update in updateBytes is admitted first (so a temporary failure
// that merely reflects stale fee data self-heals), then the failure's own
// category decides what happens next — a temporary failure transiently
// disables the one direction that erred, a permanent channel failure
// removes the channel, and a permanent node failure removes the node and
// every channel incident to it.
func RoutingFailure(
	graph *channeldb.Graph, erringNode *btcec.PublicKey,
	erringChannel lnwire.ShortChannelID, erringDirection uint8,
	code FailCode, updateBytes []byte,
) error {

	if code.HasUpdate() && len(updateBytes) > 0 {
		msg, err := lnwire.ReadMessage(bytes.NewReader(updateBytes))
		if err == nil {
			if upd, ok := msg.(*lnwire.ChannelUpdate); ok {
				_ = graph.HandleChannelUpdate(updateBytes, upd)
			}
		}
	}

	if !code.IsPermanent() {
		return graph.SetHalfChannelUnusable(erringChannel, erringDirection, true)
	}

	if code.IsNode() {
		if erringNode == nil {
			return nil
		}
		return graph.NodeDelete(erringNode)
	}

	return graph.ChannelDelete(erringChannel)
}
