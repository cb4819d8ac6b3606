package channeldb

import (
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd-gossipd/lnwire"
)

// Validator verifies the cryptographic authenticity of a decoded gossip
// message. The Graph never touches key material directly; it asks a
// Validator whether a message's signatures check out under the keys
// embedded in the message itself.
type Validator interface {
	// ValidateChannelAnnouncement checks the four signatures embedded
	// in a channel_announcement (two node, two bitcoin).
	ValidateChannelAnnouncement(msg *lnwire.ChannelAnnouncement) error

	// ValidateChannelUpdate checks a channel_update's signature against
	// the given node public key.
	ValidateChannelUpdate(msg *lnwire.ChannelUpdate, signer *btcec.PublicKey) error

	// ValidateNodeAnnouncement checks a node_announcement's signature
	// against its own embedded node id.
	ValidateNodeAnnouncement(msg *lnwire.NodeAnnouncement) error
}

// FundingOutput is what a FundingOracle reports back for a channel's
// funding transaction: the capacity committed and the output script that
// must match the 2-of-2 multisig implied by the announcement's bitcoin
// keys.
type FundingOutput struct {
	Capacity btcutil.Amount
	PkScript []byte
}

// FundingOracle resolves a short_channel_id to its on-chain funding
// output. It is consulted once per channel_announcement, asynchronously:
// Graph enqueues a PendingAnnouncement, calls ResolveChannel on its own
// goroutine, and delivers the outcome on Graph.Resolutions; ApplyResolution
// then completes the announcement via HandlePendingChannelAnnouncement.
type FundingOracle interface {
	// ResolveChannel looks up the funding output named by scid and
	// returns its capacity and script, or an error if the funding
	// transaction does not exist or its output is already spent.
	ResolveChannel(scid lnwire.ShortChannelID) (*FundingOutput, error)
}

// DevConfig bundles the developer-mode overrides named in the routing
// graph's design: a replaceable clock so prune/broadcast-timestamp logic
// can be driven by canned data, and a fallback capacity used when the
// funding oracle is absent (e.g. replaying a store dump with no chain
// backend wired up). Both are nil in a production build; Graph falls back
// to real wall-clock time and a real FundingOracle when they are unset.
type DevConfig struct {
	// GossipTimeOverride, when non-nil, replaces wall-clock time for
	// every timestamp the graph reads (broadcast descriptors, prune
	// comparisons).
	GossipTimeOverride func() uint32

	// UnknownChannelCapacity, when non-nil, is used as the channel
	// capacity for announcements resolved without consulting a real
	// FundingOracle.
	UnknownChannelCapacity *btcutil.Amount
}

// gossipTimeNow returns the current time as a gossip timestamp, honoring
// a developer override if one is configured. A nil receiver is the
// production case and always reads the wall clock.
func (d *DevConfig) gossipTimeNow() uint32 {
	if d != nil && d.GossipTimeOverride != nil {
		return d.GossipTimeOverride()
	}
	return uint32(time.Now().Unix())
}
