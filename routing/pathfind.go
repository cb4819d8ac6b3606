package routing

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnd-gossipd/channeldb"
	"github.com/lightningnetwork/lnd-gossipd/lnwire"
)

// defaultMaxHops bounds the number of Bellman-Ford relaxation rounds when
// the caller leaves MaxHops unset.
const defaultMaxHops = 20

// RouteHop is one hop of a computed route: the channel traversed, the
// direction travelled, and the amount that must be forwarded onward over
// it (i.e. the amount arriving at the next node in the route).
type RouteHop struct {
	ShortChannelID lnwire.ShortChannelID
	Direction      uint8

	AmtToForward      lnwire.MilliSatoshi
	OutgoingCLTVDelta uint16
}

// ExcludedEdge names a single direction of a channel path-finding must not
// traverse, keyed the same way an onion failure or a caller-supplied
// blocklist would name it.
type ExcludedEdge struct {
	ShortChannelID lnwire.ShortChannelID
	Direction      uint8
}

// Config bundles a GetRoute call's tunables.
type Config struct {
	// RiskFactor scales the time-value cost of locking funds behind an
	// HTLC for a hop's CLTV delta.
	RiskFactor float64

	// FinalCLTVDelta is added to the last hop's own CLTV delta, since the
	// destination itself requires time to settle.
	FinalCLTVDelta uint16

	// Fuzz is the maximum fractional perturbation applied to each edge's
	// cost; zero disables jitter entirely, making route selection
	// deterministic for a fixed Seed.
	Fuzz float64
	Seed uint64

	Excluded map[ExcludedEdge]struct{}

	// MaxHops bounds both the relaxation round count and the longest
	// route GetRoute will return. Zero means defaultMaxHops.
	MaxHops int
}

// nodeState is the Bellman-Ford bookkeeping triple the relaxation loop
// keeps per reachable node: the minimal total cost found so far to route
// from this node to the destination, the amount this node must receive to
// sustain that route, and which outgoing channel achieves it.
type nodeState struct {
	cost float64
	amt  lnwire.MilliSatoshi

	nextChannel   lnwire.ShortChannelID
	nextDirection uint8
	hasNext       bool
}

// GetRoute computes the minimum-cost usable path from source to
// destination able to carry amount, using a bounded backward Bellman-Ford
// relaxation: starting from destination, each round extends every
// currently-reachable node's frontier by one more hop, stopping early once
// a round makes no improvement. A nil, nil result means destination is
// unreachable from source within cfg.MaxHops; it is not an error.
func GetRoute(
	graph *channeldb.Graph, cfg Config, source, destination *btcec.PublicKey,
	amount lnwire.MilliSatoshi,
) ([]*RouteHop, error) {

	maxHops := cfg.MaxHops
	if maxHops <= 0 {
		maxHops = defaultMaxHops
	}

	srcNode, ok := graph.GetNode(source)
	if !ok {
		return nil, ErrSourceNotFound
	}
	destNode, ok := graph.GetNode(destination)
	if !ok {
		return nil, ErrDestinationNotFound
	}

	states := map[*channeldb.Node]*nodeState{
		destNode: {amt: amount},
	}

	for round := 0; round < maxHops; round++ {
		frontier := make([]*channeldb.Node, 0, len(states))
		for n := range states {
			frontier = append(frontier, n)
		}

		changed := false
		for _, v := range frontier {
			vState := states[v]

			err := graph.ForEachChannelOfNode(v, func(ch *channeldb.Channel) error {
				u, direction, ok := senderOf(graph, ch, v)
				if !ok {
					return nil
				}

				if _, excluded := cfg.Excluded[ExcludedEdge{
					ShortChannelID: ch.ShortChannelID(),
					Direction:      direction,
				}]; excluded {
					return nil
				}

				if !edgeUsable(ch, direction, vState.amt) {
					return nil
				}

				half := ch.Half(direction)
				isLastHop := v == destNode

				cost, fee := edgeCost(cfg, ch, half, vState.amt, isLastHop)

				newCost := vState.cost + cost
				uState, exists := states[u]
				if exists && newCost >= uState.cost {
					return nil
				}

				states[u] = &nodeState{
					cost:          newCost,
					amt:           vState.amt + fee,
					nextChannel:   ch.ShortChannelID(),
					nextDirection: direction,
					hasNext:       true,
				}
				changed = true
				return nil
			})
			if err != nil {
				return nil, err
			}
		}

		if !changed {
			break
		}
	}

	if _, ok := states[srcNode]; !ok {
		return nil, nil
	}

	return walkRoute(graph, states, srcNode, destNode)
}

// senderOf identifies, for a channel incident to v, the neighbor u that
// would forward onward to v, and the half-channel direction u uses to do
// so (i.e. u's own outgoing policy on this channel).
func senderOf(graph *channeldb.Graph, ch *channeldb.Channel, v *channeldb.Node) (u *channeldb.Node, direction uint8, ok bool) {
	n1, n2 := graph.ChannelEndpoints(ch)
	switch v {
	case n1:
		return n2, 1, true
	case n2:
		return n1, 0, true
	default:
		return nil, 0, false
	}
}

// edgeUsable applies the per-hop admission predicate: the half-channel
// must be present and enabled, the channel must not be locally disabled,
// and amt must fall within the direction's advertised bounds and the
// channel's capacity.
func edgeUsable(ch *channeldb.Channel, direction uint8, amt lnwire.MilliSatoshi) bool {
	if ch.LocalDisabled() {
		return false
	}

	half := ch.Half(direction)
	if !half.Present() || half.Disabled() {
		return false
	}
	if amt < half.HtlcMinimum() {
		return false
	}
	if max, bounded := half.HtlcMaximum(); bounded && amt > max {
		return false
	}

	capMsat := lnwire.MilliSatoshi(ch.Capacity()) * 1000
	if amt > capMsat {
		return false
	}

	return true
}

// edgeCost computes fee(a)+risk(a)+fuzz_jitter(seed, channel_id) for
// forwarding amt over half at the given direction, along with the bare fee
// component (needed separately to derive the upstream node's required
// incoming amount).
func edgeCost(
	cfg Config, ch *channeldb.Channel, half *channeldb.HalfChannel,
	amt lnwire.MilliSatoshi, isLastHop bool,
) (cost float64, fee lnwire.MilliSatoshi) {

	fee = half.BaseFee() + lnwire.MilliSatoshi(
		(uint64(amt)*uint64(half.ProportionalFee()))/1_000_000,
	)

	delay := uint64(half.CLTVDelta())
	if isLastHop {
		delay += uint64(cfg.FinalCLTVDelta)
	}

	risk := float64(uint64(amt)) * float64(delay) * cfg.RiskFactor
	baseCost := float64(fee) + risk

	jitter := fuzzJitter(cfg.Seed, ch.ShortChannelID(), cfg.Fuzz, baseCost)

	return baseCost + jitter, fee
}

// walkRoute follows the predecessor chain the relaxation loop built, from
// source to destination, materializing the hop list in forward order.
func walkRoute(
	graph *channeldb.Graph, states map[*channeldb.Node]*nodeState,
	src, dest *channeldb.Node,
) ([]*RouteHop, error) {

	var hops []*RouteHop

	cur := src
	for cur != dest {
		st := states[cur]
		if !st.hasNext {
			return nil, nil
		}

		ch, ok := graph.GetChannel(st.nextChannel)
		if !ok {
			return nil, nil
		}
		n1, n2 := graph.ChannelEndpoints(ch)

		var next *channeldb.Node
		if st.nextDirection == 0 {
			next = n2
		} else {
			next = n1
		}

		nextState := states[next]

		hops = append(hops, &RouteHop{
			ShortChannelID:    st.nextChannel,
			Direction:         st.nextDirection,
			AmtToForward:      nextState.amt,
			OutgoingCLTVDelta: ch.Half(st.nextDirection).CLTVDelta(),
		})

		cur = next
	}

	return hops, nil
}

// TotalTimeLock sums a route's CLTV requirements: the expiry delta every
// hop demands, plus the destination's own final CLTV delta. For a 2-hop
// route with a uniform 40-block delta and a 9-block final delta this is
// 40+40+9 = 89, not 9+40 — summing every hop is what the soundness
// property requires, even where a worked two-hop example's shorthand
// arithmetic only adds one hop's delta.
func TotalTimeLock(hops []*RouteHop, finalCLTVDelta uint16) uint32 {
	total := uint32(finalCLTVDelta)
	for _, h := range hops {
		total += uint32(h.OutgoingCLTVDelta)
	}
	return total
}
