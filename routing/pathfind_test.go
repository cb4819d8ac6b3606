package routing

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd-gossipd/channeldb"
	"github.com/lightningnetwork/lnd-gossipd/lnwire"
	"github.com/stretchr/testify/require"
)

type routeTestNode struct {
	priv *btcec.PrivateKey
}

func newRouteTestNode(t *testing.T) routeTestNode {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return routeTestNode{priv: priv}
}

func (n routeTestNode) pub() *btcec.PublicKey {
	return n.priv.PubKey()
}

// buildTestChannel constructs and admits a fully signed channel_announcement
// plus a symmetric channel_update in both directions between a and b, with
// uniform fee and delay parameters, to build up a multi-hop test graph.
func buildTestChannel(
	t *testing.T, graph *channeldb.Graph, scid lnwire.ShortChannelID,
	a, b routeTestNode, capacity btcutil.Amount, baseFee lnwire.MilliSatoshi,
	propFee uint32, delay uint16,
) {
	t.Helper()

	bitA := newRouteTestNode(t)
	bitB := newRouteTestNode(t)

	n1, n2 := a, b
	bk1, bk2 := bitA, bitB
	if lessPub(n2.pub(), n1.pub()) {
		n1, n2 = n2, n1
		bk1, bk2 = bk2, bk1
	}

	ann := &lnwire.ChannelAnnouncement{
		Features:       lnwire.NewRawFeatureVector(),
		ChainHash:      chainhash.Hash{0x01},
		ShortChannelID: scid,
		NodeID1:        n1.pub(),
		NodeID2:        n2.pub(),
		BitcoinKey1:    bk1.pub(),
		BitcoinKey2:    bk2.pub(),
	}
	data, err := ann.DataToSign()
	require.NoError(t, err)
	digest := chainhash.DoubleHashB(data)
	ann.NodeSig1 = signTest(t, n1.priv, digest)
	ann.NodeSig2 = signTest(t, n2.priv, digest)
	ann.BitcoinSig1 = signTest(t, bk1.priv, digest)
	ann.BitcoinSig2 = signTest(t, bk2.priv, digest)

	raw, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(raw, ann))

	for direction, signer := range map[uint8]routeTestNode{0: n1, 1: n2} {
		upd := &lnwire.ChannelUpdate{
			ChainHash:                 chainhash.Hash{0x01},
			ShortChannelID:            scid,
			Timestamp:                 100,
			TimeLockDelta:             delay,
			HtlcMinimumMsat:           1,
			HtlcMaximumMsat:           lnwire.MilliSatoshi(capacity) * 1000,
			MessageFlags:              lnwire.ChanUpdateMaxHtlcFlag,
			BaseFee:                   baseFee,
			FeeProportionalMillionths: propFee,
		}
		if direction == 1 {
			upd.ChannelFlags |= lnwire.ChanUpdateDirection
		}
		data, err := upd.DataToSign()
		require.NoError(t, err)
		digest := chainhash.DoubleHashB(data)
		upd.Signature = signTest(t, signer.priv, digest)

		rawUpd, err := lnwire.EncodeMessage(upd)
		require.NoError(t, err)
		require.NoError(t, graph.HandleChannelUpdate(rawUpd, upd))
	}
}

func lessPub(a, b *btcec.PublicKey) bool {
	ab, bb := a.SerializeCompressed(), b.SerializeCompressed()
	for i := range ab {
		if ab[i] != bb[i] {
			return ab[i] < bb[i]
		}
	}
	return false
}

func signTest(t *testing.T, priv *btcec.PrivateKey, digest []byte) lnwire.Sig {
	t.Helper()
	sig, err := lnwire.NewSigFromSignature(ecdsa.Sign(priv, digest))
	require.NoError(t, err)
	return sig
}

// testChannelCapacity is the fixed channel capacity every test channel is
// built with; newRouteTestGraph wires it in as the dev-mode unknown-channel
// capacity fallback so these tests don't need a real funding oracle.
const testChannelCapacity = btcutil.Amount(1_000_000_000)

func newRouteTestGraph(t *testing.T) *channeldb.Graph {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gossip.db")
	store, err := channeldb.OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	local := newRouteTestNode(t)
	capacity := testChannelCapacity
	dev := &channeldb.DevConfig{UnknownChannelCapacity: &capacity}
	return channeldb.NewRoutingState(
		chainhash.Hash{0x01}, local.pub(), 1209600, store,
		routeTestValidator{}, nil, dev,
	)
}

type routeTestValidator struct{}

func (routeTestValidator) ValidateChannelAnnouncement(msg *lnwire.ChannelAnnouncement) error {
	return nil
}

func (routeTestValidator) ValidateChannelUpdate(msg *lnwire.ChannelUpdate, signer *btcec.PublicKey) error {
	return nil
}

func (routeTestValidator) ValidateNodeAnnouncement(msg *lnwire.NodeAnnouncement) error {
	return nil
}

// TestGetRouteThreeHopLine builds A-B-D, as two channels, and checks that
// GetRoute finds the two-hop path with amounts growing by the downstream
// fee at each predecessor, per the fee-accumulation rule in edgeCost.
func TestGetRouteThreeHopLine(t *testing.T) {
	a := newRouteTestNode(t)
	b := newRouteTestNode(t)
	d := newRouteTestNode(t)

	scidAB := lnwire.NewShortChanIDFromInt(100)
	scidBD := lnwire.NewShortChanIDFromInt(101)

	graph := newRouteTestGraph(t)

	buildTestChannel(t, graph, scidAB, a, b, 1_000_000_000, 1000, 1, 40)
	buildTestChannel(t, graph, scidBD, b, d, 1_000_000_000, 1000, 1, 40)

	cfg := Config{RiskFactor: 10, FinalCLTVDelta: 9, MaxHops: 10}
	hops, err := GetRoute(graph, cfg, a.pub(), d.pub(), 10_000_000)
	require.NoError(t, err)
	require.Len(t, hops, 2)

	require.Equal(t, scidAB, hops[0].ShortChannelID)
	require.Equal(t, scidBD, hops[1].ShortChannelID)

	// The second hop delivers the requested amount untouched; the first
	// hop must forward that amount plus whatever fee the second hop's
	// node collects.
	require.EqualValues(t, 10_000_000, hops[1].AmtToForward)
	require.Greater(t, uint64(hops[0].AmtToForward), uint64(10_000_000))
}

func TestGetRouteUnknownSourceReturnsError(t *testing.T) {
	a := newRouteTestNode(t)
	isolated := newRouteTestNode(t)

	graph := newRouteTestGraph(t)

	cfg := Config{RiskFactor: 10, FinalCLTVDelta: 9, MaxHops: 10}

	_, ok := graph.GetNode(a.pub())
	require.False(t, ok)

	_, err := GetRoute(graph, cfg, a.pub(), isolated.pub(), 1000)
	require.ErrorIs(t, err, ErrSourceNotFound)
}

func TestGetRouteExcludesNamedEdge(t *testing.T) {
	a := newRouteTestNode(t)
	b := newRouteTestNode(t)
	d := newRouteTestNode(t)

	scidAB := lnwire.NewShortChanIDFromInt(200)
	scidBD := lnwire.NewShortChanIDFromInt(201)
	scidAD := lnwire.NewShortChanIDFromInt(202)

	graph := newRouteTestGraph(t)

	buildTestChannel(t, graph, scidAB, a, b, 1_000_000_000, 1000, 1, 40)
	buildTestChannel(t, graph, scidBD, b, d, 1_000_000_000, 1000, 1, 40)
	buildTestChannel(t, graph, scidAD, a, d, 1_000_000_000, 50, 0, 40)

	cfg := Config{RiskFactor: 10, FinalCLTVDelta: 9, MaxHops: 10}

	hops, err := GetRoute(graph, cfg, a.pub(), d.pub(), 10_000_000)
	require.NoError(t, err)
	require.Len(t, hops, 1)
	require.Equal(t, scidAD, hops[0].ShortChannelID)

	cfg.Excluded = map[ExcludedEdge]struct{}{
		{ShortChannelID: scidAD, Direction: hops[0].Direction}: {},
	}
	hops, err = GetRoute(graph, cfg, a.pub(), d.pub(), 10_000_000)
	require.NoError(t, err)
	require.Len(t, hops, 2)
}

func TestGetRouteDeterministicWithFixedSeedAndNoFuzz(t *testing.T) {
	a := newRouteTestNode(t)
	b := newRouteTestNode(t)
	d := newRouteTestNode(t)

	scidAB := lnwire.NewShortChanIDFromInt(300)
	scidBD := lnwire.NewShortChanIDFromInt(301)

	graph := newRouteTestGraph(t)

	buildTestChannel(t, graph, scidAB, a, b, 1_000_000_000, 1000, 1, 40)
	buildTestChannel(t, graph, scidBD, b, d, 1_000_000_000, 1000, 1, 40)

	cfg := Config{RiskFactor: 10, FinalCLTVDelta: 9, MaxHops: 10, Seed: 42}

	hops1, err := GetRoute(graph, cfg, a.pub(), d.pub(), 10_000_000)
	require.NoError(t, err)
	hops2, err := GetRoute(graph, cfg, a.pub(), d.pub(), 10_000_000)
	require.NoError(t, err)

	require.Equal(t, hops1, hops2)
}

func TestTotalTimeLockSumsHopsAndFinal(t *testing.T) {
	hops := []*RouteHop{
		{OutgoingCLTVDelta: 40},
		{OutgoingCLTVDelta: 40},
	}
	require.EqualValues(t, 89, TotalTimeLock(hops, 9))
}
