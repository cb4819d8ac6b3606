package channeldb

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd-gossipd/lnwire"
	"github.com/stretchr/testify/require"
)

// corruptByteAt overwrites a single byte of the file at path, used to
// simulate a torn write or on-disk bitrot for truncation tests.
func corruptByteAt(t *testing.T, path string, offset int64, b byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteAt([]byte{b}, offset)
	require.NoError(t, err)
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

// testValidator signs and verifies with real keys, so the admission paths
// exercised here match what production signature checks would accept or
// reject.
type testValidator struct{}

func (testValidator) ValidateChannelAnnouncement(msg *lnwire.ChannelAnnouncement) error {
	data, err := msg.DataToSign()
	if err != nil {
		return err
	}
	digest := chainhash.DoubleHashB(data)

	for sig, key := range map[lnwire.Sig]*btcec.PublicKey{
		msg.NodeSig1:    msg.NodeID1,
		msg.NodeSig2:    msg.NodeID2,
		msg.BitcoinSig1: msg.BitcoinKey1,
		msg.BitcoinSig2: msg.BitcoinKey2,
	} {
		if !sig.Verify(digest, key) {
			return ErrInvalidSignature
		}
	}
	return nil
}

func (testValidator) ValidateChannelUpdate(msg *lnwire.ChannelUpdate, signer *btcec.PublicKey) error {
	data, err := msg.DataToSign()
	if err != nil {
		return err
	}
	digest := chainhash.DoubleHashB(data)
	if !msg.Signature.Verify(digest, signer) {
		return ErrInvalidSignature
	}
	return nil
}

func (testValidator) ValidateNodeAnnouncement(msg *lnwire.NodeAnnouncement) error {
	data, err := msg.DataToSign()
	if err != nil {
		return err
	}
	digest := chainhash.DoubleHashB(data)
	if !msg.Signature.Verify(digest, msg.NodeID) {
		return ErrInvalidSignature
	}
	return nil
}

type testOracle struct {
	outputs map[uint64]*FundingOutput
}

func (o *testOracle) ResolveChannel(scid lnwire.ShortChannelID) (*FundingOutput, error) {
	out, ok := o.outputs[scid.ToUint64()]
	if !ok {
		return nil, ErrNoFundingTransaction
	}
	return out, nil
}

var testChain = chainhash.Hash{0x01}

func newTestKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv
}

func sign(t *testing.T, priv *btcec.PrivateKey, digest []byte) lnwire.Sig {
	t.Helper()
	sig, err := lnwire.NewSigFromSignature(ecdsa.Sign(priv, digest))
	require.NoError(t, err)
	return sig
}

// buildChannelAnnouncement produces a fully signed channel_announcement
// between two fresh keypairs, along with the bitcoin keypairs bound to its
// funding output.
func buildChannelAnnouncement(t *testing.T, scid lnwire.ShortChannelID) (
	*lnwire.ChannelAnnouncement, *btcec.PrivateKey, *btcec.PrivateKey) {

	t.Helper()

	nodeA := newTestKey(t)
	nodeB := newTestKey(t)
	bitcoinA := newTestKey(t)
	bitcoinB := newTestKey(t)

	n1, n2 := nodeA, nodeB
	b1, b2 := bitcoinA, bitcoinB
	if lessPubKey(n2.PubKey(), n1.PubKey()) {
		n1, n2 = n2, n1
		b1, b2 = b2, b1
	}

	msg := &lnwire.ChannelAnnouncement{
		Features:       lnwire.NewRawFeatureVector(),
		ChainHash:      testChain,
		ShortChannelID: scid,
		NodeID1:        n1.PubKey(),
		NodeID2:        n2.PubKey(),
		BitcoinKey1:    b1.PubKey(),
		BitcoinKey2:    b2.PubKey(),
	}

	data, err := msg.DataToSign()
	require.NoError(t, err)
	digest := chainhash.DoubleHashB(data)

	msg.NodeSig1 = sign(t, n1, digest)
	msg.NodeSig2 = sign(t, n2, digest)
	msg.BitcoinSig1 = sign(t, b1, digest)
	msg.BitcoinSig2 = sign(t, b2, digest)

	return msg, n1, n2
}

func buildChannelUpdate(
	t *testing.T, signer *btcec.PrivateKey, scid lnwire.ShortChannelID,
	direction uint8, timestamp uint32,
) *lnwire.ChannelUpdate {

	t.Helper()

	flags := lnwire.ChanUpdateChanFlag(0)
	if direction == 1 {
		flags |= lnwire.ChanUpdateDirection
	}

	msg := &lnwire.ChannelUpdate{
		ChainHash:                 testChain,
		ShortChannelID:            scid,
		Timestamp:                 timestamp,
		ChannelFlags:              flags,
		TimeLockDelta:             40,
		HtlcMinimumMsat:           1,
		BaseFee:                   1000,
		FeeProportionalMillionths: 1,
	}

	data, err := msg.DataToSign()
	require.NoError(t, err)
	digest := chainhash.DoubleHashB(data)
	msg.Signature = sign(t, signer, digest)

	return msg
}

func buildNodeAnnouncement(
	t *testing.T, signer *btcec.PrivateKey, timestamp uint32,
) *lnwire.NodeAnnouncement {

	t.Helper()

	alias, err := lnwire.NewAlias("test-node")
	require.NoError(t, err)

	msg := &lnwire.NodeAnnouncement{
		Features:  lnwire.NewRawFeatureVector(),
		Timestamp: timestamp,
		NodeID:    signer.PubKey(),
		Alias:     alias,
	}

	data, err := msg.DataToSign()
	require.NoError(t, err)
	digest := chainhash.DoubleHashB(data)
	msg.Signature = sign(t, signer, digest)

	return msg
}

// resolvePending drains and applies exactly one outstanding funding-oracle
// resolution, standing in for the event loop that would normally do so.
func resolvePending(t *testing.T, graph *Graph) {
	t.Helper()
	res := <-graph.Resolutions()
	require.NoError(t, graph.ApplyResolution(res))
}

func newTestGraph(t *testing.T, oracle FundingOracle) (*Graph, *Store) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gossip.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	localKey := newTestKey(t)
	graph := NewRoutingState(
		testChain, localKey.PubKey(), 1209600, store,
		testValidator{}, oracle, nil,
	)
	return graph, store
}

func TestChannelAnnouncementAdmittedAndPersisted(t *testing.T) {
	scid := lnwire.NewShortChanIDFromInt(1)
	ann, _, _ := buildChannelAnnouncement(t, scid)

	oracle := &testOracle{outputs: map[uint64]*FundingOutput{
		scid.ToUint64(): {Capacity: 1_000_000, PkScript: twoOfTwoScript(ann.BitcoinKey1, ann.BitcoinKey2)},
	}}

	graph, store := newTestGraph(t, oracle)

	raw, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(raw, ann))
	resolvePending(t, graph)

	ch, ok := graph.GetChannel(scid)
	require.True(t, ok)
	require.Equal(t, btcutil.Amount(1_000_000), ch.capacity)
	require.True(t, ch.public())
	require.EqualValues(t, 1, store.Count())
}

func TestChannelAnnouncementRejectsInvalidFundingScript(t *testing.T) {
	scid := lnwire.NewShortChanIDFromInt(2)
	ann, _, _ := buildChannelAnnouncement(t, scid)

	oracle := &testOracle{outputs: map[uint64]*FundingOutput{
		scid.ToUint64(): {Capacity: 500_000, PkScript: []byte("not the right script")},
	}}

	graph, _ := newTestGraph(t, oracle)

	raw, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(raw, ann))

	res := <-graph.Resolutions()
	require.ErrorIs(t, graph.ApplyResolution(res), ErrInvalidFundingScript)

	_, ok := graph.GetChannel(scid)
	require.False(t, ok)
}

func TestChannelAnnouncementSelfLoopRejected(t *testing.T) {
	scid := lnwire.NewShortChanIDFromInt(3)
	ann, n1, _ := buildChannelAnnouncement(t, scid)
	ann.NodeID2 = n1.PubKey()

	graph, _ := newTestGraph(t, &testOracle{outputs: map[uint64]*FundingOutput{}})

	raw, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)
	require.ErrorIs(t, graph.HandleChannelAnnouncement(raw, ann), ErrChannelSelfLoop)
}

// TestChannelUpdateBufferedUntilAnnouncementResolves checks the actual
// async gap: a channel_update that names a channel whose announcement is
// still awaiting its funding oracle round trip must be buffered, not
// dropped, and must apply once the announcement resolves.
func TestChannelUpdateBufferedUntilAnnouncementResolves(t *testing.T) {
	scid := lnwire.NewShortChanIDFromInt(4)
	ann, n1, n2 := buildChannelAnnouncement(t, scid)

	oracle := &testOracle{outputs: map[uint64]*FundingOutput{
		scid.ToUint64(): {Capacity: 2_000_000, PkScript: twoOfTwoScript(ann.BitcoinKey1, ann.BitcoinKey2)},
	}}

	graph, _ := newTestGraph(t, oracle)

	rawAnn, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(rawAnn, ann))

	// The announcement's oracle lookup hasn't been applied yet: the
	// channel must not exist, so an update naming it has nowhere to go
	// but the PendingAnnouncement buffer.
	_, ok := graph.GetChannel(scid)
	require.False(t, ok)

	upd := buildChannelUpdate(t, n1, scid, 0, 100)
	rawUpd, err := lnwire.EncodeMessage(upd)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelUpdate(rawUpd, upd))

	// Announceability needs an update in both directions, so buffer the
	// counterpart direction too.
	upd1 := buildChannelUpdate(t, n2, scid, 1, 100)
	rawUpd1, err := lnwire.EncodeMessage(upd1)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelUpdate(rawUpd1, upd1))

	resolvePending(t, graph)

	ch, ok := graph.GetChannel(scid)
	require.True(t, ok)
	require.True(t, ch.half[0].present)
	require.True(t, ch.half[1].present)
	require.True(t, ch.announced())
}

func TestChannelUpdateSupersedeBySameTimestampRejectsConflict(t *testing.T) {
	scid := lnwire.NewShortChanIDFromInt(5)
	ann, n1, _ := buildChannelAnnouncement(t, scid)

	oracle := &testOracle{outputs: map[uint64]*FundingOutput{
		scid.ToUint64(): {Capacity: 1_000_000, PkScript: twoOfTwoScript(ann.BitcoinKey1, ann.BitcoinKey2)},
	}}
	graph, _ := newTestGraph(t, oracle)

	rawAnn, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(rawAnn, ann))
	resolvePending(t, graph)

	upd1 := buildChannelUpdate(t, n1, scid, 0, 100)
	rawUpd1, err := lnwire.EncodeMessage(upd1)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelUpdate(rawUpd1, upd1))

	upd2 := buildChannelUpdate(t, n1, scid, 0, 100)
	upd2.BaseFee = 9999 // conflicting content at an identical timestamp
	data, err := upd2.DataToSign()
	require.NoError(t, err)
	digest := chainhash.DoubleHashB(data)
	upd2.Signature = sign(t, n1, digest)
	rawUpd2, err := lnwire.EncodeMessage(upd2)
	require.NoError(t, err)

	require.Error(t, graph.HandleChannelUpdate(rawUpd2, upd2))
}

func TestChannelUpdateOlderTimestampIgnored(t *testing.T) {
	scid := lnwire.NewShortChanIDFromInt(6)
	ann, n1, _ := buildChannelAnnouncement(t, scid)

	oracle := &testOracle{outputs: map[uint64]*FundingOutput{
		scid.ToUint64(): {Capacity: 1_000_000, PkScript: twoOfTwoScript(ann.BitcoinKey1, ann.BitcoinKey2)},
	}}
	graph, _ := newTestGraph(t, oracle)

	rawAnn, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(rawAnn, ann))
	resolvePending(t, graph)

	newer := buildChannelUpdate(t, n1, scid, 0, 200)
	rawNewer, err := lnwire.EncodeMessage(newer)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelUpdate(rawNewer, newer))

	older := buildChannelUpdate(t, n1, scid, 0, 100)
	rawOlder, err := lnwire.EncodeMessage(older)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelUpdate(rawOlder, older))

	ch, _ := graph.GetChannel(scid)
	require.EqualValues(t, 200, ch.half[0].broadcast.Timestamp)
}

func TestNodeAnnouncementDroppedWithoutChannel(t *testing.T) {
	graph, store := newTestGraph(t, &testOracle{outputs: map[uint64]*FundingOutput{}})

	key := newTestKey(t)
	ann := buildNodeAnnouncement(t, key, 100)
	raw, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)

	require.NoError(t, graph.HandleNodeAnnouncement(raw, ann))

	_, ok := graph.GetNode(key.PubKey())
	require.False(t, ok)
	require.EqualValues(t, 0, store.Count())
}

func TestLocalAddChannelPersistsAndIsPrivate(t *testing.T) {
	graph, store := newTestGraph(t, nil)

	n1 := newTestKey(t)
	n2 := newTestKey(t)

	msg := &lnwire.LocalAddChannel{
		ShortChannelID:            lnwire.NewShortChanIDFromInt(7),
		Capacity:                  5_000_000_000,
		NodeID1:                   n1.PubKey(),
		NodeID2:                   n2.PubKey(),
		Direction:                 0,
		CLTVDelta:                 40,
		HtlcMinimumMsat:           1,
		BaseFee:                   1000,
		FeeProportionalMillionths: 1,
	}
	if lessPubKey(n2.PubKey(), n1.PubKey()) {
		msg.NodeID1, msg.NodeID2 = n2.PubKey(), n1.PubKey()
	}

	require.NoError(t, graph.HandleLocalAddChannel(msg))

	ch, ok := graph.GetChannel(msg.ShortChannelID)
	require.True(t, ok)
	require.False(t, ch.public())
	require.EqualValues(t, 1, store.Count())
}

func TestChannelDeleteRemovesIsolatedNodes(t *testing.T) {
	scid := lnwire.NewShortChanIDFromInt(8)
	ann, _, _ := buildChannelAnnouncement(t, scid)

	oracle := &testOracle{outputs: map[uint64]*FundingOutput{
		scid.ToUint64(): {Capacity: 1_000_000, PkScript: twoOfTwoScript(ann.BitcoinKey1, ann.BitcoinKey2)},
	}}
	graph, _ := newTestGraph(t, oracle)

	raw, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(raw, ann))
	resolvePending(t, graph)

	_, ok := graph.GetChannel(scid)
	require.True(t, ok)

	require.NoError(t, graph.ChannelDelete(scid))

	_, ok = graph.GetChannel(scid)
	require.False(t, ok)
	_, ok = graph.GetNode(ann.NodeID1)
	require.False(t, ok)
	_, ok = graph.GetNode(ann.NodeID2)
	require.False(t, ok)
}

func TestRoutePruneRemovesStaleChannels(t *testing.T) {
	scid := lnwire.NewShortChanIDFromInt(9)
	ann, n1, _ := buildChannelAnnouncement(t, scid)

	oracle := &testOracle{outputs: map[uint64]*FundingOutput{
		scid.ToUint64(): {Capacity: 1_000_000, PkScript: twoOfTwoScript(ann.BitcoinKey1, ann.BitcoinKey2)},
	}}

	var clock uint32 = 1000
	path := filepath.Join(t.TempDir(), "gossip.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	localKey := newTestKey(t)
	graph := NewRoutingState(
		testChain, localKey.PubKey(), 100, store, testValidator{}, oracle,
		&DevConfig{GossipTimeOverride: func() uint32 { return clock }},
	)

	rawAnn, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(rawAnn, ann))
	resolvePending(t, graph)

	upd := buildChannelUpdate(t, n1, scid, 0, clock)
	rawUpd, err := lnwire.EncodeMessage(upd)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelUpdate(rawUpd, upd))

	clock += 500 // exceeds the 100-second prune timeout

	pruned, err := graph.RoutePrune()
	require.NoError(t, err)
	require.Equal(t, 1, pruned)

	_, ok := graph.GetChannel(scid)
	require.False(t, ok)
}

func TestStoreLoadReplaysIntoFreshGraph(t *testing.T) {
	scid := lnwire.NewShortChanIDFromInt(10)
	ann, n1, _ := buildChannelAnnouncement(t, scid)

	oracle := &testOracle{outputs: map[uint64]*FundingOutput{
		scid.ToUint64(): {Capacity: 3_000_000, PkScript: twoOfTwoScript(ann.BitcoinKey1, ann.BitcoinKey2)},
	}}

	path := filepath.Join(t.TempDir(), "gossip.db")
	store, err := OpenStore(path)
	require.NoError(t, err)

	localKey := newTestKey(t)
	graph := NewRoutingState(testChain, localKey.PubKey(), 1209600, store, testValidator{}, oracle, nil)

	rawAnn, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(rawAnn, ann))
	resolvePending(t, graph)

	upd := buildChannelUpdate(t, n1, scid, 0, 100)
	rawUpd, err := lnwire.EncodeMessage(upd)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelUpdate(rawUpd, upd))

	require.NoError(t, store.Close())

	store2, err := OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store2.Close() })

	graph2 := NewRoutingState(testChain, localKey.PubKey(), 1209600, store2, testValidator{}, oracle, nil)
	stats, err := store2.Load(graph2)
	require.NoError(t, err)
	require.False(t, stats.Truncated)
	require.Equal(t, 1, stats.ChannelAnnouncements)
	require.Equal(t, 1, stats.ChannelUpdates)

	ch, ok := graph2.GetChannel(scid)
	require.True(t, ok)
	require.Equal(t, btcutil.Amount(3_000_000), ch.capacity)
	require.True(t, ch.half[0].present)
}

func TestStoreLoadTruncatesOnCorruptTail(t *testing.T) {
	scid := lnwire.NewShortChanIDFromInt(11)
	ann, _, _ := buildChannelAnnouncement(t, scid)

	oracle := &testOracle{outputs: map[uint64]*FundingOutput{
		scid.ToUint64(): {Capacity: 1_000_000, PkScript: twoOfTwoScript(ann.BitcoinKey1, ann.BitcoinKey2)},
	}}

	path := filepath.Join(t.TempDir(), "gossip.db")
	store, err := OpenStore(path)
	require.NoError(t, err)

	localKey := newTestKey(t)
	graph := NewRoutingState(testChain, localKey.PubKey(), 1209600, store, testValidator{}, oracle, nil)

	rawAnn, err := lnwire.EncodeMessage(ann)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(rawAnn, ann))
	resolvePending(t, graph)
	require.NoError(t, store.Close())

	// Corrupt a single byte inside the first record's payload.
	garbage := make([]byte, 4)
	_, err = rand.Read(garbage)
	require.NoError(t, err)
	corruptByteAt(t, path, 20, garbage[0])

	store2, err := OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store2.Close() })

	graph2 := NewRoutingState(testChain, localKey.PubKey(), 1209600, store2, testValidator{}, oracle, nil)
	stats, err := store2.Load(graph2)
	require.NoError(t, err)
	require.True(t, stats.Truncated)
	require.EqualValues(t, 1, stats.TruncatedAt)

	_, ok := graph2.GetChannel(scid)
	require.False(t, ok)
}

func TestStoreRewritePacksLiveRecordsAndDropsDeleted(t *testing.T) {
	scid1 := lnwire.NewShortChanIDFromInt(12)
	scid2 := lnwire.NewShortChanIDFromInt(13)
	ann1, n1a, n2a := buildChannelAnnouncement(t, scid1)
	ann2, n1b, n2b := buildChannelAnnouncement(t, scid2)

	oracle := &testOracle{outputs: map[uint64]*FundingOutput{
		scid1.ToUint64(): {Capacity: 1_000_000, PkScript: twoOfTwoScript(ann1.BitcoinKey1, ann1.BitcoinKey2)},
		scid2.ToUint64(): {Capacity: 2_000_000, PkScript: twoOfTwoScript(ann2.BitcoinKey1, ann2.BitcoinKey2)},
	}}

	graph, store := newTestGraph(t, oracle)

	raw1, err := lnwire.EncodeMessage(ann1)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(raw1, ann1))
	resolvePending(t, graph)
	upd1 := buildChannelUpdate(t, n1a, scid1, 0, 100)
	rawUpd1, err := lnwire.EncodeMessage(upd1)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelUpdate(rawUpd1, upd1))
	upd1b := buildChannelUpdate(t, n2a, scid1, 1, 100)
	rawUpd1b, err := lnwire.EncodeMessage(upd1b)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelUpdate(rawUpd1b, upd1b))

	raw2, err := lnwire.EncodeMessage(ann2)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelAnnouncement(raw2, ann2))
	resolvePending(t, graph)
	upd2 := buildChannelUpdate(t, n1b, scid2, 0, 100)
	rawUpd2, err := lnwire.EncodeMessage(upd2)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelUpdate(rawUpd2, upd2))
	upd2b := buildChannelUpdate(t, n2b, scid2, 1, 100)
	rawUpd2b, err := lnwire.EncodeMessage(upd2b)
	require.NoError(t, err)
	require.NoError(t, graph.HandleChannelUpdate(rawUpd2b, upd2b))

	require.NoError(t, graph.ChannelDelete(scid2))

	var records []RewriteRecord
	require.NoError(t, graph.ForEachBroadcastable(func(ch *Channel) error {
		wrapper, err := lnwire.NewChannelAnnouncementWrapper(mustDecodeAnnouncement(t, ch), ch.capacity)
		if err != nil {
			return err
		}
		payload, err := lnwire.EncodeMessage(wrapper)
		if err != nil {
			return err
		}
		records = append(records, RewriteRecord{Payload: payload, SetIndex: func(uint32) {}})
		return nil
	}))
	require.Len(t, records, 1)

	require.NoError(t, store.Rewrite(records))
	require.EqualValues(t, 1, store.Count())
}

func mustDecodeAnnouncement(t *testing.T, ch *Channel) *lnwire.ChannelAnnouncement {
	t.Helper()
	msg, err := lnwire.ReadMessage(bytesReader(ch.announcementBytes))
	require.NoError(t, err)
	ann, ok := msg.(*lnwire.ChannelAnnouncement)
	require.True(t, ok)
	return ann
}
