package channeldb

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd-gossipd/lnwire"
)

// nodeIndex and channelIndex are stable arena slot identifiers. They
// never get reassigned for the lifetime of the entity they name, which
// lets half-channels and adjacency sets hold plain integers instead of
// pointers: a deleted node or channel just leaves a hole. Holes are never
// reused; nextNodeIndex/nextChannelIndex only ever count upward.
type nodeIndex uint64
type channelIndex uint64

// inlineAdjacency is how many channel references a node's adjacency set
// holds inline before it overflows into a map. Most nodes on the network
// have only a handful of channels, so this keeps the common case
// allocation-free.
const inlineAdjacency = 4

// adjacencySet is a node's set of incident channel indices, represented
// as a tagged union: a fixed inline array while small, promoted to a map
// once it grows past inlineAdjacency.
type adjacencySet struct {
	inline    [inlineAdjacency]channelIndex
	inlineLen int
	overflow  map[channelIndex]struct{}
}

func (a *adjacencySet) add(ci channelIndex) {
	if a.overflow != nil {
		a.overflow[ci] = struct{}{}
		return
	}
	for i := 0; i < a.inlineLen; i++ {
		if a.inline[i] == ci {
			return
		}
	}
	if a.inlineLen < inlineAdjacency {
		a.inline[a.inlineLen] = ci
		a.inlineLen++
		return
	}

	a.overflow = make(map[channelIndex]struct{}, a.inlineLen+1)
	for i := 0; i < a.inlineLen; i++ {
		a.overflow[a.inline[i]] = struct{}{}
	}
	a.overflow[ci] = struct{}{}
	a.inlineLen = 0
}

func (a *adjacencySet) remove(ci channelIndex) {
	if a.overflow != nil {
		delete(a.overflow, ci)
		return
	}
	for i := 0; i < a.inlineLen; i++ {
		if a.inline[i] == ci {
			a.inline[i] = a.inline[a.inlineLen-1]
			a.inlineLen--
			return
		}
	}
}

func (a *adjacencySet) len() int {
	if a.overflow != nil {
		return len(a.overflow)
	}
	return a.inlineLen
}

func (a *adjacencySet) forEach(f func(channelIndex)) {
	if a.overflow != nil {
		for ci := range a.overflow {
			f(ci)
		}
		return
	}
	for i := 0; i < a.inlineLen; i++ {
		f(a.inline[i])
	}
}

// BroadcastDescriptor is the (timestamp, store-index) pair attached to
// every broadcastable entity. An Index of zero means "not yet announced"
// — either never persisted, or persisted but not yet eligible.
type BroadcastDescriptor struct {
	Timestamp uint32
	Index     uint32
}

// Node is a network participant identified by its compressed public key.
type Node struct {
	id      *btcec.PublicKey
	idBytes [33]byte

	announcement      *lnwire.NodeAnnouncement
	announcementBytes []byte
	broadcast         BroadcastDescriptor

	channels adjacencySet
}

// ID returns the node's compressed public key identity.
func (n *Node) ID() *btcec.PublicKey {
	return n.id
}

// Announcement returns the node's most recently admitted node_announcement,
// or nil if none has been seen.
func (n *Node) Announcement() *lnwire.NodeAnnouncement {
	return n.announcement
}

// HalfChannel is one direction's policy on a Channel.
type HalfChannel struct {
	present     bool
	updateBytes []byte
	broadcast   BroadcastDescriptor

	messageFlags lnwire.ChanUpdateMsgFlag
	channelFlags lnwire.ChanUpdateChanFlag

	cltvDelta       uint16
	htlcMinimumMsat lnwire.MilliSatoshi
	htlcMaximumMsat lnwire.MilliSatoshi
	baseFee         lnwire.MilliSatoshi
	proportionalFee uint32

	// transientlyDisabled is set by routing.RoutingFailure (via
	// SetHalfChannelUnusable) when a temporary onion failure is reported
	// against this direction, and cleared the next time a fresh
	// channel_update is admitted for it.
	transientlyDisabled bool
}

func (h *HalfChannel) disabled() bool {
	return h.channelFlags&lnwire.ChanUpdateDisabled != 0
}

// Present reports whether this direction has ever received an update.
func (h *HalfChannel) Present() bool {
	return h.present
}

// Disabled reports whether this direction is unusable for routing, either
// because the advertising node marked it disabled or because a recent
// onion failure transiently disabled it.
func (h *HalfChannel) Disabled() bool {
	return h.disabled() || h.transientlyDisabled
}

// CLTVDelta returns the block delta this hop requires between an incoming
// and outgoing HTLC.
func (h *HalfChannel) CLTVDelta() uint16 {
	return h.cltvDelta
}

// HtlcMinimum returns the smallest amount this direction will forward.
func (h *HalfChannel) HtlcMinimum() lnwire.MilliSatoshi {
	return h.htlcMinimumMsat
}

// HtlcMaximum returns the largest amount this direction will forward, and
// whether that bound was ever advertised (false means unbounded).
func (h *HalfChannel) HtlcMaximum() (lnwire.MilliSatoshi, bool) {
	return h.htlcMaximumMsat, h.messageFlags&lnwire.ChanUpdateMaxHtlcFlag != 0
}

// BaseFee returns this direction's flat forwarding fee.
func (h *HalfChannel) BaseFee() lnwire.MilliSatoshi {
	return h.baseFee
}

// ProportionalFee returns this direction's fee rate in parts per million.
func (h *HalfChannel) ProportionalFee() uint32 {
	return h.proportionalFee
}

// Channel is a bidirectional payment channel between two nodes, keyed by
// its short_channel_id.
type Channel struct {
	scid lnwire.ShortChannelID

	nodes [2]nodeIndex

	capacity      btcutil.Amount
	fundingScript []byte

	half [2]HalfChannel

	// announcementBytes is the original channel_announcement wire bytes.
	// Absent (nil) for a local-only private channel.
	announcementBytes []byte

	// localAddBytes is the original local_add_channel wire bytes, present
	// only for a local-only private channel (the counterpart to
	// announcementBytes), so it can be re-embedded in a
	// LocalAddChannelWrapper on rewrite.
	localAddBytes []byte

	broadcast BroadcastDescriptor

	localDisabled bool
}

func (c *Channel) public() bool {
	return c.announcementBytes != nil
}

// ShortChannelID returns the channel's short_channel_id.
func (c *Channel) ShortChannelID() lnwire.ShortChannelID {
	return c.scid
}

// Capacity returns the channel's funding output value.
func (c *Channel) Capacity() btcutil.Amount {
	return c.capacity
}

// LocalDisabled reports whether a local peer link for this channel is
// currently down.
func (c *Channel) LocalDisabled() bool {
	return c.localDisabled
}

// Half returns the half-channel for the given direction (0 or 1).
func (c *Channel) Half(direction uint8) *HalfChannel {
	return &c.half[direction]
}

// announced reports whether a channel is eligible for rebroadcast: it
// must have a broadcast index and both directions must have received at
// least one update.
func (c *Channel) announced() bool {
	return c.broadcast.Index != 0 && c.half[0].present && c.half[1].present
}

// PendingAnnouncement is a decoded but not-yet-resolved
// channel_announcement, buffering any node_announcement or channel_update
// messages that arrive for the same channel or node while the funding
// oracle lookup is outstanding.
type PendingAnnouncement struct {
	Announcement *lnwire.ChannelAnnouncement

	bufferedUpdates  [][]byte
	bufferedNodeAnns map[nodeKey][]byte
}

// nodeKey is a comparable stand-in for a compressed public key, used as a
// map key where *btcec.PublicKey itself cannot be.
type nodeKey [33]byte

func keyOf(pub *btcec.PublicKey) nodeKey {
	var k nodeKey
	copy(k[:], pub.SerializeCompressed())
	return k
}

func lessPubKey(a, b *btcec.PublicKey) bool {
	return bytes.Compare(a.SerializeCompressed(), b.SerializeCompressed()) < 0
}

// Graph is the in-memory routing graph: nodes, channels, half-channels,
// and the admission rules that decide whether an incoming message is
// accepted, superseded, or rejected. It owns the Store it persists
// validated messages to, mirroring the combined routing-state/gossip-store
// pairing the on-disk format and trusted-insertion contract assume.
type Graph struct {
	chain   chainhash.Hash
	localID *btcec.PublicKey

	pruneTimeout uint32

	validator Validator
	oracle    FundingOracle
	store     *Store
	dev       *DevConfig

	nodes         map[nodeKey]nodeIndex
	nodeArena     map[nodeIndex]*Node
	nextNodeIndex nodeIndex

	channels         map[uint64]channelIndex
	channelArena     map[channelIndex]*Channel
	nextChannelIndex channelIndex

	pending map[uint64]*PendingAnnouncement

	unupdated map[channelIndex]struct{}

	resolutions chan AnnouncementResolution
}

// AnnouncementResolution carries the result of an asynchronous funding
// oracle lookup started by HandleChannelAnnouncement back to the single
// goroutine that owns every other Graph mutation. It arrives on the
// channel returned by Resolutions and is applied with ApplyResolution.
type AnnouncementResolution struct {
	SCID     lnwire.ShortChannelID
	Capacity btcutil.Amount
	Script   []byte
	Err      error
}

// NewRoutingState constructs a Graph bound to chain, the local node's own
// identity, and the pruning timeout (in seconds) route_prune enforces. dev
// may be nil in a production build.
func NewRoutingState(
	chain chainhash.Hash,
	localID *btcec.PublicKey,
	pruneTimeout uint32,
	store *Store,
	validator Validator,
	oracle FundingOracle,
	dev *DevConfig,
) *Graph {
	return &Graph{
		chain:        chain,
		localID:      localID,
		pruneTimeout: pruneTimeout,
		validator:    validator,
		oracle:       oracle,
		store:        store,
		dev:          dev,
		nodes:        make(map[nodeKey]nodeIndex),
		nodeArena:    make(map[nodeIndex]*Node),
		channels:     make(map[uint64]channelIndex),
		channelArena: make(map[channelIndex]*Channel),
		pending:      make(map[uint64]*PendingAnnouncement),
		unupdated:    make(map[channelIndex]struct{}),
		resolutions:  make(chan AnnouncementResolution, resolutionQueueDepth),
	}
}

// resolutionQueueDepth bounds how many completed oracle lookups may sit
// unapplied before a slow consumer backs up the resolving goroutines.
const resolutionQueueDepth = 64

func (g *Graph) now() uint32 {
	return g.dev.gossipTimeNow()
}

// getOrCreateNode returns the arena slot for pub, creating a fresh Node if
// this is the first time it has been referenced.
func (g *Graph) getOrCreateNode(pub *btcec.PublicKey) nodeIndex {
	k := keyOf(pub)
	if idx, ok := g.nodes[k]; ok {
		return idx
	}

	idx := g.nextNodeIndex
	g.nextNodeIndex++

	g.nodes[k] = idx
	g.nodeArena[idx] = &Node{id: pub, idBytes: k}
	return idx
}

// destroyNodeIfIsolated removes a node once it has no remaining channels
// and no standalone announcement of its own.
func (g *Graph) destroyNodeIfIsolated(idx nodeIndex) {
	n, ok := g.nodeArena[idx]
	if !ok {
		return
	}
	if n.channels.len() > 0 || n.announcementBytes != nil {
		return
	}

	delete(g.nodes, n.idBytes)
	delete(g.nodeArena, idx)
}

// GetNode returns the node with the given identity key, if known.
func (g *Graph) GetNode(pub *btcec.PublicKey) (*Node, bool) {
	idx, ok := g.nodes[keyOf(pub)]
	if !ok {
		return nil, false
	}
	return g.nodeArena[idx], true
}

// GetChannel returns the channel with the given short_channel_id, if
// known.
func (g *Graph) GetChannel(scid lnwire.ShortChannelID) (*Channel, bool) {
	idx, ok := g.channels[scid.ToUint64()]
	if !ok {
		return nil, false
	}
	return g.channelArena[idx], true
}

// ForEachNode calls f once for every node currently in the graph.
func (g *Graph) ForEachNode(f func(*Node) error) error {
	for _, n := range g.nodeArena {
		if err := f(n); err != nil {
			return err
		}
	}
	return nil
}

// ChannelEndpoints returns the two nodes a channel connects, in the same
// order as Endpoint order invariant: the first return value's identity key
// sorts before the second's.
func (g *Graph) ChannelEndpoints(ch *Channel) (*Node, *Node) {
	return g.nodeArena[ch.nodes[0]], g.nodeArena[ch.nodes[1]]
}

// ForEachChannelOfNode calls f once for every channel incident to node.
func (g *Graph) ForEachChannelOfNode(n *Node, f func(*Channel) error) error {
	var ferr error
	n.channels.forEach(func(ci channelIndex) {
		if ferr != nil {
			return
		}
		if c, ok := g.channelArena[ci]; ok {
			ferr = f(c)
		}
	})
	return ferr
}

// validateChainHash is the common chain-hash check every admission path
// performs before touching graph state.
func (g *Graph) validateChainHash(h chainhash.Hash) error {
	if !h.IsEqual(&g.chain) {
		return ErrChainHashMismatch
	}
	return nil
}

// --- channel_announcement ---------------------------------------------

// HandleChannelAnnouncement validates and admits an untrusted
// channel_announcement, enqueuing a PendingAnnouncement for the funding
// oracle to resolve. A byte-identical re-announcement of an existing
// channel is accepted idempotently; a conflicting one is a protocol
// error.
func (g *Graph) HandleChannelAnnouncement(raw []byte, msg *lnwire.ChannelAnnouncement) error {
	if msg.NodeID1.IsEqual(msg.NodeID2) {
		return ErrChannelSelfLoop
	}
	if err := g.validateChainHash(msg.ChainHash); err != nil {
		return err
	}

	scid := msg.ShortChannelID.ToUint64()

	if existing, ok := g.GetChannel(msg.ShortChannelID); ok {
		if existing.announcementBytes != nil && bytes.Equal(existing.announcementBytes, raw) {
			return nil
		}
		return ErrChannelAlreadyExists
	}
	if _, ok := g.pending[scid]; ok {
		return nil
	}

	if err := g.validator.ValidateChannelAnnouncement(msg); err != nil {
		return err
	}

	g.pending[scid] = &PendingAnnouncement{
		Announcement:     msg,
		bufferedNodeAnns: make(map[nodeKey][]byte),
	}

	if g.oracle == nil {
		capacity := btcutil.Amount(0)
		if g.dev != nil && g.dev.UnknownChannelCapacity != nil {
			capacity = *g.dev.UnknownChannelCapacity
		}
		return g.HandlePendingChannelAnnouncement(msg.ShortChannelID, capacity, nil)
	}

	// The oracle lookup runs in its own goroutine and reports back on
	// g.resolutions; the channel stays pending — buffering any update or
	// node_announcement that names it in the meantime — until whoever
	// drives this Graph's event loop calls ApplyResolution.
	go g.resolveViaOracle(msg.ShortChannelID)
	return nil
}

// resolveViaOracle performs the blocking funding oracle round trip for
// scid and reports the outcome on g.resolutions. It must not touch any
// other Graph state: the single-threaded event loop applies the result.
func (g *Graph) resolveViaOracle(scid lnwire.ShortChannelID) {
	out, err := g.oracle.ResolveChannel(scid)

	res := AnnouncementResolution{SCID: scid, Err: err}
	if err == nil {
		res.Capacity = out.Capacity
		res.Script = out.PkScript
	}
	g.resolutions <- res
}

// Resolutions returns the channel that completed funding-oracle lookups
// arrive on. The event loop that owns this Graph selects on it alongside
// its other event sources and applies each result with ApplyResolution.
func (g *Graph) Resolutions() <-chan AnnouncementResolution {
	return g.resolutions
}

// ApplyResolution completes one outstanding announcement's oracle round
// trip. On success it inserts the channel and replays any buffered
// followers via HandlePendingChannelAnnouncement; on failure it discards
// the pending entry, matching the inline dev-mode fallback's behavior.
func (g *Graph) ApplyResolution(res AnnouncementResolution) error {
	if res.Err != nil {
		delete(g.pending, res.SCID.ToUint64())
		return nil
	}
	return g.HandlePendingChannelAnnouncement(res.SCID, res.Capacity, res.Script)
}

// HandlePendingChannelAnnouncement completes a pending announcement once
// the funding oracle has confirmed (or the developer override has
// supplied) the funding output. It verifies the reported script is
// consistent with the announcement's bitcoin keys, inserts the channel,
// and replays any buffered followers.
func (g *Graph) HandlePendingChannelAnnouncement(scid lnwire.ShortChannelID, capacity btcutil.Amount, script []byte) error {
	key := scid.ToUint64()
	pending, ok := g.pending[key]
	if !ok {
		return nil
	}
	delete(g.pending, key)

	msg := pending.Announcement
	if script != nil {
		expected := twoOfTwoScript(msg.BitcoinKey1, msg.BitcoinKey2)
		if !bytes.Equal(script, expected) {
			return ErrInvalidFundingScript
		}
	}

	if err := g.RoutingAddChannelAnnouncement(msg, capacity, 0); err != nil {
		return err
	}

	for _, raw := range pending.bufferedUpdates {
		upd := &lnwire.ChannelUpdate{}
		if err := upd.Decode(bytes.NewReader(raw[2:])); err == nil {
			_ = g.HandleChannelUpdate(raw, upd)
		}
	}
	for _, raw := range pending.bufferedNodeAnns {
		ann := &lnwire.NodeAnnouncement{}
		if err := ann.Decode(bytes.NewReader(raw[2:])); err == nil {
			_ = g.HandleNodeAnnouncement(raw, ann)
		}
	}

	return nil
}

// twoOfTwoScript builds the canonical 2-of-2 multisig script for the two
// bitcoin keys named in a channel_announcement, in the order the keys
// appear on the wire.
func twoOfTwoScript(a, b *btcec.PublicKey) []byte {
	var buf bytes.Buffer
	buf.WriteByte(0x52) // OP_2
	buf.WriteByte(0x21) // push 33 bytes
	buf.Write(a.SerializeCompressed())
	buf.WriteByte(0x21)
	buf.Write(b.SerializeCompressed())
	buf.WriteByte(0x52) // OP_2
	buf.WriteByte(0xae) // OP_CHECKMULTISIG
	return buf.Bytes()
}

// RoutingAddChannelAnnouncement is the trusted insertion entry point for
// a resolved channel_announcement: it skips signature checks and the
// oracle round-trip entirely. index == 0 means "persist and assign a
// fresh index"; any other value is a known store offset supplied during
// replay.
func (g *Graph) RoutingAddChannelAnnouncement(msg *lnwire.ChannelAnnouncement, capacity btcutil.Amount, index uint32) error {
	n1 := msg.NodeID1
	n2 := msg.NodeID2
	if !lessPubKey(n1, n2) {
		n1, n2 = n2, n1
	}

	idx1 := g.getOrCreateNode(n1)
	idx2 := g.getOrCreateNode(n2)

	ci := g.nextChannelIndex
	g.nextChannelIndex++

	raw, err := lnwire.EncodeMessage(msg)
	if err != nil {
		return err
	}

	ch := &Channel{
		scid:              msg.ShortChannelID,
		nodes:             [2]nodeIndex{idx1, idx2},
		capacity:          capacity,
		announcementBytes: raw,
	}

	if index == 0 {
		wrapper, err := lnwire.NewChannelAnnouncementWrapper(msg, capacity)
		if err != nil {
			return err
		}
		payload, err := lnwire.EncodeMessage(wrapper)
		if err != nil {
			return err
		}
		off, err := g.store.Append(payload)
		if err != nil {
			return err
		}
		index = off
	}
	ch.broadcast.Index = index

	g.channels[msg.ShortChannelID.ToUint64()] = ci
	g.channelArena[ci] = ch
	g.unupdated[ci] = struct{}{}

	g.nodeArena[idx1].channels.add(ci)
	g.nodeArena[idx2].channels.add(ci)

	return nil
}

// --- channel_update ------------------------------------------------------

// HandleChannelUpdate validates and admits an untrusted channel_update.
// If no channel is known yet but a PendingAnnouncement exists for the
// same short_channel_id, the update is buffered; otherwise it is silently
// dropped, since we may simply not know the channel yet.
func (g *Graph) HandleChannelUpdate(raw []byte, msg *lnwire.ChannelUpdate) error {
	if err := g.validateChainHash(msg.ChainHash); err != nil {
		return err
	}

	scid := msg.ShortChannelID.ToUint64()

	ch, ok := g.GetChannel(msg.ShortChannelID)
	if !ok {
		if pending, ok := g.pending[scid]; ok {
			pending.bufferedUpdates = append(pending.bufferedUpdates, raw)
		}
		return nil
	}

	direction := msg.Direction()
	half := &ch.half[direction]

	if half.present {
		if msg.Timestamp < half.broadcast.Timestamp {
			return nil
		}
		if msg.Timestamp == half.broadcast.Timestamp {
			if bytes.Equal(half.updateBytes, raw) {
				return nil
			}
			return fmt.Errorf("conflicting channel_update at identical timestamp")
		}
	}

	signer := ch.nodes[direction]
	signerNode, ok := g.nodeArena[signer]
	if !ok {
		return ErrGraphNodeNotFound
	}

	if err := g.validator.ValidateChannelUpdate(msg, signerNode.id); err != nil {
		return err
	}

	return g.RoutingAddChannelUpdate(msg, 0)
}

// RoutingAddChannelUpdate is the trusted insertion entry point for a
// channel_update: it skips the signature check and supersede-timestamp
// gate performed by HandleChannelUpdate (the caller is assumed to have
// already satisfied them, or to be replaying a validated record).
func (g *Graph) RoutingAddChannelUpdate(msg *lnwire.ChannelUpdate, index uint32) error {
	ch, ok := g.GetChannel(msg.ShortChannelID)
	if !ok {
		return ErrEdgeNotFound
	}

	raw, err := lnwire.EncodeMessage(msg)
	if err != nil {
		return err
	}

	if index == 0 {
		wrapper, err := lnwire.NewChannelUpdateWrapper(msg)
		if err != nil {
			return err
		}
		payload, err := lnwire.EncodeMessage(wrapper)
		if err != nil {
			return err
		}
		off, err := g.store.Append(payload)
		if err != nil {
			return err
		}
		index = off
	}

	direction := msg.Direction()
	half := &ch.half[direction]

	wasUnannounced := !ch.announced()

	half.present = true
	half.updateBytes = raw
	half.transientlyDisabled = false
	half.broadcast = BroadcastDescriptor{Timestamp: msg.Timestamp, Index: index}
	half.messageFlags = msg.MessageFlags
	half.channelFlags = msg.ChannelFlags
	half.cltvDelta = msg.TimeLockDelta
	half.htlcMinimumMsat = msg.HtlcMinimumMsat
	half.baseFee = msg.BaseFee
	half.proportionalFee = msg.FeeProportionalMillionths
	if msg.HasMaxHtlc() {
		half.htlcMaximumMsat = msg.HtlcMaximumMsat
	}

	ci := g.channels[ch.scid.ToUint64()]
	if wasUnannounced && ch.announced() {
		delete(g.unupdated, ci)
	}

	return nil
}

// --- node_announcement ----------------------------------------------------

// HandleNodeAnnouncement validates and admits an untrusted
// node_announcement. An announcement for a node with no channels and no
// prior announcement is dropped silently: we have no reason to remember
// an isolated, unintroduced node.
func (g *Graph) HandleNodeAnnouncement(raw []byte, msg *lnwire.NodeAnnouncement) error {
	n, ok := g.GetNode(msg.NodeID)
	if !ok {
		if pendingHasNode(g, msg.NodeID) {
			g.bufferNodeAnn(msg.NodeID, raw)
			return nil
		}
		return nil
	}

	if n.announcement != nil {
		if msg.Timestamp < n.broadcast.Timestamp {
			return nil
		}
		if msg.Timestamp == n.broadcast.Timestamp {
			if bytes.Equal(n.announcementBytes, raw) {
				return nil
			}
			return fmt.Errorf("conflicting node_announcement at identical timestamp")
		}
	}

	if err := g.validator.ValidateNodeAnnouncement(msg); err != nil {
		return err
	}

	return g.RoutingAddNodeAnnouncement(msg, 0)
}

func pendingHasNode(g *Graph, pub *btcec.PublicKey) bool {
	for _, p := range g.pending {
		if p.Announcement.NodeID1.IsEqual(pub) || p.Announcement.NodeID2.IsEqual(pub) {
			return true
		}
	}
	return false
}

func (g *Graph) bufferNodeAnn(pub *btcec.PublicKey, raw []byte) {
	for _, p := range g.pending {
		if p.Announcement.NodeID1.IsEqual(pub) || p.Announcement.NodeID2.IsEqual(pub) {
			p.bufferedNodeAnns[keyOf(pub)] = raw
		}
	}
}

// RoutingAddNodeAnnouncement is the trusted insertion entry point for a
// node_announcement.
func (g *Graph) RoutingAddNodeAnnouncement(msg *lnwire.NodeAnnouncement, index uint32) error {
	idx := g.getOrCreateNode(msg.NodeID)
	n := g.nodeArena[idx]

	raw, err := lnwire.EncodeMessage(msg)
	if err != nil {
		return err
	}

	if index == 0 {
		wrapper, err := lnwire.NewNodeAnnouncementWrapper(msg)
		if err != nil {
			return err
		}
		payload, err := lnwire.EncodeMessage(wrapper)
		if err != nil {
			return err
		}
		off, err := g.store.Append(payload)
		if err != nil {
			return err
		}
		index = off
	}

	n.announcement = msg
	n.announcementBytes = raw
	n.broadcast = BroadcastDescriptor{Timestamp: msg.Timestamp, Index: index}

	return nil
}

// --- local channels, deletion, pruning ------------------------------------

// HandleLocalAddChannel inserts a unidirectional view of a private
// channel using locally known capacity. It is never propagated to peers
// but is persisted so it survives restart.
func (g *Graph) HandleLocalAddChannel(msg *lnwire.LocalAddChannel) error {
	return g.RoutingAddLocalChannel(msg, 0)
}

// RoutingAddLocalChannel is the trusted insertion entry point for a
// locally-known private channel.
func (g *Graph) RoutingAddLocalChannel(msg *lnwire.LocalAddChannel, index uint32) error {
	if _, ok := g.GetChannel(msg.ShortChannelID); ok {
		return ErrChannelAlreadyExists
	}

	n1, n2 := msg.NodeID1, msg.NodeID2
	direction := msg.Direction
	if !lessPubKey(n1, n2) {
		n1, n2 = n2, n1
		direction = 1 - direction
	}

	idx1 := g.getOrCreateNode(n1)
	idx2 := g.getOrCreateNode(n2)

	ci := g.nextChannelIndex
	g.nextChannelIndex++

	raw, err := lnwire.EncodeMessage(msg)
	if err != nil {
		return err
	}

	if index == 0 {
		payload, err := lnwire.EncodeMessage(&lnwire.LocalAddChannelWrapper{LocalAddBytes: raw})
		if err != nil {
			return err
		}
		off, err := g.store.Append(payload)
		if err != nil {
			return err
		}
		index = off
	}

	ch := &Channel{
		scid:          msg.ShortChannelID,
		nodes:         [2]nodeIndex{idx1, idx2},
		capacity:      msg.Capacity.ToSatoshis(),
		localAddBytes: raw,
	}
	ch.broadcast.Index = index
	ch.half[direction] = HalfChannel{
		present:         true,
		broadcast:       BroadcastDescriptor{Timestamp: g.now(), Index: index},
		cltvDelta:       msg.CLTVDelta,
		htlcMinimumMsat: msg.HtlcMinimumMsat,
		baseFee:         msg.BaseFee,
		proportionalFee: msg.FeeProportionalMillionths,
	}

	g.channels[msg.ShortChannelID.ToUint64()] = ci
	g.channelArena[ci] = ch

	g.nodeArena[idx1].channels.add(ci)
	g.nodeArena[idx2].channels.add(ci)

	return nil
}

// ChannelDelete removes scid and both its half-channels, demoting
// endpoint nodes that become isolated, and persists a deletion record.
// Deleting a channel that does not exist is a silent no-op.
func (g *Graph) ChannelDelete(scid lnwire.ShortChannelID) error {
	key := scid.ToUint64()
	ci, ok := g.channels[key]
	if !ok {
		return nil
	}
	ch := g.channelArena[ci]

	delete(g.channels, key)
	delete(g.channelArena, ci)
	delete(g.unupdated, ci)

	for _, idx := range ch.nodes {
		if n, ok := g.nodeArena[idx]; ok {
			n.channels.remove(ci)
			g.destroyNodeIfIsolated(idx)
		}
	}

	wrapper := &lnwire.ChannelDeleteWrapper{ShortChannelID: scid}
	payload, err := lnwire.EncodeMessage(wrapper)
	if err != nil {
		return err
	}
	_, err = g.store.Append(payload)
	return err
}

// SetLocalDisabled marks (or clears) the local-disconnect flag on scid,
// used when a local peer link goes down or comes back up.
func (g *Graph) SetLocalDisabled(scid lnwire.ShortChannelID, disabled bool) error {
	ch, ok := g.GetChannel(scid)
	if !ok {
		return ErrEdgeNotFound
	}
	ch.localDisabled = disabled
	return nil
}

// SetHalfChannelUnusable marks (or clears) the transient-failure flag on
// one direction of scid, used by a temporary onion routing failure. A
// fresh channel_update admitted for that direction clears the flag again.
func (g *Graph) SetHalfChannelUnusable(scid lnwire.ShortChannelID, direction uint8, unusable bool) error {
	ch, ok := g.GetChannel(scid)
	if !ok {
		return ErrEdgeNotFound
	}
	ch.half[direction].transientlyDisabled = unusable
	return nil
}

// NodeDelete removes pub and every channel incident to it, used by a
// permanent onion node failure. Deleting a node that is not present is a
// silent no-op.
func (g *Graph) NodeDelete(pub *btcec.PublicKey) error {
	idx, ok := g.nodes[keyOf(pub)]
	if !ok {
		return nil
	}
	n := g.nodeArena[idx]

	var incident []lnwire.ShortChannelID
	n.channels.forEach(func(ci channelIndex) {
		if ch, ok := g.channelArena[ci]; ok {
			incident = append(incident, ch.scid)
		}
	})

	for _, scid := range incident {
		if err := g.ChannelDelete(scid); err != nil {
			return err
		}
	}

	delete(g.nodes, n.idBytes)
	delete(g.nodeArena, idx)
	return nil
}

// RoutePrune deletes every channel whose freshest half-channel update is
// older than now - pruneTimeout, collapsing endpoint nodes that become
// isolated as a result.
func (g *Graph) RoutePrune() (int, error) {
	now := g.now()
	var toDelete []lnwire.ShortChannelID

	for _, ch := range g.channelArena {
		freshest := uint32(0)
		if ch.half[0].present && ch.half[0].broadcast.Timestamp > freshest {
			freshest = ch.half[0].broadcast.Timestamp
		}
		if ch.half[1].present && ch.half[1].broadcast.Timestamp > freshest {
			freshest = ch.half[1].broadcast.Timestamp
		}
		if freshest == 0 {
			continue
		}
		if now > freshest && now-freshest > g.pruneTimeout {
			toDelete = append(toDelete, ch.scid)
		}
	}

	for _, scid := range toDelete {
		if err := g.ChannelDelete(scid); err != nil {
			return 0, err
		}
	}
	return len(toDelete), nil
}

// ForEachBroadcastable calls f once for every channel currently eligible
// for rebroadcast, in an unspecified order. Used by Control to build the
// record set for Store.Rewrite.
func (g *Graph) ForEachBroadcastable(f func(*Channel) error) error {
	for _, ch := range g.channelArena {
		if !ch.announced() || !ch.public() {
			continue
		}
		if err := f(ch); err != nil {
			return err
		}
	}
	return nil
}

// LiveCount returns the number of channels currently eligible for
// rebroadcast, used to compute Store's staleness ratio.
func (g *Graph) LiveCount() uint32 {
	var n uint32
	for _, ch := range g.channelArena {
		if ch.announced() && ch.public() {
			n++
		}
	}
	return n
}

// BuildRewriteRecords gathers every still-live record this graph knows
// about into the form Store.Rewrite wants: one record per broadcastable
// channel_announcement and each of its present half-channel updates, one
// record per node_announcement belonging to an endpoint of a broadcastable
// channel, and one record per surviving local-only channel. Everything
// else — deleted channels, buffered-but-never-resolved pending
// announcements, and channels whose counterpart direction never arrived —
// is simply absent from the rewritten file, which is the entire point of
// rewriting. Each record's SetIndex callback, invoked by Store.Rewrite
// after the new file is in place, updates the corresponding broadcast
// descriptor so future appends are computed against the new offsets.
func (g *Graph) BuildRewriteRecords() []RewriteRecord {
	var records []RewriteRecord
	seenNodes := make(map[nodeIndex]struct{})

	addNodeRecord := func(idx nodeIndex) {
		if _, ok := seenNodes[idx]; ok {
			return
		}
		seenNodes[idx] = struct{}{}

		n, ok := g.nodeArena[idx]
		if !ok || n.announcementBytes == nil {
			return
		}

		payload, err := lnwire.EncodeMessage(&lnwire.NodeAnnouncementWrapper{
			AnnouncementBytes: n.announcementBytes,
		})
		if err != nil {
			return
		}

		records = append(records, RewriteRecord{
			Payload:  payload,
			SetIndex: func(index uint32) { n.broadcast.Index = index },
		})
	}

	for _, ch := range g.channelArena {
		ch := ch

		switch {
		case ch.announced() && ch.public():
			payload, err := lnwire.EncodeMessage(&lnwire.ChannelAnnouncementWrapper{
				AnnouncementBytes: ch.announcementBytes,
				Capacity:          ch.capacity,
			})
			if err != nil {
				continue
			}
			records = append(records, RewriteRecord{
				Payload:  payload,
				SetIndex: func(index uint32) { ch.broadcast.Index = index },
			})

			for d := uint8(0); d < 2; d++ {
				half := &ch.half[d]
				if !half.present {
					continue
				}
				d := d

				payload, err := lnwire.EncodeMessage(&lnwire.ChannelUpdateWrapper{
					UpdateBytes: half.updateBytes,
				})
				if err != nil {
					continue
				}
				records = append(records, RewriteRecord{
					Payload:  payload,
					SetIndex: func(index uint32) { ch.half[d].broadcast.Index = index },
				})
			}

			addNodeRecord(ch.nodes[0])
			addNodeRecord(ch.nodes[1])

		case ch.localAddBytes != nil:
			payload, err := lnwire.EncodeMessage(&lnwire.LocalAddChannelWrapper{
				LocalAddBytes: ch.localAddBytes,
			})
			if err != nil {
				continue
			}
			records = append(records, RewriteRecord{
				Payload:  payload,
				SetIndex: func(index uint32) { ch.broadcast.Index = index },
			})
		}
	}

	return records
}
