package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

// LocalAddChannel describes a private, locally-known channel: one whose
// existence and capacity are learned directly (e.g. from the wallet) rather
// than from a signed channel_announcement. It carries enough of a routing
// policy for the local side to originate payments over it, but it is never
// relayed to peers.
type LocalAddChannel struct {
	ShortChannelID ShortChannelID

	Capacity MilliSatoshi

	// NodeID1, NodeID2 are the channel endpoints, ordered the same way
	// a public channel's endpoints are: NodeID1 sorts before NodeID2.
	NodeID1 *btcec.PublicKey
	NodeID2 *btcec.PublicKey

	// Direction is 0 or 1, identifying which endpoint the policy below
	// describes, matching ChannelUpdate.Direction.
	Direction uint8

	CLTVDelta uint16

	HtlcMinimumMsat MilliSatoshi

	BaseFee MilliSatoshi

	FeeProportionalMillionths uint32
}

var _ Message = (*LocalAddChannel)(nil)

// MsgType returns the wire message type for a local-add-channel record.
func (l *LocalAddChannel) MsgType() MessageType {
	return MsgLocalAddChannel
}

// Encode serializes the local channel record to w.
func (l *LocalAddChannel) Encode(w io.Writer) error {
	if err := l.ShortChannelID.Encode(w); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(l.Capacity)); err != nil {
		return err
	}
	if _, err := w.Write(l.NodeID1.SerializeCompressed()); err != nil {
		return err
	}
	if _, err := w.Write(l.NodeID2.SerializeCompressed()); err != nil {
		return err
	}
	if _, err := w.Write([]byte{l.Direction}); err != nil {
		return err
	}
	if err := writeUint16(w, l.CLTVDelta); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(l.HtlcMinimumMsat)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(l.BaseFee)); err != nil {
		return err
	}
	return writeUint32(w, l.FeeProportionalMillionths)
}

// Decode reads a local-add-channel record from r.
func (l *LocalAddChannel) Decode(r io.Reader) error {
	if err := l.ShortChannelID.Decode(r); err != nil {
		return err
	}

	capacity, err := readUint64(r)
	if err != nil {
		return err
	}
	l.Capacity = MilliSatoshi(capacity)

	for _, kp := range []**btcec.PublicKey{&l.NodeID1, &l.NodeID2} {
		var raw [33]byte
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return err
		}
		pub, err := btcec.ParsePubKey(raw[:])
		if err != nil {
			return err
		}
		*kp = pub
	}

	var direction [1]byte
	if _, err := io.ReadFull(r, direction[:]); err != nil {
		return err
	}
	l.Direction = direction[0]

	delta, err := readUint16(r)
	if err != nil {
		return err
	}
	l.CLTVDelta = delta

	htlcMin, err := readUint64(r)
	if err != nil {
		return err
	}
	l.HtlcMinimumMsat = MilliSatoshi(htlcMin)

	baseFee, err := readUint64(r)
	if err != nil {
		return err
	}
	l.BaseFee = MilliSatoshi(baseFee)

	propFee, err := readUint32(r)
	if err != nil {
		return err
	}
	l.FeeProportionalMillionths = propFee

	return nil
}
