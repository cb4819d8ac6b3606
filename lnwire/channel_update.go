package lnwire

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChanUpdateMsgFlag records which optional fields are present in a
// ChannelUpdate. Today the only discriminated optional field is the
// maximum HTLC amount.
type ChanUpdateMsgFlag uint8

// ChanUpdateMaxHtlcFlag is set when HtlcMaximumMsat carries a meaningful
// value rather than being absent.
const ChanUpdateMaxHtlcFlag ChanUpdateMsgFlag = 1 << 0

// ChanUpdateChanFlag packs the update's direction bit and disabled bit.
type ChanUpdateChanFlag uint8

const (
	// ChanUpdateDirection is set when this update describes the policy
	// from node 1 to node 0; clear for node 0 to node 1.
	ChanUpdateDirection ChanUpdateChanFlag = 1 << 0

	// ChanUpdateDisabled is set when the advertising node considers the
	// channel temporarily unusable in this direction.
	ChanUpdateDisabled ChanUpdateChanFlag = 1 << 1
)

// ChannelUpdate carries one endpoint's routing policy for one direction of
// a channel: fees, CLTV delta, and HTLC size bounds.
type ChannelUpdate struct {
	Signature Sig

	ChainHash chainhash.Hash

	ShortChannelID ShortChannelID

	Timestamp uint32

	MessageFlags ChanUpdateMsgFlag
	ChannelFlags ChanUpdateChanFlag

	TimeLockDelta uint16

	HtlcMinimumMsat MilliSatoshi

	BaseFee MilliSatoshi

	FeeProportionalMillionths uint32

	// HtlcMaximumMsat is meaningful only when MessageFlags has
	// ChanUpdateMaxHtlcFlag set.
	HtlcMaximumMsat MilliSatoshi
}

var _ Message = (*ChannelUpdate)(nil)

// MsgType returns the wire message type for a channel_update.
func (c *ChannelUpdate) MsgType() MessageType {
	return MsgChannelUpdate
}

// Direction returns 0 or 1, the index of the node this update's policy
// applies to when travelling outward from it.
func (c *ChannelUpdate) Direction() uint8 {
	if c.ChannelFlags&ChanUpdateDirection != 0 {
		return 1
	}
	return 0
}

// IsDisabled reports whether the advertising node has marked this
// direction unusable.
func (c *ChannelUpdate) IsDisabled() bool {
	return c.ChannelFlags&ChanUpdateDisabled != 0
}

// HasMaxHtlc reports whether HtlcMaximumMsat carries a meaningful value.
func (c *ChannelUpdate) HasMaxHtlc() bool {
	return c.MessageFlags&ChanUpdateMaxHtlcFlag != 0
}

// DataToSign returns the portion of the message covered by Signature.
func (c *ChannelUpdate) DataToSign() ([]byte, error) {
	var w bytes.Buffer

	if _, err := w.Write(c.ChainHash[:]); err != nil {
		return nil, err
	}
	if err := c.ShortChannelID.Encode(&w); err != nil {
		return nil, err
	}
	if err := writeUint32(&w, c.Timestamp); err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte{byte(c.MessageFlags), byte(c.ChannelFlags)}); err != nil {
		return nil, err
	}
	if err := writeUint16(&w, c.TimeLockDelta); err != nil {
		return nil, err
	}
	if err := writeUint64(&w, uint64(c.HtlcMinimumMsat)); err != nil {
		return nil, err
	}
	if err := writeUint64(&w, uint64(c.BaseFee)); err != nil {
		return nil, err
	}
	if err := writeUint32(&w, c.FeeProportionalMillionths); err != nil {
		return nil, err
	}
	if c.HasMaxHtlc() {
		if err := writeUint64(&w, uint64(c.HtlcMaximumMsat)); err != nil {
			return nil, err
		}
	}

	return w.Bytes(), nil
}

// Encode serializes the update, signature included, to w.
func (c *ChannelUpdate) Encode(w io.Writer) error {
	if err := c.Signature.Encode(w); err != nil {
		return err
	}

	body, err := c.DataToSign()
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// Decode reads a channel_update from r.
func (c *ChannelUpdate) Decode(r io.Reader) error {
	if err := c.Signature.Decode(r); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, c.ChainHash[:]); err != nil {
		return err
	}
	if err := c.ShortChannelID.Decode(r); err != nil {
		return err
	}

	timestamp, err := readUint32(r)
	if err != nil {
		return err
	}
	c.Timestamp = timestamp

	var flags [2]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return err
	}
	c.MessageFlags = ChanUpdateMsgFlag(flags[0])
	c.ChannelFlags = ChanUpdateChanFlag(flags[1])

	delta, err := readUint16(r)
	if err != nil {
		return err
	}
	c.TimeLockDelta = delta

	htlcMin, err := readUint64(r)
	if err != nil {
		return err
	}
	c.HtlcMinimumMsat = MilliSatoshi(htlcMin)

	baseFee, err := readUint64(r)
	if err != nil {
		return err
	}
	c.BaseFee = MilliSatoshi(baseFee)

	propFee, err := readUint32(r)
	if err != nil {
		return err
	}
	c.FeeProportionalMillionths = propFee

	if c.HasMaxHtlc() {
		htlcMax, err := readUint64(r)
		if err != nil {
			return err
		}
		c.HtlcMaximumMsat = MilliSatoshi(htlcMax)
	}

	return nil
}
