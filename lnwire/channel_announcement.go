package lnwire

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChannelAnnouncement announces the existence of a channel and binds it to
// its funding transaction via the two bitcoin keys. Acceptance requires all
// four embedded signatures to verify: the two node signatures prove control
// of the advertised node identities, the two bitcoin signatures prove
// control of the keys used in the funding output's 2-of-2 multisig.
type ChannelAnnouncement struct {
	NodeSig1    Sig
	NodeSig2    Sig
	BitcoinSig1 Sig
	BitcoinSig2 Sig

	Features *RawFeatureVector

	ChainHash chainhash.Hash

	ShortChannelID ShortChannelID

	NodeID1     *btcec.PublicKey
	NodeID2     *btcec.PublicKey
	BitcoinKey1 *btcec.PublicKey
	BitcoinKey2 *btcec.PublicKey
}

var _ Message = (*ChannelAnnouncement)(nil)

// MsgType returns the wire message type for a channel_announcement.
func (c *ChannelAnnouncement) MsgType() MessageType {
	return MsgChannelAnnouncement
}

// DataToSign returns the portion of the message covered by all four
// signatures.
func (c *ChannelAnnouncement) DataToSign() ([]byte, error) {
	var w bytes.Buffer

	if c.Features == nil {
		c.Features = NewRawFeatureVector()
	}
	if err := c.Features.Encode(&w); err != nil {
		return nil, err
	}
	if _, err := w.Write(c.ChainHash[:]); err != nil {
		return nil, err
	}
	if err := c.ShortChannelID.Encode(&w); err != nil {
		return nil, err
	}
	for _, pub := range []*btcec.PublicKey{
		c.NodeID1, c.NodeID2, c.BitcoinKey1, c.BitcoinKey2,
	} {
		if _, err := w.Write(pub.SerializeCompressed()); err != nil {
			return nil, err
		}
	}

	return w.Bytes(), nil
}

// Encode serializes the announcement, signatures included, to w.
func (c *ChannelAnnouncement) Encode(w io.Writer) error {
	for _, sig := range []Sig{
		c.NodeSig1, c.NodeSig2, c.BitcoinSig1, c.BitcoinSig2,
	} {
		if err := sig.Encode(w); err != nil {
			return err
		}
	}

	body, err := c.DataToSign()
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// Decode reads a channel_announcement from r.
func (c *ChannelAnnouncement) Decode(r io.Reader) error {
	for _, sig := range []*Sig{
		&c.NodeSig1, &c.NodeSig2, &c.BitcoinSig1, &c.BitcoinSig2,
	} {
		if err := sig.Decode(r); err != nil {
			return err
		}
	}

	c.Features = &RawFeatureVector{}
	if err := c.Features.Decode(r); err != nil {
		return err
	}

	if _, err := io.ReadFull(r, c.ChainHash[:]); err != nil {
		return err
	}

	if err := c.ShortChannelID.Decode(r); err != nil {
		return err
	}

	keys := make([]**btcec.PublicKey, 4)
	keys[0], keys[1], keys[2], keys[3] =
		&c.NodeID1, &c.NodeID2, &c.BitcoinKey1, &c.BitcoinKey2
	for _, kp := range keys {
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

	return nil
}
