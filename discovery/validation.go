package discovery

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-errors/errors"
	"github.com/lightningnetwork/lnd-gossipd/channeldb"
	"github.com/lightningnetwork/lnd-gossipd/lnwire"
)

// SignatureValidator implements channeldb.Validator by checking the
// signatures embedded in each gossip message type against the keys the
// message itself advertises.
type SignatureValidator struct{}

var _ channeldb.Validator = (*SignatureValidator)(nil)

// ValidateChannelAnnouncement checks that both bitcoin signatures cover the
// announcement digest under the advertised bitcoin keys, and both node
// signatures cover it under the advertised node identities.
func (SignatureValidator) ValidateChannelAnnouncement(a *lnwire.ChannelAnnouncement) error {
	data, err := a.DataToSign()
	if err != nil {
		return err
	}
	dataHash := chainhash.DoubleHashB(data)

	if !a.BitcoinSig1.Verify(dataHash, a.BitcoinKey1) {
		return errors.New("can't verify first bitcoin signature")
	}
	if !a.BitcoinSig2.Verify(dataHash, a.BitcoinKey2) {
		return errors.New("can't verify second bitcoin signature")
	}
	if !a.NodeSig1.Verify(dataHash, a.NodeID1) {
		return errors.New("can't verify data in first node signature")
	}
	if !a.NodeSig2.Verify(dataHash, a.NodeID2) {
		return errors.New("can't verify data in second node signature")
	}

	return nil
}

// ValidateNodeAnnouncement checks that the announcement's signature covers
// its digest under its own embedded node id.
func (SignatureValidator) ValidateNodeAnnouncement(a *lnwire.NodeAnnouncement) error {
	data, err := a.DataToSign()
	if err != nil {
		return err
	}
	dataHash := chainhash.DoubleHashB(data)
	if !a.Signature.Verify(dataHash, a.NodeID) {
		return errors.New("signature on node announcement is invalid")
	}
	return nil
}

// ValidateChannelUpdate checks that the update's signature covers its
// digest under signer, the node identity of the endpoint the update's
// direction bit names.
func (SignatureValidator) ValidateChannelUpdate(a *lnwire.ChannelUpdate, signer *btcec.PublicKey) error {
	data, err := a.DataToSign()
	if err != nil {
		return errors.Errorf("unable to reconstruct message: %v", err)
	}
	dataHash := chainhash.DoubleHashB(data)

	if !a.Signature.Verify(dataHash, signer) {
		return errors.Errorf("invalid signature for channel update %v",
			spew.Sdump(a))
	}

	return nil
}
