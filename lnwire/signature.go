package lnwire

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// sigLen is the length of the fixed-size, big-endian r||s encoding used to
// carry a signature on the wire.
const sigLen = 64

// Sig is a fixed-size wire encoding of an ECDSA signature: 32 bytes of R
// followed by 32 bytes of S, both big-endian, with no DER framing. It
// stands in for the raw *ecdsa.Signature so that gossip messages can
// Encode/Decode it without allocating on every field access.
type Sig [sigLen]byte

// NewSigFromSignature converts a decoded ECDSA signature into its 64-byte
// wire form.
func NewSigFromSignature(sig *ecdsa.Signature) (Sig, error) {
	if sig == nil {
		return Sig{}, fmt.Errorf("cannot encode nil signature")
	}

	var s Sig
	r := sig.R()
	v := sig.S()

	rBytes := r.Bytes()
	sBytes := v.Bytes()

	copy(s[:32], rBytes[:])
	copy(s[32:], sBytes[:])
	return s, nil
}

// ToSignature decodes the fixed-size wire form back into an ECDSA
// signature usable for verification.
func (s Sig) ToSignature() (*ecdsa.Signature, error) {
	var r, v btcec.ModNScalar
	r.SetByteSlice(s[:32])
	v.SetByteSlice(s[32:])

	return ecdsa.NewSignature(&r, &v), nil
}

// Verify checks the signature over digest using pub, treating a failure to
// parse the signature as a verification failure.
func (s Sig) Verify(digest []byte, pub *btcec.PublicKey) bool {
	sig, err := s.ToSignature()
	if err != nil {
		return false
	}
	return sig.Verify(digest, pub)
}

// Encode writes the fixed 64-byte signature to w.
func (s Sig) Encode(w io.Writer) error {
	_, err := w.Write(s[:])
	return err
}

// Decode reads a fixed 64-byte signature from r.
func (s *Sig) Decode(r io.Reader) error {
	_, err := io.ReadFull(r, s[:])
	return err
}
