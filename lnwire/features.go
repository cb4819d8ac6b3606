package lnwire

import "io"

// RawFeatureVector is a bitfield of feature bits advertised in a
// node_announcement or channel_announcement, encoded on the wire as a
// 2-byte length followed by that many bytes of big-endian bits (bit 0 is
// the least significant bit of the last byte).
type RawFeatureVector struct {
	bits map[uint16]struct{}
}

// NewRawFeatureVector returns a FeatureVector with the given bits set.
func NewRawFeatureVector(bits ...uint16) *RawFeatureVector {
	v := &RawFeatureVector{bits: make(map[uint16]struct{}, len(bits))}
	for _, b := range bits {
		v.bits[b] = struct{}{}
	}
	return v
}

// IsSet returns true if the given feature bit is set.
func (v *RawFeatureVector) IsSet(bit uint16) bool {
	if v == nil {
		return false
	}
	_, ok := v.bits[bit]
	return ok
}

// Encode serializes the feature vector as a length-prefixed bitfield.
func (v *RawFeatureVector) Encode(w io.Writer) error {
	if v == nil || len(v.bits) == 0 {
		return writeVarBytes(w, nil)
	}

	max := uint16(0)
	for b := range v.bits {
		if b > max {
			max = b
		}
	}
	numBytes := int(max)/8 + 1
	buf := make([]byte, numBytes)
	for b := range v.bits {
		byteIdx := numBytes - 1 - int(b)/8
		buf[byteIdx] |= 1 << (b % 8)
	}

	return writeVarBytes(w, buf)
}

// Decode deserializes a length-prefixed bitfield into the feature vector.
func (v *RawFeatureVector) Decode(r io.Reader) error {
	buf, err := readVarBytes(r)
	if err != nil {
		return err
	}

	v.bits = make(map[uint16]struct{})
	numBytes := len(buf)
	for i, octet := range buf {
		if octet == 0 {
			continue
		}
		byteIdx := numBytes - 1 - i
		for bit := 0; bit < 8; bit++ {
			if octet&(1<<uint(bit)) != 0 {
				v.bits[uint16(byteIdx*8+bit)] = struct{}{}
			}
		}
	}
	return nil
}
