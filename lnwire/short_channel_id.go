package lnwire

import (
	"fmt"
	"io"
)

// ShortChannelID encodes a channel's funding transaction location as a
// packed 64-bit integer: 3 bytes of block height, 3 bytes of transaction
// index within the block, and 2 bytes of output index. Total ordering over
// ShortChannelID is numeric ordering of this packed value.
type ShortChannelID struct {
	BlockHeight uint32
	TxIndex     uint32
	TxPosition  uint16
}

// NewShortChanIDFromInt unpacks a 64-bit integer into its constituent
// block height, transaction index, and output index fields.
func NewShortChanIDFromInt(chanID uint64) ShortChannelID {
	return ShortChannelID{
		BlockHeight: uint32(chanID >> 40),
		TxIndex:     uint32(chanID>>16) & 0xffffff,
		TxPosition:  uint16(chanID),
	}
}

// ToUint64 packs the short channel ID back into its 64-bit wire
// representation.
func (c ShortChannelID) ToUint64() uint64 {
	return (uint64(c.BlockHeight) << 40) |
		(uint64(c.TxIndex) << 16) |
		uint64(c.TxPosition)
}

// String returns the standard blockxtxxoutput representation.
func (c ShortChannelID) String() string {
	return fmt.Sprintf("%dx%dx%d", c.BlockHeight, c.TxIndex, c.TxPosition)
}

// Encode writes the packed 8-byte big-endian representation to w.
func (c ShortChannelID) Encode(w io.Writer) error {
	return writeUint64(w, c.ToUint64())
}

// Decode reads the packed 8-byte big-endian representation from r.
func (c *ShortChannelID) Decode(r io.Reader) error {
	v, err := readUint64(r)
	if err != nil {
		return err
	}
	*c = NewShortChanIDFromInt(v)
	return nil
}
