package lnwire

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/btcutil"
)

// The five store wrapper types are the only messages ever written to the
// gossip store. All but ChannelDeleteWrapper embed the exact bytes of a
// wire message (type tag included) so that a rewrite or a peer rebroadcast
// can reuse them without re-encoding, alongside whatever side information
// the store needs that isn't part of the wire message itself;
// ChannelDeleteWrapper carries only the deleted short_channel_id.

// ChannelAnnouncementWrapper records an accepted channel_announcement
// together with the funding capacity the oracle confirmed for it.
type ChannelAnnouncementWrapper struct {
	AnnouncementBytes []byte
	Capacity          btcutil.Amount
}

// NewChannelAnnouncementWrapper encodes msg to its wire bytes and wraps it.
func NewChannelAnnouncementWrapper(msg *ChannelAnnouncement, capacity btcutil.Amount) (*ChannelAnnouncementWrapper, error) {
	raw, err := EncodeMessage(msg)
	if err != nil {
		return nil, err
	}
	return &ChannelAnnouncementWrapper{AnnouncementBytes: raw, Capacity: capacity}, nil
}

// Announcement decodes the embedded wire bytes back into a
// ChannelAnnouncement.
func (c *ChannelAnnouncementWrapper) Announcement() (*ChannelAnnouncement, error) {
	msg, err := ReadMessage(bytes.NewReader(c.AnnouncementBytes))
	if err != nil {
		return nil, err
	}
	ann, ok := msg.(*ChannelAnnouncement)
	if !ok {
		return nil, &UnknownMessage{Type: msg.MsgType()}
	}
	return ann, nil
}

// MsgType returns the store wrapper tag for a channel_announcement record.
func (c *ChannelAnnouncementWrapper) MsgType() MessageType {
	return MsgStoreChannelAnnouncement
}

// Encode serializes the wrapper to w.
func (c *ChannelAnnouncementWrapper) Encode(w io.Writer) error {
	if err := writeVarBytes(w, c.AnnouncementBytes); err != nil {
		return err
	}
	return writeUint64(w, uint64(c.Capacity))
}

// Decode reads a wrapper from r.
func (c *ChannelAnnouncementWrapper) Decode(r io.Reader) error {
	raw, err := readVarBytes(r)
	if err != nil {
		return err
	}
	c.AnnouncementBytes = raw

	capacity, err := readUint64(r)
	if err != nil {
		return err
	}
	c.Capacity = btcutil.Amount(capacity)
	return nil
}

// ChannelUpdateWrapper records an accepted channel_update.
type ChannelUpdateWrapper struct {
	UpdateBytes []byte
}

// NewChannelUpdateWrapper encodes msg to its wire bytes and wraps it.
func NewChannelUpdateWrapper(msg *ChannelUpdate) (*ChannelUpdateWrapper, error) {
	raw, err := EncodeMessage(msg)
	if err != nil {
		return nil, err
	}
	return &ChannelUpdateWrapper{UpdateBytes: raw}, nil
}

// Update decodes the embedded wire bytes back into a ChannelUpdate.
func (c *ChannelUpdateWrapper) Update() (*ChannelUpdate, error) {
	msg, err := ReadMessage(bytes.NewReader(c.UpdateBytes))
	if err != nil {
		return nil, err
	}
	upd, ok := msg.(*ChannelUpdate)
	if !ok {
		return nil, &UnknownMessage{Type: msg.MsgType()}
	}
	return upd, nil
}

// MsgType returns the store wrapper tag for a channel_update record.
func (c *ChannelUpdateWrapper) MsgType() MessageType {
	return MsgStoreChannelUpdate
}

// Encode serializes the wrapper to w.
func (c *ChannelUpdateWrapper) Encode(w io.Writer) error {
	return writeVarBytes(w, c.UpdateBytes)
}

// Decode reads a wrapper from r.
func (c *ChannelUpdateWrapper) Decode(r io.Reader) error {
	raw, err := readVarBytes(r)
	if err != nil {
		return err
	}
	c.UpdateBytes = raw
	return nil
}

// NodeAnnouncementWrapper records an accepted node_announcement.
type NodeAnnouncementWrapper struct {
	AnnouncementBytes []byte
}

// NewNodeAnnouncementWrapper encodes msg to its wire bytes and wraps it.
func NewNodeAnnouncementWrapper(msg *NodeAnnouncement) (*NodeAnnouncementWrapper, error) {
	raw, err := EncodeMessage(msg)
	if err != nil {
		return nil, err
	}
	return &NodeAnnouncementWrapper{AnnouncementBytes: raw}, nil
}

// Announcement decodes the embedded wire bytes back into a
// NodeAnnouncement.
func (n *NodeAnnouncementWrapper) Announcement() (*NodeAnnouncement, error) {
	msg, err := ReadMessage(bytes.NewReader(n.AnnouncementBytes))
	if err != nil {
		return nil, err
	}
	ann, ok := msg.(*NodeAnnouncement)
	if !ok {
		return nil, &UnknownMessage{Type: msg.MsgType()}
	}
	return ann, nil
}

// MsgType returns the store wrapper tag for a node_announcement record.
func (n *NodeAnnouncementWrapper) MsgType() MessageType {
	return MsgStoreNodeAnnouncement
}

// Encode serializes the wrapper to w.
func (n *NodeAnnouncementWrapper) Encode(w io.Writer) error {
	return writeVarBytes(w, n.AnnouncementBytes)
}

// Decode reads a wrapper from r.
func (n *NodeAnnouncementWrapper) Decode(r io.Reader) error {
	raw, err := readVarBytes(r)
	if err != nil {
		return err
	}
	n.AnnouncementBytes = raw
	return nil
}

// ChannelDeleteWrapper records that a channel was removed from the graph,
// so that replaying the store reproduces the deletion rather than the
// stale announcement that preceded it.
type ChannelDeleteWrapper struct {
	ShortChannelID ShortChannelID
}

// MsgType returns the store wrapper tag for a channel-delete record.
func (c *ChannelDeleteWrapper) MsgType() MessageType {
	return MsgStoreChannelDelete
}

// Encode serializes the wrapper to w.
func (c *ChannelDeleteWrapper) Encode(w io.Writer) error {
	return c.ShortChannelID.Encode(w)
}

// Decode reads a wrapper from r.
func (c *ChannelDeleteWrapper) Decode(r io.Reader) error {
	return c.ShortChannelID.Decode(r)
}

// LocalAddChannelWrapper records a locally-known private channel so it
// survives restart even though it is never announced to peers.
type LocalAddChannelWrapper struct {
	LocalAddBytes []byte
}

// NewLocalAddChannelWrapper encodes msg to its wire bytes and wraps it.
func NewLocalAddChannelWrapper(msg *LocalAddChannel) (*LocalAddChannelWrapper, error) {
	raw, err := EncodeMessage(msg)
	if err != nil {
		return nil, err
	}
	return &LocalAddChannelWrapper{LocalAddBytes: raw}, nil
}

// LocalAdd decodes the embedded bytes back into a LocalAddChannel.
func (l *LocalAddChannelWrapper) LocalAdd() (*LocalAddChannel, error) {
	msg, err := ReadMessage(bytes.NewReader(l.LocalAddBytes))
	if err != nil {
		return nil, err
	}
	add, ok := msg.(*LocalAddChannel)
	if !ok {
		return nil, &UnknownMessage{Type: msg.MsgType()}
	}
	return add, nil
}

// MsgType returns the store wrapper tag for a local-add-channel record.
func (l *LocalAddChannelWrapper) MsgType() MessageType {
	return MsgStoreLocalAddChannel
}

// Encode serializes the wrapper to w.
func (l *LocalAddChannelWrapper) Encode(w io.Writer) error {
	return writeVarBytes(w, l.LocalAddBytes)
}

// Decode reads a wrapper from r.
func (l *LocalAddChannelWrapper) Decode(r io.Reader) error {
	raw, err := readVarBytes(r)
	if err != nil {
		return err
	}
	l.LocalAddBytes = raw
	return nil
}
