package lnwire

import (
	"bytes"
	"fmt"
	"io"
	"net"

	"github.com/btcsuite/btcd/btcec/v2"
)

const aliasSpecLen = 21

// RGB is the color a node advertises for display in graph visualizations.
type RGB struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

func (c RGB) encode(w io.Writer) error {
	_, err := w.Write([]byte{c.Red, c.Green, c.Blue})
	return err
}

func (c *RGB) decode(r io.Reader) error {
	var b [3]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	c.Red, c.Green, c.Blue = b[0], b[1], b[2]
	return nil
}

// Alias is a 32-byte, zero-padded UTF-8 string a node operator chooses to
// label their node with. Aliases are not unique and are never trusted for
// anything beyond display.
type Alias struct {
	data     [32]byte
	aliasLen int
}

// NewAlias truncates s to the maximum advertised alias length and wraps it.
func NewAlias(s string) (Alias, error) {
	data := []byte(s)
	if len(data) > aliasSpecLen {
		data = data[:aliasSpecLen]
	}

	var a [32]byte
	copy(a[:], data)

	return Alias{data: a, aliasLen: len(data)}, nil
}

func (a Alias) String() string {
	return string(a.data[:a.aliasLen])
}

// Validate reports whether the alias respects the maximum advertised length.
func (a Alias) Validate() error {
	nonzero := len(a.data)
	for nonzero > 0 && a.data[nonzero-1] == 0 {
		nonzero--
	}
	if nonzero > aliasSpecLen {
		return fmt.Errorf("alias exceeds %d bytes", aliasSpecLen)
	}
	return nil
}

func (a Alias) encode(w io.Writer) error {
	_, err := w.Write(a.data[:])
	return err
}

func (a *Alias) decode(r io.Reader) error {
	var b [32]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	aliasEnd := len(b)
	for aliasEnd > 0 && b[aliasEnd-1] == 0 {
		aliasEnd--
	}
	*a = Alias{data: b, aliasLen: aliasEnd}
	return nil
}

const (
	addrTypeIPv4 uint8 = 1
	addrTypeIPv6 uint8 = 2
)

func encodeAddresses(w io.Writer, addrs []net.Addr) error {
	if err := writeUint16(w, uint16(len(addrs))); err != nil {
		return err
	}
	for _, addr := range addrs {
		tcp, ok := addr.(*net.TCPAddr)
		if !ok {
			return fmt.Errorf("unsupported address type %T", addr)
		}

		if ip4 := tcp.IP.To4(); ip4 != nil {
			if _, err := w.Write([]byte{addrTypeIPv4}); err != nil {
				return err
			}
			if _, err := w.Write(ip4); err != nil {
				return err
			}
		} else {
			if _, err := w.Write([]byte{addrTypeIPv6}); err != nil {
				return err
			}
			if _, err := w.Write(tcp.IP.To16()); err != nil {
				return err
			}
		}
		if err := writeUint16(w, uint16(tcp.Port)); err != nil {
			return err
		}
	}
	return nil
}

func decodeAddresses(r io.Reader) ([]net.Addr, error) {
	numAddrs, err := readUint16(r)
	if err != nil {
		return nil, err
	}

	addrs := make([]net.Addr, 0, numAddrs)
	for i := uint16(0); i < numAddrs; i++ {
		var kind [1]byte
		if _, err := io.ReadFull(r, kind[:]); err != nil {
			return nil, err
		}

		var ip net.IP
		switch kind[0] {
		case addrTypeIPv4:
			ip = make(net.IP, 4)
		case addrTypeIPv6:
			ip = make(net.IP, 16)
		default:
			return nil, fmt.Errorf("unknown address descriptor %d", kind[0])
		}
		if _, err := io.ReadFull(r, ip); err != nil {
			return nil, err
		}

		port, err := readUint16(r)
		if err != nil {
			return nil, err
		}

		addrs = append(addrs, &net.TCPAddr{IP: ip, Port: int(port)})
	}
	return addrs, nil
}

// NodeAnnouncement announces the existence and reachability of a node. Peers
// relay it so that the rest of the network can learn the node's features,
// display alias, and public listen addresses.
type NodeAnnouncement struct {
	// Signature authenticates the fields below over the node's identity
	// key.
	Signature Sig

	// Features advertises the protocol extensions this node supports.
	Features *RawFeatureVector

	// Timestamp disambiguates successive announcements from the same
	// node; higher always supersedes lower.
	Timestamp uint32

	// NodeID is the public key identifying this node across the
	// network.
	NodeID *btcec.PublicKey

	// RGBColor customizes the node's appearance in graph visualizations.
	RGBColor RGB

	// Alias is the operator-chosen display name for the node.
	Alias Alias

	// Addresses lists the node's advertised reachable listen addresses.
	Addresses []net.Addr
}

var _ Message = (*NodeAnnouncement)(nil)

// MsgType returns the wire message type for a node_announcement.
func (a *NodeAnnouncement) MsgType() MessageType {
	return MsgNodeAnnouncement
}

// DataToSign returns the portion of the message covered by Signature.
func (a *NodeAnnouncement) DataToSign() ([]byte, error) {
	var w bytes.Buffer

	if a.Features == nil {
		a.Features = NewRawFeatureVector()
	}
	if err := a.Features.Encode(&w); err != nil {
		return nil, err
	}
	if err := writeUint32(&w, a.Timestamp); err != nil {
		return nil, err
	}
	if _, err := w.Write(a.NodeID.SerializeCompressed()); err != nil {
		return nil, err
	}
	if err := a.RGBColor.encode(&w); err != nil {
		return nil, err
	}
	if err := a.Alias.encode(&w); err != nil {
		return nil, err
	}
	if err := encodeAddresses(&w, a.Addresses); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// Encode serializes the announcement, signature included, to w.
func (a *NodeAnnouncement) Encode(w io.Writer) error {
	if err := a.Signature.Encode(w); err != nil {
		return err
	}

	body, err := a.DataToSign()
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// Decode reads a node_announcement from r.
func (a *NodeAnnouncement) Decode(r io.Reader) error {
	if err := a.Signature.Decode(r); err != nil {
		return err
	}

	a.Features = &RawFeatureVector{}
	if err := a.Features.Decode(r); err != nil {
		return err
	}

	timestamp, err := readUint32(r)
	if err != nil {
		return err
	}
	a.Timestamp = timestamp

	var pubKeyBytes [33]byte
	if _, err := io.ReadFull(r, pubKeyBytes[:]); err != nil {
		return err
	}
	nodeID, err := btcec.ParsePubKey(pubKeyBytes[:])
	if err != nil {
		return err
	}
	a.NodeID = nodeID

	if err := a.RGBColor.decode(r); err != nil {
		return err
	}
	if err := a.Alias.decode(r); err != nil {
		return err
	}

	addrs, err := decodeAddresses(r)
	if err != nil {
		return err
	}
	a.Addresses = addrs

	return nil
}
