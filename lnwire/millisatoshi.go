package lnwire

import "github.com/btcsuite/btcd/btcutil"

// MilliSatoshi represents a thousandth of a satoshi, the unit fees and HTLC
// limits are expressed in throughout the gossip protocol.
type MilliSatoshi uint64

// ToSatoshis rounds down to the nearest whole satoshi.
func (m MilliSatoshi) ToSatoshis() btcutil.Amount {
	return btcutil.Amount(m / 1000)
}
