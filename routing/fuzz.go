package routing

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/lightningnetwork/lnd-gossipd/lnwire"
)

// fuzzJitter returns a deterministic pseudo-random perturbation of
// baseCost in the range [-fuzz, +fuzz] * baseCost, keyed by seed and scid.
// Two calls with identical inputs always return identical output, so a
// fixed seed yields fully reproducible routes; varying the channel used
// lets ties between otherwise-identical-cost edges break without a fixed
// ordering bias.
func fuzzJitter(seed uint64, scid lnwire.ShortChannelID, fuzz, baseCost float64) float64 {
	if fuzz == 0 {
		return 0
	}

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], seed)
	binary.BigEndian.PutUint64(buf[8:16], scid.ToUint64())

	h := fnv.New64a()
	h.Write(buf[:])
	sum := h.Sum64()

	// Map the hash into [-1, 1) and scale by fuzz and the edge's own cost.
	normalized := (float64(sum%1_000_000_007) / 500_000_003.5) - 1.0
	return normalized * fuzz * baseCost
}
