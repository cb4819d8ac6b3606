package discovery

import (
	"context"
	"strconv"

	"github.com/lightningnetwork/lnd-gossipd/channeldb"
	"github.com/lightningnetwork/lnd-gossipd/lnwire"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// RateLimitedOracle wraps a channeldb.FundingOracle backed by a real chain
// source (a block explorer, an RPC node) so Control never hammers it: call
// rate is capped by limiter, and concurrent lookups for the same
// short_channel_id — which happen whenever two peers gossip the same new
// channel within the same round-trip — collapse into a single in-flight
// request via group.
type RateLimitedOracle struct {
	inner   channeldb.FundingOracle
	limiter *rate.Limiter
	group   singleflight.Group
}

// NewRateLimitedOracle wraps inner with a token-bucket limiter allowing
// burst immediate lookups and refilling at rps per second thereafter.
func NewRateLimitedOracle(inner channeldb.FundingOracle, rps float64, burst int) *RateLimitedOracle {
	return &RateLimitedOracle{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

var _ channeldb.FundingOracle = (*RateLimitedOracle)(nil)

// ResolveChannel waits for the rate limiter's permission, then resolves
// scid against the wrapped oracle, deduplicating concurrent callers asking
// about the same channel.
func (o *RateLimitedOracle) ResolveChannel(scid lnwire.ShortChannelID) (*channeldb.FundingOutput, error) {
	key := strconv.FormatUint(scid.ToUint64(), 10)

	out, err, _ := o.group.Do(key, func() (interface{}, error) {
		if err := o.limiter.Wait(context.Background()); err != nil {
			return nil, err
		}
		return o.inner.ResolveChannel(scid)
	})
	if err != nil {
		return nil, err
	}
	return out.(*channeldb.FundingOutput), nil
}
