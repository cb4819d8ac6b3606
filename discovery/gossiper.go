package discovery

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-errors/errors"
	"github.com/lightningnetwork/lnd-gossipd/channeldb"
	"github.com/lightningnetwork/lnd-gossipd/lnwire"
)

// Config bundles everything Control needs to run. All fields must be
// non-nil for Control to carry out its duties.
type Config struct {
	// Graph is the in-memory routing graph every admitted message is
	// applied to.
	Graph *channeldb.Graph

	// Store is the on-disk gossip log Graph persists through; Control
	// owns deciding when to rewrite it, Graph owns appending to it.
	Store *channeldb.Store

	// PruneInterval is how often route_prune runs.
	PruneInterval time.Duration `long:"prune-interval" description:"how often to sweep the routing graph for stale channels"`

	// RewriteCheckInterval is how often Control asks Store whether a
	// rewrite is due.
	RewriteCheckInterval time.Duration `long:"rewrite-check-interval" description:"how often to check whether the gossip store needs rewriting"`
}

// Control is the single-threaded orchestrator that owns the graph's event
// loop: it decodes incoming wire messages, dispatches them to Graph's
// untrusted entry points, and drives the periodic prune and store-rewrite
// sweeps. It never mutates Graph state from more than one goroutine at a
// time, matching the single-threaded cooperative model the routing graph
// assumes.
type Control struct {
	started int32
	stopped int32

	cfg Config

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a Control bound to cfg. Graph and Store are assumed to
// already be open and loaded.
func New(cfg Config) *Control {
	if cfg.PruneInterval == 0 {
		cfg.PruneInterval = time.Hour
	}
	if cfg.RewriteCheckInterval == 0 {
		cfg.RewriteCheckInterval = 10 * time.Minute
	}

	return &Control{
		cfg:  cfg,
		quit: make(chan struct{}),
	}
}

// Start launches Control's background sweeps.
func (c *Control) Start() error {
	if !atomic.CompareAndSwapInt32(&c.started, 0, 1) {
		return ErrAlreadyStarted
	}

	log.Infof("Starting gossip control loop")

	c.wg.Add(1)
	go c.sweepHandler()

	return nil
}

// Stop halts Control's background sweeps and waits for them to exit.
func (c *Control) Stop() error {
	if !atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		return ErrAlreadyStopped
	}

	log.Infof("Stopping gossip control loop")

	close(c.quit)
	c.wg.Wait()

	return nil
}

// sweepHandler drives route_prune and the store-rewrite check on their own
// tickers and applies completed funding-oracle lookups as they resolve,
// serialized with every other Graph mutation by virtue of being the only
// goroutine that touches Graph besides the caller of
// ProcessRemoteAnnouncement/ProcessLocalAnnouncement — callers are expected
// to route those through the same event loop in a real deployment (e.g. by
// funneling peer reads through a single dispatch channel), a step this
// module leaves to the host process since peer I/O itself is out of scope
// here.
func (c *Control) sweepHandler() {
	defer c.wg.Done()

	pruneTicker := time.NewTicker(c.cfg.PruneInterval)
	defer pruneTicker.Stop()

	rewriteTicker := time.NewTicker(c.cfg.RewriteCheckInterval)
	defer rewriteTicker.Stop()

	for {
		select {
		case <-pruneTicker.C:
			n, err := c.cfg.Graph.RoutePrune()
			if err != nil {
				log.Errorf("route_prune failed: %v", err)
				continue
			}
			if n > 0 {
				log.Infof("route_prune removed %d stale channels", n)
			}

		case <-rewriteTicker.C:
			c.maybeRewrite()

		case res := <-c.cfg.Graph.Resolutions():
			if err := c.cfg.Graph.ApplyResolution(res); err != nil {
				log.Errorf("failed to resolve pending announcement %v: %v",
					res.SCID, err)
			}

		case <-c.quit:
			return
		}
	}
}

// maybeRewrite checks whether the store has crossed its staleness
// threshold and, if so, rebuilds it from the graph's current live set.
func (c *Control) maybeRewrite() {
	live := c.cfg.Graph.LiveCount()
	if !c.cfg.Store.ShouldRewrite(live) {
		return
	}

	records := c.cfg.Graph.BuildRewriteRecords()
	if err := c.cfg.Store.Rewrite(records); err != nil {
		log.Errorf("gossip store rewrite failed: %v", err)
		return
	}

	log.Infof("gossip store rewritten: %d live records", len(records))
}

// ProcessRemoteAnnouncement decodes a peer-supplied gossip message and
// dispatches it to the matching untrusted Graph entry point. raw must be
// the exact wire bytes (type tag included), since Graph's admission logic
// persists them verbatim.
func (c *Control) ProcessRemoteAnnouncement(raw []byte) error {
	msg, err := lnwire.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return errors.Errorf("unable to decode gossip message: %v", err)
	}

	switch m := msg.(type) {
	case *lnwire.ChannelAnnouncement:
		return c.cfg.Graph.HandleChannelAnnouncement(raw, m)

	case *lnwire.ChannelUpdate:
		return c.cfg.Graph.HandleChannelUpdate(raw, m)

	case *lnwire.NodeAnnouncement:
		return c.cfg.Graph.HandleNodeAnnouncement(raw, m)

	default:
		return errors.Errorf("%v: %v", ErrUnrecognizedMessage, msg.MsgType())
	}
}

// ProcessLocalAnnouncement inserts a privately-known channel, originated
// locally rather than received from a peer.
func (c *Control) ProcessLocalAnnouncement(msg *lnwire.LocalAddChannel) error {
	return c.cfg.Graph.HandleLocalAddChannel(msg)
}
