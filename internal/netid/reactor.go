package netid

import (
	"time"

	"github.com/dep2p/netid-manager/pkg/interfaces"
	"github.com/dep2p/netid-manager/pkg/lib/log"
)

var reactorLogger = log.Logger("netid/reactor")

// Reactor is the reactive relabeler (C7): invoked whenever a peer announces
// a new providedNetworkID, it walks the ordered group list applying
// anti-thrash reassignment (grounded on
// NetworkIDManager.java#onPeerNodeChangedNetworkID).
type Reactor struct {
	registry  *GroupRegistry
	directory interfaces.PeerDirectory
	engine    *Engine
	metrics   *Metrics
	cfg       Config
}

// NewReactor constructs a Reactor.
func NewReactor(registry *GroupRegistry, directory interfaces.PeerDirectory, engine *Engine, metrics *Metrics, cfg Config) *Reactor {
	return &Reactor{
		registry:  registry,
		directory: directory,
		engine:    engine,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// OnPeerAnnouncedNetworkID handles a peer's NetworkID announcement (spec
// §4.7): if a reckoning pass is in progress, bail immediately. If the
// reporting peer's group is our own, has unchanged consensus, or was just
// assigned too recently, the whole pass is a no-op: no forbidden-id
// propagation happens at all. Only once "mine" actually gets relabeled does
// the walk continue down the lower-priority groups, propagating the ids
// taken so far and reassigning any group whose current id just became
// forbidden.
func (rt *Reactor) OnPeerAnnouncedNetworkID(peer string) {
	if rt.registry.InTransition() {
		return
	}

	mine := rt.registry.GroupFor(peer)
	if mine == nil {
		return
	}

	now := time.Now()
	if mine.IsOurGroup() {
		return
	}
	if !rt.reconsider(mine, now) {
		return
	}

	groups := rt.registry.Groups()
	nowTaken := make(map[int32]struct{})
	foundMine := false

	for _, g := range groups {
		if g == mine {
			foundMine = true
			nowTaken[g.NetworkID()] = struct{}{}
			continue
		}
		if !foundMine {
			nowTaken[g.NetworkID()] = struct{}{}
			continue
		}
		// Lower-priority group: propagate the ids taken so far, and
		// reassign if its current id just became forbidden.
		g.SetForbiddenIDs(copyIDSet(nowTaken))
		if g.isForbidden(g.NetworkID()) {
			rt.reassign(g, now)
		}
		nowTaken[g.NetworkID()] = struct{}{}
	}
}

// reconsider recomputes consensus for g (the reporting peer's group, not
// our own) and reassigns only if the id actually changed and the group
// wasn't assigned too recently (anti-thrash). Returns whether it actually
// reassigned g — callers use this to decide whether the reactive pass
// continues to the lower-priority groups at all.
func (rt *Reactor) reconsider(g *PeerNetworkGroup, now time.Time) bool {
	current := g.NetworkID()
	id := g.Consensus(rt.directory)
	if id == current {
		return false
	}
	if g.RecentlyAssigned(rt.cfg.BetweenPeersDelay, now) {
		return false
	}
	rt.assign(g, id, now)
	return true
}

// reassign recomputes consensus for g, unconditionally (its current id was
// just forbidden by a higher-priority group, so keeping it is not an
// option).
func (rt *Reactor) reassign(g *PeerNetworkGroup, now time.Time) {
	id := g.Consensus(rt.directory)
	if id == g.NetworkID() {
		return
	}
	rt.assign(g, id, now)
}

func (rt *Reactor) assign(g *PeerNetworkGroup, id int32, now time.Time) {
	peers := g.Assign(id, now)
	if rt.metrics != nil {
		rt.metrics.Reassignments.Inc()
	}
	if rt.engine != nil {
		for _, peer := range peers {
			rt.engine.AnnounceNetworkID(peer, id)
		}
	}
}

func copyIDSet(src map[int32]struct{}) map[int32]struct{} {
	dst := make(map[int32]struct{}, len(src))
	for id := range src {
		dst[id] = struct{}{}
	}
	return dst
}
