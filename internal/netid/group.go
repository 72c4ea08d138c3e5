package netid

import (
	"sync"
	"time"

	"github.com/dep2p/netid-manager/pkg/interfaces"
)

// PeerNetworkGroup is a cluster of peers sharing one consensus network id
// (C8; grounded on NetworkIDManager.java's PeerNetworkGroup inner class).
// Membership is keyed purely by peer-id string — NIM never mutates fields
// on an externally-owned peer object, it only holds this weak relation.
type PeerNetworkGroup struct {
	mu sync.RWMutex

	members      []string
	networkID    int32
	forbiddenIDs map[int32]struct{}
	lastAssign   time.Time
	ourGroup     bool
}

func newPeerNetworkGroup(members []string, forbidden map[int32]struct{}) *PeerNetworkGroup {
	forbiddenCopy := make(map[int32]struct{}, len(forbidden))
	for id := range forbidden {
		forbiddenCopy[id] = struct{}{}
	}
	return &PeerNetworkGroup{
		members:      append([]string(nil), members...),
		forbiddenIDs: forbiddenCopy,
	}
}

// Members returns a snapshot of the group's peers.
func (g *PeerNetworkGroup) Members() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.members...)
}

// Contains reports whether peer belongs to this group.
func (g *PeerNetworkGroup) Contains(peer string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, m := range g.members {
		if m == peer {
			return true
		}
	}
	return false
}

// NetworkID returns the group's currently assigned id.
func (g *PeerNetworkGroup) NetworkID() int32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.networkID
}

// IsOurGroup reports whether this is the local node's own group.
func (g *PeerNetworkGroup) IsOurGroup() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ourGroup
}

// markOurs flags this group as the local node's own.
func (g *PeerNetworkGroup) markOurs() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ourGroup = true
}

// SetForbiddenIDs replaces the set of ids this group may not take (spec
// §4.7: `forbiddenIds := nowTaken` for every lower-priority group).
func (g *PeerNetworkGroup) SetForbiddenIDs(ids map[int32]struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forbiddenIDs = ids
}

// isForbidden reports whether id is in this group's forbidden set.
func (g *PeerNetworkGroup) isForbidden(id int32) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, forbidden := g.forbiddenIDs[id]
	return forbidden
}

// RecentlyAssigned reports whether the group was assigned an id within the
// last window (spec §4.7: anti-thrash guard at BETWEEN_PEERS = 2s).
func (g *PeerNetworkGroup) RecentlyAssigned(window time.Duration, now time.Time) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.lastAssign.IsZero() {
		return false
	}
	return now.Sub(g.lastAssign) < window
}

// Consensus counts non-forbidden, non-zero ProvidedNetworkID values across
// the group's members and returns the plurality (spec §4.6): if at most one
// distinct option is observed, return the last id seen, or the group's own
// current id if none was advertised at all.
func (g *PeerNetworkGroup) Consensus(directory interfaces.PeerDirectory) int32 {
	g.mu.RLock()
	members := append([]string(nil), g.members...)
	forbidden := g.forbiddenIDs
	current := g.networkID
	g.mu.RUnlock()

	counts := make(map[int32]int)
	var lastSeen int32
	sawAny := false
	for _, peer := range members {
		id := directory.ProvidedNetworkID(peer)
		if id == NoNetworkID {
			continue
		}
		if _, isForbidden := forbidden[id]; isForbidden {
			continue
		}
		counts[id]++
		lastSeen = id
		sawAny = true
	}

	if len(counts) == 0 {
		if sawAny {
			return lastSeen
		}
		return current
	}
	if len(counts) == 1 {
		return lastSeen
	}

	var best int32
	bestCount := -1
	for id, count := range counts {
		if count > bestCount {
			best = id
			bestCount = count
		}
	}
	return best
}

// Assign sets the group's id, stamps lastAssign, and returns the member
// list so the caller can broadcast a NetworkID announcement to each (spec
// §4.8: assign(id) sets networkid/lastAssign and, per member, assignedNetworkID
// and networkGroup — modelled here as the GroupRegistry's reverse index
// instead of fields mutated on an external peer object).
func (g *PeerNetworkGroup) Assign(id int32, now time.Time) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.networkID = id
	g.lastAssign = now
	return append([]string(nil), g.members...)
}

// GroupRegistry holds the ordered list of groups and the local node's
// current believed network id (C8). Replacement of the ordered list is an
// atomic pointer swap so readers never observe a partially-built list.
type GroupRegistry struct {
	mu           sync.RWMutex
	groups       []*PeerNetworkGroup
	ourNetworkID int32
	inTransition bool
}

// NewGroupRegistry constructs an empty registry.
func NewGroupRegistry() *GroupRegistry {
	return &GroupRegistry{}
}

// Groups returns a snapshot of the ordered group list.
func (r *GroupRegistry) Groups() []*PeerNetworkGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*PeerNetworkGroup(nil), r.groups...)
}

// Replace atomically swaps in a new ordered group list.
func (r *GroupRegistry) Replace(groups []*PeerNetworkGroup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = groups
	if len(groups) > 0 {
		groups[0].markOurs()
		r.ourNetworkID = groups[0].NetworkID()
	}
}

// OurNetworkID returns the local node's believed network id. It takes the
// registry's read lock, so concurrent readers never block one another; a
// reader waits only for an in-progress Replace.
func (r *GroupRegistry) OurNetworkID() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ourNetworkID
}

// GroupFor returns the group containing peer, if any.
func (r *GroupRegistry) GroupFor(peer string) *PeerNetworkGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.groups {
		if g.Contains(peer) {
			return g
		}
	}
	return nil
}

// InTransition reports whether a reckoning pass is currently running (the
// flag Reckon sets for its duration).
func (r *GroupRegistry) InTransition() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inTransition
}

// SetInTransition toggles the reckoning-in-progress flag.
func (r *GroupRegistry) SetInTransition(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inTransition = v
}
