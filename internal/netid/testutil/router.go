package testutil

import (
	"math"
	"sync"
)

// FakeRouter is a deterministic interfaces.PeerRouter double. CloserPeer
// picks the connected, non-excluded peer whose registered location is
// nearest target; peers with no registered location are treated as
// distance 0 (always closest), matching a routing table that has not yet
// learned a location for a brand-new neighbour.
type FakeRouter struct {
	mu        sync.Mutex
	peers     []string
	locations map[string]float64
	darknet   bool
}

// NewFakeRouter constructs a router whose connected set is peers.
func NewFakeRouter(darknet bool, peers ...string) *FakeRouter {
	return &FakeRouter{
		peers:     append([]string(nil), peers...),
		locations: make(map[string]float64),
		darknet:   darknet,
	}
}

// SetLocation records peer's routing location.
func (r *FakeRouter) SetLocation(peer string, loc float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[peer] = loc
}

// AddPeer adds peer to the connected set.
func (r *FakeRouter) AddPeer(peer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.peers {
		if p == peer {
			return
		}
	}
	r.peers = append(r.peers, peer)
}

// RemovePeer drops peer from the connected set.
func (r *FakeRouter) RemovePeer(peer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.peers {
		if p == peer {
			r.peers = append(r.peers[:i], r.peers[i+1:]...)
			return
		}
	}
}

// CloserPeer implements interfaces.PeerRouter.
func (r *FakeRouter) CloserPeer(source string, exclude map[string]struct{}, target float64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	best := ""
	bestDist := math.MaxFloat64
	for _, p := range r.peers {
		if p == source {
			continue
		}
		if _, skip := exclude[p]; skip {
			continue
		}
		dist := 0.0
		if loc, ok := r.locations[p]; ok {
			dist = math.Abs(loc - target)
		}
		if best == "" || dist < bestDist {
			best, bestDist = p, dist
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// RandomPeer implements interfaces.PeerRouter. Deterministic: returns the
// first connected peer other than source.
func (r *FakeRouter) RandomPeer(source string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.peers {
		if p != source {
			return p, true
		}
	}
	return "", false
}

// ConnectedPeers implements interfaces.PeerRouter.
func (r *FakeRouter) ConnectedPeers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.peers...)
}

// QuickCountConnectedPeers implements interfaces.PeerRouter.
func (r *FakeRouter) QuickCountConnectedPeers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// AnyDarknetPeers implements interfaces.PeerRouter.
func (r *FakeRouter) AnyDarknetPeers() bool {
	return r.darknet
}
