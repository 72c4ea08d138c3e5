package interfaces

// PeerRouter is the routing-table oracle NIM consults to walk candidate
// intermediaries in routing order (spec §6: `peers.closerPeer`,
// `peers.getRandomPeer`). It is an external collaborator: NIM never
// maintains its own view of the network topology, only calls into this
// interface with an accumulating exclusion set.
type PeerRouter interface {
	// CloserPeer returns the next routing-table candidate closer to target,
	// excluding source (when non-empty) and every peer already in exclude.
	// Returns ok=false when no further candidate exists.
	CloserPeer(source string, exclude map[string]struct{}, target float64) (peer string, ok bool)

	// RandomPeer returns a uniformly random connected peer other than
	// source, used for the random-prefix hop (spec §4.4).
	RandomPeer(source string) (peer string, ok bool)

	// ConnectedPeers returns every currently connected peer.
	ConnectedPeers() []string

	// QuickCountConnectedPeers is a cheap population probe.
	QuickCountConnectedPeers() int

	// AnyDarknetPeers reports whether the node has any darknet peers.
	AnyDarknetPeers() bool
}

// PeerDirectory answers per-peer facts NIM needs but does not own: routing
// location, liveness, HTL policy, and the id a peer last advertised for
// itself (spec §6: `peer.decrementHTL`, `providedNetworkID`). It embeds
// HTLSource since the same node-owned collaborator that tracks per-peer
// facts is, in practice, also the one holding the node's HTL ceiling.
type PeerDirectory interface {
	HTLSource

	// Location returns the peer's routing location, if known.
	Location(peerID string) (float64, bool)

	// IsConnected reports whether the peer is currently connected.
	IsConnected(peerID string) bool

	// IsRoutable reports whether the peer currently accepts forwarded
	// traffic (spec §4.5: "while target is still routable").
	IsRoutable(peerID string) bool

	// DecrementHTL applies the peer's link-local HTL policy and returns
	// the resulting HTL.
	DecrementHTL(peerID string, htl int16) int16

	// ProvidedNetworkID returns the network id the peer last announced of
	// itself, or 0 (NO_NETWORKID) if none.
	ProvidedNetworkID(peerID string) int32
}
