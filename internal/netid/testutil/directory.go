package testutil

import "sync"

// FakeDirectory is a deterministic interfaces.PeerDirectory +
// interfaces.HTLSource double.
type FakeDirectory struct {
	mu        sync.Mutex
	locations map[string]float64
	connected map[string]bool
	routable  map[string]bool
	provided  map[string]int32
	maxHTL    int16
}

// NewFakeDirectory constructs a directory with the given HTL ceiling.
// Peers default to connected+routable once mentioned via SetLocation, or
// can be registered directly with SetConnected/SetRoutable.
func NewFakeDirectory(maxHTL int16) *FakeDirectory {
	return &FakeDirectory{
		locations: make(map[string]float64),
		connected: make(map[string]bool),
		routable:  make(map[string]bool),
		provided:  make(map[string]int32),
		maxHTL:    maxHTL,
	}
}

// SetLocation records peer's location and marks it connected+routable.
func (d *FakeDirectory) SetLocation(peer string, loc float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locations[peer] = loc
	d.connected[peer] = true
	d.routable[peer] = true
}

// SetConnected overrides peer's connected state.
func (d *FakeDirectory) SetConnected(peer string, v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected[peer] = v
}

// SetRoutable overrides peer's routable state.
func (d *FakeDirectory) SetRoutable(peer string, v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routable[peer] = v
}

// SetProvidedNetworkID sets the id peer last advertised for itself.
func (d *FakeDirectory) SetProvidedNetworkID(peer string, id int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.provided[peer] = id
}

// Location implements interfaces.PeerDirectory.
func (d *FakeDirectory) Location(peer string) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	loc, ok := d.locations[peer]
	return loc, ok
}

// IsConnected implements interfaces.PeerDirectory.
func (d *FakeDirectory) IsConnected(peer string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected[peer]
}

// IsRoutable implements interfaces.PeerDirectory.
func (d *FakeDirectory) IsRoutable(peer string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.routable[peer]
}

// DecrementHTL implements interfaces.PeerDirectory: unconditional -1.
func (d *FakeDirectory) DecrementHTL(peer string, htl int16) int16 {
	return htl - 1
}

// ProvidedNetworkID implements interfaces.PeerDirectory.
func (d *FakeDirectory) ProvidedNetworkID(peer string) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.provided[peer]
}

// MaxHTL implements interfaces.HTLSource.
func (d *FakeDirectory) MaxHTL() int16 {
	return d.maxHTL
}
