package netid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/netid-manager/internal/netid/testutil"
)

func newTestReactor(t *testing.T, registry *GroupRegistry, directory *testutil.FakeDirectory) *Reactor {
	t.Helper()
	return NewReactor(registry, directory, nil, nil, DefaultConfig())
}

// TestReactor_E5OurGroupIsStable covers scenario E5: after E3, B announces
// id=17 while our id is 42 and ourGroup=true -> no reassignment.
func TestReactor_E5OurGroupIsStable(t *testing.T) {
	directory := testutil.NewFakeDirectory(20)
	registry := NewGroupRegistry()

	ours := newPeerNetworkGroup([]string{"B", "C", "D"}, nil)
	ours.Assign(42, time.Now().Add(-time.Hour))
	registry.Replace([]*PeerNetworkGroup{ours})
	require.True(t, ours.IsOurGroup())

	directory.SetProvidedNetworkID("B", 17)

	rt := newTestReactor(t, registry, directory)
	rt.OnPeerAnnouncedNetworkID("B")

	assert.Equal(t, int32(42), ours.NetworkID())
}

// TestReactor_E6NonOurGroupAdoptsConsensus covers the unforbidden half of
// scenario E6: a non-our group containing two peers both announcing 99
// adopts 99 on the next event.
func TestReactor_E6NonOurGroupAdoptsConsensus(t *testing.T) {
	directory := testutil.NewFakeDirectory(20)
	registry := NewGroupRegistry()

	ours := newPeerNetworkGroup([]string{"A"}, nil)
	ours.Assign(42, time.Now().Add(-time.Hour))

	other := newPeerNetworkGroup([]string{"X", "Y"}, nil)
	other.Assign(7, time.Time{}) // zero lastAssign: not "recently assigned"

	registry.Replace([]*PeerNetworkGroup{ours, other})

	directory.SetProvidedNetworkID("X", 99)
	directory.SetProvidedNetworkID("Y", 99)

	rt := newTestReactor(t, registry, directory)
	rt.OnPeerAnnouncedNetworkID("X")

	assert.Equal(t, int32(99), other.NetworkID())
}

// TestReactor_E6ForbiddenIDIsNotAdopted covers the forbidden half of
// scenario E6: when 99 is already taken by the higher-priority group, the
// lower-priority group must not naively adopt it.
func TestReactor_E6ForbiddenIDIsNotAdopted(t *testing.T) {
	directory := testutil.NewFakeDirectory(20)
	registry := NewGroupRegistry()

	ours := newPeerNetworkGroup([]string{"A"}, nil)
	ours.Assign(99, time.Now().Add(-time.Hour))

	other := newPeerNetworkGroup([]string{"X", "Y"}, nil)
	other.SetForbiddenIDs(map[int32]struct{}{99: {}})
	other.Assign(7, time.Time{})

	registry.Replace([]*PeerNetworkGroup{ours, other})

	directory.SetProvidedNetworkID("X", 99)
	directory.SetProvidedNetworkID("Y", 99)

	rt := newTestReactor(t, registry, directory)
	rt.OnPeerAnnouncedNetworkID("X")

	assert.NotEqual(t, int32(99), other.NetworkID())
}

// TestReactor_P7AntiThrash covers property P7: two NetworkID announcements
// within BETWEEN_PEERS cause at most one reassignment per group.
func TestReactor_P7AntiThrash(t *testing.T) {
	directory := testutil.NewFakeDirectory(20)
	registry := NewGroupRegistry()

	ours := newPeerNetworkGroup([]string{"A"}, nil)
	ours.Assign(42, time.Now().Add(-time.Hour))

	other := newPeerNetworkGroup([]string{"X", "Y"}, nil)
	other.Assign(7, time.Time{})

	registry.Replace([]*PeerNetworkGroup{ours, other})

	directory.SetProvidedNetworkID("X", 99)
	directory.SetProvidedNetworkID("Y", 99)

	rt := newTestReactor(t, registry, directory)
	rt.OnPeerAnnouncedNetworkID("X")
	require.Equal(t, int32(99), other.NetworkID())
	firstAssign := other.lastAssign

	// Immediately fire again with a conflicting announcement: the
	// anti-thrash window (BETWEEN_PEERS) must suppress a second flip.
	directory.SetProvidedNetworkID("Y", 123)
	rt.OnPeerAnnouncedNetworkID("Y")

	assert.Equal(t, int32(99), other.NetworkID(), "must not reassign twice inside BETWEEN_PEERS")
	assert.Equal(t, firstAssign, other.lastAssign)
}

// TestReactor_StableMineLeavesLowerGroupsUntouched covers spec §4.7's
// whole-method short circuit: when the reporting peer's group ("mine") has
// unchanged consensus, the reactive pass must not propagate forbidden ids
// to any lower-priority group at all, even one whose current id is already
// forbidden and would otherwise be reassigned.
func TestReactor_StableMineLeavesLowerGroupsUntouched(t *testing.T) {
	directory := testutil.NewFakeDirectory(20)
	registry := NewGroupRegistry()

	ours := newPeerNetworkGroup([]string{"A"}, nil)
	ours.Assign(42, time.Now().Add(-time.Hour))

	mine := newPeerNetworkGroup([]string{"X", "Y"}, nil)
	mine.Assign(7, time.Now().Add(-time.Hour))

	lower := newPeerNetworkGroup([]string{"Z"}, nil)
	lower.SetForbiddenIDs(map[int32]struct{}{55: {}})
	lower.Assign(55, time.Time{})

	registry.Replace([]*PeerNetworkGroup{ours, mine, lower})

	// X announces the same id its group already holds: consensus for
	// "mine" is unchanged, so reconsider must report no reassignment and
	// the whole pass must stop right there.
	directory.SetProvidedNetworkID("X", 7)
	directory.SetProvidedNetworkID("Y", 7)

	rt := newTestReactor(t, registry, directory)
	rt.OnPeerAnnouncedNetworkID("X")

	assert.Equal(t, int32(7), mine.NetworkID(), "stable mine must not be reassigned")
	assert.Equal(t, int32(55), lower.NetworkID(), "lower-priority group must be untouched")
	assert.True(t, lower.isForbidden(55), "lower group's original forbidden set must survive untouched")
	assert.False(t, lower.isForbidden(42), "lower group must not have absorbed nowTaken from a pass that never reached it")
}

// TestReactor_InTransitionShortCircuits ensures the reckoner's inTransition
// flag suppresses all reactor activity.
func TestReactor_InTransitionShortCircuits(t *testing.T) {
	directory := testutil.NewFakeDirectory(20)
	registry := NewGroupRegistry()

	other := newPeerNetworkGroup([]string{"X"}, nil)
	other.Assign(7, time.Time{})
	registry.Replace([]*PeerNetworkGroup{other})
	registry.SetInTransition(true)

	directory.SetProvidedNetworkID("X", 99)

	rt := newTestReactor(t, registry, directory)
	rt.OnPeerAnnouncedNetworkID("X")

	assert.Equal(t, int32(7), other.NetworkID())
}
