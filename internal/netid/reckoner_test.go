package netid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/netid-manager/internal/netid/testutil"
)

func setAllPairs(m *Matrix, peers []string, value float64) {
	for _, target := range peers {
		for _, via := range peers {
			if target == via {
				continue
			}
			rec := m.Get(target, via)
			if value >= 1.0 {
				for i := 0; i < 25; i++ {
					rec.Success(1, 10, 2)
				}
			} else if value <= 0.0 {
				// leave unmeasured: AverageValue defaults to 0
				_ = rec
			}
		}
	}
}

func newTestReckoner(t *testing.T, peers []string) (*Reckoner, *Matrix, *GroupRegistry, *testutil.FakeRouter, *testutil.FakeDirectory) {
	t.Helper()
	matrix := NewMatrix(3, 200, 20)
	registry := NewGroupRegistry()
	router := testutil.NewFakeRouter(false, peers...)
	directory := testutil.NewFakeDirectory(20)
	rng := testutil.NewFakeRNG(1)
	cfg := DefaultConfig()

	rk := NewReckoner(matrix, registry, router, directory, rng, nil, nil, cfg)
	return rk, matrix, registry, router, directory
}

// TestReckoner_E3AllConnectedFormOneGroup covers scenario E3: A has 3 peers
// {B,C,D}, all ping-averages 1.0 among them -> reckon yields one group;
// ourNetworkId != 0.
func TestReckoner_E3AllConnectedFormOneGroup(t *testing.T) {
	peers := []string{"B", "C", "D"}
	rk, matrix, registry, _, directory := newTestReckoner(t, peers)
	setAllPairs(matrix, peers, 1.0)
	directory.SetProvidedNetworkID("B", 42)

	groups := rk.Reckon()

	require.Len(t, groups, 1)
	assert.ElementsMatch(t, peers, groups[0].Members())
	assert.NotEqual(t, NoNetworkID, registry.OurNetworkID())
}

// TestReckoner_E4IsolatedPeerSplitsOff covers scenario E4: ping(B,.)=1.0 and
// ping(D,.)=0.0 everywhere -> reckon yields >= 2 groups; D is isolated.
func TestReckoner_E4IsolatedPeerSplitsOff(t *testing.T) {
	peers := []string{"B", "C", "D"}
	rk, matrix, _, _, _ := newTestReckoner(t, peers)

	for i := 0; i < 25; i++ {
		matrix.Get("B", "C").Success(1, 10, 2)
		matrix.Get("C", "B").Success(1, 10, 2)
	}
	// D stays at its zero-value average with everyone: fully isolated.

	groups := rk.Reckon()

	assert.GreaterOrEqual(t, len(groups), 2)

	var dGroup *PeerNetworkGroup
	for _, g := range groups {
		if g.Contains("D") {
			dGroup = g
		}
	}
	require.NotNil(t, dGroup)
}

// TestReckoner_P4ClusterCoverage covers property P4: every connected peer
// ends up in exactly one group after a reckon.
func TestReckoner_P4ClusterCoverage(t *testing.T) {
	peers := []string{"B", "C", "D", "E"}
	rk, matrix, _, _, _ := newTestReckoner(t, peers)
	setAllPairs(matrix, peers, 1.0)

	groups := rk.Reckon()

	seen := make(map[string]int)
	for _, g := range groups {
		for _, m := range g.Members() {
			seen[m]++
		}
	}
	for _, p := range peers {
		assert.Equal(t, 1, seen[p], "peer %s must appear in exactly one group", p)
	}
}

// TestReckoner_P5DistinctIDs covers property P5: no two groups share a
// networkid within one registry.
func TestReckoner_P5DistinctIDs(t *testing.T) {
	peers := []string{"B", "C", "D", "E", "F"}
	rk, matrix, _, _, directory := newTestReckoner(t, peers)
	// Force distinct clusters by making B<->C and D<->E strong and leaving
	// every other pair unmeasured (average 0), so F ends up on its own.
	for i := 0; i < 25; i++ {
		matrix.Get("B", "C").Success(1, 10, 2)
		matrix.Get("C", "B").Success(1, 10, 2)
		matrix.Get("D", "E").Success(1, 10, 2)
		matrix.Get("E", "D").Success(1, 10, 2)
	}
	directory.SetProvidedNetworkID("B", 5)
	directory.SetProvidedNetworkID("D", 5) // same advertised id, different groups

	groups := rk.Reckon()

	ids := make(map[int32]int)
	for _, g := range groups {
		ids[g.NetworkID()]++
	}
	for id, count := range ids {
		assert.Equal(t, 1, count, "id %d must not be shared across groups", id)
	}
}

// TestReckoner_P6FallOpen covers property P6: with the flag set such that
// all averages are 0, one reckon yields exactly one group containing every
// peer.
func TestReckoner_P6FallOpen(t *testing.T) {
	peers := []string{"B", "C", "D"}
	rk, _, _, _, _ := newTestReckoner(t, peers)
	// No samples at all: every pingAvg reads 0.

	groups := rk.Reckon()

	require.Len(t, groups, 1)
	assert.ElementsMatch(t, peers, groups[0].Members())
}

// TestReckoner_CombineDregsLoneSeedAndStraggler covers extractCluster's
// "combine the dregs" branch: a seed that absorbs nobody from the pull loop
// (cluster stays empty) and a single straggler left in remaining, whose
// combined two-way average clears DregsMergeThreshold, still ends up in the
// seed's group instead of splitting off on its own.
func TestReckoner_CombineDregsLoneSeedAndStraggler(t *testing.T) {
	peers := []string{"S", "X"}
	rk, matrix, _, _, _ := newTestReckoner(t, peers)

	// pingAvg(S, X) = 0.5: setwiseAverage(S, [X]) clears FallOpenMark (0.2),
	// so the pull loop runs; threshold = 0.5 * MagicLinearGrace(0.8) = 0.4.
	for i := 0; i < 5; i++ {
		matrix.Get("S", "X").Success(1, 10, 2)
	}
	for i := 0; i < 5; i++ {
		matrix.Get("S", "X").Failure(1, 10, 2)
	}

	// pingAvg(X, S) = 0.35: setwiseAverage(X, [S]) is below the 0.4
	// threshold, so the pull loop never absorbs X into the cluster.
	for i := 0; i < 7; i++ {
		matrix.Get("X", "S").Success(1, 10, 2)
	}
	for i := 0; i < 13; i++ {
		matrix.Get("X", "S").Failure(1, 10, 2)
	}
	// combined = (0.35 + 0.5) / 2 = 0.425, above DregsMergeThreshold (0.25).

	groups := rk.Reckon()

	require.Len(t, groups, 1)
	assert.ElementsMatch(t, peers, groups[0].Members())
}
