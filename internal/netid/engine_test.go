package netid

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/netid-manager/internal/netid/testutil"
	"github.com/dep2p/netid-manager/pkg/interfaces"
	"github.com/dep2p/netid-manager/pkg/protocol"
)

// newTestEngine wires one Engine on top of a FakeHost, with a router whose
// connected set is exactly peers and a directory that treats every named
// peer as connected. Secret pings are enabled, since DefaultConfig leaves
// the server role rejecting every SecretPing.
func newTestEngine(t *testing.T, network *testutil.Network, id string, peers []string, connectedSources []string) (*Engine, *testutil.FakeHost) {
	t.Helper()
	host := network.NewHost(id)
	router := testutil.NewFakeRouter(false, peers...)
	directory := testutil.NewFakeDirectory(20)
	for _, p := range connectedSources {
		directory.SetLocation(p, 0)
	}
	rng := testutil.NewFakeRNG(1)
	cfg := NewConfig(WithSecretPingsEnabled())
	e := NewEngine(host, router, directory, NewLRUCompletionTracker(64, time.Minute), rng, NewSecretStore(), NewMatrix(3, 200, 20), nil, cfg)
	return e, host
}

// TestEngine_E1ForwardedPingSucceeds covers scenario E1: A stored B's
// secret via StoreSecretRoundTrip; C pings A for a path to B within htl/dawn
// that clears the "too short" check once decremented; A forwards to B; B
// replies SecretPong; C receives it with the relayed counter.
func TestEngine_E1ForwardedPingSucceeds(t *testing.T) {
	network := testutil.NewNetwork()

	engineA, _ := newTestEngine(t, network, "A", []string{"B"}, []string{"C", "B"})
	require.NoError(t, engineA.Start())
	defer engineA.Stop()

	engineB, _ := newTestEngine(t, network, "B", nil, []string{"A"})
	require.NoError(t, engineB.Start())
	defer engineB.Stop()

	const uid uint64 = 0xC0FFEE
	const secret uint64 = 0xDEAD
	engineB.secrets.Put("A", uid, secret)

	engineC, _ := newTestEngine(t, network, "C", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pong, rejected, err := engineC.SecretPingRoundTrip(ctx, "A", uid, 0.5, 6, 6)
	require.NoError(t, err)
	require.False(t, rejected)
	require.NotNil(t, pong)
	assert.Equal(t, secret, pong.Secret)
	assert.Equal(t, int32(2), pong.Counter)
}

// TestEngine_E2TooShortPathIsRejected covers scenario E2: same shape as E1
// but dawnHtl leaves the decremented htl still in the random-prefix region
// at B, so B (and in turn A) replies RejectedLoop.
func TestEngine_E2TooShortPathIsRejected(t *testing.T) {
	network := testutil.NewNetwork()

	engineA, _ := newTestEngine(t, network, "A", []string{"B"}, []string{"C", "B"})
	require.NoError(t, engineA.Start())
	defer engineA.Stop()

	engineB, _ := newTestEngine(t, network, "B", nil, []string{"A"})
	require.NoError(t, engineB.Start())
	defer engineB.Stop()

	const uid uint64 = 0xC0FFEE2
	const secret uint64 = 0xDEAD2
	engineB.secrets.Put("A", uid, secret)

	engineC, _ := newTestEngine(t, network, "C", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pong, rejected, err := engineC.SecretPingRoundTrip(ctx, "A", uid, 0.5, 6, 4)
	require.NoError(t, err)
	assert.True(t, rejected)
	assert.Nil(t, pong)
}

// TestEngine_ForwardRetriesPastUnreachableCandidate covers the
// disconnect/send-failure path of forwardSecretPing: a candidate that
// cannot even be reached (here, one with no SecretPing handler registered,
// standing in for a peer that disconnected before the forward could be
// sent) must not abort the whole chain. The next candidate is tried, and
// the caller still gets its pong.
func TestEngine_ForwardRetriesPastUnreachableCandidate(t *testing.T) {
	network := testutil.NewNetwork()

	// "Dead" has no SecretPing handler at all, so NewStream against it
	// fails immediately with ErrNoHandler, the unreached-candidate case.
	network.NewHost("Dead")

	engineB, _ := newTestEngine(t, network, "B", nil, []string{"A"})
	require.NoError(t, engineB.Start())
	defer engineB.Stop()

	engineA, _ := newTestEngine(t, network, "A", []string{"Dead", "B"}, []string{"C", "Dead", "B"})
	// Neither candidate has a router location registered, so both read as
	// distance 0 and FakeRouter.CloserPeer's tie-break picks the first in
	// router order: "Dead" goes first, fails to reach, and "B" is tried
	// next once "Dead" lands in routedTo.
	require.NoError(t, engineA.Start())
	defer engineA.Stop()

	const uid uint64 = 0xFACEFEED
	const secret uint64 = 0xC0DE
	engineB.secrets.Put("A", uid, secret)

	engineC, _ := newTestEngine(t, network, "C", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pong, rejected, err := engineC.SecretPingRoundTrip(ctx, "A", uid, 0.5, 6, 6)
	require.NoError(t, err)
	require.False(t, rejected)
	require.NotNil(t, pong)
	assert.Equal(t, secret, pong.Secret)
}

// TestEngine_P9ForwardingTerminates covers property P9: with a target that
// no one on the path can satisfy, onSecretPing tries at most |connected|
// candidates and the caller receives exactly one upstream reply.
func TestEngine_P9ForwardingTerminates(t *testing.T) {
	network := testutil.NewNetwork()

	deadEnds := []string{"P1", "P2", "P3", "P4"}
	var attempts atomic.Int32
	for _, id := range deadEnds {
		host := network.NewHost(id)
		host.SetStreamHandler(string(protocol.SecretPing), func(s interfaces.Stream) {
			defer s.Close()
			attempts.Add(1)
			data, err := receiveMessage(s)
			if err != nil {
				return
			}
			var msg SecretPingMsg
			if err := decodeJSON(data, &msg); err != nil {
				return
			}
			reply, err := encodeJSON(newRejectedReply(&RejectedLoopMsg{UID: msg.UID}))
			if err != nil {
				return
			}
			_ = sendMessage(s, reply)
		})
	}

	engineA, _ := newTestEngine(t, network, "A", deadEnds, append([]string{"C"}, deadEnds...))
	require.NoError(t, engineA.Start())
	defer engineA.Stop()

	engineC, _ := newTestEngine(t, network, "C", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const uid uint64 = 0xABCDEF
	pong, rejected, err := engineC.SecretPingRoundTrip(ctx, "A", uid, 0.9, 6, 4)
	require.NoError(t, err)
	assert.True(t, rejected, "no dead end can answer, the whole chain must reject")
	assert.Nil(t, pong)
	assert.LessOrEqual(t, attempts.Load(), int32(len(deadEnds)))
}
