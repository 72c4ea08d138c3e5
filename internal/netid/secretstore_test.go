package netid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSecretStore_P8Dedup covers property P8: two consecutive StoreSecret
// from the same peer with different uids leave exactly one live entry in
// each index, keyed by the latest uid.
func TestSecretStore_P8Dedup(t *testing.T) {
	s := NewSecretStore()

	s.Put("peerA", 1, 0xDEAD)
	require.Equal(t, 1, s.Len())

	s.Put("peerA", 2, 0xBEEF)
	assert.Equal(t, 1, s.Len(), "second Put must evict the first entry, not add a second")

	_, _, ok := s.ByUID(1)
	assert.False(t, ok, "old uid must no longer resolve")

	peer, secret, ok := s.ByUID(2)
	require.True(t, ok)
	assert.Equal(t, "peerA", peer)
	assert.Equal(t, uint64(0xBEEF), secret)
}

func TestSecretStore_OnDisconnectRemovesBothIndexes(t *testing.T) {
	s := NewSecretStore()
	s.Put("peerA", 42, 7)

	s.OnDisconnect("peerA")

	assert.Equal(t, 0, s.Len())
	_, _, ok := s.ByUID(42)
	assert.False(t, ok)
}

func TestSecretStore_OnDisconnectUnknownPeerIsNoop(t *testing.T) {
	s := NewSecretStore()
	s.OnDisconnect("nobody")
	assert.Equal(t, 0, s.Len())
}

func TestSecretStore_DistinctPeersCoexist(t *testing.T) {
	s := NewSecretStore()
	s.Put("peerA", 1, 10)
	s.Put("peerB", 2, 20)

	assert.Equal(t, 2, s.Len())

	peer, secret, ok := s.ByUID(1)
	require.True(t, ok)
	assert.Equal(t, "peerA", peer)
	assert.Equal(t, uint64(10), secret)
}
