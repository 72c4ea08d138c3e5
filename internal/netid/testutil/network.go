// Package testutil provides fake collaborators for netid package tests:
// an in-process Host/Stream pair wired over net.Pipe, plus deterministic
// router/directory/RNG doubles (grounded on the dep2p pack's
// internal/protocol/messaging/testing.go mockHost/mockStream pattern,
// adapted to a duplex net.Pipe transport since NIM reads a reply on the
// very stream it wrote a request to).
package testutil

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/dep2p/netid-manager/pkg/interfaces"
)

// ErrNoSuchPeer is returned by FakeHost.NewStream when the target peer was
// never registered with the Network.
var ErrNoSuchPeer = errors.New("testutil: no such peer")

// ErrNoHandler is returned by FakeHost.NewStream when the target peer has
// no handler registered for the requested protocol.
var ErrNoHandler = errors.New("testutil: no handler for protocol")

// Network is a shared in-process registry of FakeHosts, standing in for
// the transport + routing table a real dep2p node would provide.
type Network struct {
	mu    sync.RWMutex
	hosts map[string]*FakeHost
}

// NewNetwork constructs an empty Network.
func NewNetwork() *Network {
	return &Network{hosts: make(map[string]*FakeHost)}
}

// NewHost registers and returns a new FakeHost with the given id.
func (n *Network) NewHost(id string) *FakeHost {
	h := &FakeHost{
		id:       id,
		network:  n,
		handlers: make(map[string]interfaces.StreamHandler),
	}
	n.mu.Lock()
	n.hosts[id] = h
	n.mu.Unlock()
	return h
}

func (n *Network) lookup(id string) *FakeHost {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.hosts[id]
}

// FakeHost is an interfaces.Host backed by the shared Network.
type FakeHost struct {
	id      string
	network *Network

	mu       sync.RWMutex
	handlers map[string]interfaces.StreamHandler
}

// ID returns the host's peer id.
func (h *FakeHost) ID() string { return h.id }

// SetStreamHandler registers handler for protocolID.
func (h *FakeHost) SetStreamHandler(protocolID string, handler interfaces.StreamHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[protocolID] = handler
}

// RemoveStreamHandler unregisters protocolID's handler.
func (h *FakeHost) RemoveStreamHandler(protocolID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handlers, protocolID)
}

func (h *FakeHost) handlerFor(protocolID string) interfaces.StreamHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handlers[protocolID]
}

// NewStream opens a duplex stream to peerID's registered handler for
// protocolID. The handler runs on its own goroutine against the server
// side of a net.Pipe; NewStream returns the client side immediately.
func (h *FakeHost) NewStream(ctx context.Context, peerID string, protocolID string) (interfaces.Stream, error) {
	target := h.network.lookup(peerID)
	if target == nil {
		return nil, ErrNoSuchPeer
	}
	handler := target.handlerFor(protocolID)
	if handler == nil {
		return nil, ErrNoHandler
	}

	clientConn, serverConn := net.Pipe()
	clientStream := &FakeStream{Conn: clientConn, protocol: protocolID, remotePeer: peerID}
	serverStream := &FakeStream{Conn: serverConn, protocol: protocolID, remotePeer: h.id}

	go handler(serverStream)

	return clientStream, nil
}

// FakeStream adapts a net.Conn (one end of a net.Pipe) to
// interfaces.Stream.
type FakeStream struct {
	net.Conn
	protocol   string
	remotePeer string
}

// Protocol returns the protocol id the stream was opened for.
func (s *FakeStream) Protocol() string { return s.protocol }

// RemotePeer returns the peer id on the other end of the pipe.
func (s *FakeStream) RemotePeer() string { return s.remotePeer }
