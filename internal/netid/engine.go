package netid

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/netid-manager/pkg/interfaces"
	"github.com/dep2p/netid-manager/pkg/lib/log"
	"github.com/dep2p/netid-manager/pkg/protocol"
)

var engineLogger = log.Logger("netid/engine")

// Engine is the Protocol Engine (C4): it answers inbound StoreSecret and
// SecretPing streams on the server side, and drives the mirrored
// StoreSecret->Accepted->SecretPing->SecretPong/RejectedLoop round trip on
// the client side (grounded on NetworkIDManager.java's handleStoreSecret /
// handleSecretPing / _handleSecretPing, and on the liveness protocol's
// stream-per-round-trip shape for the Go rendition of `usm.waitFor`).
type Engine struct {
	host       interfaces.Host
	router     interfaces.PeerRouter
	directory  interfaces.PeerDirectory
	completion interfaces.CompletionTracker
	rng        interfaces.RNG

	secrets *SecretStore
	matrix  *Matrix
	metrics *Metrics
	cfg     Config

	enabled atomic.Bool // !DisableSecretPings, toggled at runtime

	onPeerAnnouncedNetworkID func(peer string, id int32)

	mu      sync.Mutex
	started bool
}

// NewEngine constructs an Engine. It does not register stream handlers
// until Start is called.
func NewEngine(
	host interfaces.Host,
	router interfaces.PeerRouter,
	directory interfaces.PeerDirectory,
	completion interfaces.CompletionTracker,
	rng interfaces.RNG,
	secrets *SecretStore,
	matrix *Matrix,
	metrics *Metrics,
	cfg Config,
) *Engine {
	e := &Engine{
		host:       host,
		router:     router,
		directory:  directory,
		completion: completion,
		rng:        rng,
		secrets:    secrets,
		matrix:     matrix,
		metrics:    metrics,
		cfg:        cfg,
	}
	e.enabled.Store(!cfg.DisableSecretPings)
	return e
}

// SetEnabled toggles whether the server role answers SecretPing with real
// handling instead of RejectedLoop (spec §6: disableSecretPings defaults
// true). StoreSecret is handled either way.
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
}

// Enabled reports the current toggle state.
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

// SetOnPeerAnnouncedNetworkID installs the Reactor's callback, invoked
// whenever an inbound NetworkID announcement arrives.
func (e *Engine) SetOnPeerAnnouncedNetworkID(fn func(peer string, id int32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPeerAnnouncedNetworkID = fn
}

// Start registers the three inbound stream handlers.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}
	e.host.SetStreamHandler(string(protocol.StoreSecret), e.handleStoreSecretStream)
	e.host.SetStreamHandler(string(protocol.SecretPing), e.handleSecretPingStream)
	e.host.SetStreamHandler(string(protocol.NetworkID), e.handleNetworkIDStream)
	e.started = true
	return nil
}

// Stop unregisters the stream handlers.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	e.host.RemoveStreamHandler(string(protocol.StoreSecret))
	e.host.RemoveStreamHandler(string(protocol.SecretPing))
	e.host.RemoveStreamHandler(string(protocol.NetworkID))
	e.started = false
	return nil
}

// handleStoreSecretStream is onStoreSecret(msg) (spec §4.4): read
// (uid, secret) from the stream's source, store via C1, reply Accepted
// best-effort.
func (e *Engine) handleStoreSecretStream(s interfaces.Stream) {
	defer s.Close()

	_ = s.SetDeadline(time.Now().Add(e.cfg.AcceptedTimeout))

	data, err := receiveMessage(s)
	if err != nil {
		engineLogger.Debug("store-secret: read failed", "err", err)
		return
	}
	var msg StoreSecretMsg
	if err := decodeJSON(data, &msg); err != nil {
		engineLogger.Debug("store-secret: decode failed", "err", err)
		return
	}

	source := s.RemotePeer()
	e.secrets.Put(source, msg.UID, msg.Secret)

	reply, err := encodeJSON(AcceptedMsg{UID: msg.UID})
	if err != nil {
		return
	}
	if err := sendMessage(s, reply); err != nil {
		engineLogger.Debug("store-secret: accepted reply failed", "peer", source, "err", err)
	}
}

// handleSecretPingStream is onSecretPing(msg) (spec §4.4). The frame is
// read synchronously so the handler returns promptly; the potentially slow
// forward-and-wait chain runs on its own goroutine ("dispatch on a worker
// thread"), replying on the same stream once it settles.
func (e *Engine) handleSecretPingStream(s interfaces.Stream) {
	_ = s.SetDeadline(time.Now().Add(e.cfg.SecretPongTimeout))

	data, err := receiveMessage(s)
	if err != nil {
		s.Close()
		engineLogger.Debug("secret-ping: read failed", "err", err)
		return
	}
	var msg SecretPingMsg
	if err := decodeJSON(data, &msg); err != nil {
		s.Close()
		engineLogger.Debug("secret-ping: decode failed", "err", err)
		return
	}
	source := s.RemotePeer()

	go e.processSecretPing(s, source, msg)
}

func (e *Engine) processSecretPing(s interfaces.Stream, source string, msg SecretPingMsg) {
	defer s.Close()

	if !e.enabled.Load() || e.completion.RecentlyCompleted(msg.UID) {
		e.replyRejected(s, msg.UID)
		return
	}

	if _, secret, ok := e.secrets.ByUID(msg.UID); ok {
		// The ping has arrived at its intended recipient.
		if msg.HTL > msg.DawnHTL {
			e.replyRejected(s, msg.UID)
			return
		}
		e.replyPong(s, msg.UID, msg.Counter+1, secret)
		return
	}

	e.completion.Completed(msg.UID)
	e.forwardSecretPing(s, source, msg)
}

// forwardSecretPing implements _handleSecretPing's forwarding loop: pick
// successive candidates, decrement HTL, relay, and wait for a matching
// reply, trying the next candidate on RejectedLoop.
func (e *Engine) forwardSecretPing(s interfaces.Stream, source string, msg SecretPingMsg) {
	routedTo := make(map[string]struct{})

	htl := msg.HTL
	dawnHTL := msg.DawnHTL
	counter := msg.Counter

	for {
		var next string
		var ok bool
		if htl > dawnHTL && len(routedTo) == 0 {
			next, ok = e.router.RandomPeer(source)
		} else {
			next, ok = e.router.CloserPeer(source, routedTo, msg.Target)
		}
		if !ok {
			e.replyRejected(s, msg.UID)
			return
		}

		htl = e.directory.DecrementHTL(next, htl)
		if htl <= 0 {
			e.replyRejected(s, msg.UID)
			return
		}

		if !e.directory.IsConnected(source) {
			// source-gone: abort silently, no upstream reply.
			return
		}

		routedTo[next] = struct{}{}

		pong, rejected, reached, err := e.roundTripSecretPing(next, msg.UID, msg.Target, htl, dawnHTL, counter+1)
		if err != nil {
			if !reached {
				// Stream-open or send failure: try the next candidate
				// instead of aborting the whole chain. next stays in
				// routedTo (added above, mirroring NetworkIDManager.java's
				// routedTo.add(next) ahead of its own send attempt) so a
				// dead candidate is never retried and the loop still
				// terminates within len(connected) attempts.
				engineLogger.Debug("secret-ping: forward candidate unreachable, retrying", "next", next, "err", err)
				continue
			}
			engineLogger.Debug("secret-ping: forward timed out", "next", next, "err", err)
			return
		}
		if rejected {
			continue
		}
		suppliedCounter := pong.Counter
		relayCounter := counter + 1
		if suppliedCounter > relayCounter {
			relayCounter = suppliedCounter
		}
		e.replyPong(s, msg.UID, relayCounter, pong.Secret)
		return
	}
}

// roundTripSecretPing opens a new outbound stream to next, sends a
// SecretPing, and waits for SecretPong or RejectedLoop on that same stream.
// The returned reached flag distinguishes a candidate that was never
// actually contacted (stream-open or send failure, the Go analogue of
// Java's NotConnectedException) from one that was reached but whose reply
// never arrived in time — only the latter is a genuine timeout.
func (e *Engine) roundTripSecretPing(next string, uid uint64, target float64, htl, dawnHTL int16, counter int32) (pong *SecretPongMsg, rejected, reached bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SecretPongTimeout)
	defer cancel()

	stream, err := e.host.NewStream(ctx, next, string(protocol.SecretPing))
	if err != nil {
		return nil, false, false, err
	}
	defer stream.Close()
	_ = stream.SetDeadline(time.Now().Add(e.cfg.SecretPongTimeout))

	data, err := encodeJSON(SecretPingMsg{
		UID:     uid,
		Target:  target,
		HTL:     htl,
		DawnHTL: dawnHTL,
		Counter: counter,
	})
	if err != nil {
		return nil, false, false, err
	}
	if err := sendMessage(stream, data); err != nil {
		return nil, false, false, err
	}

	// The ping was sent: next was reached. Anything that fails from here
	// on (including the receive deadline) is the timeout case.
	respData, err := receiveMessage(stream)
	if err != nil {
		return nil, false, true, err
	}
	var reply secretPingReply
	if err := decodeJSON(respData, &reply); err != nil {
		return nil, false, true, err
	}
	if reply.Kind == replyKindRejected {
		return nil, true, true, nil
	}
	return reply.Pong, false, true, nil
}

func (e *Engine) replyPong(s interfaces.Stream, uid uint64, counter int32, secret uint64) {
	data, err := encodeJSON(newPongReply(&SecretPongMsg{UID: uid, Counter: counter, Secret: secret}))
	if err != nil {
		return
	}
	if err := sendMessage(s, data); err != nil {
		engineLogger.Debug("secret-ping: pong reply failed", "err", err)
	}
}

// AnnounceNetworkID sends a best-effort NetworkID message to peer, used by
// the Group Registry after an assignment (spec §4.8: "send NetworkID
// message to the peer best-effort").
func (e *Engine) AnnounceNetworkID(peer string, id int32) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.AcceptedTimeout)
	defer cancel()

	stream, err := e.host.NewStream(ctx, peer, string(protocol.NetworkID))
	if err != nil {
		engineLogger.Debug("announce-network-id: open stream failed", "peer", peer, "err", err)
		return
	}
	defer stream.Close()
	_ = stream.SetDeadline(time.Now().Add(e.cfg.AcceptedTimeout))

	data, err := encodeJSON(NetworkIDMsg{ID: id})
	if err != nil {
		return
	}
	if err := sendMessage(stream, data); err != nil {
		engineLogger.Debug("announce-network-id: send failed", "peer", peer, "err", err)
	}
}

// handleNetworkIDStream is the inbound side of NetworkID announcements: it
// decodes the message and forwards it to onPeerAnnouncedNetworkID, wired by
// service.go to the Reactor (C7).
func (e *Engine) handleNetworkIDStream(s interfaces.Stream) {
	defer s.Close()
	_ = s.SetDeadline(time.Now().Add(e.cfg.AcceptedTimeout))

	data, err := receiveMessage(s)
	if err != nil {
		return
	}
	var msg NetworkIDMsg
	if err := decodeJSON(data, &msg); err != nil {
		return
	}
	peer := s.RemotePeer()
	if e.onPeerAnnouncedNetworkID != nil {
		e.onPeerAnnouncedNetworkID(peer, msg.ID)
	}
}

func (e *Engine) replyRejected(s interfaces.Stream, uid uint64) {
	data, err := encodeJSON(newRejectedReply(&RejectedLoopMsg{UID: uid}))
	if err != nil {
		return
	}
	if err := sendMessage(s, data); err != nil {
		engineLogger.Debug("secret-ping: rejected reply failed", "err", err)
	}
}

// StoreSecretRoundTrip is the client role's first phase: send StoreSecret
// to target and wait for Accepted.
func (e *Engine) StoreSecretRoundTrip(ctx context.Context, target string, uid, secret uint64) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.AcceptedTimeout)
	defer cancel()

	stream, err := e.host.NewStream(ctx, target, string(protocol.StoreSecret))
	if err != nil {
		return err
	}
	defer stream.Close()
	_ = stream.SetDeadline(time.Now().Add(e.cfg.AcceptedTimeout))

	data, err := encodeJSON(StoreSecretMsg{UID: uid, Secret: secret})
	if err != nil {
		return err
	}
	if err := sendMessage(stream, data); err != nil {
		return err
	}

	respData, err := receiveMessage(stream)
	if err != nil {
		return err
	}
	var accepted AcceptedMsg
	if err := decodeJSON(respData, &accepted); err != nil {
		return err
	}
	if accepted.UID != uid {
		return ErrSecretMismatch
	}
	return nil
}

// SecretPingRoundTrip is the client role's second phase: send SecretPing to
// next and wait for SecretPong or RejectedLoop.
func (e *Engine) SecretPingRoundTrip(ctx context.Context, next string, uid uint64, targetLocation float64, htl, dawnHTL int16) (*SecretPongMsg, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.SecretPongTimeout)
	defer cancel()

	stream, err := e.host.NewStream(ctx, next, string(protocol.SecretPing))
	if err != nil {
		return nil, false, err
	}
	defer stream.Close()
	_ = stream.SetDeadline(time.Now().Add(e.cfg.SecretPongTimeout))

	data, err := encodeJSON(SecretPingMsg{
		UID:     uid,
		Target:  targetLocation,
		HTL:     htl,
		DawnHTL: dawnHTL,
		Counter: 0,
	})
	if err != nil {
		return nil, false, err
	}
	if err := sendMessage(stream, data); err != nil {
		return nil, false, err
	}

	respData, err := receiveMessage(stream)
	if err != nil {
		return nil, false, err
	}
	var reply secretPingReply
	if err := decodeJSON(respData, &reply); err != nil {
		return nil, false, err
	}
	if reply.Kind == replyKindRejected {
		return nil, true, nil
	}
	return reply.Pong, false, nil
}
