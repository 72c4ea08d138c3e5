package netid

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/netid-manager/pkg/interfaces"
	"github.com/dep2p/netid-manager/pkg/lib/log"
)

var logger = log.Logger("netid")

// Service is the assembled Network-ID Manager: it wires the Secret Store
// (C1), Sample Matrix (C3), Protocol Engine (C4), Prober (C5), Reckoner
// (C6), Reactor (C7), and Group Registry (C8) into one lifecycle
// (grounded on the liveness protocol's Service struct/Start/Stop shape).
type Service struct {
	host      interfaces.Host
	router    interfaces.PeerRouter
	directory interfaces.PeerDirectory
	ticker    interfaces.Ticker
	rng       interfaces.RNG

	cfg Config

	secrets    *SecretStore
	matrix     *Matrix
	completion interfaces.CompletionTracker
	metrics    *Metrics
	registry   *GroupRegistry

	engine   *Engine
	prober   *Prober
	reckoner *Reckoner
	reactor  *Reactor

	mu      sync.RWMutex
	started bool
}

// New constructs a Service from its external collaborators. completion and
// registerer may be nil: a nil completion falls back to an
// LRUCompletionTracker built from cfg, and a nil registerer falls back to
// prometheus.NewRegistry() (isolated from the global default).
func New(
	host interfaces.Host,
	router interfaces.PeerRouter,
	directory interfaces.PeerDirectory,
	ticker interfaces.Ticker,
	rng interfaces.RNG,
	completion interfaces.CompletionTracker,
	registerer prometheus.Registerer,
	opts ...Option,
) (*Service, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	cfg := NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if completion == nil {
		completion = NewLRUCompletionTracker(cfg.CompletionCacheSize, cfg.SecretPongTimeout*10)
	}
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	secrets := NewSecretStore()
	matrix := NewMatrix(cfg.MinHTL, cfg.RunningAverageHorizon, cfg.ComfortLevel)
	metrics := NewMetrics(registerer)
	registry := NewGroupRegistry()

	engine := NewEngine(host, router, directory, completion, rng, secrets, matrix, metrics, cfg)
	prober := NewProber(engine, router, directory, rng, ticker, directory, matrix, metrics, cfg)
	reckoner := NewReckoner(matrix, registry, router, directory, rng, engine, metrics, cfg)
	reactor := NewReactor(registry, directory, engine, metrics, cfg)

	s := &Service{
		host:       host,
		router:     router,
		directory:  directory,
		ticker:     ticker,
		rng:        rng,
		cfg:        cfg,
		secrets:    secrets,
		matrix:     matrix,
		completion: completion,
		metrics:    metrics,
		registry:   registry,
		engine:     engine,
		prober:     prober,
		reckoner:   reckoner,
		reactor:    reactor,
	}

	prober.SetOnVolleyComplete(func() {
		s.reckoner.Reckon()
	})
	engine.SetOnPeerAnnouncedNetworkID(func(peer string, id int32) {
		s.reactor.OnPeerAnnouncedNetworkID(peer)
	})

	return s, nil
}

// Start brings the Protocol Engine online and, unless DisableSecretPinger
// is set, starts the Prober's scheduling.
func (s *Service) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	if err := s.engine.Start(); err != nil {
		return err
	}
	s.prober.Start()
	s.started = true
	logger.Info("network-id manager started")
	return nil
}

// Stop tears down the Prober and Protocol Engine. Prober.Stop() cannot
// fail, so the Engine's shutdown error is the only thing to report.
func (s *Service) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}

	s.prober.Stop()
	err := s.engine.Stop()
	s.started = false
	logger.Info("network-id manager stopped")
	return err
}

// OnPeerConnected enqueues peer for probing (spec: a freshly connected
// neighbour becomes a probe target).
func (s *Service) OnPeerConnected(peer string) {
	s.prober.Enqueue(peer)
}

// OnPeerDisconnected purges peer from the Secret Store, the Prober's
// queue/matrix interlock, and drops it from any group it belonged to on
// the next reckoning pass.
func (s *Service) OnPeerDisconnected(peer string) {
	s.secrets.OnDisconnect(peer)
	s.prober.OnDisconnect(peer)
}

// OurNetworkID returns the local node's currently believed network id.
func (s *Service) OurNetworkID() int32 {
	return s.registry.OurNetworkID()
}

// Groups returns a snapshot of the current ordered group list.
func (s *Service) Groups() []*PeerNetworkGroup {
	return s.registry.Groups()
}

// Reckon forces an immediate reckoning pass, bypassing the Prober's
// PingVolleysPerNetworkRecompute schedule. Exposed for operators and tests.
func (s *Service) Reckon() []*PeerNetworkGroup {
	return s.reckoner.Reckon()
}

// Metrics exposes the Prometheus collectors this Service registered, so a
// caller that supplied its own Registerer can still reach them directly
// (e.g. for an admin HTTP handler).
func (s *Service) Metrics() *Metrics {
	return s.metrics
}
