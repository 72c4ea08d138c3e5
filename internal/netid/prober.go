package netid

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/netid-manager/pkg/interfaces"
	"github.com/dep2p/netid-manager/pkg/lib/log"
)

var proberLogger = log.Logger("netid/prober")

const betweenProbeSleep = 200 * time.Millisecond

// Prober is the periodic batch measurer (C5): a single-reader work queue of
// peers to measure, drained by a recurring task an external Ticker drives.
// Grounded on NetworkIDManager.java's run()/blockingUpdatePingRecord/
// forgetPingRecords trio, translated from Java's intrinsic-lock-per-field
// style into an explicit workQueue type plus a race-flag interlock field.
type Prober struct {
	engine    *Engine
	router    interfaces.PeerRouter
	directory interfaces.PeerDirectory
	rng       interfaces.RNG
	ticker    interfaces.Ticker
	htlSource interfaces.HTLSource
	matrix    *Matrix
	metrics   *Metrics
	cfg       Config

	// onVolleyComplete is invoked once every PingVolleysPerNetworkRecompute
	// ticks (and not during startup draining) to run the Reckoner. Wired by
	// service.go; nil is tolerated (no-op) so Prober is independently
	// testable.
	onVolleyComplete func()

	queue *workQueue

	mu              sync.Mutex
	running         bool
	race            atomic.Bool
	pingVolleysToGo int
	startupChecks   int
}

// NewProber constructs a Prober. Call Start to begin scheduling ticks.
func NewProber(
	engine *Engine,
	router interfaces.PeerRouter,
	directory interfaces.PeerDirectory,
	rng interfaces.RNG,
	ticker interfaces.Ticker,
	htlSource interfaces.HTLSource,
	matrix *Matrix,
	metrics *Metrics,
	cfg Config,
) *Prober {
	return &Prober{
		engine:          engine,
		router:          router,
		directory:       directory,
		rng:             rng,
		ticker:          ticker,
		htlSource:       htlSource,
		matrix:          matrix,
		metrics:         metrics,
		cfg:             cfg,
		queue:           newWorkQueue(cfg.ProbeWorkQueueCapacity),
		pingVolleysToGo: cfg.PingVolleysPerNetworkRecompute,
	}
}

// SetOnVolleyComplete installs the Reckoner hook.
func (p *Prober) SetOnVolleyComplete(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onVolleyComplete = fn
}

// Enqueue offers peer as a probe target. A no-op if peer is already queued
// or currently being processed.
func (p *Prober) Enqueue(peer string) bool {
	return p.queue.Enqueue(peer)
}

// Start schedules the first tick after StartupDelay.
func (p *Prober) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	if p.cfg.DisableSecretPinger {
		return
	}
	p.ticker.QueueTimedJob(p.onStartupDelay, p.cfg.StartupDelay)
}

// Stop marks the Prober idle; any tick already scheduled still fires once
// (the Ticker owns cancellation, which this package does not model) but
// will observe running=false and return immediately.
func (p *Prober) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

func (p *Prober) onStartupDelay() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	connected := p.router.QuickCountConnectedPeers()
	p.startupChecks = connected * p.cfg.MinPingsForStartup
	p.queue.Refill(p.router.ConnectedPeers())
	p.mu.Unlock()

	p.tick()
}

// tick implements one Prober cycle (spec §4.5).
func (p *Prober) tick() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	target, ok := p.queue.Pop()
	if ok {
		start := time.Now()
		p.runVolley(target)
		if p.metrics != nil {
			p.metrics.ProbeVolleyDuration.Observe(time.Since(start).Seconds())
		}

		p.mu.Lock()
		if p.race.Load() {
			p.race.Store(false)
			p.matrix.Forget(target)
		}
		p.queue.Finish()

		p.pingVolleysToGo--
		if p.startupChecks > 0 {
			p.startupChecks--
		}
		if p.startupChecks <= 0 && p.pingVolleysToGo <= 0 {
			p.pingVolleysToGo = p.cfg.PingVolleysPerNetworkRecompute
			hook := p.onVolleyComplete
			p.mu.Unlock()
			if hook != nil {
				hook()
			}
			p.mu.Lock()
		}
		p.mu.Unlock()
	}

	p.scheduleNext()
}

func (p *Prober) runVolley(target string) {
	randomTarget := p.rng.Float64()
	routedTo := make(map[string]struct{})

	for {
		next, ok := p.router.CloserPeer(target, routedTo, randomTarget)
		if !ok {
			return
		}
		if !p.directory.IsRoutable(target) || p.race.Load() {
			return
		}
		routedTo[next] = struct{}{}

		p.blockingUpdatePingRecord(target, next)

		time.Sleep(betweenProbeSleep)
	}
}

// blockingUpdatePingRecord is the client round trip described in spec §4.5:
// StoreSecret -> Accepted -> SecretPing -> SecretPong|RejectedLoop,
// synchronous, updating the matrix with exactly one sample.
func (p *Prober) blockingUpdatePingRecord(target, next string) {
	if p.metrics != nil {
		p.metrics.SecretPingAttempts.Inc()
	}

	record := p.matrix.Get(target, next)
	htl := record.GetNextHtl(p.htlSource.MaxHTL())
	dawn := record.GetNextDawnHtl(htl)

	uid := p.rng.Uint64()
	secret := p.rng.Uint64()

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.AcceptedTimeout+p.cfg.SecretPongTimeout)
	defer cancel()

	fail := func() {
		record.Failure(0, htl, dawn)
	}

	if err := p.engine.StoreSecretRoundTrip(ctx, target, uid, secret); err != nil {
		proberLogger.Debug("store-secret failed", "target", target, "err", err)
		fail()
		return
	}

	targetLocation, _ := p.directory.Location(target)
	pong, rejected, err := p.engine.SecretPingRoundTrip(ctx, next, uid, targetLocation, htl, dawn)
	if err != nil {
		proberLogger.Debug("secret-ping round trip failed", "next", next, "err", err)
		if p.metrics != nil {
			p.metrics.SecretPingTimeouts.Inc()
		}
		fail()
		return
	}
	if rejected {
		if p.metrics != nil {
			p.metrics.SecretPingRejections.Inc()
		}
		fail()
		return
	}
	if pong.Secret != secret {
		fail()
		return
	}

	record.Success(pong.Counter, htl, dawn)
	if p.metrics != nil {
		p.metrics.SecretPingSuccesses.Inc()
	}
}

// scheduleNext reschedules the next tick: BETWEEN_PEERS while the queue
// still has pending work or startup is draining, LONG_PERIOD once a full
// round has drained during steady state.
func (p *Prober) scheduleNext() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	startupDraining := p.startupChecks > 0
	p.mu.Unlock()

	if p.queue.Len() == 0 {
		p.queue.Refill(p.router.ConnectedPeers())
		if startupDraining {
			p.ticker.QueueTimedJob(p.tick, p.cfg.BetweenPeersDelay)
		} else {
			p.ticker.QueueTimedJob(p.tick, p.cfg.LongPeriod)
		}
		return
	}
	p.ticker.QueueTimedJob(p.tick, p.cfg.BetweenPeersDelay)
}

// OnDisconnect purges peer from the queue and, via the race-flag interlock,
// from the matrix (spec §4.3: forget() must interlock with the Prober — if
// p is the peer currently being probed, a race flag is set instead of
// mutating, and the in-flight run's results are discarded at the end of the
// volley).
func (p *Prober) OnDisconnect(peer string) {
	if p.queue.IsProcessing(peer) {
		p.race.Store(true)
		return
	}
	p.matrix.Forget(peer)
}
