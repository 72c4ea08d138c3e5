package netid

import (
	"math"
	"sync"
	"time"
)

// PingRecord is the adaptive-parameter layer for a single (target, via)
// pair: it learns, from streaming success/failure samples, the HTL and dawn
// HTL to use the next time NIM routes a probe to target through via (C2;
// grounded on NetworkIDManager.java's PingRecord inner class).
//
// The matrix is directional: PingRecord for (target, via) is independent of
// the record for (via, target) — see matrix.go.
type PingRecord struct {
	mu sync.Mutex

	target string
	via    string

	lastTry         time.Time
	lastSuccess     time.Time
	shortestSuccess int32 // counter at the fastest observed success; monotonically non-increasing

	average *BootstrappingDecayingRunningAverage // 0.0/1.0 samples

	sHtl *BootstrappingDecayingRunningAverage
	fHtl *BootstrappingDecayingRunningAverage

	sDawn *BootstrappingDecayingRunningAverage
	fDawn *BootstrappingDecayingRunningAverage

	minHTL       int16
	horizon      int
	comfortLevel int
}

// NewPingRecord constructs a PingRecord for the (target, via) pair.
// comfortLevel is the sample-count floor GetNextHtl/GetNextDawnHtl require
// before trusting the observed averages over the untuned defaults (spec
// §6: COMFORT_LEVEL, reused verbatim from NetworkIDManager.java's
// PingRecord, which checks sHtl/fHtl/sDawn.countReports() against the same
// constant it uses for the prober's startup-mode peer-count floor).
func NewPingRecord(target, via string, minHTL int16, horizon, comfortLevel int) *PingRecord {
	return &PingRecord{
		target:       target,
		via:          via,
		average:      NewBootstrappingDecayingRunningAverage(0.0, 0.0, 1.0, horizon),
		sHtl:         NewBootstrappingDecayingRunningAverage(0.0, 0.0, math.MaxInt16, horizon),
		fHtl:         NewBootstrappingDecayingRunningAverage(0.0, 0.0, math.MaxInt16, horizon),
		sDawn:        NewBootstrappingDecayingRunningAverage(0.0, 0.0, math.MaxInt16, horizon),
		fDawn:        NewBootstrappingDecayingRunningAverage(0.0, 0.0, math.MaxInt16, horizon),
		minHTL:       minHTL,
		horizon:      horizon,
		comfortLevel: comfortLevel,
	}
}

// Target returns the peer this record predicts reachability to.
func (p *PingRecord) Target() string { return p.target }

// Via returns the peer this record routes through.
func (p *PingRecord) Via() string { return p.via }

// Success records a successful probe: counter is the hop count at which the
// probe succeeded, htl is the HTL it was sent with, dawn is the random-hop
// count (htl - dawnHtl) used.
func (p *PingRecord) Success(counter int32, htl, dawn int16) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.lastTry = now
	p.lastSuccess = now
	if p.shortestSuccess == 0 || counter < p.shortestSuccess {
		p.shortestSuccess = counter
	}

	p.average.Report(1.0)
	p.sHtl.Report(float64(htl))
	p.sDawn.Report(float64(dawn))
}

// Failure records a failed probe (disconnection, timeout, or RejectedLoop).
func (p *PingRecord) Failure(counter int32, htl, dawn int16) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastTry = time.Now()

	p.average.Report(0.0)
	p.fHtl.Report(float64(htl))
	p.fDawn.Report(float64(dawn))
}

// LastTry returns the time of the most recent sample, success or failure.
func (p *PingRecord) LastTry() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTry
}

// LastSuccess returns the time of the most recent success. Zero if none yet.
func (p *PingRecord) LastSuccess() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSuccess
}

// AverageValue returns the current success-rate average, in [0, 1].
func (p *PingRecord) AverageValue() float64 {
	return p.average.CurrentValue()
}

// GetNextHtl picks the HTL to use for the next probe through this pair
// (spec §4.2, property P2/P3):
//   - fewer than comfortLevel successful-HTL samples so far: return maxHTL
//     (not enough evidence to shrink the search yet);
//   - average success rate > 0.8: shrink toward sHtl.value - 0.5;
//   - otherwise: widen toward sHtl.value + 0.5;
//
// always clamped to [minHTL, maxHTL].
func (p *PingRecord) GetNextHtl(maxHTL int16) int16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sHtl.CountReports() < p.comfortLevel {
		return maxHTL
	}

	var next float64
	if p.average.CurrentValue() > 0.8 {
		next = roundHalfUp(p.sHtl.CurrentValue() - 0.5)
	} else {
		next = roundHalfUp(p.sHtl.CurrentValue() + 0.5)
	}
	return clampHTL(int16(next), p.minHTL, maxHTL)
}

// GetNextDawnHtl picks the dawn HTL for a probe sent with htl (spec §4.2,
// property P2): the random-hop count diff is capped at htl/2 - 1 so at
// least half the remaining hops are deterministic, and chosen as:
//   - 2, if fewer than comfortLevel failed-dawn samples so far;
//   - round(fDawn.value), if fewer than comfortLevel successful-dawn samples;
//   - round(0.25*fDawn.value + 0.75*sDawn.value), otherwise.
func (p *PingRecord) GetNextDawnHtl(htl int16) int16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var diff float64
	switch {
	case p.fDawn.CountReports() < p.comfortLevel:
		diff = 2
	case p.sDawn.CountReports() < p.comfortLevel:
		diff = roundHalfUp(p.fDawn.CurrentValue())
	default:
		diff = roundHalfUp(0.25*p.fDawn.CurrentValue() + 0.75*p.sDawn.CurrentValue())
	}

	cap := float64(htl)/2 - 1
	if cap < 0 {
		cap = 0
	}
	if diff > cap {
		diff = cap
	}
	if diff < 0 {
		diff = 0
	}

	return htl - int16(diff)
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func clampHTL(v, min, max int16) int16 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
