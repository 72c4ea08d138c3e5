package netid

import (
	"time"

	"github.com/dep2p/netid-manager/pkg/interfaces"
	"github.com/dep2p/netid-manager/pkg/lib/log"
)

var reckonerLogger = log.Logger("netid/reckoner")

// Reckoner is the clustering algorithm (C6): it partitions the connected
// peer set into PeerNetworkGroups from the Sample Matrix and assigns each a
// consensus integer label (grounded on
// NetworkIDManager.java#doNetworkIDReckoning and its
// findMostConnectedPeerInSet / xferConnectedPeerSetFor /
// getSetwisePingAverage / findBestSetwisePingAverage helpers).
type Reckoner struct {
	matrix    *Matrix
	registry  *GroupRegistry
	router    interfaces.PeerRouter
	directory interfaces.PeerDirectory
	rng       interfaces.RNG
	engine    *Engine
	metrics   *Metrics
	cfg       Config
}

// NewReckoner constructs a Reckoner.
func NewReckoner(
	matrix *Matrix,
	registry *GroupRegistry,
	router interfaces.PeerRouter,
	directory interfaces.PeerDirectory,
	rng interfaces.RNG,
	engine *Engine,
	metrics *Metrics,
	cfg Config,
) *Reckoner {
	return &Reckoner{
		matrix:    matrix,
		registry:  registry,
		router:    router,
		directory: directory,
		rng:       rng,
		engine:    engine,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// pingAvg reads M[target][via]: target's reachability as measured via the
// via peer. Unmeasured pairs read as 0, the average's zero value, which is
// exactly what the fall-open branch and connectedness floor expect.
func (rk *Reckoner) pingAvg(target, via string) float64 {
	if target == via {
		return 1.0
	}
	row := rk.matrix.Row(target)
	if row == nil {
		return 0
	}
	rec, ok := row[via]
	if !ok {
		return 0
	}
	return rec.AverageValue()
}

// connectedness(p, S) = product over q in S of max(pingAvg(p,q), 1/|S|).
// The 1/|S| floor prevents a single zero sample from annihilating the
// score (spec §4.6).
func (rk *Reckoner) connectedness(p string, set []string) float64 {
	if len(set) == 0 {
		return 0
	}
	floor := 1.0 / float64(len(set))
	score := 1.0
	for _, q := range set {
		v := rk.pingAvg(p, q)
		if v < floor {
			v = floor
		}
		score *= v
	}
	return score
}

// setwiseAverage is the mean of pingAvg(seed, q) over q in others.
func (rk *Reckoner) setwiseAverage(seed string, others []string) float64 {
	if len(others) == 0 {
		return 0
	}
	sum := 0.0
	for _, q := range others {
		sum += rk.pingAvg(seed, q)
	}
	return sum / float64(len(others))
}

// Reckon runs one full reckoning pass over all currently connected peers,
// replaces the group registry, and returns the new ordered group list.
func (rk *Reckoner) Reckon() []*PeerNetworkGroup {
	rk.registry.SetInTransition(true)
	defer rk.registry.SetInTransition(false)

	start := time.Now()
	defer func() {
		if rk.metrics != nil {
			rk.metrics.ReckonDuration.Observe(time.Since(start).Seconds())
		}
	}()

	all := rk.router.ConnectedPeers()
	todo := append([]string(nil), all...)
	taken := make(map[int32]struct{})
	var groups []*PeerNetworkGroup

	for len(todo) > 0 {
		seedIdx, seedScore := 0, -1.0
		for i, p := range todo {
			score := rk.connectedness(p, all)
			if score > seedScore {
				seedIdx, seedScore = i, score
			}
		}
		seed := todo[seedIdx]
		todo = append(todo[:seedIdx], todo[seedIdx+1:]...)

		if rk.metrics != nil {
			rk.metrics.ConnectednessBest.Observe(seedScore)
		}

		var members []string
		if len(todo) == 0 {
			members = []string{seed}
		} else {
			cluster, rest := rk.extractCluster(seed, todo)
			todo = rest
			members = append(cluster, seed)
		}

		group := newPeerNetworkGroup(members, taken)
		id := group.Consensus(rk.directory)
		if id == NoNetworkID {
			id = rk.rng.Int32()
			if id == NoNetworkID {
				id = 1
			}
		}
		peers := group.Assign(id, time.Now())
		if rk.engine != nil {
			for _, peer := range peers {
				rk.engine.AnnounceNetworkID(peer, id)
			}
		}

		groups = append(groups, group)
		taken[id] = struct{}{}
	}

	rk.registry.Replace(groups)
	reckonerLogger.Info("reckon complete", "ourNetworkId", rk.registry.OurNetworkID(), "peers", len(all), "groups", len(groups))
	if rk.metrics != nil {
		rk.metrics.Groups.Set(float64(len(groups)))
		rk.metrics.OurNetworkID.Set(float64(rk.registry.OurNetworkID()))
	}
	return groups
}

// extractCluster pulls the peers that belong in seed's cluster out of
// others, returning (cluster, remaining). Mirrors
// NetworkIDManager.java#xferConnectedPeerSetFor (spec §4.6).
func (rk *Reckoner) extractCluster(seed string, others []string) (cluster, remaining []string) {
	goodness := rk.setwiseAverage(seed, others)
	if rk.metrics != nil {
		rk.metrics.SetwiseAverageBest.Observe(goodness)
	}

	if goodness < rk.cfg.FallOpenMark {
		if rk.metrics != nil {
			rk.metrics.FallOpens.Inc()
		}
		return append([]string(nil), others...), nil
	}

	threshold := goodness * rk.cfg.MagicLinearGrace
	remaining = append([]string(nil), others...)

	for {
		if len(remaining) == 0 {
			break
		}
		currentCluster := append([]string{seed}, cluster...)
		bestIdx, bestScore := -1, -1.0
		for i, x := range remaining {
			score := rk.setwiseAverage(x, currentCluster)
			if score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
		if bestIdx < 0 || bestScore < threshold {
			break
		}
		cluster = append(cluster, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	if len(cluster) == 0 && len(remaining) == 1 {
		x := remaining[0]
		combined := (rk.pingAvg(x, seed) + rk.pingAvg(seed, x)) / 2
		if combined > rk.cfg.DregsMergeThreshold {
			if rk.metrics != nil {
				rk.metrics.DregsMerges.Inc()
			}
			cluster = append(cluster, x)
			remaining = nil
		}
	}

	return cluster, remaining
}
