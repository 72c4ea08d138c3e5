package interfaces

import "time"

// Ticker is the scheduled-task collaborator NIM uses to re-arm its own
// periodic work (spec §6: `ticker.queueTimedJob(job, delayMs)`). NIM never
// runs its own goroutine loop outside of a job scheduled this way.
type Ticker interface {
	// QueueTimedJob schedules job to run once, after delay has elapsed.
	QueueTimedJob(job func(), delay time.Duration)
}

// RNG is the node-owned randomness source (spec §6: `node.random`). NIM
// never seeds its own entropy.
type RNG interface {
	// Uint64 returns a uniformly distributed random 64-bit value, used for
	// secret/uid generation.
	Uint64() uint64

	// Float64 returns a uniformly distributed value in [0, 1), used for
	// the random routing target of the Prober's candidate traversal.
	Float64() float64

	// Int32 returns a random 32-bit value, used as a fallback network id
	// when a group reaches no consensus.
	Int32() int32
}

// HTLSource is the node-owned HTL ceiling (spec §6: `node.maxHTL()`). NIM
// treats it as a live value, not a cached constant, since the node may
// reconfigure its ceiling at runtime.
type HTLSource interface {
	// MaxHTL returns the node's current HTL ceiling.
	MaxHTL() int16
}

// CompletionTracker is the shared duplicate-suppression set NIM consults
// before forwarding a SecretPing (spec §6: `node.recentlyCompleted(uid)`,
// `node.completed(uid)`). Node-owned: NIM marks uids complete but never
// controls the tracker's retention policy.
type CompletionTracker interface {
	// Completed marks uid as having been routed/answered once.
	Completed(uid uint64)

	// RecentlyCompleted reports whether uid was marked completed recently
	// enough to still be rejected as a loop.
	RecentlyCompleted(uid uint64) bool
}
