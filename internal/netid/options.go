package netid

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// NoNetworkID is the sentinel "unassigned" network id (spec GLOSSARY:
// NO_NETWORKID = 0). A node that has not yet completed a reckoning pass
// reports this value; a group with no consensus is given a random non-zero
// id instead.
const NoNetworkID int32 = 0

// Config carries every tunable of the Network-ID Manager. Build one with
// DefaultConfig and layer Option values on top; construction never mutates
// a shared default.
type Config struct {
	// StartupDelay is how long the prober waits after Start before it runs
	// its first volley (spec §6: STARTUP_DELAY).
	StartupDelay time.Duration

	// BetweenPeersDelay is the delay before the prober's next tick (one
	// volley against one target) while targets remain queued or startup is
	// still draining; it is also the Reactor's anti-thrash window (spec §6:
	// BETWEEN_PEERS).
	BetweenPeersDelay time.Duration

	// LongPeriod is the steady-state delay before the next tick once the
	// queue has drained a full round of targets (spec §6: LONG_PERIOD).
	LongPeriod time.Duration

	// MinHTL is the floor below which the adaptive HTL sampler never
	// drops, regardless of observed failure rate (spec §6: MIN_HTL).
	MinHTL int16

	// MinPingsForStartup is multiplied by the connected-peer count at the
	// end of StartupDelay to give the number of volleys, successful or not,
	// that run before reckoning is allowed (spec §6:
	// MIN_PINGS_FOR_STARTUP).
	MinPingsForStartup int

	// ComfortLevel is how many success or failure samples a PingRecord
	// needs before GetNextHtl/GetNextDawnHtl trust the observed averages
	// over their defaults (spec §6: COMFORT_LEVEL).
	ComfortLevel int

	// PingVolleysPerNetworkRecompute is how many ping volleys fire between
	// successive network-id reckoning passes (spec §6:
	// PING_VOLLEYS_PER_NETWORK_RECOMPUTE).
	PingVolleysPerNetworkRecompute int

	// MagicLinearGrace scales the seed's setwise ping average into the
	// threshold a candidate must reach to be pulled into the seed's
	// cluster (spec §6: MAGIC_LINEAR_GRACE).
	MagicLinearGrace float64

	// FallOpenMark is the seed's setwise ping average below which
	// clustering "falls open": every remaining peer joins the seed's group
	// (spec §6: FALL_OPEN_MARK).
	FallOpenMark float64

	// DregsMergeThreshold is the two-way ping average above which a seed
	// that pulled in nobody still absorbs the single peer left over
	// ("combine the dregs").
	DregsMergeThreshold float64

	// AcceptedTimeout bounds how long a StoreSecret round trip waits for
	// its Accepted reply (spec §6: ACCEPTED_TIMEOUT).
	AcceptedTimeout time.Duration

	// SecretPongTimeout bounds how long a SecretPing round trip waits for
	// its SecretPong/RejectedLoop reply (spec §6: SECRETPONG_TIMEOUT).
	SecretPongTimeout time.Duration

	// RunningAverageHorizon is the horizon used by every
	// BootstrappingDecayingRunningAverage this package constructs (spec
	// §6: horizon = 200).
	RunningAverageHorizon int

	// DisableSecretPings, when true, makes the server side answer every
	// inbound SecretPing with RejectedLoop; inbound StoreSecret is still
	// stored and acknowledged (spec §6: disableSecretPings, defaults true).
	DisableSecretPings bool

	// DisableSecretPinger, when true, stops the local prober from issuing
	// new probes, independent of whether it still answers inbound ones
	// (spec §6: disableSecretPinger).
	DisableSecretPinger bool

	// ProbeWorkQueueCapacity bounds how many pending probe targets the
	// work queue holds before new enqueue attempts are dropped.
	ProbeWorkQueueCapacity int

	// CompletionCacheSize bounds the LRU used for SecretPing uid dedup.
	CompletionCacheSize int
}

// DefaultConfig returns the tunables spec.md §6 specifies, before any
// Option is applied.
func DefaultConfig() Config {
	return Config{
		StartupDelay:                   20 * time.Second,
		BetweenPeersDelay:              2 * time.Second,
		LongPeriod:                     120 * time.Second,
		MinHTL:                        3,
		MinPingsForStartup:             3,
		ComfortLevel:                  20,
		PingVolleysPerNetworkRecompute: 5,
		MagicLinearGrace:               0.8,
		FallOpenMark:                   0.2,
		DregsMergeThreshold:            0.25,
		AcceptedTimeout:                5 * time.Second,
		SecretPongTimeout:              20 * time.Second,
		RunningAverageHorizon:          200,
		DisableSecretPings:             true,
		DisableSecretPinger:            true,
		ProbeWorkQueueCapacity:         256,
		CompletionCacheSize:            4096,
	}
}

// Option mutates a Config in place; apply with NewConfig.
type Option func(*Config)

// NewConfig builds a Config starting from DefaultConfig and applying opts in
// order.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithStartupDelay overrides StartupDelay.
func WithStartupDelay(d time.Duration) Option {
	return func(c *Config) { c.StartupDelay = d }
}

// WithBetweenPeersDelay overrides BetweenPeersDelay.
func WithBetweenPeersDelay(d time.Duration) Option {
	return func(c *Config) { c.BetweenPeersDelay = d }
}

// WithLongPeriod overrides LongPeriod.
func WithLongPeriod(d time.Duration) Option {
	return func(c *Config) { c.LongPeriod = d }
}

// WithMinHTL overrides MinHTL.
func WithMinHTL(htl int16) Option {
	return func(c *Config) { c.MinHTL = htl }
}

// WithComfortLevel overrides ComfortLevel.
func WithComfortLevel(n int) Option {
	return func(c *Config) { c.ComfortLevel = n }
}

// WithPingVolleysPerNetworkRecompute overrides PingVolleysPerNetworkRecompute.
func WithPingVolleysPerNetworkRecompute(n int) Option {
	return func(c *Config) { c.PingVolleysPerNetworkRecompute = n }
}

// WithMagicLinearGrace overrides MagicLinearGrace.
func WithMagicLinearGrace(f float64) Option {
	return func(c *Config) { c.MagicLinearGrace = f }
}

// WithFallOpenMark overrides FallOpenMark.
func WithFallOpenMark(f float64) Option {
	return func(c *Config) { c.FallOpenMark = f }
}

// WithDregsMergeThreshold overrides DregsMergeThreshold.
func WithDregsMergeThreshold(f float64) Option {
	return func(c *Config) { c.DregsMergeThreshold = f }
}

// WithAcceptedTimeout overrides AcceptedTimeout.
func WithAcceptedTimeout(d time.Duration) Option {
	return func(c *Config) { c.AcceptedTimeout = d }
}

// WithSecretPongTimeout overrides SecretPongTimeout.
func WithSecretPongTimeout(d time.Duration) Option {
	return func(c *Config) { c.SecretPongTimeout = d }
}

// WithRunningAverageHorizon overrides RunningAverageHorizon.
func WithRunningAverageHorizon(n int) Option {
	return func(c *Config) { c.RunningAverageHorizon = n }
}

// WithSecretPingsEnabled clears DisableSecretPings and DisableSecretPinger,
// the pair of flags that gate whether NIM answers and issues secret pings
// respectively (spec §6: both default true).
func WithSecretPingsEnabled() Option {
	return func(c *Config) {
		c.DisableSecretPings = false
		c.DisableSecretPinger = false
	}
}

// WithProbeWorkQueueCapacity overrides ProbeWorkQueueCapacity.
func WithProbeWorkQueueCapacity(n int) Option {
	return func(c *Config) { c.ProbeWorkQueueCapacity = n }
}

// WithCompletionCacheSize overrides CompletionCacheSize.
func WithCompletionCacheSize(n int) Option {
	return func(c *Config) { c.CompletionCacheSize = n }
}

// Validate rejects tunable combinations that would make the manager behave
// incoherently. Every failing field is accumulated into the returned error
// via multierr, rather than short-circuiting on the first, so a caller
// fixing up a Config sees every problem in one pass instead of one at a
// time.
func (c Config) Validate() error {
	var err error
	if c.MinHTL < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: MinHTL must be >= 1, got %d", ErrInvalidConfig, c.MinHTL))
	}
	if c.RunningAverageHorizon < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: RunningAverageHorizon must be >= 1, got %d", ErrInvalidConfig, c.RunningAverageHorizon))
	}
	if c.FallOpenMark < 0 || c.FallOpenMark > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: FallOpenMark must be in [0,1], got %f", ErrInvalidConfig, c.FallOpenMark))
	}
	if c.MagicLinearGrace < 0 || c.MagicLinearGrace > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: MagicLinearGrace must be in [0,1], got %f", ErrInvalidConfig, c.MagicLinearGrace))
	}
	if c.DregsMergeThreshold < 0 || c.DregsMergeThreshold > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: DregsMergeThreshold must be in [0,1], got %f", ErrInvalidConfig, c.DregsMergeThreshold))
	}
	if c.ComfortLevel < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: ComfortLevel must be >= 0, got %d", ErrInvalidConfig, c.ComfortLevel))
	}
	if c.PingVolleysPerNetworkRecompute < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: PingVolleysPerNetworkRecompute must be >= 1, got %d", ErrInvalidConfig, c.PingVolleysPerNetworkRecompute))
	}
	if c.AcceptedTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: AcceptedTimeout must be > 0, got %s", ErrInvalidConfig, c.AcceptedTimeout))
	}
	if c.SecretPongTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: SecretPongTimeout must be > 0, got %s", ErrInvalidConfig, c.SecretPongTimeout))
	}
	if c.ProbeWorkQueueCapacity < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: ProbeWorkQueueCapacity must be >= 1, got %d", ErrInvalidConfig, c.ProbeWorkQueueCapacity))
	}
	if c.CompletionCacheSize < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: CompletionCacheSize must be >= 1, got %d", ErrInvalidConfig, c.CompletionCacheSize))
	}
	return err
}

// Clone returns a deep copy; Config currently holds no reference types so a
// value copy suffices, but the method exists to match the teacher's
// Config.Clone convention and to stay correct if a slice/map field is ever
// added.
func (c Config) Clone() Config {
	return c
}
