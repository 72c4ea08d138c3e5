package netid

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/netid-manager/pkg/interfaces"
)

// Module is the Fx module wiring a Network-ID Manager Service into a host
// application (grounded on the dep2p pack's discovery/coordinator module.go
// fx.Module/Params/Result/lifecycleInput shape).
var Module = fx.Module("netid",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params are the Fx-injected dependencies for building a Service. Host is
// required; everything else is optional so a host application that hasn't
// wired a particular collaborator yet still gets a working (if inert)
// manager.
type Params struct {
	fx.In

	Host       interfaces.Host
	Router     interfaces.PeerRouter        `optional:"true"`
	Directory  interfaces.PeerDirectory     `optional:"true"`
	Ticker     interfaces.Ticker            `optional:"true"`
	RNG        interfaces.RNG               `optional:"true"`
	Completion interfaces.CompletionTracker `optional:"true"`
	Registerer prometheus.Registerer        `optional:"true"`

	Config *Config `optional:"true"`
}

// Result is what the module exports for other modules to consume.
type Result struct {
	fx.Out

	Service *Service
}

// NewFromParams builds a Service from Fx-injected Params, falling back to
// the default in-package collaborator implementations (ClockTicker,
// LRUCompletionTracker) when the host application hasn't supplied its own.
func NewFromParams(p Params) (Result, error) {
	var opts []Option
	cfg := DefaultConfig()
	if p.Config != nil {
		cfg = *p.Config
	}
	opts = append(opts, func(c *Config) { *c = cfg })

	ticker := p.Ticker
	if ticker == nil {
		ticker = NewClockTicker()
	}

	svc, err := New(p.Host, p.Router, p.Directory, ticker, p.RNG, p.Completion, p.Registerer, opts...)
	if err != nil {
		return Result{}, err
	}
	return Result{Service: svc}, nil
}

type lifecycleInput struct {
	fx.In
	LC      fx.Lifecycle
	Service *Service
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Service.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return input.Service.Stop(ctx)
		},
	})
}
