package probe

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Battery fans a target list out over a bounded worker pool and fans
// the results back in. Probes are independent; a slow or failing probe
// only affects its own slot.
type Battery struct {
	probers map[Kind]Prober
	workers int
	logger  *slog.Logger
}

func NewBattery(logger *slog.Logger, workers int, probers ...Prober) *Battery {
	m := make(map[Kind]Prober, len(probers))
	for _, p := range probers {
		m[p.Kind()] = p
	}
	if workers <= 0 {
		workers = 1
	}
	return &Battery{probers: m, workers: workers, logger: logger}
}

// Run returns exactly one result per target, in target order.
func (b *Battery) Run(ctx context.Context, targets []Target) []Result {
	results := make([]Result, len(targets))

	var g errgroup.Group
	g.SetLimit(b.workers)

	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			results[i] = b.probeOne(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (b *Battery) probeOne(ctx context.Context, t Target) Result {
	p, ok := b.probers[t.Kind]
	if !ok {
		return Result{Target: t, Err: ErrOther, Detail: "no prober for kind " + string(t.Kind)}
	}
	if err := ctx.Err(); err != nil {
		return Result{Target: t, Err: ErrCanceled, Detail: err.Error()}
	}

	start := time.Now()
	res := p.Probe(ctx, t)
	b.logger.Debug("probe finished",
		"kind", t.Kind,
		"address", t.Address,
		"success", res.Success,
		"err", res.Err,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}
