package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

// EndpointsProber checks every address in parallel and reports a
// reachable/total tally instead of a verdict: 3/5 on a portal-filtered
// network is signal the boolean would destroy. host:port entries get a
// TCP dial; bare addresses (the gateway) get an ICMP echo, since
// routers rarely expose a TCP service.
type EndpointsProber struct {
	Logger *slog.Logger

	dial func(ctx context.Context, addr string, timeout time.Duration) error
	echo func(ctx context.Context, host string, timeout time.Duration) (float64, error)
}

func NewEndpointsProber(logger *slog.Logger, pinger *PingProber) *EndpointsProber {
	return &EndpointsProber{
		Logger: logger,
		dial:   dialCheck,
		echo:   pinger.echo,
	}
}

func (p *EndpointsProber) Kind() Kind { return KindEndpoints }

func (p *EndpointsProber) Probe(ctx context.Context, t Target) Result {
	hosts := t.Addresses()
	res := Result{Target: t, Total: len(hosts)}

	reachable := make([]bool, len(hosts))

	var g errgroup.Group
	for i, host := range hosts {
		i, host := i, host
		g.Go(func() error {
			reachable[i] = p.check(ctx, host, t.Timeout)
			return nil
		})
	}
	_ = g.Wait()

	for _, ok := range reachable {
		if ok {
			res.Reachable++
		}
	}

	res.Success = res.Reachable > 0
	res.Detail = fmt.Sprintf("%d/%d reachable", res.Reachable, res.Total)
	if !res.Success {
		res.Err = ErrUnreachable
	}
	return res
}

func (p *EndpointsProber) check(ctx context.Context, host string, timeout time.Duration) bool {
	if _, _, err := net.SplitHostPort(host); err == nil {
		if err := p.dial(ctx, host, timeout); err != nil {
			p.Logger.Debug("endpoint dial failed", "host", host, "err", err)
			return false
		}
		return true
	}

	if _, err := p.echo(ctx, host, timeout); err != nil {
		p.Logger.Debug("endpoint echo failed", "host", host, "err", err)
		return false
	}
	return true
}

func dialCheck(ctx context.Context, addr string, timeout time.Duration) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(cctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}
