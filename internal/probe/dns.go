package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/guregu/null/v5"
	"github.com/miekg/dns"
)

// DNSProber asks each resolver in turn for the target's A record. One
// healthy resolver is enough for the dimension to pass.
type DNSProber struct {
	Logger    *slog.Logger
	Resolvers []string
}

func (p *DNSProber) Kind() Kind { return KindDNS }

func (p *DNSProber) Probe(ctx context.Context, t Target) Result {
	res := Result{Target: t, Err: ErrDNS}

	client := &dns.Client{Timeout: t.Timeout}
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(t.Address), dns.TypeA)

	var lastErr error
	for _, resolver := range p.Resolvers {
		if err := ctx.Err(); err != nil {
			res.Err = ErrCanceled
			res.Detail = err.Error()
			return res
		}

		reply, rtt, err := client.ExchangeContext(ctx, msg, withDefaultPort(resolver, "53"))
		if err != nil {
			lastErr = err
			p.Logger.Debug("dns exchange failed", "host", t.Address, "resolver", resolver, "err", err)
			continue
		}
		if reply.Rcode != dns.RcodeSuccess || len(reply.Answer) == 0 {
			lastErr = fmt.Errorf("resolve %s via %s: rcode %s, %d answers",
				t.Address, resolver, dns.RcodeToString[reply.Rcode], len(reply.Answer))
			continue
		}

		res.Success = true
		res.Err = ErrNone
		res.LatencyMs = null.FloatFrom(float64(rtt) / float64(time.Millisecond))
		res.Detail = fmt.Sprintf("%d records via %s", len(reply.Answer), resolver)
		return res
	}

	if lastErr != nil {
		if classifyNetError(lastErr) == ErrTimeout {
			res.Err = ErrTimeout
		}
		res.Detail = lastErr.Error()
	}
	return res
}

func withDefaultPort(addr, port string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, port)
}
