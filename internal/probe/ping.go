package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v5"
	probing "github.com/prometheus-community/pro-bing"
)

// PingProber sends a single ICMP echo and walks the alternate hosts on
// failure, so one dead anycast target does not mark the dimension
// down. The unprivileged UDP socket is tried first; when the kernel
// refuses it, the system ping binary is parsed instead.
type PingProber struct {
	Logger     *slog.Logger
	Privileged bool

	echo func(ctx context.Context, host string, timeout time.Duration) (float64, error)
}

func NewPingProber(logger *slog.Logger) *PingProber {
	p := &PingProber{Logger: logger}
	p.echo = p.icmpEcho
	return p
}

func (p *PingProber) Kind() Kind { return KindPing }

func (p *PingProber) Probe(ctx context.Context, t Target) Result {
	res := Result{Target: t, Err: ErrUnreachable}

	var lastErr error
	for _, host := range t.Addresses() {
		if err := ctx.Err(); err != nil {
			res.Err = ErrCanceled
			res.Detail = err.Error()
			return res
		}

		rtt, err := p.echo(ctx, host, t.Timeout)
		if err == nil {
			res.Success = true
			res.Err = ErrNone
			res.LatencyMs = null.FloatFrom(rtt)
			res.Detail = "echo reply from " + host
			return res
		}

		lastErr = err
		p.Logger.Debug("ping attempt failed", "host", host, "err", err)
	}

	if lastErr != nil {
		if kind := classifyNetError(lastErr); kind != ErrNone && kind != ErrOther {
			res.Err = kind
		}
		res.Detail = lastErr.Error()
	}
	return res
}

func (p *PingProber) icmpEcho(ctx context.Context, host string, timeout time.Duration) (float64, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", host, err)
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(p.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		if isSocketDenied(err) {
			return p.systemPing(ctx, host, timeout)
		}
		return 0, fmt.Errorf("ping %s: %w", host, err)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("ping %s: %w", host, errNoReply)
	}
	return float64(stats.AvgRtt) / float64(time.Millisecond), nil
}

func isSocketDenied(err error) bool {
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "operation not permitted")
}

var pingTimeRe = regexp.MustCompile(`time[=<]([0-9.]+)\s*ms`)

func (p *PingProber) systemPing(ctx context.Context, host string, timeout time.Duration) (float64, error) {
	bin, err := exec.LookPath("ping")
	if err != nil {
		return 0, fmt.Errorf("system ping: %w", err)
	}

	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}

	var args []string
	if runtime.GOOS == "darwin" {
		args = []string{"-c", "1", "-t", strconv.Itoa(secs), host}
	} else {
		args = []string{"-c", "1", "-W", strconv.Itoa(secs), host}
	}

	cctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	p.Logger.Debug("falling back to system ping", "host", host)
	out, err := exec.CommandContext(cctx, bin, args...).Output()
	if err != nil {
		return 0, fmt.Errorf("system ping %s: %w", host, err)
	}

	return parsePingOutput(out, host)
}

func parsePingOutput(out []byte, host string) (float64, error) {
	m := pingTimeRe.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("system ping %s: %w", host, errNoReply)
	}

	rtt, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ping rtt: %w", err)
	}
	return rtt, nil
}
