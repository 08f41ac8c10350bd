package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/guregu/null/v5"
	"golang.org/x/time/rate"
)

// DownloadProber measures throughput by pulling a small fixed payload
// through an ordered candidate URL chain. The whole chain shares one
// timeout budget. Speed is the EWMA of per-slice rates, which rides
// out TCP slow start on transfers this short; transfers too quick to
// fill a slice fall back to bytes over elapsed.
type DownloadProber struct {
	Logger    *slog.Logger
	SizeBytes int64
	RateKBs   int

	client *http.Client
}

func NewDownloadProber(logger *slog.Logger, sizeBytes int64, rateKBs int) *DownloadProber {
	return &DownloadProber{
		Logger:    logger,
		SizeBytes: sizeBytes,
		RateKBs:   rateKBs,
		client:    &http.Client{},
	}
}

func (p *DownloadProber) Kind() Kind { return KindDownload }

func (p *DownloadProber) Probe(ctx context.Context, t Target) Result {
	res := Result{Target: t, Err: ErrUnreachable}

	cctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	var lastErr error
	for _, url := range t.Addresses() {
		if err := cctx.Err(); err != nil {
			if lastErr == nil {
				res.Err = ErrTimeout
				res.Detail = err.Error()
			}
			break
		}

		kbs, n, elapsed, err := p.fetch(cctx, url, t.Timeout)
		if err != nil {
			lastErr = err
			p.Logger.Debug("download candidate failed", "url", url, "err", err)
			continue
		}

		res.Success = true
		res.Err = ErrNone
		res.SpeedKBs = null.FloatFrom(kbs)
		res.LatencyMs = null.FloatFrom(float64(elapsed) / float64(time.Millisecond))
		res.Detail = fmt.Sprintf("%d bytes from %s", n, url)
		return res
	}

	if lastErr != nil {
		if kind := classifyNetError(lastErr); kind != ErrNone && kind != ErrOther {
			res.Err = kind
		}
		res.Detail = lastErr.Error()
	}
	return res
}

func (p *DownloadProber) fetch(ctx context.Context, url string, timeout time.Duration) (float64, int64, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, 0, 0, fmt.Errorf("download %s: %s: %w", url, resp.Status, errBadStatus)
	}

	var limiter *rate.Limiter
	if p.RateKBs > 0 {
		bps := p.RateKBs * 1024
		limiter = rate.NewLimiter(rate.Limit(bps), bps)
	}

	slice := timeout / 100
	if slice <= 0 {
		slice = time.Millisecond
	}

	avg := ewma.NewMovingAverage()
	buf := make([]byte, 8192)

	start := time.Now()
	sliceStart := start
	var total, sliceBytes int64

	for total < p.SizeBytes {
		if limiter != nil {
			if err := limiter.WaitN(ctx, len(buf)); err != nil {
				break
			}
		}

		n, err := resp.Body.Read(buf)
		total += int64(n)
		sliceBytes += int64(n)

		if now := time.Now(); now.Sub(sliceStart) >= slice {
			if secs := now.Sub(sliceStart).Seconds(); secs > 0 {
				avg.Add(float64(sliceBytes) / secs)
			}
			sliceBytes = 0
			sliceStart = now
		}

		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, 0, 0, err
		}
	}

	elapsed := time.Since(start)
	if total == 0 {
		return 0, 0, 0, fmt.Errorf("download %s: empty body", url)
	}

	bps := avg.Value()
	if bps <= 0 && elapsed > 0 {
		bps = float64(total) / elapsed.Seconds()
	}
	return bps / 1024, total, elapsed, nil
}
