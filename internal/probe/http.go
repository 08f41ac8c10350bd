package probe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/guregu/null/v5"
)

const userAgent = "public-wifi-monitor/1.0"

// WebProber issues a GET, follows redirects, and passes on any 2xx
// final status. One instance serves the http kind, another the https
// kind; the scheme lives in the target URL.
type WebProber struct {
	Logger *slog.Logger

	kind   Kind
	client *http.Client
}

func NewWebProber(logger *slog.Logger, kind Kind) *WebProber {
	return &WebProber{
		Logger: logger,
		kind:   kind,
		client: &http.Client{},
	}
}

func (p *WebProber) Kind() Kind { return p.kind }

func (p *WebProber) Probe(ctx context.Context, t Target) Result {
	res := Result{Target: t}

	cctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, t.Address, nil)
	if err != nil {
		res.Err = ErrOther
		res.Detail = err.Error()
		return res
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		res.Err = classifyNetError(err)
		res.Detail = err.Error()
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	res.LatencyMs = null.FloatFrom(float64(elapsed) / float64(time.Millisecond))
	res.Detail = resp.Status
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		res.Success = true
	} else {
		res.Err = ErrHTTPStatus
	}
	return res
}
