package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"os/exec"
	"syscall"
	"time"

	"github.com/guregu/null/v5"
)

type Kind string

const (
	KindPing      Kind = "ping"
	KindHTTP      Kind = "http"
	KindHTTPS     Kind = "https"
	KindDNS       Kind = "dns"
	KindDownload  Kind = "download"
	KindEndpoints Kind = "endpoints"
)

// Target is one entry in the probe battery, fixed before the run
// starts. Alternates are kind-dependent: fallback hosts for ping and
// download, the rest of the endpoint set for endpoints.
type Target struct {
	Kind       Kind
	Address    string
	Alternates []string
	Timeout    time.Duration
}

func (t Target) Addresses() []string {
	return append([]string{t.Address}, t.Alternates...)
}

type ErrorKind string

const (
	ErrNone        ErrorKind = ""
	ErrTimeout     ErrorKind = "timeout"
	ErrDNS         ErrorKind = "dns"
	ErrRefused     ErrorKind = "refused"
	ErrTLS         ErrorKind = "tls"
	ErrUnreachable ErrorKind = "unreachable"
	ErrToolMissing ErrorKind = "tool_missing"
	ErrHTTPStatus  ErrorKind = "http_status"
	ErrCanceled    ErrorKind = "canceled"
	ErrOther       ErrorKind = "other"
)

// Result is data, never an error: a failed probe fills Err and Detail
// and leaves the measurements absent.
type Result struct {
	Target    Target
	Success   bool
	LatencyMs null.Float
	Err       ErrorKind
	Detail    string

	// download only
	SpeedKBs null.Float

	// endpoints only
	Reachable int
	Total     int
}

type Prober interface {
	Kind() Kind
	Probe(ctx context.Context, target Target) Result
}

var (
	errNoReply   = errors.New("no echo reply within timeout")
	errBadStatus = errors.New("unexpected http status")
)

func classifyNetError(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrNone
	case errors.Is(err, context.Canceled):
		return ErrCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, errNoReply):
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrDNS
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ErrTLS
	}
	var recErr tls.RecordHeaderError
	if errors.As(err, &recErr) {
		return ErrTLS
	}

	switch {
	case errors.Is(err, errBadStatus):
		return ErrHTTPStatus
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrRefused
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return ErrUnreachable
	case errors.Is(err, exec.ErrNotFound):
		return ErrToolMissing
	}

	return ErrOther
}
