package probe

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/speedbird-org/public-wifi-monitor/internal/logging"
)

func listen(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return l.Addr().String()
}

func TestEndpointsPartialReachability(t *testing.T) {
	p := &EndpointsProber{Logger: logging.Discard(), dial: dialCheck}

	res := p.Probe(context.Background(), Target{
		Kind:       KindEndpoints,
		Address:    listen(t),
		Alternates: []string{listen(t), "127.0.0.1:1"},
		Timeout:    time.Second,
	})

	if !res.Success {
		t.Fatalf("partial reachability should count as success: %+v", res)
	}
	if res.Reachable != 2 || res.Total != 3 {
		t.Errorf("tally = %d/%d, want 2/3", res.Reachable, res.Total)
	}
}

func TestEndpointsGatewayUsesEcho(t *testing.T) {
	var echoed []string
	p := &EndpointsProber{
		Logger: logging.Discard(),
		dial: func(context.Context, string, time.Duration) error {
			return errors.New("refused")
		},
		echo: func(_ context.Context, host string, _ time.Duration) (float64, error) {
			echoed = append(echoed, host)
			return 1.2, nil
		},
	}

	res := p.Probe(context.Background(), Target{
		Kind:       KindEndpoints,
		Address:    "198.51.100.10:53",
		Alternates: []string{"192.168.1.1"},
		Timeout:    time.Second,
	})

	if res.Reachable != 1 || res.Total != 2 {
		t.Errorf("tally = %d/%d, want 1/2", res.Reachable, res.Total)
	}
	if len(echoed) != 1 || echoed[0] != "192.168.1.1" {
		t.Errorf("bare addresses should be echoed, got %v", echoed)
	}
}

func TestEndpointsAllUnreachable(t *testing.T) {
	p := &EndpointsProber{
		Logger: logging.Discard(),
		dial: func(context.Context, string, time.Duration) error {
			return errors.New("refused")
		},
		echo: func(context.Context, string, time.Duration) (float64, error) {
			return 0, errors.New("no reply")
		},
	}

	res := p.Probe(context.Background(), Target{
		Kind:    KindEndpoints,
		Address: "198.51.100.10:53",
		Timeout: time.Second,
	})

	if res.Success || res.Err != ErrUnreachable {
		t.Errorf("all-unreachable should fail as unreachable: %+v", res)
	}
	if res.Reachable != 0 || res.Total != 1 {
		t.Errorf("tally = %d/%d, want 0/1", res.Reachable, res.Total)
	}
}
