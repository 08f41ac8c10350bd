package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/speedbird-org/public-wifi-monitor/internal/logging"
)

func TestWebProbeStatuses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantSuccess bool
		wantErr     ErrorKind
	}{
		{"ok", http.StatusOK, true, ErrNone},
		{"no content", http.StatusNoContent, true, ErrNone},
		{"not found", http.StatusNotFound, false, ErrHTTPStatus},
		{"server error", http.StatusInternalServerError, false, ErrHTTPStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewWebProber(logging.Discard(), KindHTTP)
			res := p.Probe(context.Background(), Target{Kind: KindHTTP, Address: srv.URL, Timeout: 2 * time.Second})

			if res.Success != tt.wantSuccess {
				t.Fatalf("success = %v, want %v (%+v)", res.Success, tt.wantSuccess, res)
			}
			if res.Err != tt.wantErr {
				t.Errorf("err = %q, want %q", res.Err, tt.wantErr)
			}
			if !res.LatencyMs.Valid {
				t.Errorf("latency absent; the exchange completed either way")
			}
		})
	}
}

func TestWebProbeFollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/landing", http.StatusFound)
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewWebProber(logging.Discard(), KindHTTP)
	res := p.Probe(context.Background(), Target{Kind: KindHTTP, Address: srv.URL, Timeout: 2 * time.Second})

	if !res.Success {
		t.Fatalf("redirect chain not followed: %+v", res)
	}
}

func TestWebProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewWebProber(logging.Discard(), KindHTTP)
	res := p.Probe(context.Background(), Target{Kind: KindHTTP, Address: srv.URL, Timeout: 50 * time.Millisecond})

	if res.Success {
		t.Fatalf("probe succeeded past its deadline: %+v", res)
	}
	if res.Err != ErrTimeout {
		t.Errorf("err = %q, want %q", res.Err, ErrTimeout)
	}
}

func TestWebProbeRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p := NewWebProber(logging.Discard(), KindHTTP)
	res := p.Probe(context.Background(), Target{Kind: KindHTTP, Address: "http://" + addr, Timeout: time.Second})

	if res.Success {
		t.Fatalf("probe succeeded against a closed port: %+v", res)
	}
	if res.Err != ErrRefused {
		t.Errorf("err = %q, want %q", res.Err, ErrRefused)
	}
}

func TestWebProbeTLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebProber(logging.Discard(), KindHTTPS)
	res := p.Probe(context.Background(), Target{Kind: KindHTTPS, Address: srv.URL, Timeout: 2 * time.Second})

	if res.Success {
		t.Fatalf("self-signed certificate accepted: %+v", res)
	}
	if res.Err != ErrTLS {
		t.Errorf("err = %q, want %q", res.Err, ErrTLS)
	}
}
