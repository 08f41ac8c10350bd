// Package monitor orchestrates one monitoring run: detect the network,
// fan the probe battery out, fold the results into a record, persist
// it. Probe and detection failures are data in the record; only a
// failed append to the primary store is an error.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/speedbird-org/public-wifi-monitor/internal/config"
	"github.com/speedbird-org/public-wifi-monitor/internal/logstore"
	"github.com/speedbird-org/public-wifi-monitor/internal/netinfo"
	"github.com/speedbird-org/public-wifi-monitor/internal/probe"
	"github.com/speedbird-org/public-wifi-monitor/internal/record"
)

type connectionDetector interface {
	Connection(ctx context.Context) netinfo.Info
	Gateway(ctx context.Context) (string, bool)
}

type recordStore interface {
	Append(rec record.Record) error
	UpdateSummary(rec record.Record) error
}

type Monitor struct {
	cfg      config.Config
	logger   *slog.Logger
	detector connectionDetector
	battery  *probe.Battery
	store    recordStore

	now   func() time.Time
	newID func() string
}

func New(cfg config.Config, logger *slog.Logger) *Monitor {
	pinger := probe.NewPingProber(logger)

	battery := probe.NewBattery(logger, cfg.MaxWorkers,
		pinger,
		probe.NewWebProber(logger, probe.KindHTTP),
		probe.NewWebProber(logger, probe.KindHTTPS),
		&probe.DNSProber{Logger: logger, Resolvers: cfg.DNS.Resolvers},
		probe.NewDownloadProber(logger, cfg.Download.SizeBytes, cfg.Download.RateLimitKBs),
		probe.NewEndpointsProber(logger, pinger),
	)

	return &Monitor{
		cfg:      cfg,
		logger:   logger,
		detector: netinfo.NewDetector(logger),
		battery:  battery,
		store:    logstore.New(cfg.Log.Dir, logger),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run executes one full probe cycle and appends exactly one record.
// The returned record is valid even on error; the error is non-nil
// only when the primary store append failed.
func (m *Monitor) Run(ctx context.Context) (record.Record, error) {
	identity := DetectIdentity(ctx)
	conn := m.detector.Connection(ctx)
	m.logger.Debug("connection detected", "type", conn.Type, "ssid", conn.SSID)

	gateway, ok := m.detector.Gateway(ctx)
	if ok {
		m.logger.Debug("gateway detected", "ip", gateway)
	}

	targets := Targets(m.cfg, gateway)
	results := m.battery.Run(ctx, targets)

	rec := BuildRecord(m.now(), m.newID(), identity, conn, results)

	if err := m.store.Append(rec); err != nil {
		return rec, fmt.Errorf("record not persisted: %w", err)
	}
	if err := m.store.UpdateSummary(rec); err != nil {
		m.logger.Warn("summary view update failed", "err", err)
	}

	return rec, nil
}
