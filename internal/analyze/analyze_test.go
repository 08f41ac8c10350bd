package analyze

import (
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v5"

	"github.com/speedbird-org/public-wifi-monitor/internal/record"
)

var base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func rec(offset time.Duration, status record.PingStatus, latency null.Float) record.Record {
	return record.Record{
		Timestamp:      base.Add(offset),
		PingStatus:     status,
		PingLatencyMs:  latency,
		EndpointsUp:    4,
		EndpointsTotal: 5,
	}
}

func TestOutageGrouping(t *testing.T) {
	records := []record.Record{
		rec(0, record.PingConnected, null.FloatFrom(20)),
		rec(1*time.Minute, record.PingDisconnected, null.Float{}),
		rec(2*time.Minute, record.PingDisconnected, null.Float{}),
		rec(3*time.Minute, record.PingConnected, null.FloatFrom(22)),
	}

	rep := Run(records, 0, base.Add(time.Hour))

	if len(rep.Outages) != 1 {
		t.Fatalf("got %d outages, want 1: %+v", len(rep.Outages), rep.Outages)
	}
	o := rep.Outages[0]
	if o.Duration != 2*time.Minute {
		t.Errorf("outage duration = %s, want 2m0s", o.Duration)
	}
	if !o.Start.Equal(base.Add(1 * time.Minute)) {
		t.Errorf("outage start = %v, want %v", o.Start, base.Add(1*time.Minute))
	}
	if o.Ongoing {
		t.Errorf("closed outage flagged ongoing")
	}
}

func TestOngoingOutage(t *testing.T) {
	records := []record.Record{
		rec(0, record.PingConnected, null.FloatFrom(20)),
		rec(1*time.Minute, record.PingDisconnected, null.Float{}),
		rec(2*time.Minute, record.PingDisconnected, null.Float{}),
	}

	rep := Run(records, 0, base.Add(time.Hour))

	if len(rep.Outages) != 1 {
		t.Fatalf("got %d outages, want 1", len(rep.Outages))
	}
	if !rep.Outages[0].Ongoing {
		t.Errorf("outage at log tail should be ongoing")
	}
	if rep.Outages[0].Duration != time.Minute {
		t.Errorf("ongoing duration = %s, want 1m0s", rep.Outages[0].Duration)
	}
}

func TestEmptyWindow(t *testing.T) {
	rep := Run(nil, 7, base)

	if rep.Total != 0 {
		t.Fatalf("empty input yielded %d records", rep.Total)
	}
	out := rep.Render()
	if !strings.Contains(out, "No records in the selected window.") {
		t.Errorf("no-data report missing marker:\n%s", out)
	}
}

func TestWindowFilter(t *testing.T) {
	records := []record.Record{
		rec(-10*24*time.Hour, record.PingDisconnected, null.Float{}),
		rec(-2*24*time.Hour, record.PingConnected, null.FloatFrom(30)),
		rec(-1*24*time.Hour, record.PingConnected, null.FloatFrom(40)),
	}

	rep := Run(records, 7, base)

	if rep.Total != 2 {
		t.Fatalf("window kept %d records, want 2", rep.Total)
	}
	if rep.UptimePct != 100 {
		t.Errorf("uptime = %v, want 100 once the old outage is out of window", rep.UptimePct)
	}
}

func TestLatencyExcludesAbsent(t *testing.T) {
	records := []record.Record{
		rec(0, record.PingConnected, null.FloatFrom(10)),
		rec(time.Minute, record.PingDisconnected, null.Float{}),
		rec(2*time.Minute, record.PingConnected, null.FloatFrom(30)),
	}

	rep := Run(records, 0, base.Add(time.Hour))

	if rep.Latency.Samples != 2 {
		t.Fatalf("latency samples = %d, want 2", rep.Latency.Samples)
	}
	if rep.Latency.MeanMs != 20 {
		t.Errorf("mean = %v, want 20 (absent latency must not count as 0)", rep.Latency.MeanMs)
	}
	if rep.Latency.MaxMs != 30 {
		t.Errorf("max = %v, want 30", rep.Latency.MaxMs)
	}
}

func TestDownloadAverageExcludesAbsent(t *testing.T) {
	withSpeed := rec(0, record.PingConnected, null.FloatFrom(10))
	withSpeed.DownloadKBs = null.FloatFrom(500)
	noSpeed := rec(time.Minute, record.PingConnected, null.FloatFrom(12))

	rep := Run([]record.Record{withSpeed, noSpeed}, 0, base.Add(time.Hour))

	if rep.Measured != 1 {
		t.Fatalf("measured = %d, want 1", rep.Measured)
	}
	if !rep.AvgSpeedKBs.Valid || rep.AvgSpeedKBs.Float64 != 500 {
		t.Errorf("avg speed = %v, want 500", rep.AvgSpeedKBs)
	}
}

func TestRenderDeterministic(t *testing.T) {
	records := []record.Record{
		rec(0, record.PingConnected, null.FloatFrom(21.37)),
		rec(1*time.Minute, record.PingDisconnected, null.Float{}),
		rec(2*time.Minute, record.PingConnected, null.FloatFrom(19.02)),
	}
	records[1].Issues = []string{"High packet loss", "Download failure"}

	now := base.Add(time.Hour)
	first := Run(records, 0, now).Render()
	second := Run(records, 0, now).Render()

	if first != second {
		t.Fatalf("renders differ:\n%s\n---\n%s", first, second)
	}
	if !strings.Contains(first, "Uptime:     66.7% (2/3 connected)") {
		t.Errorf("uptime line missing or wrong:\n%s", first)
	}
	if !strings.Contains(first, "High packet loss: 1") {
		t.Errorf("issue counts missing:\n%s", first)
	}
}

func TestRunUnsortedInput(t *testing.T) {
	records := []record.Record{
		rec(3*time.Minute, record.PingConnected, null.FloatFrom(22)),
		rec(1*time.Minute, record.PingDisconnected, null.Float{}),
		rec(0, record.PingConnected, null.FloatFrom(20)),
		rec(2*time.Minute, record.PingDisconnected, null.Float{}),
	}

	rep := Run(records, 0, base.Add(time.Hour))

	if len(rep.Outages) != 1 || rep.Outages[0].Duration != 2*time.Minute {
		t.Fatalf("unsorted input not regrouped: %+v", rep.Outages)
	}
	if !rep.First.Equal(base) || !rep.Last.Equal(base.Add(3*time.Minute)) {
		t.Errorf("first/last = %v/%v", rep.First, rep.Last)
	}
}
