// Package analyze computes trend statistics over the record log. It is
// a pure function of the records and the requested window: nothing here
// reads the clock or touches the store, so a report is reproducible.
package analyze

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v5"

	"github.com/speedbird-org/public-wifi-monitor/internal/record"
)

// Outage is a maximal run of disconnected records. It ends at the
// first connected record after the gap, the moment recovery was
// actually observed; an outage still open at the end of the window is
// marked ongoing and closed at the last record.
type Outage struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
	Ongoing  bool
}

type LatencyStats struct {
	Samples int
	MeanMs  float64
	P50Ms   float64
	P95Ms   float64
	MaxMs   float64
}

type IssueCount struct {
	Issue string
	Count int
}

type Report struct {
	WindowDays int
	Total      int
	First      time.Time
	Last       time.Time

	Connected   int
	UptimePct   float64
	Latency     LatencyStats
	AvgSpeedKBs null.Float
	Measured    int

	EndpointsUp    int
	EndpointsTotal int

	Outages         []Outage
	Issues          []IssueCount
	Recommendations []string
}

// Run filters records to [now - windowDays*24h, now] (windowDays <= 0
// keeps all history) and aggregates them. Absent latencies and speeds
// are excluded from the statistics, never coerced to zero.
func Run(records []record.Record, windowDays int, now time.Time) Report {
	rep := Report{WindowDays: windowDays}

	in := filterWindow(records, windowDays, now)
	rep.Total = len(in)
	if rep.Total == 0 {
		return rep
	}

	rep.First = in[0].Timestamp
	rep.Last = in[len(in)-1].Timestamp

	var latencies []float64
	var speedSum float64

	for _, r := range in {
		if r.PingStatus == record.PingConnected {
			rep.Connected++
		}
		if r.PingLatencyMs.Valid {
			latencies = append(latencies, r.PingLatencyMs.Float64)
		}
		if r.DownloadKBs.Valid {
			speedSum += r.DownloadKBs.Float64
			rep.Measured++
		}
		rep.EndpointsUp += r.EndpointsUp
		rep.EndpointsTotal += r.EndpointsTotal
	}

	rep.UptimePct = round1(float64(rep.Connected) / float64(rep.Total) * 100)
	rep.Latency = latencyStats(latencies)
	if rep.Measured > 0 {
		rep.AvgSpeedKBs = null.FloatFrom(round2(speedSum / float64(rep.Measured)))
	}

	rep.Outages = groupOutages(in)
	rep.Issues = countIssues(in)
	rep.Recommendations = recommend(rep)

	return rep
}

func filterWindow(records []record.Record, windowDays int, now time.Time) []record.Record {
	sorted := make([]record.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	if windowDays <= 0 {
		return sorted
	}

	cutoff := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	i := sort.Search(len(sorted), func(i int) bool {
		return !sorted[i].Timestamp.Before(cutoff)
	})
	out := sorted[i:]

	j := sort.Search(len(out), func(i int) bool {
		return out[i].Timestamp.After(now)
	})
	return out[:j]
}

func latencyStats(latencies []float64) LatencyStats {
	if len(latencies) == 0 {
		return LatencyStats{}
	}

	sort.Float64s(latencies)
	var sum float64
	for _, v := range latencies {
		sum += v
	}

	return LatencyStats{
		Samples: len(latencies),
		MeanMs:  round2(sum / float64(len(latencies))),
		P50Ms:   round2(percentile(latencies, 0.50)),
		P95Ms:   round2(percentile(latencies, 0.95)),
		MaxMs:   round2(latencies[len(latencies)-1]),
	}
}

// percentile uses the sorted-index method over an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func groupOutages(records []record.Record) []Outage {
	var outages []Outage
	var cur *Outage

	for _, r := range records {
		if r.PingStatus == record.PingDisconnected {
			if cur == nil {
				cur = &Outage{Start: r.Timestamp}
			}
			cur.End = r.Timestamp
			continue
		}
		if cur != nil {
			cur.End = r.Timestamp
			cur.Duration = cur.End.Sub(cur.Start)
			outages = append(outages, *cur)
			cur = nil
		}
	}

	if cur != nil {
		cur.Ongoing = true
		cur.Duration = cur.End.Sub(cur.Start)
		outages = append(outages, *cur)
	}

	return outages
}

func countIssues(records []record.Record) []IssueCount {
	counts := make(map[string]int)
	for _, r := range records {
		for _, issue := range r.Issues {
			counts[issue]++
		}
	}

	out := make([]IssueCount, 0, len(counts))
	for issue, n := range counts {
		out = append(out, IssueCount{Issue: issue, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Issue < out[j].Issue
	})
	return out
}

func recommend(rep Report) []string {
	var recs []string

	if rep.UptimePct < 95 {
		recs = append(recs, "Uptime is below 95%; consider reporting frequent disconnections to your ISP.")
	}
	if rep.Latency.Samples > 0 && rep.Latency.MeanMs > 200 {
		recs = append(recs, "Average latency exceeds 200 ms; prefer a wired connection or a closer access point.")
	}
	if issueCount(rep.Issues, "DNS resolution issues")*4 > rep.Total {
		recs = append(recs, "DNS failures are frequent; try switching to different resolvers.")
	}
	if rep.AvgSpeedKBs.Valid && rep.AvgSpeedKBs.Float64 < 100 {
		recs = append(recs, "Sustained throughput is low; run a full speed test to confirm.")
	}

	if len(recs) == 0 {
		recs = append(recs, "Connection looks healthy; no action needed.")
	}
	return recs
}

func issueCount(issues []IssueCount, name string) int {
	for _, ic := range issues {
		if ic.Issue == name {
			return ic.Count
		}
	}
	return 0
}

// Render produces the text report. It never prints the current wall
// clock, so identical inputs render byte-identical output.
func (r Report) Render() string {
	var b strings.Builder

	b.WriteString("Connectivity Report\n")
	b.WriteString("===================\n")
	if r.WindowDays > 0 {
		fmt.Fprintf(&b, "Window:     last %d day(s)\n", r.WindowDays)
	} else {
		b.WriteString("Window:     all history\n")
	}

	if r.Total == 0 {
		b.WriteString("No records in the selected window.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Records:    %d (%s to %s)\n",
		r.Total, r.First.Format(time.RFC3339), r.Last.Format(time.RFC3339))
	fmt.Fprintf(&b, "Uptime:     %.1f%% (%d/%d connected)\n", r.UptimePct, r.Connected, r.Total)

	if r.Latency.Samples > 0 {
		fmt.Fprintf(&b, "Latency:    mean %.2f ms, p50 %.2f ms, p95 %.2f ms, max %.2f ms (%d samples)\n",
			r.Latency.MeanMs, r.Latency.P50Ms, r.Latency.P95Ms, r.Latency.MaxMs, r.Latency.Samples)
	} else {
		b.WriteString("Latency:    no samples\n")
	}

	if r.AvgSpeedKBs.Valid {
		fmt.Fprintf(&b, "Download:   avg %.2f KB/s (%d measured)\n", r.AvgSpeedKBs.Float64, r.Measured)
	} else {
		b.WriteString("Download:   no measurements\n")
	}

	if r.EndpointsTotal > 0 {
		pct := float64(r.EndpointsUp) / float64(r.EndpointsTotal) * 100
		fmt.Fprintf(&b, "Endpoints:  %.1f%% reachable (%d/%d)\n", round1(pct), r.EndpointsUp, r.EndpointsTotal)
	} else {
		b.WriteString("Endpoints:  no checks recorded\n")
	}

	if len(r.Outages) == 0 {
		b.WriteString("Outages:    none\n")
	} else {
		var total time.Duration
		for _, o := range r.Outages {
			total += o.Duration
		}
		fmt.Fprintf(&b, "Outages:    %d, total %s\n", len(r.Outages), total)
		for _, o := range r.Outages {
			suffix := ""
			if o.Ongoing {
				suffix = " (ongoing)"
			}
			fmt.Fprintf(&b, "  - %s to %s (%s)%s\n",
				o.Start.Format(time.RFC3339), o.End.Format(time.RFC3339), o.Duration, suffix)
		}
	}

	if len(r.Issues) > 0 {
		b.WriteString("Issues:\n")
		for _, ic := range r.Issues {
			fmt.Fprintf(&b, "  - %s: %d\n", ic.Issue, ic.Count)
		}
	}

	b.WriteString("Recommendations:\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "  - %s\n", rec)
	}

	return b.String()
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
