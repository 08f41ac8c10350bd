package monitor

import (
	"math"
	"time"

	"github.com/guregu/null/v5"

	"github.com/speedbird-org/public-wifi-monitor/internal/netinfo"
	"github.com/speedbird-org/public-wifi-monitor/internal/probe"
	"github.com/speedbird-org/public-wifi-monitor/internal/record"
)

const highLatencyMs = 500

// BuildRecord folds one run's probe results into a record. It is a
// total function: any subset of failed probes, including all of them,
// still yields a well-formed record with absent measurements, never an
// error.
func BuildRecord(now time.Time, runID string, id Identity, conn netinfo.Info, results []probe.Result) record.Record {
	rec := record.Record{
		Timestamp:      now,
		RunID:          runID,
		HostUser:       id.HostUser,
		OS:             id.OS,
		Connection:     connectionType(conn.Type),
		SSID:           conn.SSID,
		PingStatus:     record.PingDisconnected,
		DownloadStatus: record.DownloadFailed,
	}

	var httpOK, httpN, httpsOK, httpsN, dnsOK, dnsN int
	pingPct := 0.0

	for _, res := range results {
		switch res.Target.Kind {
		case probe.KindPing:
			if res.Success {
				rec.PingStatus = record.PingConnected
				pingPct = 100
			}
			if res.LatencyMs.Valid {
				rec.PingLatencyMs = null.FloatFrom(round2(res.LatencyMs.Float64))
			}
		case probe.KindHTTP:
			httpN++
			if res.Success {
				httpOK++
			}
		case probe.KindHTTPS:
			httpsN++
			if res.Success {
				httpsOK++
			}
		case probe.KindDNS:
			dnsN++
			if res.Success {
				dnsOK++
			}
		case probe.KindDownload:
			if res.Success {
				rec.DownloadStatus = record.DownloadOK
			}
			if res.SpeedKBs.Valid {
				rec.DownloadKBs = null.FloatFrom(round2(res.SpeedKBs.Float64))
			}
		case probe.KindEndpoints:
			rec.EndpointsUp = res.Reachable
			rec.EndpointsTotal = res.Total
		}
	}

	rec.HTTPPct = rate(httpOK, httpN)
	rec.HTTPSPct = rate(httpsOK, httpsN)
	rec.DNSPct = rate(dnsOK, dnsN)
	rec.Score = round1((pingPct + rec.HTTPPct + rec.HTTPSPct + rec.DNSPct) / 4)
	rec.Health = record.ClassifyScore(rec.Score)
	rec.Issues = detectIssues(rec)

	return rec
}

func detectIssues(rec record.Record) []string {
	var issues []string

	if rec.PingStatus == record.PingDisconnected {
		issues = append(issues, "High packet loss")
	}
	if rec.PingLatencyMs.Valid && rec.PingLatencyMs.Float64 > highLatencyMs {
		issues = append(issues, "High latency")
	}
	if rec.HTTPPct < 100 {
		issues = append(issues, "HTTP connectivity problems")
	}
	if rec.HTTPSPct < 100 {
		issues = append(issues, "HTTPS connectivity problems")
	}
	if rec.DNSPct < 100 {
		issues = append(issues, "DNS resolution issues")
	}
	if rec.DownloadStatus == record.DownloadFailed {
		issues = append(issues, "Download failure")
	}

	return issues
}

func connectionType(t netinfo.Type) record.ConnectionType {
	switch t {
	case netinfo.TypeWiFi:
		return record.ConnWiFi
	case netinfo.TypeEthernet:
		return record.ConnEthernet
	case netinfo.TypeUSB:
		return record.ConnUSB
	case netinfo.TypeNotConnected:
		return record.ConnNotConnected
	default:
		return record.ConnUnknown
	}
}

func rate(ok, n int) float64 {
	if n == 0 {
		return 0
	}
	return round1(float64(ok) / float64(n) * 100)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
