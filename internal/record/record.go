package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v5"
)

type ConnectionType string

const (
	ConnWiFi         ConnectionType = "WiFi"
	ConnEthernet     ConnectionType = "Ethernet"
	ConnUSB          ConnectionType = "USB"
	ConnUnknown      ConnectionType = "Unknown"
	ConnNotConnected ConnectionType = "Not Connected"
)

type PingStatus string

const (
	PingConnected    PingStatus = "Connected"
	PingDisconnected PingStatus = "Disconnected"
)

type DownloadStatus string

const (
	DownloadOK     DownloadStatus = "OK"
	DownloadFailed DownloadStatus = "Failed"
)

type HealthStatus string

const (
	HealthExcellent HealthStatus = "Excellent"
	HealthGood      HealthStatus = "Good"
	HealthPoor      HealthStatus = "Poor"
	HealthFailed    HealthStatus = "Failed"
)

// Missing is the tabular rendering of an absent measurement. It is
// never a zero: a failed probe has no latency, not a latency of 0.
const Missing = "-"

type Record struct {
	Timestamp      time.Time      `json:"timestamp"`
	RunID          string         `json:"run_id"`
	HostUser       string         `json:"host_user"`
	Connection     ConnectionType `json:"connection_type"`
	SSID           string         `json:"ssid,omitempty"`
	PingStatus     PingStatus     `json:"ping_status"`
	PingLatencyMs  null.Float     `json:"ping_latency_ms"`
	DownloadStatus DownloadStatus `json:"download_status"`
	DownloadKBs    null.Float     `json:"download_speed_kbs"`
	EndpointsUp    int            `json:"endpoints_up"`
	EndpointsTotal int            `json:"endpoints_total"`
	HTTPPct        float64        `json:"http_success_pct"`
	HTTPSPct       float64        `json:"https_success_pct"`
	DNSPct         float64        `json:"dns_success_pct"`
	Score          float64        `json:"overall_score"`
	Health         HealthStatus   `json:"status"`
	Issues         []string       `json:"issues,omitempty"`
	OS             string         `json:"os"`
}

func (r Record) EndpointsRatio() string {
	return fmt.Sprintf("%d/%d", r.EndpointsUp, r.EndpointsTotal)
}

func ClassifyScore(score float64) HealthStatus {
	switch {
	case score >= 90:
		return HealthExcellent
	case score >= 75:
		return HealthGood
	case score >= 50:
		return HealthPoor
	default:
		return HealthFailed
	}
}

func CSVHeader() []string {
	return []string{
		"timestamp",
		"run_id",
		"host_user",
		"connection_type",
		"ssid",
		"ping_status",
		"ping_latency_ms",
		"download_status",
		"download_speed_kbs",
		"endpoints_reachable",
		"http_success_pct",
		"https_success_pct",
		"dns_success_pct",
		"overall_score",
		"status",
		"issues",
		"os",
	}
}

func (r Record) CSVRow() []string {
	return []string{
		r.Timestamp.Format(time.RFC3339),
		r.RunID,
		r.HostUser,
		string(r.Connection),
		r.SSID,
		string(r.PingStatus),
		formatNullFloat(r.PingLatencyMs, 2),
		string(r.DownloadStatus),
		formatNullFloat(r.DownloadKBs, 2),
		r.EndpointsRatio(),
		formatPct(r.HTTPPct),
		formatPct(r.HTTPSPct),
		formatPct(r.DNSPct),
		formatPct(r.Score),
		string(r.Health),
		strings.Join(r.Issues, "; "),
		r.OS,
	}
}

func FromCSVRow(row []string) (Record, error) {
	if len(row) != len(CSVHeader()) {
		return Record{}, fmt.Errorf("csv row has %d fields, want %d", len(row), len(CSVHeader()))
	}

	ts, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return Record{}, fmt.Errorf("parse timestamp: %w", err)
	}

	latency, err := parseNullFloat(row[6])
	if err != nil {
		return Record{}, fmt.Errorf("parse ping_latency_ms: %w", err)
	}
	speed, err := parseNullFloat(row[8])
	if err != nil {
		return Record{}, fmt.Errorf("parse download_speed_kbs: %w", err)
	}
	up, total, err := parseRatio(row[9])
	if err != nil {
		return Record{}, fmt.Errorf("parse endpoints_reachable: %w", err)
	}
	httpPct, err := parsePct(row[10])
	if err != nil {
		return Record{}, fmt.Errorf("parse http_success_pct: %w", err)
	}
	httpsPct, err := parsePct(row[11])
	if err != nil {
		return Record{}, fmt.Errorf("parse https_success_pct: %w", err)
	}
	dnsPct, err := parsePct(row[12])
	if err != nil {
		return Record{}, fmt.Errorf("parse dns_success_pct: %w", err)
	}
	score, err := parsePct(row[13])
	if err != nil {
		return Record{}, fmt.Errorf("parse overall_score: %w", err)
	}

	var issues []string
	if row[15] != "" {
		issues = strings.Split(row[15], "; ")
	}

	return Record{
		Timestamp:      ts,
		RunID:          row[1],
		HostUser:       row[2],
		Connection:     ConnectionType(row[3]),
		SSID:           row[4],
		PingStatus:     PingStatus(row[5]),
		PingLatencyMs:  latency,
		DownloadStatus: DownloadStatus(row[7]),
		DownloadKBs:    speed,
		EndpointsUp:    up,
		EndpointsTotal: total,
		HTTPPct:        httpPct,
		HTTPSPct:       httpsPct,
		DNSPct:         dnsPct,
		Score:          score,
		Health:         HealthStatus(row[14]),
		Issues:         issues,
		OS:             row[16],
	}, nil
}

func MarshalLine(r Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return append(b, '\n'), nil
}

func UnmarshalLine(line []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return r, nil
}

func formatNullFloat(v null.Float, prec int) string {
	if !v.Valid {
		return Missing
	}
	return strconv.FormatFloat(v.Float64, 'f', prec, 64)
}

func parseNullFloat(s string) (null.Float, error) {
	if s == Missing || s == "" {
		return null.Float{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}, err
	}
	return null.FloatFrom(v), nil
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func parsePct(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseRatio(s string) (int, int, error) {
	upStr, totalStr, found := strings.Cut(s, "/")
	if !found {
		return 0, 0, fmt.Errorf("ratio %q missing separator", s)
	}
	up, err := strconv.Atoi(upStr)
	if err != nil {
		return 0, 0, err
	}
	total, err := strconv.Atoi(totalStr)
	if err != nil {
		return 0, 0, err
	}
	return up, total, nil
}
