package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/speedbird-org/public-wifi-monitor/internal/analyze"
	"github.com/speedbird-org/public-wifi-monitor/internal/config"
	"github.com/speedbird-org/public-wifi-monitor/internal/logging"
	"github.com/speedbird-org/public-wifi-monitor/internal/logstore"
	"github.com/speedbird-org/public-wifi-monitor/internal/monitor"
	"github.com/speedbird-org/public-wifi-monitor/internal/record"
)

var version = "dev"

// usageError marks failures the operator caused (bad flags, broken
// config) so main can exit 2 instead of 1.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "monitor":
		err = runMonitor(os.Args[2:])
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "version":
		fmt.Println(version)
		return
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ue usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: wifimon <command> [flags]

commands:
  monitor   run one probe cycle and append a record to the log
  analyze   report trends over logged records
  version   print the version

run "wifimon <command> -h" for command flags
`)
}

type commonFlags struct {
	configPath string
	logDir     string
	debug      bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	var cf commonFlags
	fs.StringVar(&cf.configPath, "config", "", "Path to TOML config file (defaults apply when empty)")
	fs.StringVar(&cf.logDir, "log-dir", "", "Log directory (overrides config)")
	fs.BoolVar(&cf.debug, "debug", false, "Verbose diagnostics to stderr and the debug log")
	return &cf
}

func loadConfig(cf *commonFlags) (config.Config, error) {
	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return cfg, usageError{err}
	}
	if cf.logDir != "" {
		cfg.Log.Dir = cf.logDir
	}
	return cfg, nil
}

func runMonitor(args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	cf := addCommonFlags(fs)
	fs.Parse(args)

	cfg, err := loadConfig(cf)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Config{
		Dir:      cfg.Log.Dir,
		MaxMB:    cfg.Log.DebugMaxMB,
		MaxFiles: cfg.Log.DebugMaxFiles,
		Debug:    cf.debug,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rec, err := monitor.New(cfg, logger).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(statusLine(rec))
	return nil
}

func statusLine(rec record.Record) string {
	conn := string(rec.Connection)
	if rec.SSID != "" {
		conn = fmt.Sprintf("%s %q", rec.Connection, rec.SSID)
	}

	ping := string(rec.PingStatus)
	if rec.PingLatencyMs.Valid {
		ping = fmt.Sprintf("%s (%.2f ms)", rec.PingStatus, rec.PingLatencyMs.Float64)
	}

	download := string(rec.DownloadStatus)
	if rec.DownloadKBs.Valid {
		download = fmt.Sprintf("%s (%.2f KB/s)", rec.DownloadStatus, rec.DownloadKBs.Float64)
	}

	return fmt.Sprintf("Status: %s (Score: %.1f) | %s | Ping: %s | Download: %s | Endpoints: %s",
		rec.Health, rec.Score, conn, ping, download, rec.EndpointsRatio())
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	cf := addCommonFlags(fs)
	days := fs.Int("days", 0, "Analysis window in days (0 = all history)")
	fs.Parse(args)

	cfg, err := loadConfig(cf)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Config{
		Dir:      cfg.Log.Dir,
		MaxMB:    cfg.Log.DebugMaxMB,
		MaxFiles: cfg.Log.DebugMaxFiles,
		Debug:    cf.debug,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	records, err := logstore.New(cfg.Log.Dir, logger).ReadAll()
	if err != nil {
		return err
	}

	report := analyze.Run(records, *days, time.Now())
	fmt.Print(report.Render())
	return nil
}
