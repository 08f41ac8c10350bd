package monitor

import (
	"time"

	"github.com/speedbird-org/public-wifi-monitor/internal/config"
	"github.com/speedbird-org/public-wifi-monitor/internal/probe"
)

// Targets builds the probe battery for one run. HTTP, HTTPS and DNS
// get one target per endpoint so per-dimension success rates fall out
// of counting; ping and download get a single target whose alternates
// form the fallback chain; endpoints get the whole set in one target,
// with the detected gateway appended opportunistically.
func Targets(cfg config.Config, gateway string) []probe.Target {
	var targets []probe.Target

	targets = append(targets, probe.Target{
		Kind:       probe.KindPing,
		Address:    cfg.Ping.Targets[0],
		Alternates: cfg.Ping.Targets[1:],
		Timeout:    ms(cfg.Ping.TimeoutMS),
	})

	for _, ep := range cfg.HTTP.Endpoints {
		targets = append(targets, probe.Target{
			Kind:    probe.KindHTTP,
			Address: ep,
			Timeout: ms(cfg.HTTP.TimeoutMS),
		})
	}
	for _, ep := range cfg.HTTPS.Endpoints {
		targets = append(targets, probe.Target{
			Kind:    probe.KindHTTPS,
			Address: ep,
			Timeout: ms(cfg.HTTPS.TimeoutMS),
		})
	}
	for _, h := range cfg.DNS.Hosts {
		targets = append(targets, probe.Target{
			Kind:    probe.KindDNS,
			Address: h,
			Timeout: ms(cfg.DNS.TimeoutMS),
		})
	}

	targets = append(targets, probe.Target{
		Kind:       probe.KindDownload,
		Address:    cfg.Download.URLs[0],
		Alternates: cfg.Download.URLs[1:],
		Timeout:    ms(cfg.Download.TimeoutMS),
	})

	hosts := cfg.Endpoints.Hosts
	var alternates []string
	alternates = append(alternates, hosts[1:]...)
	if gateway != "" && cfg.Endpoints.IncludeGateway {
		alternates = append(alternates, gateway)
	}
	targets = append(targets, probe.Target{
		Kind:       probe.KindEndpoints,
		Address:    hosts[0],
		Alternates: alternates,
		Timeout:    ms(cfg.Endpoints.TimeoutMS),
	})

	return targets
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
