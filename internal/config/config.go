package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Log        LogConfig       `toml:"log"`
	Ping       PingConfig      `toml:"ping"`
	HTTP       WebConfig       `toml:"http"`
	HTTPS      WebConfig       `toml:"https"`
	DNS        DNSConfig       `toml:"dns"`
	Download   DownloadConfig  `toml:"download"`
	Endpoints  EndpointsConfig `toml:"endpoints"`
	MaxWorkers int             `toml:"max_workers"`
}

type LogConfig struct {
	Dir           string `toml:"dir"`
	DebugMaxMB    int    `toml:"debug_max_mb"`
	DebugMaxFiles int    `toml:"debug_max_files"`
}

type PingConfig struct {
	Targets   []string `toml:"targets"`
	TimeoutMS int      `toml:"timeout_ms"`
}

type WebConfig struct {
	Endpoints []string `toml:"endpoints"`
	TimeoutMS int      `toml:"timeout_ms"`
}

type DNSConfig struct {
	Hosts     []string `toml:"hosts"`
	Resolvers []string `toml:"resolvers"`
	TimeoutMS int      `toml:"timeout_ms"`
}

type DownloadConfig struct {
	URLs         []string `toml:"urls"`
	SizeBytes    int64    `toml:"size_bytes"`
	TimeoutMS    int      `toml:"timeout_ms"`
	RateLimitKBs int      `toml:"rate_limit_kbs"`
}

type EndpointsConfig struct {
	Hosts          []string `toml:"hosts"`
	TimeoutMS      int      `toml:"timeout_ms"`
	IncludeGateway bool     `toml:"include_gateway"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Dir:           "logs",
			DebugMaxMB:    10,
			DebugMaxFiles: 3,
		},
		Ping: PingConfig{
			Targets:   []string{"8.8.8.8", "1.1.1.1", "9.9.9.9"},
			TimeoutMS: 3000,
		},
		HTTP: WebConfig{
			Endpoints: []string{
				"http://www.google.com",
				"http://www.github.com",
				"http://www.cloudflare.com",
			},
			TimeoutMS: 5000,
		},
		HTTPS: WebConfig{
			Endpoints: []string{
				"https://www.google.com",
				"https://www.github.com",
				"https://www.cloudflare.com",
			},
			TimeoutMS: 5000,
		},
		DNS: DNSConfig{
			Hosts:     []string{"google.com", "github.com", "cloudflare.com"},
			Resolvers: []string{"8.8.8.8:53", "1.1.1.1:53"},
			TimeoutMS: 3000,
		},
		Download: DownloadConfig{
			URLs: []string{
				"https://speed.cloudflare.com/__down?bytes=262144",
				"http://speedtest.tele2.net/1MB.zip",
				"https://proof.ovh.net/files/1Mb.dat",
			},
			SizeBytes: 262144,
			TimeoutMS: 10000,
		},
		Endpoints: EndpointsConfig{
			Hosts: []string{
				"8.8.8.8:53",
				"1.1.1.1:53",
				"9.9.9.9:53",
				"208.67.222.222:53",
			},
			TimeoutMS:      1000,
			IncludeGateway: true,
		},
		MaxWorkers: 10,
	}
}

// Load returns the defaults when path is empty; otherwise the file is
// decoded over them, so partial configs only override what they name.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return cfg, fmt.Errorf("config file not found: %w", err)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []string

	if strings.TrimSpace(c.Log.Dir) == "" {
		errs = append(errs, "log.dir is required")
	}
	if c.Log.DebugMaxMB <= 0 {
		errs = append(errs, "log.debug_max_mb must be > 0")
	}
	if c.Log.DebugMaxFiles <= 0 {
		errs = append(errs, "log.debug_max_files must be > 0")
	}
	if len(c.Ping.Targets) < 2 {
		errs = append(errs, "ping.targets must list at least 2 hosts")
	}
	if c.Ping.TimeoutMS <= 0 {
		errs = append(errs, "ping.timeout_ms must be > 0")
	}
	if len(c.HTTP.Endpoints) == 0 {
		errs = append(errs, "http.endpoints must not be empty")
	}
	if c.HTTP.TimeoutMS <= 0 {
		errs = append(errs, "http.timeout_ms must be > 0")
	}
	if len(c.HTTPS.Endpoints) == 0 {
		errs = append(errs, "https.endpoints must not be empty")
	}
	if c.HTTPS.TimeoutMS <= 0 {
		errs = append(errs, "https.timeout_ms must be > 0")
	}
	if len(c.DNS.Hosts) == 0 {
		errs = append(errs, "dns.hosts must not be empty")
	}
	if len(c.DNS.Resolvers) == 0 {
		errs = append(errs, "dns.resolvers must not be empty")
	}
	if c.DNS.TimeoutMS <= 0 {
		errs = append(errs, "dns.timeout_ms must be > 0")
	}
	if len(c.Download.URLs) == 0 {
		errs = append(errs, "download.urls must not be empty")
	}
	if c.Download.SizeBytes <= 0 {
		errs = append(errs, "download.size_bytes must be > 0")
	}
	if c.Download.TimeoutMS <= 0 {
		errs = append(errs, "download.timeout_ms must be > 0")
	}
	if c.Download.RateLimitKBs < 0 {
		errs = append(errs, "download.rate_limit_kbs must be >= 0")
	}
	if len(c.Endpoints.Hosts) == 0 {
		errs = append(errs, "endpoints.hosts must not be empty")
	}
	if c.Endpoints.TimeoutMS <= 0 {
		errs = append(errs, "endpoints.timeout_ms must be > 0")
	}
	if c.MaxWorkers <= 0 {
		errs = append(errs, "max_workers must be > 0")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}
