package monitor

import (
	"context"
	"os"
	"os/user"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// Identity names the machine a record came from. Resolved once per
// run; every lookup has a degraded fallback so identity detection can
// never fail the monitor.
type Identity struct {
	HostUser string
	OS       string
}

func DetectIdentity(ctx context.Context) Identity {
	username := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}

	hostname := "unknown"
	osName := runtime.GOOS
	if info, err := host.InfoWithContext(ctx); err == nil {
		if info.Hostname != "" {
			hostname = info.Hostname
		}
		if info.OS != "" {
			osName = info.OS
		}
	} else if h, err := os.Hostname(); err == nil && h != "" {
		hostname = h
	}

	return Identity{
		HostUser: username + "@" + hostname,
		OS:       osName,
	}
}
