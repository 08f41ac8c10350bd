package netinfo

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	gnet "github.com/shirou/gopsutil/v3/net"
)

type Type string

const (
	TypeWiFi         Type = "WiFi"
	TypeEthernet     Type = "Ethernet"
	TypeUSB          Type = "USB"
	TypeUnknown      Type = "Unknown"
	TypeNotConnected Type = "Not Connected"
)

type Info struct {
	Type Type
	SSID string
}

const commandTimeout = 5 * time.Second

type runner func(ctx context.Context, name string, args ...string) (string, error)

type ifaceLister func(ctx context.Context) (gnet.InterfaceStatList, error)

// Detector answers "what network am I on" without ever failing: every
// detection path decays to TypeUnknown or an absent gateway. The
// platform strategy is fixed at construction from the runtime OS.
type Detector struct {
	os       string
	run      runner
	ifaces   ifaceLister
	readFile func(string) ([]byte, error)
	logger   *slog.Logger
}

func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{
		os:       runtime.GOOS,
		run:      runCommand,
		ifaces:   gnet.InterfacesWithContext,
		readFile: os.ReadFile,
		logger:   logger,
	}
}

func (d *Detector) Connection(ctx context.Context) Info {
	switch d.os {
	case "darwin":
		return d.darwinConnection(ctx)
	case "linux":
		return d.linuxConnection(ctx)
	default:
		if info, ok := d.scanInterfaces(ctx); ok {
			return info
		}
		return Info{Type: TypeUnknown}
	}
}

func (d *Detector) Gateway(ctx context.Context) (string, bool) {
	switch d.os {
	case "darwin":
		return d.darwinGateway(ctx)
	case "linux":
		return d.linuxGateway(ctx)
	default:
		return "", false
	}
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	if _, err := exec.LookPath(name); err != nil {
		return "", err
	}

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", err
	}

	return string(out), nil
}

func (d *Detector) cmd(ctx context.Context, name string, args ...string) (string, bool) {
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, err := d.run(cctx, name, args...)
	if err != nil {
		d.logger.Debug("detect command failed", "tool", name, "args", strings.Join(args, " "), "err", err)
		return "", false
	}

	d.logger.Debug("detect command", "tool", name, "args", strings.Join(args, " "), "bytes", len(out))
	return out, true
}

// scanInterfaces is the tool-free fallback: any up, non-loopback
// interface holding an IPv4 address counts as connected, classified by
// interface name. The most specific class wins when several are up.
func (d *Detector) scanInterfaces(ctx context.Context) (Info, bool) {
	stats, err := d.ifaces(ctx)
	if err != nil {
		d.logger.Debug("interface scan failed", "err", err)
		return Info{}, false
	}

	best := TypeNotConnected
	for _, st := range stats {
		if !hasFlag(st.Flags, "up") || hasFlag(st.Flags, "loopback") {
			continue
		}
		if !hasIPv4(st.Addrs) {
			continue
		}

		t := classifyInterfaceName(st.Name)
		if rankType(t) > rankType(best) {
			best = t
		}
	}

	if best == TypeNotConnected {
		return Info{Type: TypeNotConnected}, true
	}
	return Info{Type: best}, true
}

func classifyInterfaceName(name string) Type {
	switch {
	case strings.HasPrefix(name, "wl"):
		return TypeWiFi
	case strings.HasPrefix(name, "enx"), strings.HasPrefix(name, "usb"):
		return TypeUSB
	case strings.HasPrefix(name, "eth"), strings.HasPrefix(name, "en"):
		return TypeEthernet
	default:
		return TypeUnknown
	}
}

func rankType(t Type) int {
	switch t {
	case TypeWiFi:
		return 4
	case TypeEthernet:
		return 3
	case TypeUSB:
		return 2
	case TypeUnknown:
		return 1
	default:
		return 0
	}
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}

func hasIPv4(addrs gnet.InterfaceAddrList) bool {
	for _, a := range addrs {
		ip := a.Addr
		if i := strings.Index(ip, "/"); i >= 0 {
			ip = ip[:i]
		}
		parsed := net.ParseIP(ip)
		if parsed != nil && parsed.To4() != nil {
			return true
		}
	}
	return false
}

func usableSSID(ssid string) bool {
	return ssid != "" && ssid != "<redacted>"
}

func validIP(s string) bool {
	return net.ParseIP(s) != nil
}
