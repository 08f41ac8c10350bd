package netinfo

import (
	"context"
	"encoding/binary"
	"net"
	"strconv"
	"strings"
)

func (d *Detector) linuxConnection(ctx context.Context) Info {
	if out, ok := d.cmd(ctx, "iwgetid", "-r"); ok {
		if ssid := strings.TrimSpace(out); usableSSID(ssid) {
			return Info{Type: TypeWiFi, SSID: ssid}
		}
	}

	if out, ok := d.cmd(ctx, "nmcli", "-t", "-f", "active,ssid", "dev", "wifi"); ok {
		if ssid, ok := parseNmcliSSID(out); ok {
			return Info{Type: TypeWiFi, SSID: ssid}
		}
	}

	if info, ok := d.scanInterfaces(ctx); ok {
		return info
	}
	return Info{Type: TypeUnknown}
}

func (d *Detector) linuxGateway(ctx context.Context) (string, bool) {
	if out, ok := d.cmd(ctx, "ip", "route", "show", "default"); ok {
		if gw, ok := parseIPRouteGateway(out); ok {
			return gw, true
		}
	}

	if out, ok := d.cmd(ctx, "route", "-n"); ok {
		if gw, ok := parseRouteTableGateway(out); ok {
			return gw, true
		}
	}

	if data, err := d.readFile("/proc/net/route"); err == nil {
		if gw, ok := parseProcRoute(string(data)); ok {
			return gw, true
		}
	}

	return "", false
}

func parseNmcliSSID(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "yes:")
		if !ok {
			continue
		}
		ssid := strings.ReplaceAll(rest, `\:`, ":")
		if usableSSID(ssid) {
			return ssid, true
		}
	}
	return "", false
}

func parseIPRouteGateway(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		for i, f := range fields {
			if f == "via" && i+1 < len(fields) && validIP(fields[i+1]) {
				return fields[i+1], true
			}
		}
	}
	return "", false
}

func parseRouteTableGateway(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "0.0.0.0" {
			continue
		}
		if validIP(fields[1]) && fields[1] != "0.0.0.0" {
			return fields[1], true
		}
	}
	return "", false
}

// parseProcRoute reads the kernel routing table directly. The gateway
// column is IPv4 in little-endian hex, so 0101A8C0 is 192.168.1.1.
func parseProcRoute(out string) (string, bool) {
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[1] != "00000000" {
			continue
		}
		raw, err := strconv.ParseUint(fields[2], 16, 32)
		if err != nil {
			continue
		}
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(raw))
		gw := net.IP(b).String()
		if gw != "0.0.0.0" {
			return gw, true
		}
	}
	return "", false
}
