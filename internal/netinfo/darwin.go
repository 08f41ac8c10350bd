package netinfo

import (
	"context"
	"strings"
)

func (d *Detector) darwinConnection(ctx context.Context) Info {
	for _, dev := range []string{"en0", "en1"} {
		if out, ok := d.cmd(ctx, "networksetup", "-getairportnetwork", dev); ok {
			if ssid, ok := parseAirportNetwork(out); ok {
				return Info{Type: TypeWiFi, SSID: ssid}
			}
		}
	}

	if out, ok := d.cmd(ctx, "system_profiler", "SPAirPortDataType"); ok {
		if ssid, ok := parseSystemProfilerSSID(out); ok {
			return Info{Type: TypeWiFi, SSID: ssid}
		}
	}

	if out, ok := d.cmd(ctx, "route", "-n", "get", "default"); ok {
		if iface := parseRouteField(out, "interface"); iface != "" {
			if info, ok := d.classifyDarwinInterface(ctx, iface); ok {
				return info
			}
		}
	}

	if info, ok := d.scanInterfaces(ctx); ok {
		return info
	}
	return Info{Type: TypeUnknown}
}

func (d *Detector) classifyDarwinInterface(ctx context.Context, iface string) (Info, bool) {
	out, ok := d.cmd(ctx, "ifconfig", iface)
	if !ok || !strings.Contains(out, "inet ") {
		return Info{}, false
	}

	if out, ok := d.cmd(ctx, "networksetup", "-listallhardwareports"); ok {
		if t, ok := parseHardwarePorts(out, iface); ok {
			return Info{Type: t}, true
		}
	}

	// Builtin WiFi is en0 on every recent Mac; other active en*
	// devices are wired.
	if iface == "en0" {
		return Info{Type: TypeWiFi}, true
	}
	if strings.HasPrefix(iface, "en") {
		return Info{Type: TypeEthernet}, true
	}
	return Info{Type: TypeUnknown}, true
}

func (d *Detector) darwinGateway(ctx context.Context) (string, bool) {
	if out, ok := d.cmd(ctx, "route", "-n", "get", "default"); ok {
		if gw := parseRouteField(out, "gateway"); validIP(gw) {
			return gw, true
		}
	}

	if out, ok := d.cmd(ctx, "netstat", "-rn", "-f", "inet"); ok {
		if gw, ok := parseNetstatGateway(out); ok {
			return gw, true
		}
	}

	if out, ok := d.cmd(ctx, "networksetup", "-listnetworkserviceorder"); ok {
		for _, svc := range parseNetworkServices(out) {
			info, ok := d.cmd(ctx, "networksetup", "-getinfo", svc)
			if !ok {
				continue
			}
			if gw, ok := parseServiceRouter(info); ok {
				return gw, true
			}
		}
	}

	return "", false
}

func parseAirportNetwork(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Current Wi-Fi Network:") {
			continue
		}
		ssid := strings.TrimSpace(strings.TrimPrefix(line, "Current Wi-Fi Network:"))
		if usableSSID(ssid) {
			return ssid, true
		}
	}
	return "", false
}

// system_profiler prints the joined network as an indented block:
//
//	Current Network Information:
//	    CoffeeShopGuest:
//	        PHY Mode: 802.11ax
//
// The SSID is the first indented line ending in a colon after the
// section header, and only counts while Status reads Connected.
func parseSystemProfilerSSID(out string) (string, bool) {
	if !strings.Contains(out, "Status: Connected") {
		return "", false
	}

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "Current Network Information:") {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+5; j++ {
			candidate := strings.TrimSpace(lines[j])
			if candidate == "" {
				continue
			}
			if !strings.HasSuffix(candidate, ":") {
				break
			}
			ssid := strings.TrimSuffix(candidate, ":")
			if usableSSID(ssid) {
				return ssid, true
			}
		}
	}
	return "", false
}

func parseRouteField(out, field string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, field+":"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func parseNetstatGateway(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "default" {
			continue
		}
		if validIP(fields[1]) {
			return fields[1], true
		}
	}
	return "", false
}

func parseHardwarePorts(out, device string) (Type, bool) {
	var port string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Hardware Port:"); ok {
			port = strings.TrimSpace(rest)
			continue
		}
		rest, ok := strings.CutPrefix(line, "Device:")
		if !ok || strings.TrimSpace(rest) != device {
			continue
		}
		switch {
		case strings.Contains(port, "Wi-Fi"), strings.Contains(port, "AirPort"):
			return TypeWiFi, true
		case strings.Contains(port, "USB"):
			return TypeUSB, true
		case strings.Contains(port, "Ethernet"), strings.Contains(port, "LAN"):
			return TypeEthernet, true
		default:
			return TypeUnknown, false
		}
	}
	return TypeUnknown, false
}

func parseNetworkServices(out string) []string {
	var services []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "(") {
			continue
		}
		end := strings.Index(line, ")")
		if end < 0 || end+1 >= len(line) {
			continue
		}
		if line[1:end] == "*" {
			// disabled service
			continue
		}
		svc := strings.TrimSpace(line[end+1:])
		if svc != "" && !strings.HasPrefix(svc, "Hardware Port") {
			services = append(services, svc)
		}
		if len(services) == 3 {
			break
		}
	}
	return services
}

func parseServiceRouter(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "Router:")
		if !ok {
			continue
		}
		gw := strings.TrimSpace(rest)
		if validIP(gw) {
			return gw, true
		}
	}
	return "", false
}
