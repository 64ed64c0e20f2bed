package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/grandcat/zeroconf"
)

const (
	mdnsServiceType = "_plantcare._tcp"
	mdnsDomain      = "local."
	mdnsLabelMax    = 63
)

// startMDNS advertises the HTTP API so garden hubs on the LAN can find it.
func (a *App) startMDNS(port int) error {
	if port <= 0 {
		return fmt.Errorf("invalid port %d", port)
	}

	a.stopMDNS()

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "plant-hub"
	}

	instance := mdnsInstanceName(fmt.Sprintf("Plant Hub (%s)", hostname))
	server, err := zeroconf.Register(instance, mdnsServiceType, mdnsDomain, port, a.mdnsTXT(hostname), nil)
	if err != nil {
		return fmt.Errorf("register mdns: %w", err)
	}

	a.mdns = server
	a.logger.Info("mDNS advertisement started", "instance", instance, "service", mdnsServiceType, "port", port)
	return nil
}

func (a *App) stopMDNS() {
	if a.mdns == nil {
		return
	}

	a.mdns.Shutdown()
	a.logger.Info("mDNS advertisement stopped")
	a.mdns = nil
}

func (a *App) mdnsTXT(hostname string) []string {
	host := mdnsHostLabel(hostname)
	if !strings.Contains(host, ".") {
		host += ".local"
	}

	txt := []string{
		"proto=v1",
		"api=/api",
		fmt.Sprintf("http_port=%d", a.cfg.HTTPPort),
		fmt.Sprintf("host=%s", host),
	}
	if a.cfg.MQTTBrokerURL != "" {
		txt = append(txt, fmt.Sprintf("mqtt_prefix=%s", a.cfg.MQTTTopicPrefix))
	}
	return txt
}

func mdnsInstanceName(name string) string {
	cleaned := strings.NewReplacer("\n", " ", "\r", " ", ".", " ", "_", " ").Replace(strings.TrimSpace(name))
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		cleaned = "Plant Hub"
	}
	return truncateString(cleaned, mdnsLabelMax)
}

func mdnsHostLabel(name string) string {
	cleaned := strings.NewReplacer(" ", "-", "_", "-", "\n", "", "\r", "").Replace(strings.TrimSpace(strings.ToLower(name)))
	if cleaned == "" {
		cleaned = "plant-hub"
	}
	return truncateString(cleaned, mdnsLabelMax)
}
