package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Instance is a socketd server found on the local network.
type Instance struct {
	// Name is the advertised instance name (mdns.instance in the config)
	Name string

	// Hostname is the mDNS hostname (e.g., "chat-box.local.")
	Hostname string

	// IP is the first advertised address, IPv4 preferred
	IP string

	// ClientPort is the WebSocket port
	ClientPort int

	// AdminPort is the push ingress port, 0 when the server has none
	AdminPort int

	// Metadata holds the raw TXT records
	Metadata map[string]string

	// DiscoveredAt is when the instance answered
	DiscoveredAt time.Time
}

// String returns a human-readable description of the instance
func (i *Instance) String() string {
	return fmt.Sprintf("socketd %q (%s) at %s:%d", i.Name, i.Hostname, i.IP, i.ClientPort)
}

// WebSocketURL returns the ws:// URL clients connect to.
func (i *Instance) WebSocketURL() string {
	return "ws://" + net.JoinHostPort(i.IP, strconv.Itoa(i.ClientPort)) + "/"
}

// AdminAddr returns host:port of the push ingress, or "" if disabled.
func (i *Instance) AdminAddr() string {
	if i.AdminPort == 0 {
		return ""
	}
	return net.JoinHostPort(i.IP, strconv.Itoa(i.AdminPort))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (i *Instance) GetMetadata(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}
