package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/muurk/satelink/internal/transport"
)

// Module represents a discovered ETHM integration module on the network.
type Module struct {
	// ID is the module identifier from the hostname, the hex tail of
	// its MAC address (e.g., "00D0F1A2B3C4")
	ID string

	// Hostname is the mDNS hostname (e.g., "ETHM-00D0F1A2B3C4.local")
	Hostname string

	// IP is the module address (IPv4 preferred)
	IP string

	// WebPort is the port of the module's advertised web configuration
	// page; the integration protocol itself always listens on the
	// integration port
	WebPort int

	// Metadata contains additional mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the module was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the module.
func (m *Module) String() string {
	return fmt.Sprintf("ETHM module %s (%s) at %s", m.ID, m.Hostname, m.IP)
}

// Address returns the host:port endpoint of the module's integration
// protocol listener.
func (m *Module) Address() string {
	return net.JoinHostPort(m.IP, strconv.Itoa(transport.DefaultPort))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found.
func (m *Module) GetMetadata(key string) string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}
