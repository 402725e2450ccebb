package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type ETHM modules advertise for
	// their web configuration page
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for module discovery
	DefaultScanTimeout = 10 * time.Second
)

// modulePattern matches ETHM module hostnames, which carry the hex tail
// of the module's MAC address (e.g., "ETHM-00D0F1A2B3C4.local")
var modulePattern = regexp.MustCompile(`^ETHM[-_]?([0-9A-Fa-f]{6,12})\.local\.?$`)

// Scanner handles mDNS module discovery
type Scanner struct {
	// Timeout is the maximum time to wait for module discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForModules discovers all ETHM modules on the local network
// Returns a list of discovered modules or an error
func (s *Scanner) ScanForModules() ([]*Module, error) {
	return s.ScanForModulesWithContext(context.Background())
}

// ScanForModulesWithContext discovers modules with a custom context
func (s *Scanner) ScanForModulesWithContext(ctx context.Context) ([]*Module, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	modules := make([]*Module, 0)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// Collect matching entries until the browse context ends
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			module := s.parseServiceEntry(entry)
			if module != nil {
				modules = append(modules, module)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done

	return modules, nil
}

// WaitForModule waits for a specific module by identifier
// Returns the module or an error if not found within timeout
func (s *Scanner) WaitForModule(id string) (*Module, error) {
	return s.WaitForModuleWithContext(context.Background(), id)
}

// WaitForModuleWithContext waits for a specific module with a custom context
func (s *Scanner) WaitForModuleWithContext(ctx context.Context, id string) (*Module, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	moduleChan := make(chan *Module, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			module := s.parseServiceEntry(entry)
			if module != nil && strings.EqualFold(module.ID, id) {
				moduleChan <- module
				cancel() // Found the module, cancel context
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case module := <-moduleChan:
		return module, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("module %s not found within timeout", id)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Module
// Returns nil if the entry is not an ETHM module
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Module {
	hostname := entry.HostName
	if hostname == "" {
		return nil
	}

	matches := modulePattern.FindStringSubmatch(hostname)
	if len(matches) < 2 {
		return nil
	}

	id := strings.ToUpper(matches[1])

	// Get IP address (prefer IPv4)
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	// Parse TXT records into metadata ("key=value" format)
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Module{
		ID:           id,
		Hostname:     hostname,
		IP:           ip,
		WebPort:      entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForModules is a convenience function to scan for modules with a custom timeout
func ScanForModules(timeout time.Duration) ([]*Module, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForModules()
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan() ([]*Module, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.ScanForModules()
}

// FindModule searches for a specific module by identifier with default timeout
func FindModule(id string) (*Module, error) {
	scanner := NewScanner()
	return scanner.WaitForModule(id)
}
