// Package discovery provides mDNS-based discovery of ETHM integration modules.
//
// This package implements multicast DNS (mDNS) service discovery to locate the
// network modules that front Satel Integra panels on the local network. The
// modules advertise their web configuration page using the "_http._tcp"
// service type; the hostname carries the module identifier.
//
// # Discovery Process
//
// The discovery process works as follows:
//  1. Broadcasts mDNS queries on the local network
//  2. Listens for service advertisements
//  3. Filters responses by the ETHM hostname pattern
//  4. Collects module information (hostname, IP, identifier, TXT metadata)
//  5. Returns a list of discovered modules after the timeout period
//
// # Usage Example
//
//	// Discover modules with 10-second timeout
//	modules, err := discovery.ScanForModules(10 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, module := range modules {
//	    fmt.Printf("Found: %s, integration endpoint %s\n", module, module.Address())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Modules must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
//
// # Thread Safety
//
// This package is safe for concurrent use. Multiple discovery sessions can run
// simultaneously without interference.
package discovery
