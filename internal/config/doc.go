// Package config provides user configuration management for the Satelink project.
//
// This package manages a YAML-based configuration file that stores connection
// profiles for Satel Integra alarm panels: the ETHM module's address, the
// integration key, the monitored zones and outputs, and application
// preferences. The configuration follows OS-specific conventions for storage
// location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/satelink/config.yaml or $HOME/.config/satelink/config.yaml
//   - macOS: $HOME/.config/satelink/config.yaml
//   - Windows: %LOCALAPPDATA%\satelink\config.yaml
//
// # Security
//
// User codes (the codes typed on a keypad to arm and disarm) are NEVER stored;
// they are always prompted when needed. The ETHM integration key is stored so
// the driver can reconnect unattended, which is why the file and its directory
// are created user-only (0600/0700).
//
// # Usage Example
//
//	// Load the global registry
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Add or update a panel profile
//	panel := registry.EnsurePanel("home")
//	panel.Host = "192.168.1.10"
//	panel.IntegrationKey = "my_integration_key"
//	panel.MonitoredZones = []int{1, 2, 3}
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
