package config

import (
	"fmt"
	"time"
)

// Registry represents the entire user configuration file: alarm panel
// profiles keyed by a user-chosen name plus application preferences.
type Registry struct {
	Version     int               `yaml:"version"`
	Panels      map[string]*Panel `yaml:"panels,omitempty"` // Keyed by profile name
	Preferences *Preferences      `yaml:"preferences,omitempty"`
}

// Panel describes one Integra panel reachable through its ETHM network
// module. The integration key is the module's encryption passphrase;
// user codes are NEVER stored and are always prompted when needed.
type Panel struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port,omitempty"`            // 0 means the default integration port
	IntegrationKey string `yaml:"integration_key,omitempty"` // Empty means plain (unencrypted) mode

	MonitoredZones   []int `yaml:"monitored_zones,omitempty"`
	MonitoredOutputs []int `yaml:"monitored_outputs,omitempty"`
	Partitions       []int `yaml:"partitions,omitempty"` // Default partitions for arm/disarm

	ReconnectSeconds int `yaml:"reconnect_seconds,omitempty"`
	ResponseSeconds  int `yaml:"response_seconds,omitempty"`
	KeepAliveSeconds int `yaml:"keep_alive_seconds,omitempty"`

	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last successful connection time
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultPanel    string `yaml:"default_panel,omitempty"` // Profile used when none is named
	DiscoverTimeout int    `yaml:"discover_timeout"`        // mDNS discovery timeout in seconds
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Panels:  make(map[string]*Panel),
		Preferences: &Preferences{
			DiscoverTimeout: 10,
		},
	}
}

// ReconnectInterval returns the configured reconnect interval, or zero
// to let the transport pick its default.
func (p *Panel) ReconnectInterval() time.Duration {
	return time.Duration(p.ReconnectSeconds) * time.Second
}

// ResponseTimeout returns the configured response timeout, or zero to
// let the queue pick its default.
func (p *Panel) ResponseTimeout() time.Duration {
	return time.Duration(p.ResponseSeconds) * time.Second
}

// KeepAliveInterval returns the configured keep-alive interval, or zero
// to let the driver pick its default.
func (p *Panel) KeepAliveInterval() time.Duration {
	return time.Duration(p.KeepAliveSeconds) * time.Second
}

// GetPanel retrieves a panel profile by name.
// Returns nil if the profile doesn't exist in the registry.
func (r *Registry) GetPanel(name string) *Panel {
	return r.Panels[name]
}

// EnsurePanel ensures a panel profile exists in the registry, creating
// an empty one if needed, and returns it.
func (r *Registry) EnsurePanel(name string) *Panel {
	if r.Panels == nil {
		r.Panels = make(map[string]*Panel)
	}
	if panel, exists := r.Panels[name]; exists {
		return panel
	}
	panel := &Panel{}
	r.Panels[name] = panel
	return panel
}

// ResolvePanel picks the profile to use: the named one if name is
// non-empty, otherwise the configured default, otherwise the only
// profile in the registry.
func (r *Registry) ResolvePanel(name string) (*Panel, error) {
	if name != "" {
		if panel := r.GetPanel(name); panel != nil {
			return panel, nil
		}
		return nil, fmt.Errorf("no panel profile named %q", name)
	}

	if r.Preferences != nil && r.Preferences.DefaultPanel != "" {
		if panel := r.GetPanel(r.Preferences.DefaultPanel); panel != nil {
			return panel, nil
		}
		return nil, fmt.Errorf("default panel profile %q does not exist", r.Preferences.DefaultPanel)
	}

	if len(r.Panels) == 1 {
		for _, panel := range r.Panels {
			return panel, nil
		}
	}
	return nil, fmt.Errorf("no panel profile selected (found %d profiles)", len(r.Panels))
}

// SetDefaultPanel marks a profile as the one used when no name is
// given.
func (r *Registry) SetDefaultPanel(name string) error {
	if r.GetPanel(name) == nil {
		return fmt.Errorf("no panel profile named %q", name)
	}
	if r.Preferences == nil {
		r.Preferences = &Preferences{DiscoverTimeout: 10}
	}
	r.Preferences.DefaultPanel = name
	return nil
}

// UpdatePanelLastSeen records a successful connection to a profile.
func (r *Registry) UpdatePanelLastSeen(name string) {
	r.EnsurePanel(name).LastSeen = time.Now()
}
