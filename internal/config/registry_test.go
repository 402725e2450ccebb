package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !strings.Contains(configDir, "satelink") {
		t.Errorf("GetConfigDir() = %v, should contain 'satelink'", configDir)
	}

	// Platform-specific checks
	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}

	t.Logf("Config directory: %s", configDir)
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}

	if reg.Panels == nil {
		t.Error("NewRegistry().Panels should not be nil")
	}

	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}

	if reg.Preferences.DiscoverTimeout != 10 {
		t.Errorf("NewRegistry().Preferences.DiscoverTimeout = %v, want 10", reg.Preferences.DiscoverTimeout)
	}
}

func TestRegistryEnsurePanel(t *testing.T) {
	reg := NewRegistry()

	// First call should create the profile
	panel1 := reg.EnsurePanel("home")
	if panel1 == nil {
		t.Fatal("EnsurePanel() returned nil")
	}

	// Second call should return same profile
	panel2 := reg.EnsurePanel("home")
	if panel1 != panel2 {
		t.Error("EnsurePanel() should return same instance for same name")
	}

	// Different name should create new profile
	panel3 := reg.EnsurePanel("office")
	if panel1 == panel3 {
		t.Error("EnsurePanel() should create new instance for different name")
	}
}

func TestRegistryResolvePanel(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Registry)
		query   string
		wantErr bool
	}{
		{
			name:    "empty registry",
			setup:   func(r *Registry) {},
			wantErr: true,
		},
		{
			name: "named profile",
			setup: func(r *Registry) {
				r.EnsurePanel("home").Host = "192.168.1.10"
			},
			query: "home",
		},
		{
			name: "missing named profile",
			setup: func(r *Registry) {
				r.EnsurePanel("home")
			},
			query:   "office",
			wantErr: true,
		},
		{
			name: "single profile fallback",
			setup: func(r *Registry) {
				r.EnsurePanel("home")
			},
		},
		{
			name: "default profile",
			setup: func(r *Registry) {
				r.EnsurePanel("home")
				r.EnsurePanel("office")
				_ = r.SetDefaultPanel("office")
			},
		},
		{
			name: "ambiguous without default",
			setup: func(r *Registry) {
				r.EnsurePanel("home")
				r.EnsurePanel("office")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			tt.setup(reg)

			panel, err := reg.ResolvePanel(tt.query)
			if tt.wantErr {
				if err == nil {
					t.Error("ResolvePanel() should have failed")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvePanel() error = %v", err)
			}
			if panel == nil {
				t.Error("ResolvePanel() returned nil panel without error")
			}
		})
	}
}

func TestRegistrySetDefaultPanelUnknown(t *testing.T) {
	reg := NewRegistry()
	if err := reg.SetDefaultPanel("nope"); err == nil {
		t.Error("SetDefaultPanel() should reject unknown profile")
	}
}

func TestRegistryUpdatePanelLastSeen(t *testing.T) {
	reg := NewRegistry()

	before := time.Now()
	reg.UpdatePanelLastSeen("home")
	after := time.Now()

	panel := reg.GetPanel("home")
	if panel == nil {
		t.Fatal("Panel should exist after UpdatePanelLastSeen()")
	}

	if panel.LastSeen.Before(before) || panel.LastSeen.After(after) {
		t.Errorf("LastSeen = %v, should be between %v and %v", panel.LastSeen, before, after)
	}
}

func TestPanelIntervals(t *testing.T) {
	panel := &Panel{
		ReconnectSeconds: 30,
		ResponseSeconds:  7,
		KeepAliveSeconds: 15,
	}

	if got := panel.ReconnectInterval(); got != 30*time.Second {
		t.Errorf("ReconnectInterval() = %v, want 30s", got)
	}
	if got := panel.ResponseTimeout(); got != 7*time.Second {
		t.Errorf("ResponseTimeout() = %v, want 7s", got)
	}
	if got := panel.KeepAliveInterval(); got != 15*time.Second {
		t.Errorf("KeepAliveInterval() = %v, want 15s", got)
	}

	// Zero values defer to the component defaults downstream.
	empty := &Panel{}
	if got := empty.KeepAliveInterval(); got != 0 {
		t.Errorf("KeepAliveInterval() = %v, want 0", got)
	}
}

func TestRegistryYAMLRoundTrip(t *testing.T) {
	reg := NewRegistry()
	panel := reg.EnsurePanel("home")
	panel.Host = "192.168.1.10"
	panel.Port = 7094
	panel.IntegrationKey = "some_key"
	panel.MonitoredZones = []int{1, 3, 128}
	panel.MonitoredOutputs = []int{2}
	panel.Partitions = []int{1}
	panel.KeepAliveSeconds = 20

	data, err := yaml.Marshal(reg)
	if err != nil {
		t.Fatalf("Failed to marshal registry: %v", err)
	}

	var loaded Registry
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Failed to unmarshal registry: %v", err)
	}

	got := loaded.GetPanel("home")
	if got == nil {
		t.Fatal("Panel should exist in loaded registry")
	}
	if got.Host != "192.168.1.10" || got.Port != 7094 {
		t.Errorf("Loaded endpoint = %s:%d, want 192.168.1.10:7094", got.Host, got.Port)
	}
	if got.IntegrationKey != "some_key" {
		t.Errorf("Loaded integration key = %q, want 'some_key'", got.IntegrationKey)
	}
	if len(got.MonitoredZones) != 3 || got.MonitoredZones[2] != 128 {
		t.Errorf("Loaded monitored zones = %v, want [1 3 128]", got.MonitoredZones)
	}
}
