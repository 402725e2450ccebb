package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/satelink/internal/bridge"
	"github.com/muurk/satelink/internal/config"
	"github.com/muurk/satelink/internal/discovery"
	"github.com/muurk/satelink/internal/logging"
	"github.com/muurk/satelink/internal/satel"
	"github.com/muurk/satelink/internal/transport"
	"github.com/muurk/satelink/internal/ui"
)

// Connection flags (persistent on root)
var (
	panelName      string
	panelHost      string
	panelPort      int
	integrationKey string

	monitorZones   []int
	monitorOutputs []int
)

// Per-command flags
var (
	userCode       string
	armMode        int
	scanCmdTimeout int
	bridgeHost     string
	bridgePort     int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&panelName, "panel", "", "Panel profile name from the config file")
	rootCmd.PersistentFlags().StringVar(&panelHost, "host", "", "Panel host or IP address (overrides profile)")
	rootCmd.PersistentFlags().IntVar(&panelPort, "port", 0, "Integration port (0 uses the default)")
	rootCmd.PersistentFlags().StringVar(&integrationKey, "key", "", "Integration encryption key (empty for plain mode)")
	rootCmd.PersistentFlags().IntSliceVar(&monitorZones, "zones", nil, "Zone numbers to monitor (overrides profile)")
	rootCmd.PersistentFlags().IntSliceVar(&monitorOutputs, "outputs", nil, "Output numbers to monitor (overrides profile)")

	// Add subcommands directly to root
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(armCmd)
	rootCmd.AddCommand(disarmCmd)
	rootCmd.AddCommand(clearAlarmCmd)
	rootCmd.AddCommand(outputCmd)
	rootCmd.AddCommand(nameCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(bridgeCmd)
}

// resolvePanel merges the named (or default) profile with the command
// line overrides. A bare --host with no profile is enough to connect.
func resolvePanel() (*config.Panel, error) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	panel := &config.Panel{}
	if profile, err := registry.ResolvePanel(panelName); err == nil {
		copied := *profile
		panel = &copied
	} else if panelName != "" {
		// A profile was named explicitly but does not resolve
		return nil, err
	}

	if panelHost != "" {
		panel.Host = panelHost
	}
	if panelPort != 0 {
		panel.Port = panelPort
	}
	if integrationKey != "" {
		panel.IntegrationKey = integrationKey
	}
	if len(monitorZones) > 0 {
		panel.MonitoredZones = monitorZones
	}
	if len(monitorOutputs) > 0 {
		panel.MonitoredOutputs = monitorOutputs
	}

	if panel.Host == "" {
		return nil, fmt.Errorf("no panel host configured. Use --host, or create a profile and select it with --panel")
	}

	return panel, nil
}

// buildClient creates a panel driver from the resolved profile.
func buildClient() (*satel.Client, *config.Panel, error) {
	// Silent by default; set SATELINK_LOG_LEVEL=debug for protocol traces
	if err := logging.InitializeFromEnv(); err != nil {
		_ = err
	}

	panel, err := resolvePanel()
	if err != nil {
		return nil, nil, err
	}

	client := satel.NewClient(satel.Config{
		Host:              panel.Host,
		Port:              panel.Port,
		IntegrationKey:    panel.IntegrationKey,
		MonitoredZones:    panel.MonitoredZones,
		MonitoredOutputs:  panel.MonitoredOutputs,
		ReconnectInterval: panel.ReconnectInterval(),
		ResponseTimeout:   panel.ResponseTimeout(),
		KeepAliveInterval: panel.KeepAliveInterval(),
	})
	return client, panel, nil
}

// promptCode returns the user code from the --code flag, or prompts for
// it without echo. Codes are never stored in the config file.
func promptCode() (string, error) {
	if userCode != "" {
		return userCode, nil
	}

	fmt.Fprint(os.Stderr, "User code: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read user code: %w", err)
	}

	code := strings.TrimSpace(string(raw))
	if code == "" {
		return "", fmt.Errorf("user code must not be empty")
	}
	return code, nil
}

// commandPartitions resolves the partitions a control command acts on:
// positional arguments first, then the profile's default partitions.
func commandPartitions(args []string, panel *config.Panel) ([]int, error) {
	if len(args) == 0 {
		if len(panel.Partitions) == 0 {
			return nil, fmt.Errorf("no partitions given and the profile has no defaults")
		}
		return panel.Partitions, nil
	}

	partitions := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid partition number %q", arg)
		}
		partitions = append(partitions, n)
	}
	return partitions, nil
}

// waitForSignal blocks until SIGINT or SIGTERM.
func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

// monitorCmd launches the live TUI dashboard
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Launch the live monitoring dashboard",
	Long: `Launch a full-screen dashboard showing live panel state.

The dashboard shows partition arming states, violated zones, active
outputs, and a rolling event log, updated from the panel's state change
reports as they arrive.`,
	Example: `  # Monitor the default panel profile
  satelink monitor
  # Or simply (monitor is default):
  satelink

  # Monitor a specific panel directly
  satelink monitor --host 192.168.1.15 --key secret12 --zones 1,2,3`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	client, panel, err := buildClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Start(context.Background(), true); err != nil {
		return fmt.Errorf("failed to connect to panel: %w", err)
	}

	port := panel.Port
	if port == 0 {
		port = transport.DefaultPort
	}
	return ui.RunMonitor(client, panel.Host, port)
}

// watchCmd prints panel events as plain text lines
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print panel events to stdout",
	Long: `Connect to the panel, enable state change reporting, and print
each zone, output, and partition change as a plain text line.

Useful for piping into other tools or for terminals where the full
dashboard is not wanted. Runs until interrupted.`,
	Example: `  # Watch the default panel profile
  satelink watch

  # Watch specific zones on a specific panel
  satelink watch --host 192.168.1.15 --zones 1,2,3,7`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, panel, err := buildClient()
	if err != nil {
		return err
	}
	defer client.Close()

	client.OnZoneChanged(func(zones satel.ZoneStatus) {
		fmt.Printf("%s zones: %s\n", time.Now().Format("15:04:05"), formatStatus(zones))
	})
	client.OnOutputChanged(func(outputs satel.OutputStatus) {
		fmt.Printf("%s outputs: %s\n", time.Now().Format("15:04:05"), formatStatus(outputs))
	})
	client.OnAlarmStatusChanged(func() {
		fmt.Printf("%s partitions:", time.Now().Format("15:04:05"))
		for state, partitions := range client.PartitionStates() {
			if len(partitions) > 0 {
				fmt.Printf(" %s=%v", state, partitions)
			}
		}
		fmt.Println()
	})

	if err := client.Start(context.Background(), true); err != nil {
		return fmt.Errorf("failed to connect to panel: %w", err)
	}

	fmt.Printf("Watching panel at %s (Ctrl+C to stop)...\n", panel.Host)
	waitForSignal()
	return nil
}

// formatStatus renders a device status map as "3:on 7:off" pairs in
// numeric order.
func formatStatus[M ~map[int]bool](status M) string {
	numbers := make([]int, 0, len(status))
	for n := range status {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	parts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		state := "off"
		if status[n] {
			state = "on"
		}
		parts = append(parts, fmt.Sprintf("%d:%s", n, state))
	}
	return strings.Join(parts, " ")
}

// armCmd arms one or more partitions
var armCmd = &cobra.Command{
	Use:   "arm [partition...]",
	Short: "Arm partitions",
	Long: `Arm the given partitions with the chosen arm mode.

Without positional arguments the profile's default partitions are used.
The user code is prompted without echo unless --code is given; codes
are never stored in the config file.

Arm modes:
  0  full arm
  1  full arm, interior zones bypassed
  2  full arm, interior zones bypassed, no entry delay
  3  full arm, no violations tolerated`,
	Example: `  # Arm profile default partitions in mode 0
  satelink arm

  # Night-arm partition 1
  satelink arm 1 --mode 1`,
	RunE: runArm,
}

func init() {
	armCmd.Flags().StringVar(&userCode, "code", "", "User code (prompted if not given)")
	armCmd.Flags().IntVar(&armMode, "mode", 0, "Arm mode (0-3)")
}

func runArm(cmd *cobra.Command, args []string) error {
	return runPanelCommand(args, func(client *satel.Client, code string, partitions []int) error {
		fmt.Printf("Arming partitions %v (mode %d)...\n", partitions, armMode)
		return client.Arm(code, partitions, armMode)
	})
}

// disarmCmd disarms one or more partitions
var disarmCmd = &cobra.Command{
	Use:   "disarm [partition...]",
	Short: "Disarm partitions",
	Long: `Disarm the given partitions.

Without positional arguments the profile's default partitions are used.
The user code is prompted without echo unless --code is given.`,
	Example: `  # Disarm profile default partitions
  satelink disarm

  # Disarm partitions 1 and 2
  satelink disarm 1 2`,
	RunE: runDisarm,
}

func init() {
	disarmCmd.Flags().StringVar(&userCode, "code", "", "User code (prompted if not given)")
}

func runDisarm(cmd *cobra.Command, args []string) error {
	return runPanelCommand(args, func(client *satel.Client, code string, partitions []int) error {
		fmt.Printf("Disarming partitions %v...\n", partitions)
		return client.Disarm(code, partitions)
	})
}

// clearAlarmCmd clears a triggered alarm
var clearAlarmCmd = &cobra.Command{
	Use:   "clear-alarm [partition...]",
	Short: "Clear a triggered alarm",
	Long: `Clear the alarm condition on the given partitions without
changing their arming state.

Without positional arguments the profile's default partitions are used.
The user code is prompted without echo unless --code is given.`,
	Example: `  # Clear the alarm on partition 1
  satelink clear-alarm 1`,
	RunE: runClearAlarm,
}

func init() {
	clearAlarmCmd.Flags().StringVar(&userCode, "code", "", "User code (prompted if not given)")
}

func runClearAlarm(cmd *cobra.Command, args []string) error {
	return runPanelCommand(args, func(client *satel.Client, code string, partitions []int) error {
		fmt.Printf("Clearing alarm on partitions %v...\n", partitions)
		return client.ClearAlarm(code, partitions)
	})
}

// runPanelCommand is the shared scaffolding for the coded control
// commands: resolve the profile, prompt for the code, connect without
// monitoring, and run the action.
func runPanelCommand(args []string, action func(*satel.Client, string, []int) error) error {
	client, panel, err := buildClient()
	if err != nil {
		return err
	}
	defer client.Close()

	partitions, err := commandPartitions(args, panel)
	if err != nil {
		return err
	}

	code, err := promptCode()
	if err != nil {
		return err
	}

	if err := client.Start(context.Background(), false); err != nil {
		return fmt.Errorf("failed to connect to panel: %w", err)
	}

	if err := action(client, code, partitions); err != nil {
		return err
	}

	fmt.Println("✓ Command accepted")
	return nil
}

// outputCmd switches an output on or off
var outputCmd = &cobra.Command{
	Use:   "output <number> <on|off>",
	Short: "Switch an output on or off",
	Long: `Switch a single panel output on or off.

The user code is prompted without echo unless --code is given. Only
outputs the user code is authorized for can be switched.`,
	Example: `  # Open the gate wired to output 12
  satelink output 12 on

  # Switch it back off
  satelink output 12 off`,
	Args: cobra.ExactArgs(2),
	RunE: runOutput,
}

func init() {
	outputCmd.Flags().StringVar(&userCode, "code", "", "User code (prompted if not given)")
}

func runOutput(cmd *cobra.Command, args []string) error {
	number, err := strconv.Atoi(args[0])
	if err != nil || number < 1 {
		return fmt.Errorf("invalid output number %q", args[0])
	}

	var on bool
	switch strings.ToLower(args[1]) {
	case "on":
		on = true
	case "off":
		on = false
	default:
		return fmt.Errorf("invalid output state %q (use on or off)", args[1])
	}

	client, _, err := buildClient()
	if err != nil {
		return err
	}
	defer client.Close()

	code, err := promptCode()
	if err != nil {
		return err
	}

	if err := client.Start(context.Background(), false); err != nil {
		return fmt.Errorf("failed to connect to panel: %w", err)
	}

	state := "off"
	if on {
		state = "on"
	}
	fmt.Printf("Switching output %d %s...\n", number, state)
	if err := client.SetOutput(code, number, on); err != nil {
		return err
	}

	fmt.Println("✓ Command accepted")
	return nil
}

// Device type values for the name command
var deviceTypes = map[string]byte{
	"partition": 0,
	"zone":      1,
	"user":      2,
	"output":    4,
}

// nameCmd reads a device name from the panel
var nameCmd = &cobra.Command{
	Use:   "name <type> <number>",
	Short: "Read a device name from the panel",
	Long: `Read the name the installer assigned to a device.

The type is one of: partition, zone, user, output (or the raw numeric
device type byte).`,
	Example: `  # Read the name of zone 3
  satelink name zone 3

  # Read the name of partition 1
  satelink name partition 1`,
	Args: cobra.ExactArgs(2),
	RunE: runName,
}

func runName(cmd *cobra.Command, args []string) error {
	deviceType, ok := deviceTypes[strings.ToLower(args[0])]
	if !ok {
		raw, err := strconv.Atoi(args[0])
		if err != nil || raw < 0 || raw > 255 {
			return fmt.Errorf("invalid device type %q (use partition, zone, user, output, or a byte value)", args[0])
		}
		deviceType = byte(raw)
	}

	number, err := strconv.Atoi(args[1])
	if err != nil || number < 1 || number > 255 {
		return fmt.Errorf("invalid device number %q", args[1])
	}

	client, _, err := buildClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Start(context.Background(), false); err != nil {
		return fmt.Errorf("failed to connect to panel: %w", err)
	}

	name, err := client.DeviceName(deviceType, byte(number))
	if err != nil {
		return fmt.Errorf("failed to read device name: %w", err)
	}

	fmt.Printf("%s %d: %s\n", args[0], number, name)
	return nil
}

// scanCmd discovers ETHM integration modules on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for ETHM integration modules on the network",
	Long: `Scan for Satel ETHM network integration modules using mDNS.

This command listens for mDNS broadcasts from ETHM modules and displays
all discovered modules with their IP addresses and identifiers.`,
	Example: `  # Scan for 10 seconds (default)
  satelink scan

  # Quick 3-second scan
  satelink scan --timeout 3`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanCmdTimeout, "timeout", 10, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for ETHM modules (timeout: %ds)...\n\n", scanCmdTimeout)

	modules, err := discovery.ScanForModules(time.Duration(scanCmdTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(modules) == 0 {
		fmt.Println("No modules found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the ETHM module is powered and connected to the LAN")
		fmt.Println("  - mDNS broadcasts do not cross subnets; scan from the panel's network")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use --host to specify the address manually if discovery fails")
		return nil
	}

	fmt.Printf("Found %d module(s):\n\n", len(modules))

	for i, module := range modules {
		fmt.Printf("%d. %s\n", i+1, module.Hostname)
		fmt.Printf("   ID:      %s\n", module.ID)
		fmt.Printf("   Address: %s\n", module.Address())
		if len(module.Metadata) > 0 {
			fmt.Printf("   Metadata: %v\n", module.Metadata)
		}
		fmt.Println()
	}

	fmt.Println("Use 'satelink monitor --host <ip>' to connect to a module")

	return nil
}

// bridgeCmd runs the websocket event bridge
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the websocket event bridge",
	Long: `Connect to the panel and serve its events over websocket.

Subscribers connect to ws://<listen>/events and receive every zone,
output, partition, and connection change as a JSON event. New
subscribers get a snapshot of the latest known state first. A JSON
status summary is served at /status. Runs until interrupted.`,
	Example: `  # Bridge the default panel profile on the default port
  satelink bridge

  # Expose the bridge to the LAN on port 9000
  satelink bridge --listen-host 0.0.0.0 --listen-port 9000`,
	RunE: runBridge,
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeHost, "listen-host", "127.0.0.1", "Address to listen on")
	bridgeCmd.Flags().IntVar(&bridgePort, "listen-port", bridge.DefaultPort, "Port to listen on")
}

func runBridge(cmd *cobra.Command, args []string) error {
	client, panel, err := buildClient()
	if err != nil {
		return err
	}
	defer client.Close()

	server := bridge.New(client, bridge.Config{
		Host: bridgeHost,
		Port: bridgePort,
	})

	if err := client.Start(context.Background(), true); err != nil {
		return fmt.Errorf("failed to connect to panel: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	fmt.Printf("Bridging panel %s on ws://%s/events (Ctrl+C to stop)...\n", panel.Host, server.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("bridge server failed: %w", err)
	case <-sig:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
