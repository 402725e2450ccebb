package satel

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/satelink/internal/logging"
	"github.com/muurk/satelink/internal/protocol"
	"github.com/muurk/satelink/internal/transport"
)

const (
	// DefaultKeepAliveInterval is how often the driver queries the panel
	// while the session is otherwise idle. The ETHM module drops
	// sessions that stay quiet much longer than this.
	DefaultKeepAliveInterval = 20 * time.Second

	// ArmModes is the number of arming modes the panel supports.
	ArmModes = 4
)

// ZoneStatus maps each monitored zone to whether it is violated.
type ZoneStatus map[int]bool

// OutputStatus maps each monitored output to whether it is active.
type OutputStatus map[int]bool

// Config carries everything needed to talk to one panel.
type Config struct {
	Host           string
	Port           int
	IntegrationKey string

	MonitoredZones   []int
	MonitoredOutputs []int

	ReconnectInterval time.Duration
	ResponseTimeout   time.Duration
	KeepAliveInterval time.Duration
}

// Client is the panel driver. It owns a reconnecting connection, the
// serialized command queue, a read loop that correlates responses and
// dispatches state reports, and an idle keep-alive.
type Client struct {
	conn  *transport.Connection
	queue *MessageQueue

	keepAliveInterval time.Duration
	monitoredZones    []int
	monitoredOutputs  []int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	handlers map[protocol.ReadCommand]func(*protocol.ReadMessage)

	mu              sync.Mutex
	started         bool
	closed          bool
	violatedZones   []int
	activeOutputs   []int
	partitionStates map[AlarmState][]int

	alarmCallback  func()
	zoneCallback   func(ZoneStatus)
	outputCallback func(OutputStatus)
}

// NewClient builds a driver for the panel described by cfg. Callbacks
// must be registered before Start.
func NewClient(cfg Config) *Client {
	port := cfg.Port
	if port == 0 {
		port = transport.DefaultPort
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn: transport.NewConnection(cfg.Host, port,
			cfg.IntegrationKey, cfg.ReconnectInterval),
		keepAliveInterval: cfg.KeepAliveInterval,
		monitoredZones:    append([]int(nil), cfg.MonitoredZones...),
		monitoredOutputs:  append([]int(nil), cfg.MonitoredOutputs...),
		ctx:               ctx,
		cancel:            cancel,
		partitionStates:   make(map[AlarmState][]int),
	}
	if c.keepAliveInterval <= 0 {
		c.keepAliveInterval = DefaultKeepAliveInterval
	}
	c.queue = NewMessageQueue(c.transmit, cfg.ResponseTimeout)
	c.handlers = c.buildHandlers()
	return c
}

// OnAlarmStatusChanged registers the callback invoked whenever any
// partition state report arrives.
func (c *Client) OnAlarmStatusChanged(fn func()) {
	c.mu.Lock()
	c.alarmCallback = fn
	c.mu.Unlock()
}

// OnZoneChanged registers the callback invoked with the violation
// status of the monitored zones whenever a zone report arrives.
func (c *Client) OnZoneChanged(fn func(ZoneStatus)) {
	c.mu.Lock()
	c.zoneCallback = fn
	c.mu.Unlock()
}

// OnOutputChanged registers the callback invoked with the status of the
// monitored outputs whenever an output report arrives.
func (c *Client) OnOutputChanged(fn func(OutputStatus)) {
	c.mu.Lock()
	c.outputCallback = fn
	c.mu.Unlock()
}

// Connected reports whether the panel session is currently up.
func (c *Client) Connected() bool { return c.conn.Connected() }

// Start connects to the panel and launches the read and keep-alive
// loops. With enableMonitoring set it also asks the panel to push state
// reports; a refusal is logged but does not fail the start. Start
// blocks until a connection is established, retrying with the
// configured reconnect interval; only closing the driver or cancelling
// ctx stops the retries.
func (c *Client) Start(ctx context.Context, enableMonitoring bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	started := c.started
	c.started = true
	c.mu.Unlock()

	if !started {
		if !c.conn.EnsureConnected(ctx) {
			c.mu.Lock()
			c.started = false
			c.mu.Unlock()
			if c.conn.Closed() {
				return ErrClosed
			}
			return fmt.Errorf("connecting to panel: %w", ctx.Err())
		}
		c.queue.Start()
		c.wg.Add(2)
		go c.readLoop()
		go c.keepAliveLoop()
		logging.Info("Panel driver started")
	}

	if enableMonitoring {
		if err := c.StartMonitoring(); err != nil {
			logging.Warn("Monitoring not active", zap.Error(err))
		}
	}
	return nil
}

// Close terminally shuts the driver down: pending commands fail, the
// background loops exit and the connection is closed. Close is
// idempotent and safe to call on a never-started client.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.queue.Stop()
	c.cancel()
	err := c.conn.Close()
	c.wg.Wait()
	logging.Info("Panel driver closed")
	return err
}

// StartMonitoring asks the panel to push the state reports the driver
// dispatches. The panel answers with a single acceptance byte.
func (c *Client) StartMonitoring() error {
	reports := make([]protocol.ReadCommand, 0, len(partitionReports)+2)
	reports = append(reports, protocol.ReadZonesViolated, protocol.ReadOutputsState)
	for cmd := range partitionReports {
		reports = append(reports, cmd)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i] < reports[j] })

	// The monitoring request is a 12-byte bitmask with bit N standing
	// for opcode N, so every opcode shifts up by one position.
	positions := make([]int, len(reports))
	for i, cmd := range reports {
		positions[i] = int(cmd) + 1
	}
	mask, err := protocol.EncodeBitmask(positions, 12)
	if err != nil {
		return fmt.Errorf("encoding monitoring mask: %w", err)
	}

	reply, err := c.queue.AddMessage(
		protocol.NewRawMessage(protocol.WriteStartMonitoring, mask), true)
	if err != nil {
		return err
	}
	if len(reply.Data) != 1 || reply.Data[0] != 0xFF {
		logging.Warn("Panel rejected monitoring request",
			zap.Binary("reply", reply.Data))
		return ErrMonitoringRejected
	}
	logging.Info("Monitoring started")
	return nil
}

// Arm arms the given partitions in the given mode (0..3).
func (c *Client) Arm(code string, partitions []int, mode int) error {
	if mode < 0 || mode >= ArmModes {
		return fmt.Errorf("invalid arm mode %d", mode)
	}
	cmd := protocol.WriteCommand(byte(protocol.WriteArmMode0) + byte(mode))
	return c.sendCoded(cmd, code, partitions, nil)
}

// Disarm disarms the given partitions.
func (c *Client) Disarm(code string, partitions []int) error {
	return c.sendCoded(protocol.WriteDisarm, code, partitions, nil)
}

// ClearAlarm clears a triggered alarm on the given partitions.
func (c *Client) ClearAlarm(code string, partitions []int) error {
	return c.sendCoded(protocol.WriteClearAlarm, code, partitions, nil)
}

// SetOutput switches a single output on or off.
func (c *Client) SetOutput(code string, output int, on bool) error {
	cmd := protocol.WriteOutputsOff
	if on {
		cmd = protocol.WriteOutputsOn
	}
	return c.sendCoded(cmd, code, nil, []int{output})
}

func (c *Client) sendCoded(cmd protocol.WriteCommand, code string, partitions, zonesOrOutputs []int) error {
	msg, err := protocol.NewCodedMessage(cmd, code, partitions, zonesOrOutputs)
	if err != nil {
		return err
	}
	_, err = c.queue.AddMessage(msg, false)
	return err
}

// DeviceName reads the panel-configured name of one device, e.g. a
// partition, zone or output.
func (c *Client) DeviceName(deviceType byte, number byte) (string, error) {
	msg := protocol.NewRawMessage(protocol.WriteReadDeviceName, []byte{deviceType, number})
	reply, err := c.queue.AddMessage(msg, true)
	if err != nil {
		return "", err
	}
	// Reply layout: device type, device number, then the 16-character
	// name padded with spaces.
	if len(reply.Data) <= 2 {
		return "", fmt.Errorf("malformed device name reply (%d bytes)", len(reply.Data))
	}
	return strings.TrimRight(string(reply.Data[2:]), " \x00"), nil
}

// Send queues an arbitrary command, for callers that speak the protocol
// directly.
func (c *Client) Send(msg *protocol.WriteMessage, waitForResult bool) (*protocol.ReadMessage, error) {
	return c.queue.AddMessage(msg, waitForResult)
}

// ViolatedZones returns the zones last reported as violated.
func (c *Client) ViolatedZones() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.violatedZones...)
}

// ActiveOutputs returns the outputs last reported as active.
func (c *Client) ActiveOutputs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.activeOutputs...)
}

// PartitionStates returns the partitions last reported in each state.
func (c *Client) PartitionStates() map[AlarmState][]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	states := make(map[AlarmState][]int, len(c.partitionStates))
	for state, parts := range c.partitionStates {
		states[state] = append([]int(nil), parts...)
	}
	return states
}

func (c *Client) transmit(msg *protocol.WriteMessage) error {
	return c.conn.SendFrame(msg.EncodeFrame())
}

// readLoop keeps one decoded message flowing at a time: responses are
// offered to the queue first, then every message is dispatched to its
// state handler.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for !c.conn.Closed() {
		if !c.conn.EnsureConnected(c.ctx) {
			return
		}
		msg := c.readMessage()
		if msg == nil {
			continue
		}
		c.queue.OnMessageReceived(msg)
		c.dispatch(msg)
	}
}

func (c *Client) readMessage() *protocol.ReadMessage {
	data, err := c.conn.ReadFrame()
	if err != nil {
		logging.Debug("Read failed", zap.Error(err))
		return nil
	}
	msg, err := protocol.DecodeFrame(data)
	if err != nil {
		// A framing error means the stream position can no longer be
		// trusted; drop the socket and resynchronize on a fresh session.
		logging.Warn("Discarding undecodable frame", zap.Error(err))
		c.conn.Drop()
		return nil
	}
	return msg
}

func (c *Client) dispatch(msg *protocol.ReadMessage) {
	handler, ok := c.handlers[msg.Cmd]
	if !ok {
		logging.Debug("No handler for message", zap.Stringer("cmd", msg.Cmd))
		return
	}
	logging.Debug("Dispatching message", zap.Stringer("cmd", msg.Cmd))
	handler(msg)
}

func (c *Client) keepAliveLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if !c.conn.Connected() {
				continue
			}
			// Any answered query keeps the session alive; the name of
			// partition 1 is always available.
			msg := protocol.NewRawMessage(protocol.WriteReadDeviceName, []byte{0x01, 0x01})
			if _, err := c.queue.AddMessage(msg, false); err != nil {
				logging.Debug("Keep-alive not queued", zap.Error(err))
			}
		}
	}
}

// buildHandlers wires each report opcode to its handler. The table is
// built once; dispatch itself takes no locks.
func (c *Client) buildHandlers() map[protocol.ReadCommand]func(*protocol.ReadMessage) {
	handlers := map[protocol.ReadCommand]func(*protocol.ReadMessage){
		protocol.ReadZonesViolated: c.handleZonesViolated,
		protocol.ReadOutputsState:  c.handleOutputsState,
		protocol.ReadResult:        c.handleResult,
	}
	for cmd, state := range partitionReports {
		handlers[cmd] = func(msg *protocol.ReadMessage) {
			c.handlePartitionState(state, msg)
		}
	}
	return handlers
}

func (c *Client) handleZonesViolated(msg *protocol.ReadMessage) {
	violated, err := decodeDeviceMask(msg.Data)
	if err != nil {
		logging.Warn("Malformed zone report", zap.Error(err))
		return
	}

	c.mu.Lock()
	c.violatedZones = violated
	monitored := c.monitoredZones
	callback := c.zoneCallback
	c.mu.Unlock()

	logging.Debug("Violated zones", zap.Ints("zones", violated))
	if callback != nil {
		callback(deviceStatus(monitored, violated))
	}
}

func (c *Client) handleOutputsState(msg *protocol.ReadMessage) {
	active, err := decodeDeviceMask(msg.Data)
	if err != nil {
		logging.Warn("Malformed output report", zap.Error(err))
		return
	}

	c.mu.Lock()
	c.activeOutputs = active
	monitored := c.monitoredOutputs
	callback := c.outputCallback
	c.mu.Unlock()

	logging.Debug("Active outputs", zap.Ints("outputs", active))
	if callback != nil {
		callback(deviceStatus(monitored, active))
	}
}

func (c *Client) handlePartitionState(state AlarmState, msg *protocol.ReadMessage) {
	partitions, err := msg.ActiveBits(4)
	if err != nil {
		logging.Warn("Malformed partition report",
			zap.Stringer("state", state), zap.Error(err))
		return
	}

	c.mu.Lock()
	c.partitionStates[state] = partitions
	callback := c.alarmCallback
	c.mu.Unlock()

	logging.Debug("Partition state",
		zap.Stringer("state", state), zap.Ints("partitions", partitions))
	if callback != nil {
		callback()
	}
}

func (c *Client) handleResult(msg *protocol.ReadMessage) {
	if len(msg.Data) != 1 {
		logging.Warn("Malformed result message", zap.Binary("data", msg.Data))
		return
	}
	if err := ResultError(msg.Data[0]); err != nil {
		logging.Warn("Command failed", zap.Error(err))
		return
	}
	logging.Debug("Command accepted")
}

// decodeDeviceMask decodes a zone or output bitmask. Smaller panels
// report 16 bytes (128 devices), larger ones 32 bytes (256 devices).
func decodeDeviceMask(data []byte) ([]int, error) {
	switch len(data) {
	case 16, 32:
		return protocol.DecodeBitmask(data, len(data))
	default:
		return nil, fmt.Errorf("unexpected device mask length %d", len(data))
	}
}

func deviceStatus(monitored, active []int) map[int]bool {
	activeSet := make(map[int]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}
	status := make(map[int]bool, len(monitored))
	for _, id := range monitored {
		status[id] = activeSet[id]
	}
	return status
}
