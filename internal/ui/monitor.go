package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/satelink/internal/satel"
)

// Messages pushed into the program by the driver callbacks.
type (
	// ZoneMsg carries the latest zone violation report
	ZoneMsg satel.ZoneStatus

	// OutputMsg carries the latest output state report
	OutputMsg satel.OutputStatus

	// PartitionMsg carries the latest partition states
	PartitionMsg map[satel.AlarmState][]int

	// ConnectionMsg carries the current session state
	ConnectionMsg bool
)

const eventLogSize = 8

// monitorKeyMap defines key bindings for the monitor dashboard
type monitorKeyMap struct {
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

// displayOrder fixes how partition states are listed on the board:
// alarms first, then arming states, countdowns last.
var displayOrder = []satel.AlarmState{
	satel.StateTriggered,
	satel.StateTriggeredFire,
	satel.StateArmedMode0,
	satel.StateArmedMode1,
	satel.StateArmedMode2,
	satel.StateArmedMode3,
	satel.StateArmedSuppressed,
	satel.StateEntryTime,
	satel.StateExitCountdownOver10,
	satel.StateExitCountdownUnder10,
}

// MonitorModel is the live dashboard: connection state, partition
// states, zone and output boards, and a short event log.
type MonitorModel struct {
	Host string
	Port int

	Width  int
	Height int

	connected  bool
	zones      map[int]bool
	outputs    map[int]bool
	partitions map[satel.AlarmState][]int
	events     []string

	Help help.Model
	keys monitorKeyMap
}

// NewMonitorModel creates a dashboard for the given panel endpoint.
func NewMonitorModel(host string, port int) MonitorModel {
	return MonitorModel{
		Host:       host,
		Port:       port,
		zones:      make(map[int]bool),
		outputs:    make(map[int]bool),
		partitions: make(map[satel.AlarmState][]int),
		Help:       help.New(),
		keys: monitorKeyMap{
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
	}
}

// Init initializes the dashboard
func (m MonitorModel) Init() tea.Cmd {
	return nil
}

// Update handles incoming events and key presses
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil

	case ZoneMsg:
		m.zones = msg
		m.logEvent(fmt.Sprintf("zones: %s", formatActive(msg)))
		return m, nil

	case OutputMsg:
		m.outputs = msg
		m.logEvent(fmt.Sprintf("outputs: %s", formatActive(msg)))
		return m, nil

	case PartitionMsg:
		m.partitions = msg
		m.logEvent("partition state changed")
		return m, nil

	case ConnectionMsg:
		if bool(msg) != m.connected {
			if msg {
				m.logEvent("panel connected")
			} else {
				m.logEvent("panel disconnected")
			}
		}
		m.connected = bool(msg)
		return m, nil
	}

	return m, nil
}

func (m *MonitorModel) logEvent(text string) {
	line := EventTimeStyle.Render(time.Now().Format("15:04:05")) + " " + text
	m.events = append(m.events, line)
	if len(m.events) > eventLogSize {
		m.events = m.events[len(m.events)-eventLogSize:]
	}
}

// View renders the dashboard
func (m MonitorModel) View() string {
	width := m.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if width > MaxContentWidth {
		width = MaxContentWidth
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render("Satelink Monitor"))
	b.WriteString("  ")
	if m.connected {
		b.WriteString(ConnectedStyle.Render("● connected"))
	} else {
		b.WriteString(DisconnectedStyle.Render("○ disconnected"))
	}
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("%s:%d", m.Host, m.Port)))
	b.WriteString("\n\n")

	b.WriteString(SectionTitleStyle.Render("PARTITIONS"))
	b.WriteString("\n")
	b.WriteString(m.renderPartitions())
	b.WriteString("\n")

	b.WriteString(SectionTitleStyle.Render("ZONES"))
	b.WriteString("\n")
	b.WriteString(renderBoard(m.zones, ZoneViolatedStyle, width))
	b.WriteString("\n")

	b.WriteString(SectionTitleStyle.Render("OUTPUTS"))
	b.WriteString("\n")
	b.WriteString(renderBoard(m.outputs, OutputActiveStyle, width))
	b.WriteString("\n")

	b.WriteString(SectionTitleStyle.Render("EVENTS"))
	b.WriteString("\n")
	if len(m.events) == 0 {
		b.WriteString(ZoneQuietStyle.Render("  (no events yet)"))
		b.WriteString("\n")
	} else {
		for _, line := range m.events {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString("\n")

	b.WriteString(HelpStyle.Render(m.Help.View(m.keys)))
	b.WriteString("\n")

	return b.String()
}

func (m MonitorModel) renderPartitions() string {
	var b strings.Builder
	shown := false
	for _, state := range displayOrder {
		parts := m.partitions[state]
		if len(parts) == 0 {
			continue
		}
		shown = true
		style := ArmedStyle
		switch state {
		case satel.StateTriggered, satel.StateTriggeredFire:
			style = AlarmStyle
		}
		b.WriteString(fmt.Sprintf("  %s: %s\n",
			style.Render(state.String()), formatInts(parts)))
	}
	if parts := m.partitions[satel.StateDisarmed]; len(parts) > 0 {
		shown = true
		b.WriteString(fmt.Sprintf("  %s: %s\n",
			DisarmedStyle.Render(satel.StateDisarmed.String()), formatInts(parts)))
	}
	if !shown {
		return ZoneQuietStyle.Render("  (no reports yet)") + "\n"
	}
	return b.String()
}

// renderBoard lays the monitored device numbers out in rows, lighting
// up the active ones.
func renderBoard(status map[int]bool, activeStyle lipgloss.Style, width int) string {
	if len(status) == 0 {
		return ZoneQuietStyle.Render("  (none monitored)") + "\n"
	}

	ids := make([]int, 0, len(status))
	for id := range status {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	cell := 5
	perRow := (width - 4) / cell
	if perRow < 1 {
		perRow = 1
	}

	var b strings.Builder
	for i, id := range ids {
		if i%perRow == 0 {
			b.WriteString("  ")
		}
		label := fmt.Sprintf("%4d ", id)
		if status[id] {
			b.WriteString(activeStyle.Render(label))
		} else {
			b.WriteString(ZoneQuietStyle.Render(label))
		}
		if (i+1)%perRow == 0 {
			b.WriteString("\n")
		}
	}
	if len(ids)%perRow != 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func formatInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}

func formatActive(status map[int]bool) string {
	active := make([]int, 0, len(status))
	for id, on := range status {
		if on {
			active = append(active, id)
		}
	}
	if len(active) == 0 {
		return "all quiet"
	}
	sort.Ints(active)
	return formatInts(active)
}
