package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/satelink/internal/satel"
)

// RunMonitor wires the driver's callbacks into a live dashboard and
// blocks until the user quits. The caller owns the client lifecycle;
// the monitor only observes it.
func RunMonitor(client *satel.Client, host string, port int) error {
	model := NewMonitorModel(host, port)
	program := tea.NewProgram(model, tea.WithAltScreen())

	client.OnZoneChanged(func(status satel.ZoneStatus) {
		program.Send(ZoneMsg(status))
	})
	client.OnOutputChanged(func(status satel.OutputStatus) {
		program.Send(OutputMsg(status))
	})
	client.OnAlarmStatusChanged(func() {
		program.Send(PartitionMsg(client.PartitionStates()))
	})

	// The driver has no connection callback, so the dashboard polls.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		program.Send(ConnectionMsg(client.Connected()))
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				program.Send(ConnectionMsg(client.Connected()))
			}
		}
	}()

	_, err := program.Run()
	close(done)
	return err
}
