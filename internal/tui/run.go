package tui

import (
	"encoding/json"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/tanakrit/coinquest/internal/client"
	"github.com/tanakrit/coinquest/internal/server"
)

// Run connects to the server and drives the interactive TUI until the user
// quits or the connection drops.
func Run(cfg *client.Config, logger *log.Logger) error {
	c := client.NewClient(cfg.Server.URL, logger)
	if err := c.Connect(); err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Server.URL, err)
	}
	defer func() { _ = c.Disconnect() }()

	model := NewModel(c, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())

	c.AddEventHandler(server.MessageTypeState, func(msg *server.Message) {
		var data server.StateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			logger.Error("Failed to decode state message", "error", err)
			return
		}
		program.Send(StateMsg{State: data.State})
	})

	c.AddEventHandler(server.MessageTypeJoined, func(msg *server.Message) {
		var data server.JoinedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			logger.Error("Failed to decode joined message", "error", err)
			return
		}
		c.SetParticipantID(data.ParticipantID)
		program.Send(JoinedMsg{ParticipantID: data.ParticipantID, Name: data.Name})
		// Pull a snapshot so the sidebar fills in immediately
		_ = c.RequestState()
	})

	c.AddEventHandler(server.MessageTypeGMLoginResponse, func(msg *server.Message) {
		var data server.GMLoginResponseData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			logger.Error("Failed to decode gm login response", "error", err)
			return
		}
		program.Send(GMLoginMsg{Success: data.Success})
	})

	c.AddEventHandler(server.MessageTypeError, func(msg *server.Message) {
		var data server.ErrorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			logger.Error("Failed to decode error message", "error", err)
			return
		}
		program.Send(ServerErrorMsg{Code: data.Code, Message: data.Message})
	})

	// Prime the display with the current state
	if err := c.RequestState(); err != nil {
		return err
	}

	// Auto-join when the config names a participant
	if cfg.Player.AutoJoin && cfg.Player.Name != "" {
		if err := c.Join(cfg.Player.Name); err != nil {
			return err
		}
	}

	_, err := program.Run()
	return err
}
