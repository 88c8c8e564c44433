package server

import (
	"encoding/json"
	"time"

	"github.com/tanakrit/coinquest/internal/engine"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type JoinData struct {
	Name string `json:"name"`
}

type LeaveData struct {
	ParticipantID string `json:"participantId"`
}

type GMLoginData struct {
	Password string `json:"password"`
}

type SubmitAllocationData struct {
	ParticipantID string            `json:"participantId"`
	Allocation    engine.Allocation `json:"allocation"`
}

type DistributeLossData struct {
	ParticipantID string           `json:"participantId"`
	Split         engine.LossSplit `json:"split"`
}

type CoverLossData struct {
	ParticipantID string `json:"participantId"`
	FromTarget    int    `json:"fromTarget"`
	FromEmergency int    `json:"fromEmergency"`
}

type AllocateBonusData struct {
	ParticipantID string           `json:"participantId"`
	Split         engine.LossSplit `json:"split"`
}

type AcknowledgeSummaryData struct {
	ParticipantID string `json:"participantId"`
}

// Server → Client Messages

type JoinedData struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
}

type GMLoginResponseData struct {
	Success bool `json:"success"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateData carries a full snapshot of the game record. It is sent in reply
// to get_state and broadcast after every committed transaction.
type StateData struct {
	State *engine.GameState `json:"state"`
}
