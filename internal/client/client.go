package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/tanakrit/coinquest/internal/engine"
	"github.com/tanakrit/coinquest/internal/server" // Reuse message types
)

// Client represents a WebSocket client for the budgeting game
type Client struct {
	serverURL     string
	conn          *websocket.Conn
	send          chan *server.Message
	receive       chan *server.Message
	logger        *log.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	mu            sync.RWMutex
	connected     bool
	name          string
	participantID string
	closeOnce     sync.Once

	// Event handlers
	eventHandlers map[server.MessageType][]EventHandler
}

// EventHandler is a function that handles incoming events
type EventHandler func(*server.Message)

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL:     serverURL,
		send:          make(chan *server.Message, 256),
		receive:       make(chan *server.Message, 256),
		logger:        logger.WithPrefix("client"),
		ctx:           ctx,
		cancel:        cancel,
		eventHandlers: make(map[server.MessageType][]EventHandler),
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect() error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	// Add WebSocket path
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	go c.eventProcessor()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close()
			c.connected = false
		}

		close(c.send)
		close(c.receive)

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SendMessage sends a message to the server
func (c *Client) SendMessage(msg *server.Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg server.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.logger.Debug("Received message", "type", msg.Type)

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// eventProcessor processes incoming messages and dispatches to handlers
func (c *Client) eventProcessor() {
	for {
		select {
		case msg := <-c.receive:
			c.handleMessage(msg)
		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches messages to registered handlers
func (c *Client) handleMessage(msg *server.Message) {
	c.mu.RLock()
	handlers, exists := c.eventHandlers[msg.Type]
	c.mu.RUnlock()

	if exists {
		for _, handler := range handlers {
			go handler(msg)
		}
	} else {
		c.logger.Debug("No handler for message type", "type", msg.Type)
	}
}

// AddEventHandler adds an event handler for a specific message type
func (c *Client) AddEventHandler(messageType server.MessageType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandlers[messageType] = append(c.eventHandlers[messageType], handler)
}

// Join registers a participant with the server
func (c *Client) Join(name string) error {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()

	msg, err := server.NewMessage(server.MessageTypeJoin, server.JoinData{Name: name})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// Leave removes this client's participant from the waiting room
func (c *Client) Leave() error {
	msg, err := server.NewMessage(server.MessageTypeLeave, server.LeaveData{
		ParticipantID: c.GetParticipantID(),
	})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// GMLogin authenticates as game master
func (c *Client) GMLogin(password string) error {
	msg, err := server.NewMessage(server.MessageTypeGMLogin, server.GMLoginData{Password: password})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// StartRound asks the server to begin the next round
func (c *Client) StartRound() error {
	return c.sendSimple(server.MessageTypeStartRound)
}

// SubmitAllocation submits this participant's allocation for the round
func (c *Client) SubmitAllocation(alloc engine.Allocation) error {
	msg, err := server.NewMessage(server.MessageTypeSubmitAllocation, server.SubmitAllocationData{
		ParticipantID: c.GetParticipantID(),
		Allocation:    alloc,
	})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// DrawEvent asks the server to draw the round's event card
func (c *Client) DrawEvent() error {
	return c.sendSimple(server.MessageTypeDrawEvent)
}

// ResolveDistributeLoss submits a distribute-loss split
func (c *Client) ResolveDistributeLoss(split engine.LossSplit) error {
	msg, err := server.NewMessage(server.MessageTypeDistributeLoss, server.DistributeLossData{
		ParticipantID: c.GetParticipantID(),
		Split:         split,
	})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// ResolveCoverLoss submits a cover-loss decision
func (c *Client) ResolveCoverLoss(fromTarget, fromEmergency int) error {
	msg, err := server.NewMessage(server.MessageTypeCoverLoss, server.CoverLossData{
		ParticipantID: c.GetParticipantID(),
		FromTarget:    fromTarget,
		FromEmergency: fromEmergency,
	})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// ResolveAllocateBonus submits a bonus allocation split
func (c *Client) ResolveAllocateBonus(split engine.LossSplit) error {
	msg, err := server.NewMessage(server.MessageTypeAllocateBonus, server.AllocateBonusData{
		ParticipantID: c.GetParticipantID(),
		Split:         split,
	})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// EndRound asks the server to settle the round
func (c *Client) EndRound() error {
	return c.sendSimple(server.MessageTypeEndRound)
}

// ForceEndRound asks the server to default-resolve and settle the round
func (c *Client) ForceEndRound() error {
	return c.sendSimple(server.MessageTypeForceEndRound)
}

// EndGameEarly asks the server to finalize the game immediately
func (c *Client) EndGameEarly() error {
	return c.sendSimple(server.MessageTypeEndGameEarly)
}

// Reset asks the server to discard the game state
func (c *Client) Reset() error {
	return c.sendSimple(server.MessageTypeReset)
}

// AcknowledgeSummary clears this participant's round summary
func (c *Client) AcknowledgeSummary() error {
	msg, err := server.NewMessage(server.MessageTypeAcknowledgeSummary, server.AcknowledgeSummaryData{
		ParticipantID: c.GetParticipantID(),
	})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// RequestState asks the server for a fresh state snapshot
func (c *Client) RequestState() error {
	return c.sendSimple(server.MessageTypeGetState)
}

func (c *Client) sendSimple(messageType server.MessageType) error {
	msg, err := server.NewMessage(messageType, struct{}{})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// SetParticipantID records the server-assigned participant ID
func (c *Client) SetParticipantID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.participantID = id
}

// GetParticipantID returns the server-assigned participant ID
func (c *Client) GetParticipantID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.participantID
}

// GetName returns the participant name
func (c *Client) GetName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// WaitForMessage waits for a specific message type with timeout
func (c *Client) WaitForMessage(messageType server.MessageType, timeout time.Duration) (*server.Message, error) {
	responseChan := make(chan *server.Message, 1)

	handler := func(msg *server.Message) {
		select {
		case responseChan <- msg:
		default:
		}
	}

	c.AddEventHandler(messageType, handler)

	select {
	case msg := <-responseChan:
		return msg, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for %s", messageType)
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}
