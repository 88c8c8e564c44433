package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/tanakrit/coinquest/internal/engine"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn          *websocket.Conn
	send          chan *Message
	participantID string
	logger        *log.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	mu            sync.RWMutex
	closeOnce     sync.Once
	gameService   *GameService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetParticipant associates this connection with a participant
func (c *Connection) SetParticipant(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.participantID = id
}

// GetParticipant returns the associated participant ID
func (c *Connection) GetParticipant() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.participantID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "participant", c.GetParticipant())

	if c.gameService == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	switch msg.Type {
	case MessageTypeJoin:
		var data JoinData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join data")
			return
		}
		c.handleJoin(data)

	case MessageTypeLeave:
		var data LeaveData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leave data")
			return
		}
		c.handleLeave(data)

	case MessageTypeGMLogin:
		var data GMLoginData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse gm login data")
			return
		}
		c.handleGMLogin(data)

	case MessageTypeStartRound:
		c.reply(c.gameService.StartRound())

	case MessageTypeSubmitAllocation:
		var data SubmitAllocationData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse allocation data")
			return
		}
		c.handleSubmitAllocation(data)

	case MessageTypeDrawEvent:
		c.reply(c.gameService.DrawEvent())

	case MessageTypeDistributeLoss:
		var data DistributeLossData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse distribute loss data")
			return
		}
		c.reply(c.gameService.ResolveDistributeLoss(c.resolveID(data.ParticipantID), data.Split))

	case MessageTypeCoverLoss:
		var data CoverLossData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse cover loss data")
			return
		}
		c.reply(c.gameService.ResolveCoverLoss(c.resolveID(data.ParticipantID), data.FromTarget, data.FromEmergency))

	case MessageTypeAllocateBonus:
		var data AllocateBonusData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse allocate bonus data")
			return
		}
		c.reply(c.gameService.ResolveAllocateBonus(c.resolveID(data.ParticipantID), data.Split))

	case MessageTypeEndRound:
		c.reply(c.gameService.EndRound())

	case MessageTypeForceEndRound:
		c.reply(c.gameService.ForceEndRound())

	case MessageTypeEndGameEarly:
		c.reply(c.gameService.EndGameEarly())

	case MessageTypeReset:
		c.reply(c.gameService.Reset())

	case MessageTypeAcknowledgeSummary:
		var data AcknowledgeSummaryData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse acknowledge data")
			return
		}
		c.reply(c.gameService.AcknowledgeSummary(c.resolveID(data.ParticipantID)))

	case MessageTypeGetState:
		c.sendState(c.gameService.GetState())

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// resolveID falls back to the connection's own participant when the client
// omits the id
func (c *Connection) resolveID(id string) string {
	if id != "" {
		return id
	}
	return c.GetParticipant()
}

// reply sends the post-transaction state back, or an error if the
// operation was rejected
func (c *Connection) reply(state *engine.GameState, err error) {
	if err != nil {
		c.sendError(ErrorCode(err), err.Error())
		return
	}
	c.sendState(state)
}

func (c *Connection) sendState(state *engine.GameState) {
	msg, err := NewMessage(MessageTypeState, StateData{State: state})
	if err != nil {
		c.logger.Error("Failed to create state message", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

func (c *Connection) handleJoin(data JoinData) {
	c.logger.Info("Join request", "name", data.Name)

	id, _, err := c.gameService.Join(data.Name)
	if err != nil {
		c.sendError(ErrorCode(err), err.Error())
		return
	}

	c.SetParticipant(id)

	response, _ := NewMessage(MessageTypeJoined, JoinedData{
		ParticipantID: id,
		Name:          data.Name,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleLeave(data LeaveData) {
	id := c.resolveID(data.ParticipantID)
	c.logger.Info("Leave request", "participant", id)

	_, err := c.gameService.Leave(id)
	if err != nil {
		c.sendError(ErrorCode(err), err.Error())
		return
	}

	if id == c.GetParticipant() {
		c.SetParticipant("")
	}

	response, _ := NewMessage(MessageTypeLeft, LeaveData{ParticipantID: id})
	_ = c.SendMessage(response)
}

func (c *Connection) handleGMLogin(data GMLoginData) {
	c.logger.Info("GM login request")

	_, err := c.gameService.GMLogin(data.Password)
	if err != nil {
		c.sendError(ErrorCode(err), "Invalid game master password")
		return
	}

	response, _ := NewMessage(MessageTypeGMLoginResponse, GMLoginResponseData{Success: true})
	_ = c.SendMessage(response)
}

func (c *Connection) handleSubmitAllocation(data SubmitAllocationData) {
	id := c.resolveID(data.ParticipantID)
	c.logger.Info("Allocation submitted", "participant", id,
		"food", data.Allocation.Food, "short", data.Allocation.Short,
		"long", data.Allocation.Long, "emergency", data.Allocation.Emergency)

	c.reply(c.gameService.SubmitAllocation(id, data.Allocation))
}
