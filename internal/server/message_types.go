package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeJoin               MessageType = "join"
	MessageTypeLeave              MessageType = "leave"
	MessageTypeGMLogin            MessageType = "gm_login"
	MessageTypeStartRound         MessageType = "start_round"
	MessageTypeSubmitAllocation   MessageType = "submit_allocation"
	MessageTypeDrawEvent          MessageType = "draw_event"
	MessageTypeDistributeLoss     MessageType = "resolve_distribute_loss"
	MessageTypeCoverLoss          MessageType = "resolve_cover_loss"
	MessageTypeAllocateBonus      MessageType = "resolve_allocate_bonus"
	MessageTypeEndRound           MessageType = "end_round"
	MessageTypeForceEndRound      MessageType = "force_end_round"
	MessageTypeEndGameEarly       MessageType = "end_game_early"
	MessageTypeReset              MessageType = "reset"
	MessageTypeAcknowledgeSummary MessageType = "acknowledge_summary"
	MessageTypeGetState           MessageType = "get_state"

	// Server to client messages
	MessageTypeJoined          MessageType = "joined"
	MessageTypeLeft            MessageType = "left"
	MessageTypeGMLoginResponse MessageType = "gm_login_response"
	MessageTypeState           MessageType = "state"
	MessageTypeError           MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
