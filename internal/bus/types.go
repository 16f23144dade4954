// Package bus carries messages between the chat transport and the agent
// runtime. The gateway consumes inbound messages, runs the child agent, and
// publishes the responses back as outbound messages.
package bus

// InboundMessage is a chat message awaiting an agent run.
type InboundMessage struct {
	ChatID  int64  `json:"chat_id"`
	UserID  int64  `json:"user_id"`
	Content string `json:"content"`
	Session string `json:"session"` // history session key for the main stream

	// Fresh runs the child agent without reading or writing history.
	// Set for "new"-thread tasks and /re follow-ups.
	Fresh bool `json:"fresh,omitempty"`

	// ThreadCode addresses a new-thread agent record (0 for the main stream).
	ThreadCode int `json:"thread_code,omitempty"`
}

// OutboundMessage is an agent response awaiting delivery to a chat.
type OutboundMessage struct {
	ChatID  int64  `json:"chat_id"`
	Content string `json:"content"`
}
