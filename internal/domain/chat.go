package domain

import (
	"fmt"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Status tracks delivery of a user message. Assistant messages carry none.
type Status string

const (
	StatusNone    Status = ""
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusError   Status = "error"
)

// Message is a single entry of a conversation as shown to the user.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status,omitempty"`
}

// ContextLine renders the message as a "<role>: <content>" transcript line.
func (m Message) ContextLine() string {
	return fmt.Sprintf("%s: %s", m.Role, m.Content)
}
