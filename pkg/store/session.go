package store

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one conversation entry.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// Session is the durable memory of one conversation thread.
type Session struct {
	ID           string `json:"id"`
	Conversation []Turn `json:"conversation"`

	// AwaitingClarification is set when the last turn ended by asking the user to confirm
	// vague conditions.
	AwaitingClarification bool `json:"awaiting_clarification"`

	LastSQL   string    `json:"last_sql,omitempty"`
	TurnCount int       `json:"turn_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id string) *Session {
	return &Session{ID: id, Conversation: []Turn{}}
}

// Append adds turns in order. Existing turns are never rewritten.
func (s *Session) Append(turns ...Turn) {
	s.Conversation = append(s.Conversation, turns...)
}

// Clone returns a deep copy so stored sessions are never shared with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Conversation = append([]Turn(nil), s.Conversation...)
	if c.Conversation == nil {
		c.Conversation = []Turn{}
	}
	return &c
}
