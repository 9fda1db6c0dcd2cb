package internal

import "time"

// Role is the sender role of a message within a conversation
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
	RoleError  Role = "error"
)

// TimestampLayout is the clock format stamped on messages at creation
const TimestampLayout = "15:04"

// Message is one entry of an agent conversation. It is also the wire shape of the
// history sent with every chat turn.
type Message struct {
	Sender    Role   `json:"sender" yaml:"sender"`
	Content   string `json:"content" yaml:"content"`
	IsMarkup  bool   `json:"isHtml" yaml:"is_markup"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

// NewMessage creates a message stamped with now
func NewMessage(sender Role, content string, markup bool, now time.Time) Message {
	return Message{
		Sender:    sender,
		Content:   content,
		IsMarkup:  markup,
		Timestamp: now.Format(TimestampLayout),
	}
}

// ConversationStore owns the message log of every agent. Logs are append-only and
// keep insertion order.
//
// The store is not safe for concurrent use; the Controller loop owns it.
type ConversationStore struct {
	logs  map[AgentID][]Message
	order []AgentID
}

// NewConversationStore creates a store with an empty conversation for each agent
func NewConversationStore(agents []Agent) *ConversationStore {
	s := &ConversationStore{
		logs: make(map[AgentID][]Message, len(agents)),
	}
	for _, a := range agents {
		s.ensure(a.ID)
	}
	return s
}

func (s *ConversationStore) ensure(id AgentID) {
	if _, ok := s.logs[id]; ok {
		return
	}
	s.logs[id] = []Message{}
	s.order = append(s.order, id)
}

// Append adds msg to the end of agent's conversation. Unknown agents get a
// conversation created on first use.
func (s *ConversationStore) Append(agent AgentID, msg Message) {
	s.ensure(agent)
	s.logs[agent] = append(s.logs[agent], msg)
}

// Get returns a copy of agent's conversation in insertion order. An agent with no
// messages yields an empty slice.
func (s *ConversationStore) Get(agent AgentID) []Message {
	log := s.logs[agent]
	out := make([]Message, len(log))
	copy(out, log)
	return out
}

// Len returns the number of messages in agent's conversation
func (s *ConversationStore) Len(agent AgentID) int {
	return len(s.logs[agent])
}

// Agents lists every conversation in creation order
func (s *ConversationStore) Agents() []AgentID {
	out := make([]AgentID, len(s.order))
	copy(out, s.order)
	return out
}
