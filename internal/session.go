package internal

import "time"

// Transcript is one agent conversation prepared for export
type Transcript struct {
	ID        string    `json:"id" yaml:"id"`
	Agent     AgentID   `json:"agent" yaml:"agent"`
	AgentName string    `json:"agent_name" yaml:"agent_name"`
	Source    string    `json:"source" yaml:"source"` // "live" or "journal"
	Messages  []Message `json:"messages" yaml:"messages"`
	Metadata  Metadata  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Metadata contains additional transcript information
type Metadata struct {
	SessionID    string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Server       string `json:"server,omitempty" yaml:"server,omitempty"`
	ExportedAt   string `json:"exported_at,omitempty" yaml:"exported_at,omitempty"`
	MessageCount int    `json:"message_count" yaml:"message_count"`
}

// NewTranscript builds a transcript for agent from its messages
func NewTranscript(sessionID string, agent AgentID, source string, messages []Message) *Transcript {
	return &Transcript{
		ID:        sessionID + "-" + string(agent),
		Agent:     agent,
		AgentName: DisplayName(agent),
		Source:    source,
		Messages:  messages,
		Metadata: Metadata{
			SessionID:    sessionID,
			ExportedAt:   time.Now().Format(time.RFC3339),
			MessageCount: len(messages),
		},
	}
}
