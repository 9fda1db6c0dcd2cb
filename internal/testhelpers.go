package internal

import (
	"time"
)

// CreateTestTranscript creates a transcript of a short Art Director exchange
func CreateTestTranscript(sessionID string) *Transcript {
	now := time.Date(2026, 1, 15, 10, 4, 0, 0, time.UTC)
	return NewTranscript(sessionID, AgentArt, "live", []Message{
		NewMessage(RoleUser, "Draw the hero sprite", false, now),
		NewMessage(RoleAgent, "<p>Generating <b>Hero Sprite</b> now.</p>", true, now.Add(time.Minute)),
	})
}

// CreateTestTranscriptWithMessages creates a transcript with custom messages
func CreateTestTranscriptWithMessages(sessionID string, agent AgentID, messages []Message) *Transcript {
	return NewTranscript(sessionID, agent, "journal", messages)
}
