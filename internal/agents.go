package internal

import "strings"

// AgentID identifies a department agent or one of the pseudo-identities
type AgentID string

const (
	AgentPM      AgentID = "PM"
	AgentArt     AgentID = "Art"
	AgentWriting AgentID = "Writing"
	AgentCode    AgentID = "Code"
	AgentQA      AgentID = "QA"
	AgentSound   AgentID = "Sound"

	// Pseudo-identities used for message attribution only
	AgentSystem AgentID = "System"
	AgentUser   AgentID = "User"
)

// Agent is a fixed identity with a display name
type Agent struct {
	ID   AgentID `json:"id" yaml:"id"`
	Name string  `json:"name" yaml:"name"`
}

var departments = []Agent{
	{ID: AgentPM, Name: "Project Manager"},
	{ID: AgentArt, Name: "Art Director"},
	{ID: AgentWriting, Name: "Writing Director"},
	{ID: AgentCode, Name: "Code Director"},
	{ID: AgentQA, Name: "QA Director"},
	{ID: AgentSound, Name: "Sound Director"},
}

var pseudoAgents = []Agent{
	{ID: AgentSystem, Name: "System"},
	{ID: AgentUser, Name: "Director (You)"},
}

// Departments returns the agents the operator can converse with, in display order
func Departments() []Agent {
	out := make([]Agent, len(departments))
	copy(out, departments)
	return out
}

// LookupAgent returns the agent for id, including pseudo-identities
func LookupAgent(id AgentID) (Agent, bool) {
	for _, a := range departments {
		if a.ID == id {
			return a, true
		}
	}
	for _, a := range pseudoAgents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

// IsDepartment reports whether id names a conversable department agent
func IsDepartment(id AgentID) bool {
	for _, a := range departments {
		if a.ID == id {
			return true
		}
	}
	return false
}

// ParseAgentID resolves user input to a department agent. Matching is case-insensitive
// on both the id and the display name.
func ParseAgentID(s string) (AgentID, error) {
	for _, a := range departments {
		if strings.EqualFold(string(a.ID), s) || strings.EqualFold(a.Name, s) {
			return a.ID, nil
		}
	}
	return "", &UnknownAgentError{ID: AgentID(s)}
}

// DisplayName returns the display name for id, or the id itself when unknown
func DisplayName(id AgentID) string {
	if a, ok := LookupAgent(id); ok {
		return a.Name
	}
	return string(id)
}

// SenderName returns the label shown for a message in agent's conversation
func SenderName(agent AgentID, role Role) string {
	switch role {
	case RoleAgent:
		return DisplayName(agent)
	case RoleUser:
		return DisplayName(AgentUser)
	default:
		return DisplayName(AgentSystem)
	}
}
