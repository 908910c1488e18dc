package domain

import "time"

// CommandRecord is one interpreted command persisted in a session's command log.
type CommandRecord struct {
	PK        string
	SK        string
	SessionID string
	Command   string
	Response  string
	Intent    string
	TTL       int64
}

// SessionMeta stores aggregate session state next to the command log.
type SessionMeta struct {
	PK           string
	SK           string
	SessionID    string
	LastActivity string
	Commands     int
	TTL          int64
}

// Reminder is a task the user asked to be reminded of.
type Reminder struct {
	SessionID string
	Task      string
	Due       time.Time
}

// ChatMessage is the provider-agnostic chat message shape used by the LLM fallback.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
