// Package models contains shared data models used across the alertsage codebase.
package models

import (
	"context"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one message of a chat-completion conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatProvider is the interface every LLM integration implements.
// Never call a concrete provider directly; inject this interface.
type ChatProvider interface {
	// Complete sends the conversation and returns the assistant's text.
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	// Name returns the model identifier used for completions.
	Name() string
}

// LogLine represents a single log entry from Loki.
type LogLine struct {
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	Labels    map[string]string `json:"labels"`
	Level     string            `json:"level"`
}

// LogBatch holds the non-empty result of one named log query, newest line first.
type LogBatch struct {
	Name  string    `json:"name"`
	Query string    `json:"query"`
	Lines []LogLine `json:"lines"`
}
