package model

import (
	"errors"
	"strings"
)

// Role identifies who authored a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation log. Messages are never edited once
// appended; their position in the log is their order.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

var ErrEmptyThreadID = errors.New("thread id cannot be empty")

// ThreadID correlates a conversation with its agent calls and its board
// subscription. The zero value is not a valid identifier; use NewThreadID.
type ThreadID struct {
	value string
}

func NewThreadID(s string) (ThreadID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ThreadID{}, ErrEmptyThreadID
	}
	return ThreadID{value: s}, nil
}

// MustThreadID is NewThreadID for identifiers known to be valid.
func MustThreadID(s string) ThreadID {
	t, err := NewThreadID(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t ThreadID) String() string {
	return t.value
}

func (t ThreadID) IsZero() bool {
	return t.value == ""
}

// ConversationState is a point-in-time copy of a conversation.
type ConversationState struct {
	ThreadID ThreadID
	Messages []Message
	InFlight bool
}
