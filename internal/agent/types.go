package agent

import (
	"encoding/json"
	"strings"
)

// Wire types for the agent graph's invoke endpoint.

type invokeRequest struct {
	Input  invokeInput  `json:"input"`
	Config invokeConfig `json:"config"`
}

type invokeInput struct {
	Messages []inputMessage `json:"messages"`
}

type inputMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type invokeConfig struct {
	Configurable configurable `json:"configurable"`
}

type configurable struct {
	ThreadID string `json:"thread_id"`
}

type invokeResponse struct {
	Output *invokeOutput `json:"output"`
}

type invokeOutput struct {
	Messages []outputMessage `json:"messages"`
}

type outputMessage struct {
	Type    string          `json:"type,omitempty"`
	Content json.RawMessage `json:"content"`
}

// contentPart is one block of a list-valued message content, as emitted by
// chat models that return multi-part replies.
type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// text flattens the message content. Plain strings are returned as is; lists
// of parts are joined from their text blocks.
func (m outputMessage) text() (string, bool) {
	if len(m.Content) == 0 || string(m.Content) == "null" {
		return "", false
	}

	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s, true
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(m.Content, &parts); err != nil {
		return "", false
	}
	var (
		b     strings.Builder
		found bool
	)
	for _, raw := range parts {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			b.WriteString(str)
			found = true
			continue
		}
		var part contentPart
		if err := json.Unmarshal(raw, &part); err == nil && part.Type == "text" {
			b.WriteString(part.Text)
			found = true
		}
	}
	// A list with no text parts carries nothing to show.
	return b.String(), found
}

const messageTypeHuman = "human"

func newInvokeRequest(threadID, text string) invokeRequest {
	return invokeRequest{
		Input: invokeInput{
			Messages: []inputMessage{{Type: messageTypeHuman, Content: text}},
		},
		Config: invokeConfig{
			Configurable: configurable{ThreadID: threadID},
		},
	}
}
