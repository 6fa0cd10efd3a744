// Package agent is the boundary to the remote conversational agent.
//
// The agent is a black box: it accepts the message history plus a small
// context object and returns a reply plus updated context. Tool results
// ride along as raw JSON and are never interpreted here.
package agent

import (
	"context"
	"encoding/json"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionContext is threaded opaquely through submissions. The core
// passes it along without inspecting its fields.
type SessionContext struct {
	CustomerID    string `json:"customerId"`
	LastOrderID   string `json:"lastOrderId,omitempty"`
	LastProductID string `json:"lastProductId,omitempty"`
	LastIntent    string `json:"lastIntent,omitempty"`
}

// Reply is the agent's answer to a submission.
type Reply struct {
	// Content is the reply text to display and speak.
	Content string `json:"content"`

	// Context is the updated session context to thread into the next
	// submission.
	Context SessionContext `json:"context"`

	// ToolResults carries whatever the agent's tools produced. Opaque.
	ToolResults []json.RawMessage `json:"toolResults,omitempty"`
}

// Submitter sends a message history to the agent and returns its reply.
type Submitter interface {
	Submit(ctx context.Context, messages []Message, sctx SessionContext) (*Reply, error)
}
