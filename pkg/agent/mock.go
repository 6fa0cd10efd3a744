package agent

import (
	"context"
	"sync"
	"time"
)

// Mock implements Submitter for testing and offline runs.
// Behavior is customized via the function field.
type Mock struct {
	// SubmitFunc is called when Submit is invoked. If nil, the mock
	// echoes the last user message back.
	SubmitFunc func(ctx context.Context, messages []Message, sctx SessionContext) (*Reply, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Submit invocation for verification.
type MockCall struct {
	Messages []Message
	Context  SessionContext
	Time     time.Time
}

// NewMock creates a mock submitter that echoes the last user message.
func NewMock() *Mock {
	return &Mock{}
}

// Submit calls SubmitFunc and records the call.
func (m *Mock) Submit(ctx context.Context, messages []Message, sctx SessionContext) (*Reply, error) {
	m.mu.Lock()
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	m.calls = append(m.calls, MockCall{Messages: msgs, Context: sctx, Time: time.Now()})
	fn := m.SubmitFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages, sctx)
	}

	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			last = messages[i].Content
			break
		}
	}
	return &Reply{Content: "You said: " + last, Context: sctx}, nil
}

// Calls returns the recorded invocations.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded invocations.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}
