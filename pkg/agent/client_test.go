package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voiceloop/voiceloop/pkg/agent"
)

func TestNewClient(t *testing.T) {
	t.Run("requires a URL", func(t *testing.T) {
		if _, err := agent.NewClient(); !errors.Is(err, agent.ErrNoURL) {
			t.Errorf("expected ErrNoURL, got %v", err)
		}
	})
}

func TestSubmit(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("unexpected auth header: %q", got)
			}

			var req struct {
				Messages []agent.Message      `json:"messages"`
				Context  agent.SessionContext `json:"context"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
				t.Errorf("unexpected messages: %+v", req.Messages)
			}
			if req.Context.CustomerID != "cust-7" {
				t.Errorf("unexpected context: %+v", req.Context)
			}

			ctx := req.Context
			ctx.LastIntent = "greeting"
			json.NewEncoder(w).Encode(agent.Reply{Content: "hi there", Context: ctx})
		}))
		defer srv.Close()

		client, err := agent.NewClient(
			agent.WithURL(srv.URL),
			agent.WithAPIKey("secret"),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		reply, err := client.Submit(context.Background(),
			[]agent.Message{{Role: agent.RoleUser, Content: "hello"}},
			agent.SessionContext{CustomerID: "cust-7"},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply.Content != "hi there" {
			t.Errorf("unexpected reply: %q", reply.Content)
		}
		if reply.Context.CustomerID != "cust-7" || reply.Context.LastIntent != "greeting" {
			t.Errorf("context not carried through: %+v", reply.Context)
		}
	})

	t.Run("empty submission is rejected locally", func(t *testing.T) {
		client, _ := agent.NewClient(agent.WithURL("http://localhost:0"))
		if _, err := client.Submit(context.Background(), nil, agent.SessionContext{}); !errors.Is(err, agent.ErrEmptySubmission) {
			t.Errorf("expected ErrEmptySubmission, got %v", err)
		}
	})

	t.Run("API errors carry the status", func(t *testing.T) {
		cases := []struct {
			name   string
			status int
			check  func(*agent.APIError) bool
		}{
			{"rate limited", http.StatusTooManyRequests, (*agent.APIError).IsRateLimited},
			{"quota exceeded", http.StatusPaymentRequired, (*agent.APIError).IsQuotaExceeded},
			{"server error", http.StatusInternalServerError, (*agent.APIError).IsServerError},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tc.status)
					json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
				}))
				defer srv.Close()

				client, _ := agent.NewClient(agent.WithURL(srv.URL))
				_, err := client.Submit(context.Background(),
					[]agent.Message{{Role: agent.RoleUser, Content: "hello"}},
					agent.SessionContext{},
				)

				var apiErr *agent.APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected APIError, got %v", err)
				}
				if apiErr.StatusCode != tc.status {
					t.Errorf("expected status %d, got %d", tc.status, apiErr.StatusCode)
				}
				if !tc.check(apiErr) {
					t.Errorf("predicate failed for %+v", apiErr)
				}
				if apiErr.Message != "nope" {
					t.Errorf("expected body message, got %q", apiErr.Message)
				}
			})
		}
	})
}

func TestMock(t *testing.T) {
	t.Run("echoes the last user message", func(t *testing.T) {
		mock := agent.NewMock()
		reply, err := mock.Submit(context.Background(), []agent.Message{
			{Role: agent.RoleUser, Content: "first"},
			{Role: agent.RoleAssistant, Content: "You said: first"},
			{Role: agent.RoleUser, Content: "second"},
		}, agent.SessionContext{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply.Content != "You said: second" {
			t.Errorf("unexpected reply: %q", reply.Content)
		}
	})

	t.Run("calls are tracked and reset", func(t *testing.T) {
		mock := agent.NewMock()
		mock.Submit(context.Background(),
			[]agent.Message{{Role: agent.RoleUser, Content: "hi"}},
			agent.SessionContext{CustomerID: "cust-1"})

		calls := mock.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(calls))
		}
		if calls[0].Context.CustomerID != "cust-1" {
			t.Errorf("unexpected context: %+v", calls[0].Context)
		}

		mock.Reset()
		if len(mock.Calls()) != 0 {
			t.Error("expected calls to be cleared")
		}
	})
}
