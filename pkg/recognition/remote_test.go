package recognition_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voiceloop/voiceloop/pkg/recognition"
)

var upgrader = websocket.Upgrader{}

// sttFrame mirrors the service side of the wire protocol.
type sttFrame struct {
	Type    string `json:"type"`
	Locale  string `json:"locale,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Results []struct {
		Transcript string `json:"transcript"`
		Final      bool   `json:"final"`
	} `json:"results,omitempty"`
}

// fakeSTT runs a one-session speech-to-text service for a test.
func fakeSTT(t *testing.T, session func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		session(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func writeFrame(t *testing.T, conn *websocket.Conn, f map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(f); err != nil {
		t.Errorf("write frame: %v", err)
	}
}

func TestRemoteSession(t *testing.T) {
	url := fakeSTT(t, func(conn *websocket.Conn) {
		var start sttFrame
		if err := conn.ReadJSON(&start); err != nil {
			t.Errorf("read start: %v", err)
			return
		}
		if start.Type != "start" || start.Locale != "en-GB" {
			t.Errorf("unexpected start frame: %+v", start)
		}

		writeFrame(t, conn, map[string]any{"type": "started"})
		writeFrame(t, conn, map[string]any{
			"type": "results",
			"results": []map[string]any{
				{"transcript": "hello", "final": false},
			},
		})
		writeFrame(t, conn, map[string]any{
			"type": "results",
			"results": []map[string]any{
				{"transcript": "hello world", "final": true},
			},
		})

		// Wait for the client's stop, then end the session.
		var stop sttFrame
		if err := conn.ReadJSON(&stop); err != nil {
			return
		}
		if stop.Type != "stop" {
			t.Errorf("expected stop frame, got %+v", stop)
		}
		writeFrame(t, conn, map[string]any{"type": "ended"})
	})

	r := recognition.NewRemote(url, recognition.WithRemoteLocale("en-GB"))

	started := make(chan struct{}, 1)
	results := make(chan []recognition.Result, 4)
	ended := make(chan struct{}, 1)
	r.OnStart(func() { started <- struct{}{} })
	r.OnResult(func(rs []recognition.Result) { results <- rs })
	r.OnEnd(func() { ended <- struct{}{} })

	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("start event never arrived")
	}

	var last []recognition.Result
	for i := 0; i < 2; i++ {
		select {
		case last = <-results:
		case <-time.After(2 * time.Second):
			t.Fatal("result event never arrived")
		}
	}
	if len(last) != 1 || last[0].Transcript != "hello world" || !last[0].IsFinal {
		t.Errorf("unexpected final results: %+v", last)
	}

	r.Stop()
	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("end event never arrived")
	}
}

func TestRemoteStartTwice(t *testing.T) {
	url := fakeSTT(t, func(conn *websocket.Conn) {
		var start sttFrame
		conn.ReadJSON(&start)
		// Hold the session open until the test finishes.
		conn.ReadJSON(&start)
	})

	r := recognition.NewRemote(url)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer r.Abort()

	if err := r.Start(); err != recognition.ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestRemoteDialFailure(t *testing.T) {
	r := recognition.NewRemote("ws://127.0.0.1:1")

	errs := make(chan *recognition.Error, 1)
	ended := make(chan struct{}, 1)
	r.OnError(func(e *recognition.Error) { errs <- e })
	r.OnEnd(func() { ended <- struct{}{} })

	if err := r.Start(); err != nil {
		t.Fatalf("start should not return the dial error, got %v", err)
	}

	select {
	case e := <-errs:
		if e.Code != recognition.ErrCodeNetwork {
			t.Errorf("expected network error, got %q", e.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error event never arrived")
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("end event never arrived")
	}

	// The failed session is fully torn down; a new start is allowed.
	if err := r.Start(); err != nil {
		t.Errorf("expected restart after failure, got %v", err)
	}
}

func TestRemoteServerError(t *testing.T) {
	url := fakeSTT(t, func(conn *websocket.Conn) {
		var start sttFrame
		conn.ReadJSON(&start)
		writeFrame(t, conn, map[string]any{"type": "started"})
		writeFrame(t, conn, map[string]any{
			"type": "error", "code": "no-speech", "message": "nothing heard",
		})
		writeFrame(t, conn, map[string]any{"type": "ended"})
	})

	r := recognition.NewRemote(url)

	errs := make(chan *recognition.Error, 1)
	ended := make(chan struct{}, 1)
	r.OnError(func(e *recognition.Error) { errs <- e })
	r.OnEnd(func() { ended <- struct{}{} })

	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case e := <-errs:
		if e.Code != recognition.ErrCodeNoSpeech {
			t.Errorf("expected no-speech, got %q", e.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error event never arrived")
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("end event never arrived")
	}
}
