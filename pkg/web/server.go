// Package web exposes the voice session over HTTP and WebSocket: a REST
// surface for session control, a broadcast socket pushing state
// snapshots, and a duplex socket bridging the browser's recognition and
// synthesis capabilities into the process.
package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/voiceloop/voiceloop/internal/log"
	"github.com/voiceloop/voiceloop/pkg/history"
	"github.com/voiceloop/voiceloop/pkg/hub"
	"github.com/voiceloop/voiceloop/pkg/session"
)

// Server is the HTTP/WebSocket gateway in front of one voice session.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	session *session.Orchestrator
	store   history.Store
	link    *VoiceLink

	// Hub for state snapshot broadcast (thread-safe)
	stateHub *hub.Hub
}

// NewServer creates the gateway and wires itself as the session's update
// subscriber. store and link may be nil; their routes degrade to errors.
func NewServer(port string, sess *session.Orchestrator, store history.Store, link *VoiceLink) *Server {
	s := &Server{
		port:     port,
		logger:   log.Component("web"),
		session:  sess,
		store:    store,
		link:     link,
		stateHub: hub.New("state"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voiceloop",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", "./web")

	// API routes
	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/session", s.handleSession)
	api.Post("/session/start", s.handleStart)
	api.Post("/session/stop", s.handleStop)
	api.Post("/session/speak", s.handleSpeak)
	api.Post("/session/stop-speaking", s.handleStopSpeaking)
	api.Post("/session/mute", s.handleMute)
	api.Post("/session/transcript/clear", s.handleClearTranscript)
	api.Post("/messages", s.handleMessages)
	api.Post("/customer", s.handleCustomer)
	api.Get("/history", s.handleHistory)
	api.Delete("/history", s.handleClearHistory)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/state", websocket.New(s.handleStateWS))
	app.Get("/ws/voice", websocket.New(s.handleVoiceWS))

	sess.OnUpdate(s.broadcastState)
	if link != nil {
		link.OnVisible(sess.SetVisible)
	}

	s.app = app
	return s
}

// Start runs the listener. Blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", "http://localhost:"+s.port)

	go s.stateHub.Run()

	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// broadcastState pushes a snapshot to every state socket.
func (s *Server) broadcastState(snap session.Snapshot) {
	if err := s.stateHub.BroadcastJSON(snap); err != nil {
		s.logger.Warn("snapshot broadcast failed", "error", err)
	}
}

// handleStateWS attaches a client to the snapshot broadcast hub. The
// current snapshot is sent immediately so late joiners render without
// waiting for the next transition.
func (s *Server) handleStateWS(c *websocket.Conn) {
	if err := c.WriteJSON(s.session.Snapshot()); err != nil {
		c.Close()
		return
	}

	client := hub.NewClient(s.stateHub, c)
	go client.ReadPump()
	client.WritePump()
}
