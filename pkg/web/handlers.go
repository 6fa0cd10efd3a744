package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TextRequest is the body for speak and message submission routes.
type TextRequest struct {
	Text string `json:"text"`
}

// CustomerRequest is the body for the customer route.
type CustomerRequest struct {
	CustomerID string `json:"customerId"`
}

// handleHealth reports liveness.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"sessionId": s.session.SessionID(),
	})
}

// handleSession returns the current session snapshot.
func (s *Server) handleSession(c *fiber.Ctx) error {
	return c.JSON(s.session.Snapshot())
}

// handleStart begins listening. A start failure still returns the
// snapshot; its error message explains what went wrong.
func (s *Server) handleStart(c *fiber.Ctx) error {
	if err := s.session.StartListening(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(s.session.Snapshot())
	}
	return c.JSON(s.session.Snapshot())
}

// handleStop ends listening, submitting any accumulated transcript.
func (s *Server) handleStop(c *fiber.Ctx) error {
	s.session.StopListening()
	return c.JSON(s.session.Snapshot())
}

// handleSpeak plays arbitrary text.
func (s *Server) handleSpeak(c *fiber.Ctx) error {
	var req TextRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}

	s.session.Speak(req.Text)
	return c.JSON(s.session.Snapshot())
}

// handleStopSpeaking cancels the current utterance.
func (s *Server) handleStopSpeaking(c *fiber.Ctx) error {
	s.session.StopSpeaking()
	return c.JSON(s.session.Snapshot())
}

// handleMute toggles output mute.
func (s *Server) handleMute(c *fiber.Ctx) error {
	muted := s.session.ToggleMute()
	return c.JSON(fiber.Map{
		"muted": muted,
	})
}

// handleClearTranscript empties the accumulated transcript.
func (s *Server) handleClearTranscript(c *fiber.Ctx) error {
	s.session.ClearTranscript()
	return c.JSON(s.session.Snapshot())
}

// handleMessages submits typed chat input. The reply arrives through the
// state socket once processing completes.
func (s *Server) handleMessages(c *fiber.Ctx) error {
	var req TextRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}

	s.session.SubmitText(req.Text)
	return c.Status(fiber.StatusAccepted).JSON(s.session.Snapshot())
}

// handleCustomer seeds the customer ID for subsequent submissions.
func (s *Server) handleCustomer(c *fiber.Ctx) error {
	var req CustomerRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.CustomerID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "customerId is required",
		})
	}

	s.session.SetCustomer(req.CustomerID)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleHistory returns the persisted conversation log.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	if s.store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "history not configured",
		})
	}

	entries, err := s.store.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(entries)
}

// handleClearHistory wipes the persisted conversation log.
func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	if s.store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "history not configured",
		})
	}

	if err := s.store.Clear(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
