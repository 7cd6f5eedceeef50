package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bull/mcp-docs-assistant/internal/rag"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply to POST /chat. Response always holds text.
type ChatResponse struct {
	Response string       `json:"response"`
	Sources  []rag.Source `json:"sources"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(chatPage)
}

// handleChat answers one message. The reply is always 200 with text; a body
// that cannot be parsed counts as an empty message.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		s.logger.Debug("Unreadable chat request", "error", err)
		req.Message = ""
	}

	answer := s.engine.Ask(c.UserContext(), req.Message)

	sources := answer.Sources
	if sources == nil {
		sources = []rag.Source{}
	}
	return c.JSON(ChatResponse{Response: answer.Text, Sources: sources})
}
