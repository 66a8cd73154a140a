package api

import (
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/modelfork/modelfork/pkg/models"
)

// ChatWithMessagesResponse is the HTTP response for GET /api/v1/chats/:id.
type ChatWithMessagesResponse struct {
	Chat     *models.Chat     `json:"chat"`
	Messages []models.Message `json:"messages"`
}

// DeletedResponse reports how many chats a bulk delete removed.
type DeletedResponse struct {
	Deleted int `json:"deleted"`
}

// createChatHandler handles POST /api/v1/chats.
func (s *Server) createChatHandler(c *echo.Context) error {
	var req models.CreateChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.OwnerKey == "" {
		req.OwnerKey = extractOwnerKey(c)
	}

	chat, err := s.chatService.CreateChat(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, chat)
}

// listChatsHandler handles GET /api/v1/chats.
func (s *Server) listChatsHandler(c *echo.Context) error {
	ownerKey := extractOwnerKey(c)
	if ownerKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session id is required")
	}

	chats, err := s.chatService.ListChats(c.Request().Context(), ownerKey)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, chats)
}

// getChatHandler handles GET /api/v1/chats/:id.
// Returns the chat with its full message history in creation order.
func (s *Server) getChatHandler(c *echo.Context) error {
	chatID := c.Param("id")
	if chatID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "chat id is required")
	}

	chat, err := s.chatService.GetChat(c.Request().Context(), chatID)
	if err != nil {
		return mapServiceError(err)
	}
	messages, err := s.chatService.ListMessages(c.Request().Context(), chatID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, ChatWithMessagesResponse{Chat: chat, Messages: messages})
}

// listChatMessagesHandler handles GET /api/v1/chats/:id/messages.
func (s *Server) listChatMessagesHandler(c *echo.Context) error {
	chatID := c.Param("id")
	if chatID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "chat id is required")
	}

	messages, err := s.chatService.ListMessages(c.Request().Context(), chatID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, messages)
}

// deleteChatHandler handles DELETE /api/v1/chats/:id.
func (s *Server) deleteChatHandler(c *echo.Context) error {
	chatID := c.Param("id")
	if chatID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "chat id is required")
	}

	if err := s.chatService.DeleteChat(c.Request().Context(), chatID); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CleanupRequest is the HTTP request body for POST /api/v1/cleanup.
type CleanupRequest struct {
	SessionID string `json:"session_id"`
}

// cleanupHandler handles POST /api/v1/cleanup.
// Best-effort session cleanup fired on page unload; always returns 204
// because the sender has already navigated away. Idle-chat collection
// covers sessions whose cleanup request never arrives.
func (s *Server) cleanupHandler(c *echo.Context) error {
	var req CleanupRequest
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusNoContent)
	}
	if req.SessionID == "" {
		req.SessionID = extractOwnerKey(c)
	}
	if req.SessionID == "" {
		return c.NoContent(http.StatusNoContent)
	}

	deleted, err := s.chatService.DeleteChatsForOwner(c.Request().Context(), req.SessionID)
	if err != nil {
		slog.Warn("Session cleanup failed", "session_id", req.SessionID, "error", err)
	} else if deleted > 0 {
		slog.Info("Session cleanup removed chats", "session_id", req.SessionID, "deleted", deleted)
	}
	return c.NoContent(http.StatusNoContent)
}

// deleteOwnerChatsHandler handles DELETE /api/v1/chats.
// Removes every chat belonging to the caller's session.
func (s *Server) deleteOwnerChatsHandler(c *echo.Context) error {
	ownerKey := extractOwnerKey(c)
	if ownerKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session id is required")
	}

	deleted, err := s.chatService.DeleteChatsForOwner(c.Request().Context(), ownerKey)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, DeletedResponse{Deleted: deleted})
}
