// Package api provides the HTTP API server.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/modelfork/modelfork/pkg/completion"
	"github.com/modelfork/modelfork/pkg/database"
	"github.com/modelfork/modelfork/pkg/services"
)

// Server represents the HTTP API server
type Server struct {
	echo        *echo.Echo
	httpServer  *http.Server
	db          *database.Client
	chatService *services.ChatService
	completer   *completion.Completer
}

// NewServer creates the API server and registers all routes.
func NewServer(db *database.Client, chatService *services.ChatService, completer *completion.Completer, allowedOrigins []string) *Server {
	s := &Server{
		echo:        echo.New(),
		db:          db,
		chatService: chatService,
		completer:   completer,
	}

	s.echo.Use(securityHeaders())
	if len(allowedOrigins) > 0 {
		s.echo.Use(corsMiddleware(allowedOrigins))
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")

	v1.GET("/models", s.listModelsHandler)

	v1.POST("/chats", s.createChatHandler)
	v1.GET("/chats", s.listChatsHandler)
	v1.DELETE("/chats", s.deleteOwnerChatsHandler)
	v1.GET("/chats/:id", s.getChatHandler)
	v1.GET("/chats/:id/messages", s.listChatMessagesHandler)
	v1.DELETE("/chats/:id", s.deleteChatHandler)
	v1.POST("/cleanup", s.cleanupHandler)

	v1.POST("/complete", s.completeHandler)
	v1.POST("/complete/stream", s.completeStreamHandler)
	v1.POST("/complete/compare", s.compareHandler)
	v1.POST("/complete/compare/stream", s.compareStreamHandler)
}

// Start begins serving on addr. Blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Echo exposes the router for handler tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
