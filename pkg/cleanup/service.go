// Package cleanup provides chat retention enforcement.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelfork/modelfork/pkg/services"
)

// Service periodically deletes chats that have sat idle past their TTL.
// The delete is idempotent and safe to run from multiple replicas.
type Service struct {
	chatService *services.ChatService
	chatTTL     time.Duration
	interval    time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(chatService *services.ChatService, chatTTL, interval time.Duration) *Service {
	return &Service{
		chatService: chatService,
		chatTTL:     chatTTL,
		interval:    interval,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started", "chat_ttl", s.chatTTL, "interval", s.interval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.deleteIdleChats()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.deleteIdleChats()
		}
	}
}

func (s *Service) deleteIdleChats() {
	count, err := s.chatService.DeleteIdleChats(context.Background(), s.chatTTL)
	if err != nil {
		slog.Error("Retention: idle chat cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted idle chats", "count", count)
	}
}
