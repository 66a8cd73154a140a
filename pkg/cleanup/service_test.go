package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelfork/modelfork/pkg/models"
	"github.com/modelfork/modelfork/pkg/services"
	"github.com/modelfork/modelfork/test/util"
)

func TestCleanupServiceDeletesIdleChats(t *testing.T) {
	db := util.SetupTestDatabase(t)
	chatService := services.NewChatService(db)
	ctx := context.Background()

	stale, err := chatService.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
	require.NoError(t, err)
	fresh, err := chatService.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`UPDATE chats SET last_activity = now() - interval '2 hours' WHERE id = $1`, stale.ID)
	require.NoError(t, err)

	// the loop runs once immediately on Start
	svc := NewService(chatService, time.Hour, time.Minute)
	svc.Start(ctx)
	defer svc.Stop()

	assert.Eventually(t, func() bool {
		_, err := chatService.GetChat(ctx, stale.ID)
		return err != nil
	}, 5*time.Second, 50*time.Millisecond, "stale chat should be deleted")

	_, err = chatService.GetChat(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestCleanupServiceStartStopIdempotent(t *testing.T) {
	db := util.SetupTestDatabase(t)
	svc := NewService(services.NewChatService(db), time.Hour, time.Minute)

	ctx := context.Background()
	svc.Start(ctx)
	svc.Start(ctx) // second start is a no-op
	svc.Stop()
}
