package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keurimmo/internal/domain/entity"
)

func TestTypingSubscribeSkipsOwnEcho(t *testing.T) {
	messagingRepo := newFakeMessagingRepo()
	service := NewTypingService(messagingRepo)
	ctx := context.Background()

	var received []*entity.TypingStatus
	sub, err := service.Subscribe(ctx, "conv-1", "alice", func(status *entity.TypingStatus) {
		received = append(received, status)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, service.SetTyping(ctx, "conv-1", "alice", true))
	require.NoError(t, service.SetTyping(ctx, "conv-1", "bernard", true))

	require.Len(t, received, 1)
	assert.Equal(t, "bernard", received[0].UserID)
	assert.True(t, received[0].IsTyping)
}

func TestTypingSubscribeFiltersStaleRecords(t *testing.T) {
	messagingRepo := newFakeMessagingRepo()
	service := NewTypingService(messagingRepo)
	ctx := context.Background()

	var received []*entity.TypingStatus
	sub, err := service.Subscribe(ctx, "conv-1", "alice", func(status *entity.TypingStatus) {
		received = append(received, status)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// A typing=true record older than the staleness bound is noise from a
	// lost "stopped" write and must not reach the viewer.
	require.NoError(t, messagingRepo.UpsertTypingStatus(ctx, &entity.TypingStatus{
		ConversationID: "conv-1",
		UserID:         "bernard",
		IsTyping:       true,
		UpdatedAt:      time.Now().Add(-entity.TypingStaleAfter - time.Second),
	}))
	assert.Empty(t, received)

	// A stale typing=false still passes; it only lowers the indicator.
	require.NoError(t, messagingRepo.UpsertTypingStatus(ctx, &entity.TypingStatus{
		ConversationID: "conv-1",
		UserID:         "bernard",
		IsTyping:       false,
		UpdatedAt:      time.Now().Add(-time.Minute),
	}))
	require.Len(t, received, 1)
	assert.False(t, received[0].IsTyping)
}

func TestTypingStatusLastWriteWins(t *testing.T) {
	messagingRepo := newFakeMessagingRepo()
	service := NewTypingService(messagingRepo)
	ctx := context.Background()

	require.NoError(t, service.SetTyping(ctx, "conv-1", "alice", true))
	require.NoError(t, service.SetTyping(ctx, "conv-1", "alice", false))

	status := messagingRepo.typing["conv-1_alice"]
	require.NotNil(t, status)
	assert.False(t, status.IsTyping)
	// One record per (conversation, user), not an event log.
	assert.Len(t, messagingRepo.typing, 1)
}

func TestTrackerPublishesOncePerBurst(t *testing.T) {
	messagingRepo := newFakeMessagingRepo()
	service := NewTypingService(messagingRepo)
	tracker := NewTypingTracker(service, "conv-1", "alice")
	defer tracker.Close()
	ctx := context.Background()

	tracker.Keystroke(ctx)
	tracker.Keystroke(ctx)
	tracker.Keystroke(ctx)

	// Three keystrokes in one burst publish a single typing=true.
	assert.Equal(t, 1, messagingRepo.upsertTypingCalls)
	assert.True(t, messagingRepo.typing["conv-1_alice"].IsTyping)

	tracker.Stop(ctx)
	assert.Equal(t, 2, messagingRepo.upsertTypingCalls)
	assert.False(t, messagingRepo.typing["conv-1_alice"].IsTyping)

	// Stop when already lowered publishes nothing.
	tracker.Stop(ctx)
	assert.Equal(t, 2, messagingRepo.upsertTypingCalls)
}

func TestTrackerCloseLowersFlag(t *testing.T) {
	messagingRepo := newFakeMessagingRepo()
	service := NewTypingService(messagingRepo)
	tracker := NewTypingTracker(service, "conv-1", "alice")
	ctx := context.Background()

	tracker.Keystroke(ctx)
	tracker.Close()

	assert.False(t, messagingRepo.typing["conv-1_alice"].IsTyping)

	// Keystrokes after Close are ignored.
	tracker.Keystroke(ctx)
	assert.Equal(t, 2, messagingRepo.upsertTypingCalls)
}

func TestTypingStatusStaleness(t *testing.T) {
	now := time.Now()
	fresh := &entity.TypingStatus{UpdatedAt: now.Add(-time.Second)}
	stale := &entity.TypingStatus{UpdatedAt: now.Add(-entity.TypingStaleAfter - time.Millisecond)}

	assert.False(t, fresh.IsStale(now))
	assert.True(t, stale.IsStale(now))
}
