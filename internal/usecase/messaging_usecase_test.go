package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keurimmo/internal/domain/entity"
	"keurimmo/pkg/errors"
)

func mustConversation(t *testing.T, directory *DirectoryUseCase) *ConversationView {
	t.Helper()
	conv, err := directory.CreateOrGetConversation(context.Background(), "alice", "bernard", "listing-42")
	require.NoError(t, err)
	return conv
}

func TestSendMessageUpdatesDirectorySummary(t *testing.T) {
	messagingRepo, _, _, directory, messaging := newTestEnv()
	ctx := context.Background()
	conv := mustConversation(t, directory)

	long := strings.Repeat("a", 100)
	view, err := messaging.SendMessage(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Content:        long,
	})
	require.NoError(t, err)
	require.NotNil(t, view.Sender)
	assert.Equal(t, "Alice Diop", view.Sender.FullName)

	stored, err := messagingRepo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 80)+"…", stored.LastMessagePreview)
	assert.Equal(t, view.CreatedAt, stored.LastMessageAt)
	assert.Equal(t, 1, stored.UnreadCount2)
	assert.Equal(t, 0, stored.UnreadCount1)
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	_, _, _, directory, messaging := newTestEnv()
	conv := mustConversation(t, directory)

	_, err := messaging.SendMessage(context.Background(), "intruder", SendMessageInput{
		ConversationID: conv.ID,
		Content:        "Bonjour",
	})
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestSendMessageBlockedConversation(t *testing.T) {
	_, _, _, directory, messaging := newTestEnv()
	ctx := context.Background()
	conv := mustConversation(t, directory)

	require.NoError(t, directory.Block(ctx, conv.ID, "bernard"))

	// Neither side can send while the block stands.
	for _, sender := range []string{"alice", "bernard"} {
		_, err := messaging.SendMessage(ctx, sender, SendMessageInput{
			ConversationID: conv.ID,
			Content:        "Bonjour",
		})
		assert.True(t, errors.Is(err, "FORBIDDEN"))
	}
}

func TestSendMessageRequiresContent(t *testing.T) {
	_, _, _, directory, messaging := newTestEnv()
	conv := mustConversation(t, directory)

	_, err := messaging.SendMessage(context.Background(), "alice", SendMessageInput{
		ConversationID: conv.ID,
		Content:        "   ",
	})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendMessagePersistenceFailure(t *testing.T) {
	messagingRepo, _, _, directory, messaging := newTestEnv()
	ctx := context.Background()
	conv := mustConversation(t, directory)

	messagingRepo.createMessageErr = errors.DataAccess("backend down", nil)
	_, err := messaging.SendMessage(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Content:        "Bonjour",
	})
	assert.True(t, errors.Is(err, "SEND_FAILED"))

	// Nothing was appended and the directory summary is untouched.
	stored, err := messagingRepo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.LastMessagePreview)
	assert.Equal(t, 0, stored.UnreadCount2)
}

func TestSendMessageReplyMustBeInSameConversation(t *testing.T) {
	_, profileRepo, _, directory, messaging := newTestEnv()
	ctx := context.Background()
	conv := mustConversation(t, directory)

	carole := *profileRepo.profiles["alice"]
	carole.ID = "carole"
	profileRepo.profiles["carole"] = &carole
	other, err := directory.CreateOrGetConversation(ctx, "alice", "carole", "")
	require.NoError(t, err)

	foreign, err := messaging.SendMessage(ctx, "alice", SendMessageInput{
		ConversationID: other.ID,
		Content:        "Bonjour Carole",
	})
	require.NoError(t, err)

	_, err = messaging.SendMessage(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Content:        "Comme je disais",
		ReplyToID:      foreign.ID,
	})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSystemMessagesDoNotBumpUnread(t *testing.T) {
	messagingRepo, _, _, directory, messaging := newTestEnv()
	ctx := context.Background()
	conv := mustConversation(t, directory)

	_, err := messaging.SendMessage(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Content:        "Conversation créée",
		Kind:           entity.MessageKindSystem,
	})
	require.NoError(t, err)

	stored, err := messagingRepo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadCount2)
}

func TestEditMessageRules(t *testing.T) {
	_, _, _, directory, messaging := newTestEnv()
	ctx := context.Background()
	conv := mustConversation(t, directory)

	text, err := messaging.SendMessage(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Content:        "Bonjour",
	})
	require.NoError(t, err)

	image, err := messaging.SendMessage(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Content:        "photo",
		Kind:           entity.MessageKindImage,
		AttachmentURL:  "https://example.com/p.jpg",
	})
	require.NoError(t, err)

	_, err = messaging.EditMessage(ctx, "bernard", text.ID, "modifié")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	_, err = messaging.EditMessage(ctx, "alice", image.ID, "modifié")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	edited, err := messaging.EditMessage(ctx, "alice", text.ID, "Bonsoir")
	require.NoError(t, err)
	assert.Equal(t, "Bonsoir", edited.Content)
	require.NotNil(t, edited.EditedAt)
	assert.WithinDuration(t, time.Now(), *edited.EditedAt, time.Second)
}

func TestDeleteMessageLeavesTombstone(t *testing.T) {
	_, _, _, directory, messaging := newTestEnv()
	ctx := context.Background()
	conv := mustConversation(t, directory)

	msg, err := messaging.SendMessage(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Content:        "message regretté",
	})
	require.NoError(t, err)

	_, err = messaging.DeleteMessage(ctx, "bernard", msg.ID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	deleted, err := messaging.DeleteMessage(ctx, "alice", msg.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, entity.DeletedMessageContent, deleted.Content)
	require.NotNil(t, deleted.DeletedAt)

	// Deleting twice is a no-op.
	again, err := messaging.DeleteMessage(ctx, "alice", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletedMessageContent, again.Content)

	// A deleted message cannot be edited back.
	_, err = messaging.EditMessage(ctx, "alice", msg.ID, "résurrection")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestLoadHistoryEnforcesTombstoneOnReadPath(t *testing.T) {
	messagingRepo, _, _, directory, messaging := newTestEnv()
	ctx := context.Background()
	conv := mustConversation(t, directory)

	msg, err := messaging.SendMessage(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Content:        "contenu sensible",
	})
	require.NoError(t, err)

	// Flag raised without the content being scrubbed, as a partial write
	// would leave it. The read path must still render the tombstone.
	raw, err := messagingRepo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	raw.IsDeleted = true
	raw.Content = "contenu sensible"

	history, err := messaging.LoadHistory(ctx, "bernard", conv.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.DeletedMessageContent, history[0].Content)
}

func TestLoadHistoryOrdering(t *testing.T) {
	messagingRepo, _, _, directory, messaging := newTestEnv()
	ctx := context.Background()
	conv := mustConversation(t, directory)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	for _, m := range []struct {
		id string
		at time.Time
	}{
		{"m-charlie", base.Add(2 * time.Minute)},
		{"m-alpha", base},
		{"m-bravo2", base.Add(time.Minute)},
		{"m-bravo1", base.Add(time.Minute)},
	} {
		messagingRepo.messages[m.id] = &entity.Message{
			ID:             m.id,
			ConversationID: conv.ID,
			SenderID:       "alice",
			Content:        m.id,
			Kind:           entity.MessageKindText,
			CreatedAt:      m.at,
		}
	}

	history, err := messaging.LoadHistory(ctx, "alice", conv.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	var ids []string
	for _, view := range history {
		ids = append(ids, view.ID)
	}
	// Chronological, with the id as tie-break for equal timestamps.
	assert.Equal(t, []string{"m-alpha", "m-bravo1", "m-bravo2", "m-charlie"}, ids)
}

func TestReplySnippetIsTombstoneAware(t *testing.T) {
	_, _, _, directory, messaging := newTestEnv()
	ctx := context.Background()
	conv := mustConversation(t, directory)

	target, err := messaging.SendMessage(ctx, "alice", SendMessageInput{
		ConversationID: conv.ID,
		Content:        "prix négociable",
	})
	require.NoError(t, err)

	reply, err := messaging.SendMessage(ctx, "bernard", SendMessageInput{
		ConversationID: conv.ID,
		Content:        "Parfait",
		ReplyToID:      target.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, "prix négociable", reply.ReplyTo.Snippet)
	assert.Equal(t, "Alice Diop", reply.ReplyTo.SenderName)

	_, err = messaging.DeleteMessage(ctx, "alice", target.ID)
	require.NoError(t, err)

	history, err := messaging.LoadHistory(ctx, "bernard", conv.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[1].ReplyTo)
	assert.Equal(t, entity.DeletedMessageContent, history[1].ReplyTo.Snippet)
}
