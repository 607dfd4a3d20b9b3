package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keurimmo/internal/domain/entity"
)

func TestDayLabels(t *testing.T) {
	loc := time.UTC
	// A Tuesday.
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)

	assert.Equal(t, "Aujourd'hui", DayLabel(now.Add(-2*time.Hour), now, loc))
	assert.Equal(t, "Hier", DayLabel(now.AddDate(0, 0, -1), now, loc))
	assert.Equal(t, "samedi", DayLabel(now.AddDate(0, 0, -3), now, loc))
	assert.Equal(t, "lundi 12 janvier 2026", DayLabel(time.Date(2026, 1, 12, 8, 0, 0, 0, loc), now, loc))
	assert.Equal(t, "samedi 15 août 2026", DayLabel(time.Date(2026, 8, 15, 8, 0, 0, 0, loc), now, loc))
}

func TestDayLabelUsesViewerCalendarDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 0, 30, 0, 0, loc)

	// 90 minutes ago falls on the previous calendar day, not "today".
	assert.Equal(t, "Hier", DayLabel(now.Add(-90*time.Minute), now, loc))
}

func groupedMessage(id, sender string, kind entity.MessageKind, at time.Time) *MessageView {
	return &MessageView{Message: &entity.Message{
		ID:             id,
		ConversationID: "conv-1",
		SenderID:       sender,
		Content:        id,
		Kind:           kind,
		CreatedAt:      at,
	}}
}

func TestGroupByDaySplitsAndCollapses(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)
	yesterday := now.AddDate(0, 0, -1)

	messages := []*MessageView{
		groupedMessage("y1", "alice", entity.MessageKindText, yesterday.Add(-2*time.Hour)),
		groupedMessage("y2", "alice", entity.MessageKindText, yesterday.Add(-time.Hour)),
		groupedMessage("t1", "alice", entity.MessageKindText, now.Add(-3*time.Hour)),
		groupedMessage("t2", "bernard", entity.MessageKindText, now.Add(-2*time.Hour)),
		groupedMessage("t3", "bernard", entity.MessageKindText, now.Add(-time.Hour)),
	}

	groups := GroupByDay(messages, now, loc)
	require.Len(t, groups, 2)

	assert.Equal(t, "Hier", groups[0].Label)
	require.Len(t, groups[0].Messages, 2)
	assert.True(t, groups[0].Messages[0].ShowHeader)
	// Consecutive messages of the same sender collapse under one header.
	assert.False(t, groups[0].Messages[1].ShowHeader)

	assert.Equal(t, "Aujourd'hui", groups[1].Label)
	require.Len(t, groups[1].Messages, 3)
	// The day boundary restarts the run even for the same sender.
	assert.True(t, groups[1].Messages[0].ShowHeader)
	assert.True(t, groups[1].Messages[1].ShowHeader)
	assert.False(t, groups[1].Messages[2].ShowHeader)
}

func TestGroupByDaySystemMessagesBreakRuns(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)

	messages := []*MessageView{
		groupedMessage("m1", "alice", entity.MessageKindText, now.Add(-3*time.Hour)),
		groupedMessage("s1", "alice", entity.MessageKindSystem, now.Add(-2*time.Hour)),
		groupedMessage("m2", "alice", entity.MessageKindText, now.Add(-time.Hour)),
	}

	groups := GroupByDay(messages, now, loc)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Messages, 3)

	assert.True(t, groups[0].Messages[0].ShowHeader)
	// System messages never carry a header of their own.
	assert.False(t, groups[0].Messages[1].ShowHeader)
	// The message after a system break starts a new run.
	assert.True(t, groups[0].Messages[2].ShowHeader)
}

func TestGroupByDayEmptyInput(t *testing.T) {
	groups := GroupByDay(nil, time.Now(), time.UTC)
	assert.Empty(t, groups)
}
