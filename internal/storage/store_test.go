package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-meeting-copilot/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "copilot.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSummary(id string, createdAt time.Time) models.MeetingSummary {
	return models.MeetingSummary{
		ID:          id,
		SessionID:   "sess-" + id,
		Title:       "Weekly sync",
		StartedAt:   createdAt.Add(-30 * time.Minute),
		Duration:    1800,
		Summary:     "The team reviewed progress.",
		KeyPoints:   []string{"importer shipped"},
		ActionItems: []string{"send the plan"},
		Speakers: []models.Speaker{
			{Tag: "1", Name: "Anna", Utterances: 12, AutoDetected: false},
		},
		Transcript: []models.TranscriptLine{
			{Timestamp: createdAt.Add(-29 * time.Minute), Speaker: "You", Text: "Hello.", Channel: models.ChannelMic},
		},
		Tips: []models.CoachingTip{
			{ID: "tip-1", Question: "What is the status?", Answer: "All green.", Category: models.CategoryAnswer},
		},
		CreatedAt: createdAt,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().Truncate(time.Second)

	require.NoError(t, s.Save(sampleSummary("a", now)))

	got, err := s.Get("a")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "a", got.ID)
	assert.Equal(t, "sess-a", got.SessionID)
	assert.Equal(t, "Weekly sync", got.Title)
	assert.Equal(t, int64(1800), got.Duration)
	assert.Equal(t, "The team reviewed progress.", got.Summary)
	assert.Equal(t, []string{"importer shipped"}, got.KeyPoints)
	assert.Equal(t, []string{"send the plan"}, got.ActionItems)
	require.Len(t, got.Speakers, 1)
	assert.Equal(t, "Anna", got.Speakers[0].Name)
	require.Len(t, got.Transcript, 1)
	assert.Equal(t, "Hello.", got.Transcript[0].Text)
	require.Len(t, got.Tips, 1)
	assert.Equal(t, models.CategoryAnswer, got.Tips[0].Category)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestStore_Get_Missing(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_Save_Overwrites(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	first := sampleSummary("a", now)
	require.NoError(t, s.Save(first))

	first.Summary = "Revised summary."
	require.NoError(t, s.Save(first))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "Revised summary.", got.Summary)

	metas, err := s.List()
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestStore_List_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Now().Truncate(time.Second)

	require.NoError(t, s.Save(sampleSummary("old", base.Add(-time.Hour))))
	require.NoError(t, s.Save(sampleSummary("new", base)))

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "new", metas[0].ID)
	assert.Equal(t, "old", metas[1].ID)

	// The listing view carries no transcript payload.
	assert.Equal(t, "Weekly sync", metas[0].Title)
	assert.Equal(t, int64(1800), metas[0].Duration)
}

func TestStore_EmptyCollections(t *testing.T) {
	s := openTestStore(t)
	summary := models.MeetingSummary{
		ID:        "bare",
		SessionID: "sess-bare",
		StartedAt: time.Now(),
		Summary:   "Short.",
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.Save(summary))

	got, err := s.Get("bare")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.KeyPoints)
	assert.Empty(t, got.Transcript)
	assert.Empty(t, got.Tips)
}
