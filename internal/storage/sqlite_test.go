package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyagent/storyagent-go/internal/domain"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewInMemoryStorage()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleGeneration(createdAt time.Time) *GenerationRecord {
	return &GenerationRecord{
		Requirements: "Build a login system with session management.",
		Stories: []domain.StoryRecord{
			{
				Story:              "As a user, I want to log in so that I can access my account.",
				AcceptanceCriteria: []string{"Given a registered user, When they log in, Then they see their dashboard"},
			},
		},
		Model:     "test-model",
		CreatedAt: createdAt,
	}
}

func TestSQLiteStorage_SaveAndGetGeneration(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	rec := sampleGeneration(time.Now().UTC())
	require.NoError(t, s.SaveGeneration(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 1, rec.StoryCount)

	got, err := s.GetGeneration(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Requirements, got.Requirements)
	assert.Equal(t, rec.Stories, got.Stories)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 1, got.StoryCount)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLiteStorage_GetGeneration_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetGeneration(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorage_ListGenerations(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := sampleGeneration(base.Add(time.Duration(i) * time.Minute))
		require.NoError(t, s.SaveGeneration(ctx, rec))
	}

	t.Run("newest first", func(t *testing.T) {
		records, err := s.ListGenerations(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, records, 5)
		assert.Equal(t, base.Add(4*time.Minute), records[0].CreatedAt)
		assert.Equal(t, base, records[4].CreatedAt)
	})

	t.Run("pagination", func(t *testing.T) {
		records, err := s.ListGenerations(ctx, 2, 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, base.Add(2*time.Minute), records[0].CreatedAt)
	})

	t.Run("offset beyond end", func(t *testing.T) {
		records, err := s.ListGenerations(ctx, 100, 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	count, err := s.CountGenerations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestSQLiteStorage_DeleteGeneration(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	rec := sampleGeneration(time.Now().UTC())
	require.NoError(t, s.SaveGeneration(ctx, rec))

	require.NoError(t, s.DeleteGeneration(ctx, rec.ID))
	_, err := s.GetGeneration(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteGeneration(ctx, rec.ID), ErrNotFound)
}

func TestSQLiteStorage_Exports(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	rec := &ExportRecord{
		ProjectKey: "PROJ",
		GroupKey:   "PROJ-7",
		Status:     domain.ExportPartialFailure,
		Outcomes: []domain.Outcome{
			{Index: 0, Status: domain.OutcomeCreated, Issue: &domain.IssueRef{Key: "PROJ-8"}},
			{Index: 1, Status: domain.OutcomeFailed, ErrorKind: "remote_rejected", Error: "bad priority"},
		},
		Exported: 1,
		Failed:   1,
	}
	require.NoError(t, s.SaveExport(ctx, rec))
	assert.NotEmpty(t, rec.ID)

	records, err := s.ListExports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "PROJ", got.ProjectKey)
	assert.Equal(t, "PROJ-7", got.GroupKey)
	assert.Equal(t, domain.ExportPartialFailure, got.Status)
	require.Len(t, got.Outcomes, 2)
	assert.Equal(t, "PROJ-8", got.Outcomes[0].Issue.Key)
	assert.Equal(t, domain.OutcomeFailed, got.Outcomes[1].Status)
}

func TestSQLiteStorage_GetStats(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveGeneration(ctx, sampleGeneration(time.Now().UTC())))
	require.NoError(t, s.SaveGeneration(ctx, sampleGeneration(time.Now().UTC())))
	require.NoError(t, s.SaveExport(ctx, &ExportRecord{ProjectKey: "PROJ", Status: domain.ExportAllSucceeded, Outcomes: []domain.Outcome{}}))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalGenerations)
	assert.Equal(t, 2, stats.TotalStories)
	assert.Equal(t, 1, stats.TotalExports)
}

func TestSQLiteStorage_FileBacked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)

	rec := sampleGeneration(time.Now().UTC())
	require.NoError(t, s.SaveGeneration(context.Background(), rec))
	require.NoError(t, s.Close())

	// Reopen and verify persistence.
	s2, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetGeneration(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Requirements, got.Requirements)
}
