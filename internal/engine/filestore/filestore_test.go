package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/engine"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "reviews.json"))

	reviews, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reviews.json")
	s := New(path)
	created := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	reviews := []domain.Review{
		{ID: 2, AuthorName: "B", Rating: 4, Comment: "Nice", Replies: []domain.Reply{}, CreatedAt: created},
		{ID: 1, AuthorName: "A", Rating: 5, Comment: "Great", Replies: []domain.Reply{}, CreatedAt: created},
	}
	require.NoError(t, s.Save(context.Background(), reviews))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reviews, got)

	// Only the document remains; the temporary file was renamed over it.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "reviews.json", entries[0].Name())
}

func TestSave_ReplacesWholeDocument(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "reviews.json"))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []domain.Review{{ID: 1}, {ID: 2}}))
	require.NoError(t, s.Save(ctx, []domain.Review{{ID: 3}}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	_, err := New(path).Load(context.Background())
	assert.Error(t, err)
}

func TestEngineOverFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.json")
	ctx := context.Background()

	e := engine.New(New(path))
	require.NoError(t, e.Load(ctx))
	review, err := e.Submit(ctx, engine.SubmitInput{AuthorName: "Linh", Rating: 5, Comment: "Best salon in town"})
	require.NoError(t, err)
	_, err = e.MarkHelpful(ctx, review.ID)
	require.NoError(t, err)

	reopened := engine.New(New(path))
	require.NoError(t, reopened.Load(ctx))
	got, err := reopened.Get(review.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Helpful)
	assert.Equal(t, 1, reopened.Statistics().TotalReviews)
}
