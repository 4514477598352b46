package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/engine"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestLoad_MissingKeyIsEmpty(t *testing.T) {
	client, _ := setupTestRedis(t)

	reviews, err := New(client, "", 0).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestSaveAndLoad(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := New(client, "salon:reviews", 0)
	ctx := context.Background()

	reviews := []domain.Review{{ID: 1, AuthorName: "Linh", Rating: 5, Comment: "Great", Replies: []domain.Reply{}}}
	require.NoError(t, s.Save(ctx, reviews))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, reviews, got)
	assert.True(t, mr.Exists("salon:reviews"))
	assert.Zero(t, mr.TTL("salon:reviews"))
}

func TestSave_DefaultKeyAndTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := New(client, "", time.Hour)

	require.NoError(t, s.Save(context.Background(), []domain.Review{{ID: 1}}))
	assert.Equal(t, time.Hour, mr.TTL(DefaultKey))

	mr.FastForward(2 * time.Hour)
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_CorruptValue(t *testing.T) {
	client, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(DefaultKey, "not json"))

	_, err := New(client, "", 0).Load(context.Background())
	assert.Error(t, err)
}

func TestLoad_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	_, err := New(client, "", 0).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get")
}

func TestEngineOverRedisStore(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	e := engine.New(New(client, "", 0))
	require.NoError(t, e.Load(ctx))
	review, err := e.Submit(ctx, engine.SubmitInput{AuthorName: "Linh", Rating: 4, Comment: "Friendly staff"})
	require.NoError(t, err)
	_, err = e.AppendReply(ctx, review.ID, engine.ReplyInput{AuthorName: "Salon", Text: "Thank you", IsAdmin: true})
	require.NoError(t, err)

	reopened := engine.New(New(client, "", 0))
	require.NoError(t, reopened.Load(ctx))
	got, err := reopened.Get(review.ID)
	require.NoError(t, err)
	require.Len(t, got.Replies, 1)
	assert.True(t, got.Replies[0].IsAdmin)
}
