package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
)

func sample(id int64, fileID string) Session {
	return Session{
		SubmitterID: id,
		State:       AwaitingAttribution,
		Upload: entity.PendingUpload{
			SubmitterID: id,
			ChatID:      id * 10,
			MessageID:   5,
			Kind:        constants.KindDocument,
			File:        entity.FileRef{FileID: fileID, FileName: "bill.pdf", MimeType: "application/pdf"},
			ReceivedAt:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		PromptMessageID: 6,
	}
}

// storeContract runs the behavior every Store must share.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, sample(1, "first")))
	got, ok, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", got.Upload.File.FileID)
	assert.Equal(t, "pdf", got.Upload.Ext())
	assert.Equal(t, 6, got.PromptMessageID)
	assert.False(t, got.UpdatedAt.IsZero())

	// one slot per submitter
	require.NoError(t, s.Put(ctx, sample(1, "second")))
	got, _, _ = s.Get(ctx, 1)
	assert.Equal(t, "second", got.Upload.File.FileID)

	require.NoError(t, s.Put(ctx, sample(2, "other")))
	got.State = AwaitingCustomName
	require.NoError(t, s.Put(ctx, got))
	got, _, _ = s.Get(ctx, 1)
	assert.Equal(t, AwaitingCustomName, got.State)

	require.NoError(t, s.Delete(ctx, 1))
	require.NoError(t, s.Delete(ctx, 1), "deleting twice is fine")
	_, ok, _ = s.Get(ctx, 1)
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, 2)
	assert.True(t, ok)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(0))
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewMemoryStore(time.Hour)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Put(ctx, sample(1, "f")))
	now = now.Add(59 * time.Minute)
	_, ok, _ := m.Get(ctx, 1)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = m.Get(ctx, 1)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(RedisConfig{Addr: mr.Addr(), TTL: 30 * time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

func TestRedisStore(t *testing.T) {
	_, s := newMiniredis(t)
	require.NoError(t, s.Ping(context.Background()))
	storeContract(t, s)
}

func TestRedisStoreKeyAndTTL(t *testing.T) {
	mr, s := newMiniredis(t)
	require.NoError(t, s.Put(context.Background(), sample(99, "f")))

	key := DefaultKeyPrefix + "99"
	require.True(t, mr.Exists(key))
	assert.Equal(t, 30*time.Minute, mr.TTL(key))

	mr.FastForward(31 * time.Minute)
	_, ok, err := s.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	mr, s := newMiniredis(t)
	require.NoError(t, mr.Set(DefaultKeyPrefix+"5", "{not json"))

	_, _, err := s.Get(context.Background(), 5)
	assert.Error(t, err)
}

func TestNewRedisStoreRequiresAddr(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{})
	assert.Error(t, err)
}
