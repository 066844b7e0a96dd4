package repository

import (
	"context"
	"testing"
	"time"

	"artiefy_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionKeyFormat(t *testing.T) {
	key := SubmissionKey{ActivityID: 5, UserID: "u1", Kind: KindSubmission}
	assert.Equal(t, "activity:5:user:u1:submission", key.String())

	parsed, err := ParseSubmissionKey("activity:5:user:u1:submission")
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	for _, raw := range []string{
		"activity:5:user:u1",
		"activity:x:user:u1:submission",
		"activity:5:usr:u1:submission",
		"activity:5:user:u1:video",
		"activity:0:user:u1:answers",
		"activity:5:user::answers",
	} {
		_, err := ParseSubmissionKey(raw)
		assert.Error(t, err, raw)
	}
}

func TestSubmissionStoreRoundTrip(t *testing.T) {
	rdb, _ := testutil.Redis(t)
	store := NewSubmissionStore(rdb)
	ctx := context.Background()
	key := "activity:5:user:u1:submission"

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrPayloadNotFound)

	in := Payload{
		"fileName":    "tarea.pdf",
		"documentKey": "documents/tarea.pdf",
		"status":      "reviewed",
		"grade":       4.5,
		"feedback":    "bien",
		"questionId":  "q1",
		"lastUpdated": "2026-01-02T03:04:05.000Z",
	}
	require.NoError(t, store.Put(ctx, key, in, time.Hour))

	out, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "reviewed", out.String("status"))
	grade, ok := out.Float("grade")
	assert.True(t, ok)
	assert.Equal(t, 4.5, grade)
	assert.Equal(t, "bien", out.String("feedback"))
	assert.Equal(t, "q1", out.String("questionId"))
}

func TestSubmissionStoreRewriteKeepsTTL(t *testing.T) {
	rdb, mr := testutil.Redis(t)
	store := NewSubmissionStore(rdb)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "activity:1:user:u:submission", Payload{"status": "pending"}, 30*24*time.Hour))
	mr.FastForward(24 * time.Hour)

	require.NoError(t, store.Rewrite(ctx, "activity:1:user:u:submission", Payload{"status": "reviewed"}, time.Hour))
	ttl := mr.TTL("activity:1:user:u:submission")
	assert.InDelta(t, float64(29*24*time.Hour), float64(ttl), float64(time.Minute))

	// 无过期时间的键保持不过期
	require.NoError(t, store.Put(ctx, "activity:1:user:u:answers", Payload{"a": "b"}, 0))
	require.NoError(t, store.Rewrite(ctx, "activity:1:user:u:answers", Payload{"a": "c"}, time.Hour))
	assert.Equal(t, time.Duration(0), mr.TTL("activity:1:user:u:answers"))

	// 不存在的键使用 fallback
	require.NoError(t, store.Rewrite(ctx, "activity:2:user:u:submission", Payload{"a": "c"}, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("activity:2:user:u:submission"))
}

func TestSubmissionStoreBlobIsContentAddressed(t *testing.T) {
	rdb, _ := testutil.Redis(t)
	store := NewSubmissionStore(rdb)
	ctx := context.Background()

	p := Payload{"grade": 4.5, "status": "reviewed"}
	h1, err := store.PutBlob(ctx, p, time.Hour)
	require.NoError(t, err)
	h2, err := store.PutBlob(ctx, Payload{"status": "reviewed", "grade": 4.5}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	blob, err := store.GetBlob(ctx, h1)
	require.NoError(t, err)
	assert.Equal(t, "reviewed", blob.String("status"))

	h3, err := store.PutBlob(ctx, Payload{"grade": 4.0, "status": "reviewed"}, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestSubmissionStoreScan(t *testing.T) {
	rdb, _ := testutil.Redis(t)
	store := NewSubmissionStore(rdb)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "activity:1:user:a:submission", Payload{}, 0))
	require.NoError(t, store.Put(ctx, "activity:2:user:b:answers", Payload{}, 0))
	require.NoError(t, rdb.Set(ctx, "activity:1:questionsOM", "[]", 0).Err())

	keys, _, err := store.Scan(ctx, 0, 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"activity:1:user:a:submission", "activity:2:user:b:answers"}, keys)
}
