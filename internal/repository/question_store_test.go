package repository

import (
	"context"
	"errors"
	"testing"

	"artiefy_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionStoreMutate(t *testing.T) {
	rdb, _ := testutil.Redis(t)
	store := NewQuestionStore(rdb)
	ctx := context.Background()

	qs, err := store.List(ctx, 7, BankOM)
	require.NoError(t, err)
	assert.Empty(t, qs)

	require.NoError(t, rdb.Set(ctx, QuestionKey(7, BankVOF), `[{"id":"v1","pesoPregunta":30}]`, 0).Err())

	err = store.Mutate(ctx, 7, BankOM, func(current []Question, weighted map[QuestionBank][]Question) ([]Question, error) {
		assert.Len(t, weighted[BankVOF], 1)
		assert.Empty(t, weighted[BankOM])
		return append(current, Question{"id": "q1", "pesoPregunta": 20.0}), nil
	})
	require.NoError(t, err)

	qs, err = store.List(ctx, 7, BankOM)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "q1", qs[0].ID())

	sentinel := errors.New("rejected")
	err = store.Mutate(ctx, 7, BankOM, func(current []Question, _ map[QuestionBank][]Question) ([]Question, error) {
		return nil, sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	qs, err = store.List(ctx, 7, BankOM)
	require.NoError(t, err)
	assert.Len(t, qs, 1, "rejected mutation leaves the bank untouched")
}
