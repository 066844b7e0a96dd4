package repository

import (
	"testing"

	"artiefy_backend/internal/model"
	"artiefy_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnlockLessonInsertsAndPreservesProgress(t *testing.T) {
	db := testutil.DB(t)
	course := testutil.SeedCourse(t, db, "Go")
	lessons := testutil.SeedLessons(t, db, course.ID, "Clase 1", "Clase 2")
	repo := NewProgressRepository(db)

	require.NoError(t, repo.UnlockLesson("u1", lessons[1].ID))
	rows, err := repo.ListLessonProgress("u1", []uint{lessons[1].ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsLocked)
	assert.True(t, rows[0].IsNew)
	assert.Equal(t, 0.0, rows[0].Progress)

	row := rows[0]
	row.Progress = 40
	row.IsNew = false
	require.NoError(t, repo.SaveLessonProgress(&row))

	// 再次解锁不会重置进度
	require.NoError(t, repo.UnlockLesson("u1", lessons[1].ID))
	rows, err = repo.ListLessonProgress("u1", []uint{lessons[1].ID})
	require.NoError(t, err)
	assert.Equal(t, 40.0, rows[0].Progress)
	assert.False(t, rows[0].IsNew)
}

func TestInitLessonRowsKeepsExisting(t *testing.T) {
	db := testutil.DB(t)
	course := testutil.SeedCourse(t, db, "Go")
	lessons := testutil.SeedLessons(t, db, course.ID, "Clase 1", "Clase 2")
	repo := NewProgressRepository(db)

	require.NoError(t, repo.SaveLessonProgress(&model.UserLessonProgress{UserID: "u1", LessonID: lessons[0].ID, Progress: 70}))

	require.NoError(t, repo.InitLessonRows([]model.UserLessonProgress{
		{UserID: "u1", LessonID: lessons[0].ID, IsNew: true},
		{UserID: "u1", LessonID: lessons[1].ID, IsLocked: true, IsNew: true},
	}))

	rows, err := repo.ListLessonProgress("u1", []uint{lessons[0].ID, lessons[1].ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		if r.LessonID == lessons[0].ID {
			assert.Equal(t, 70.0, r.Progress)
		} else {
			assert.True(t, r.IsLocked)
		}
	}
}

func TestActivityProgressLockAndSave(t *testing.T) {
	db := testutil.DB(t)
	repo := NewProgressRepository(db)

	err := repo.Transaction(func(tx *ProgressRepository) error {
		row, found, err := tx.LockActivityProgress("u1", 3)
		require.NoError(t, err)
		assert.False(t, found)
		row.AttemptCount++
		row.Progress = 100
		row.IsCompleted = true
		return tx.SaveActivityProgress(&row)
	})
	require.NoError(t, err)

	err = repo.Transaction(func(tx *ProgressRepository) error {
		row, found, err := tx.LockActivityProgress("u1", 3)
		require.NoError(t, err)
		assert.True(t, found)
		row.AttemptCount++
		return tx.SaveActivityProgress(&row)
	})
	require.NoError(t, err)

	row, err := repo.FindActivityProgress("u1", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, row.AttemptCount)
	assert.True(t, row.IsCompleted)
	assert.Nil(t, row.FinalGrade)
}
