package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartadl/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(db.NewQueries(database))
}

func TestRecordTestTimestampFormat(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time { return time.Date(2026, 9, 1, 14, 30, 5, 0, time.Local) }

	require.NoError(t, s.RecordTest("alice", "2+2?", "4", "The answer is 4.", true))

	got, err := s.ListTests("alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-09-01 14:30:05", got[0].DateTest)
	assert.True(t, got[0].IsCorrect)
	assert.Equal(t, "The answer is 4.", got[0].AIAnswer)
}

func TestListTestsMostRecentFirst(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)
	for i, prompt := range []string{"first", "second", "third"} {
		offset := time.Duration(i) * time.Minute
		s.now = func() time.Time { return base.Add(offset) }
		require.NoError(t, s.RecordTest("alice", prompt, "x", "y", false))
	}

	got, err := s.ListTests("alice")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "third", got[0].Prompt)
	assert.Equal(t, "first", got[2].Prompt)
}

func TestHistoryIsUserScoped(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordTest("alice", "p", "e", "a", true))
	require.NoError(t, s.RecordADL("alice", "code", "q", "a"))

	tests, err := s.ListTests("bob")
	require.NoError(t, err)
	assert.Empty(t, tests)

	adl, err := s.ListADL("bob")
	require.NoError(t, err)
	assert.Empty(t, adl)
}

func TestDeleteTest(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordTest("alice", "p1", "e", "a", true))
	require.NoError(t, s.RecordTest("alice", "p2", "e", "a", false))

	got, err := s.ListTests("alice")
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NoError(t, s.DeleteTest("alice", got[0].ID))

	got, err = s.ListTests("alice")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.ErrorIs(t, s.DeleteTest("bob", got[0].ID), ErrNotOwned)
}

func TestRecordAndDeleteADL(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordADL("alice", "var x = 1", "how?", "like this"))
	// Optimizer interactions carry code only.
	require.NoError(t, s.RecordADL("alice", "optimized", "", ""))

	got, err := s.ListADL("alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].DateSaved)

	require.NoError(t, s.DeleteADL("alice", got[0].ID))

	got, err = s.ListADL("alice")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
