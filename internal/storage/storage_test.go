package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDriver(t *testing.T, driver string) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taigabot.db")
	st, err := Open(Config{Driver: driver, Path: path, BusyTimeout: time.Second}, nopLogger())
	require.NoError(t, err)
	require.NotNil(t, st)
	return st, path
}

func TestOpenDisabled(t *testing.T) {
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, nopLogger())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
	_, err := Open(Config{Driver: "redis"}, nopLogger())
	assert.Error(t, err)
}

func TestStoreContract(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			st, _ := openDriver(t, driver)
			defer st.Close()
			ctx := context.Background()
			now := time.Now()

			_, ok, err := st.GetDedup(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			until := now.Add(time.Minute).Truncate(time.Millisecond)
			require.NoError(t, st.PutDedup(ctx, "k1", until))
			got, ok, err := st.GetDedup(ctx, "k1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, got.Equal(until))

			// Overwrite extends the window.
			later := until.Add(time.Minute)
			require.NoError(t, st.PutDedup(ctx, "k1", later))
			got, _, _ = st.GetDedup(ctx, "k1")
			assert.True(t, got.Equal(later))

			require.NoError(t, st.PutDedup(ctx, "old", now.Add(-time.Minute)))
			n, err := st.PruneExpired(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			_, ok, _ = st.GetDedup(ctx, "old")
			assert.False(t, ok)
			_, ok, _ = st.GetDedup(ctx, "k1")
			assert.True(t, ok)
		})
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			st, path := openDriver(t, driver)
			ctx := context.Background()
			until := time.Now().Add(time.Hour).Truncate(time.Millisecond)
			require.NoError(t, st.PutDedup(ctx, "event-1", until))
			require.NoError(t, st.Close())

			st2, err := Open(Config{Driver: driver, Path: path}, nopLogger())
			require.NoError(t, err)
			defer st2.Close()
			got, ok, err := st2.GetDedup(ctx, "event-1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, got.Equal(until))
		})
	}
}

func TestFileStoreSkipsTornJournalLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	journal := filepath.Join(dir, "state.dedup.journal.jsonl")
	until := time.Now().Add(time.Hour).UnixMilli()
	body := `{"key":"a","until":` + itoa(until) + "}\n" + `{"key":"b","unt`
	require.NoError(t, os.WriteFile(journal, []byte(body), 0o600))

	st, err := Open(Config{Driver: "file", Path: path}, nopLogger())
	require.NoError(t, err)
	defer st.Close()
	_, ok, _ := st.GetDedup(context.Background(), "a")
	assert.True(t, ok)
	_, ok, _ = st.GetDedup(context.Background(), "b")
	assert.False(t, ok)
}
