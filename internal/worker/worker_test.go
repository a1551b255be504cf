package worker

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbutil "github.com/piju/piju-server/internal/db"
	"github.com/piju/piju-server/internal/fetcher"
	"github.com/piju/piju-server/internal/store"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := dbutil.OpenForTest(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, store.InitSchema(database))
	return database
}

func TestWorker_FIFOAndStatus(t *testing.T) {
	db := setupTestDB(t)

	present := filepath.Join(t.TempDir(), "present.mp3")
	require.NoError(t, os.WriteFile(present, []byte("audio"), 0o644))
	absent := "/nonexistent/absent.mp3"

	err := dbutil.WithTx(db, func(tx *sql.Tx) error {
		for _, path := range []string{present, absent} {
			_, err := store.EnsureTrackExists(tx, store.TrackRef{Filepath: path, Title: filepath.Base(path)})
			require.NoError(t, err)
		}
		return nil
	})
	require.NoError(t, err)

	w := New(db, fetcher.NewRegistry(), func(string) []fetcher.Download { return nil })

	statuses := make(chan string, 16)
	w.SetStateChangeCallback(func() { statuses <- w.Status() })

	done := make(chan struct{})
	w.Enqueue(Request{Kind: DeleteMissingTracks})
	w.Enqueue(Request{Kind: FetchFromYouTube, URL: "x", Done: func(string, []fetcher.Download) {
		close(done)
	}})
	w.Start()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs did not complete")
	}

	err = dbutil.WithTx(db, func(tx *sql.Tx) error {
		count, err := store.CountTracks(tx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "missing track removed before fetch ran")
		return nil
	})
	require.NoError(t, err)

	// Status transitions arrive in job order.
	var seen []string
	for len(statuses) > 0 {
		seen = append(seen, <-statuses)
	}
	assert.Contains(t, seen, "Deleting missing tracks")
}

func TestWorker_CachedFetchSkipsDownload(t *testing.T) {
	db := setupTestDB(t)

	cached := []fetcher.Download{{Filepath: "/tmp/x.mp3", Title: "cached"}}
	w := New(db, fetcher.NewRegistry(), func(url string) []fetcher.Download {
		if url == "https://example.com/v/1" {
			return cached
		}
		return nil
	})

	got := make(chan []fetcher.Download, 1)
	w.Enqueue(Request{Kind: FetchFromYouTube, URL: "https://example.com/v/1",
		Done: func(_ string, downloads []fetcher.Download) { got <- downloads }})
	w.Start()

	select {
	case downloads := <-got:
		assert.Equal(t, cached, downloads)
	case <-time.After(5 * time.Second):
		t.Fatal("fetch callback never ran")
	}
}
