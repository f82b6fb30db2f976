package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogsync "github.com/nikhilrc-dev/ct-vertex-sync/internal/sync"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "sync.db")
	st, err := New("sqlite://" + dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRecordRun(t *testing.T) {
	st := newTestStore(t)

	summary := &catalogsync.Summary{
		RunID:          "run-1",
		TotalProducts:  120,
		ProcessedCount: 70,
		ErrorCount:     50,
		Duration:       4200,
		StartedAt:      time.Now(),
		Errors: []catalogsync.BatchError{
			{ProductIDs: []string{"prod-1", "prod-2"}, Error: "import rejected"},
		},
	}
	require.NoError(t, st.RecordRun(summary))

	var run SyncRun
	require.NoError(t, st.db.First(&run, "id = ?", "run-1").Error)
	assert.Equal(t, 120, run.TotalProducts)
	assert.Equal(t, 70, run.ProcessedCount)
	assert.Equal(t, 50, run.ErrorCount)
	assert.Contains(t, run.Errors, "import rejected")
	assert.Contains(t, run.Errors, "prod-2")
}

func TestRecordRunWithoutErrors(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.RecordRun(&catalogsync.Summary{RunID: "run-2", StartedAt: time.Now()}))

	var run SyncRun
	require.NoError(t, st.db.First(&run, "id = ?", "run-2").Error)
	assert.Empty(t, run.Errors)
}

func TestVersionGuard(t *testing.T) {
	st := newTestStore(t)

	// Unknown resources always apply.
	apply, err := st.ShouldApply("prod-1", 3)
	require.NoError(t, err)
	assert.True(t, apply)

	require.NoError(t, st.MarkApplied("prod-1", 5))

	// Older versions are stale.
	apply, err = st.ShouldApply("prod-1", 4)
	require.NoError(t, err)
	assert.False(t, apply)

	// Redelivery of the applied version itself is not stale; the write is
	// idempotent.
	apply, err = st.ShouldApply("prod-1", 5)
	require.NoError(t, err)
	assert.True(t, apply)

	apply, err = st.ShouldApply("prod-1", 6)
	require.NoError(t, err)
	assert.True(t, apply)
}

func TestMarkAppliedOverwrites(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.MarkApplied("prod-1", 5))
	require.NoError(t, st.MarkApplied("prod-1", 9))

	apply, err := st.ShouldApply("prod-1", 7)
	require.NoError(t, err)
	assert.False(t, apply)
}
