package sqlite

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrofact/internal/frame"
)

func testFact(t *testing.T) *frame.Frame {
	t.Helper()
	f := frame.New("fact_core_province_quarter")
	require.NoError(t, f.AddStrings("Province", []string{"Alberta", "Ontario"}))
	require.NoError(t, f.AddTimes("Quarter", []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, f.AddNumbers("income", []float64{50, math.NaN()}))
	require.NoError(t, f.AddNumbers("cpi", []float64{147, 156}))
	return f
}

func TestSaveFactMeltsAndUpserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.db")
	store, err := New(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveFact(ctx, testFact(t)))
	// Same fact again: upsert, not duplicate rows.
	require.NoError(t, store.SaveFact(ctx, testFact(t)))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM fact_values`).Scan(&rows))
	assert.Equal(t, 3, rows, "missing cells are not stored")

	var value float64
	require.NoError(t, db.QueryRow(`
		SELECT value FROM fact_values
		WHERE fact = 'fact_core_province_quarter' AND entity = 'Alberta'
		  AND period = '2024-01-01' AND metric = 'income'
	`).Scan(&value))
	assert.Equal(t, 50.0, value)
}

func TestSaveFactSkipsNonPeriodFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.db")
	store, err := New(path)
	require.NoError(t, err)
	defer store.Close()

	seriesMap := frame.New("boc_series_map")
	require.NoError(t, seriesMap.AddStrings("id", []string{"V1"}))
	require.NoError(t, store.SaveFact(context.Background(), seriesMap))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM fact_values`).Scan(&rows))
	assert.Equal(t, 0, rows)
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}
