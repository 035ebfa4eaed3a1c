package lumped

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/hydrosim/internal/swmm"
)

func runFixture(t *testing.T, save bool) string {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "site.db")
	e := New()
	require.Equal(t, swmm.CodeOK, e.Open(fixture, filepath.Join(dir, "site.rpt"), out))
	require.Equal(t, swmm.CodeOK, e.Start(save))
	for {
		elapsed, code := e.Step()
		require.Equal(t, swmm.CodeOK, code)
		if elapsed == 0 {
			break
		}
	}
	require.Equal(t, swmm.CodeOK, e.End())
	require.Equal(t, swmm.CodeOK, e.Report())
	require.Equal(t, swmm.CodeOK, e.Close())
	return out
}

func TestResultsSavedPerPeriod(t *testing.T) {
	out := runFixture(t, true)

	r, err := OpenResults(out)
	require.NoError(t, err)
	defer r.Close()

	n, err := r.Periods()
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	first, err := r.PeriodTime(1)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 00:05:00", first.Format(dateLayout))
	last, err := r.PeriodTime(12)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 01:00:00", last.Format(dateLayout))

	rain, err := r.Series(swmm.Gage, swmm.GageRainfall, 0)
	require.NoError(t, err)
	require.Len(t, rain, 12)
	for _, v := range rain {
		assert.InDelta(t, 0.3, v, 1e-9)
	}

	v, err := r.SavedValue(swmm.Subcatch, swmm.SubcatchRunoff, 0, 12)
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)

	names, err := r.Names(swmm.Node)
	require.NoError(t, err)
	require.Len(t, names, 12)
	assert.Equal(t, "J6", names[5])

	mb, err := r.MassBalance()
	require.NoError(t, err)
	assert.InDelta(t, 0, mb.Flow, 1e-6)
}

func TestResultsMissingValue(t *testing.T) {
	out := runFixture(t, true)
	r, err := OpenResults(out)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.SavedValue(swmm.Link, swmm.LinkFlow, 0, 99)
	assert.ErrorIs(t, err, ErrNoResult)
	_, err = r.PeriodTime(0)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestResultsNotSaved(t *testing.T) {
	out := runFixture(t, false)
	r, err := OpenResults(out)
	require.NoError(t, err)
	defer r.Close()

	n, err := r.Periods()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenResultsMissingFile(t *testing.T) {
	_, err := OpenResults(filepath.Join(t.TempDir(), "none.db"))
	assert.Error(t, err)
}
