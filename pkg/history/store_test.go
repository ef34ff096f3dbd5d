package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/taxflow/pkg/projections"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLatestEmpty(t *testing.T) {
	s := openTest(t)
	_, err := s.Latest(context.Background())
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRecordAndLatest(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.Record(ctx, Refresh{RecordedAt: base, Reason: "startup", Rows: 10})
	require.NoError(t, err)

	stored, err := s.Record(ctx, Refresh{
		RecordedAt:        base.Add(time.Minute),
		Reason:            "watcher",
		Rows:              12,
		Skipped:           1,
		ClassifiedReads:   900,
		UnclassifiedReads: 100,
		Nodes:             9,
		Edges:             8,
		Ghosts:            2,
		Interest: []InterestCount{
			{TaxID: "562", Name: "Escherichia coli", Reads: 1500, Level: projections.LevelDanger},
			{TaxID: "1280", Name: "Staphylococcus aureus", Reads: 0, Level: projections.LevelClear},
		},
	})
	require.NoError(t, err)
	assert.Len(t, stored.ID, 36)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, latest.ID)
	assert.Equal(t, "watcher", latest.Reason)
	assert.True(t, latest.RecordedAt.Equal(base.Add(time.Minute)))
	assert.EqualValues(t, 900, latest.ClassifiedReads)
	require.Len(t, latest.Interest, 2)
	assert.Equal(t, projections.LevelDanger, latest.Interest[0].Level)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInterestSeries(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, reads := range []int64{5, 50, 500, 5000} {
		_, err := s.Record(ctx, Refresh{
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
			Reason:     "ticker",
			Interest:   []InterestCount{{TaxID: "562", Name: "Escherichia coli", Reads: reads, Level: projections.LevelClear}},
		})
		require.NoError(t, err)
	}

	all, err := s.InterestSeries(ctx, "562", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.EqualValues(t, 5, all[0].Reads)
	assert.EqualValues(t, 5000, all[3].Reads)

	recent, err := s.InterestSeries(ctx, "562", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.EqualValues(t, 500, recent[0].Reads, "series is chronological")
	assert.True(t, recent[0].Time.Before(recent[1].Time))

	none, err := s.InterestSeries(ctx, "1280", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(ctx, Refresh{Reason: "startup"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
