package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/recall/internal/model"
	"github.com/verte-zerg/recall/internal/round"
	"github.com/verte-zerg/recall/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "recall.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	base := time.Unix(0, 0)
	plays := []struct {
		session string
		level   int
		success bool
	}{
		{"a", 1, true},
		{"a", 2, true},
		{"a", 3, false},
		{"b", 1, true},
		{"b", 2, false},
	}
	for i, p := range plays {
		_, err := st.InsertRound(ctx, model.RoundRecord{
			SessionID: p.session,
			Level:     p.level,
			Target:    "1234"[:p.level],
			Input:     "1234"[:p.level],
			Success:   p.success,
			ShownMs:   1200,
			PlayedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	require.NoError(t, st.SetInt(ctx, round.BestStreakKey, 2))

	report, err := BuildReport(ctx, st, model.StatsConfig{Window: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Best)
	assert.Len(t, report.Rounds, 5)
	require.Len(t, report.Sessions, 2)
	assert.Equal(t, "a", report.Sessions[0].SessionID)
	assert.Equal(t, 2, report.Sessions[0].MaxLevel)
	assert.Equal(t, 1, report.Sessions[1].MaxLevel)
	assert.Equal(t, 3, report.Summary.Successes)
	assert.Equal(t, 2, report.Summary.HighestLevel)
	assert.InDelta(t, 1.5, report.Summary.AvgPeak, 1e-9)
	assert.InDelta(t, 0.6, report.Summary.SuccessRate(), 1e-9)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report, 3))
	out := buf.String()
	assert.Contains(t, out, "Best streak: 2")
	assert.Contains(t, out, "Success rate: 60.0%")
	assert.Contains(t, out, "Rounds")
}

func TestBuildReportEmpty(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})

	report, err := BuildReport(context.Background(), st, model.StatsConfig{})
	require.NoError(t, err)
	assert.Zero(t, report.Best)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report, 3))
	assert.Equal(t, "Best streak: 0\nNo rounds found.\n", buf.String())
}

func TestBuildReportBestWithoutRounds(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	require.NoError(t, st.SetInt(context.Background(), round.BestStreakKey, 7))

	report, err := BuildReport(context.Background(), st, model.StatsConfig{})
	require.NoError(t, err)
	assert.Equal(t, 7, report.Best)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report, 3))
	assert.Equal(t, "Best streak: 7\nNo rounds found.\n", buf.String())
}
