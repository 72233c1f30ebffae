// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"

	"github.com/verte-zerg/recall/internal/model"
	"github.com/verte-zerg/recall/internal/round"
)

// Source is the read side of the store used by reports.
type Source interface {
	GetInt(ctx context.Context, key string) (int, bool, error)
	ListRounds(ctx context.Context, cfg model.StatsConfig) ([]model.RoundRow, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Rounds   []model.RoundRow
	Sessions []model.SessionPeak
	Summary  Summary
	Best     int
	Window   int
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src Source, cfg model.StatsConfig) (Report, error) {
	rounds, err := src.ListRounds(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	best, _, err := src.GetInt(ctx, round.BestStreakKey)
	if err != nil {
		return Report{}, err
	}
	if best < 0 {
		best = 0
	}
	peaks := SessionPeaks(rounds)
	return Report{
		Rounds:   rounds,
		Sessions: peaks,
		Summary:  Summarize(rounds, peaks),
		Best:     best,
		Window:   cfg.Window,
	}, nil
}
