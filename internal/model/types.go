// Package model defines shared data structures.
package model

import "time"

// Phase is the stage of a single round.
type Phase string

const (
	PhaseReady  Phase = "ready"
	PhaseShow   Phase = "show"
	PhaseInput  Phase = "input"
	PhaseResult Phase = "result"
)

// Config defines game settings.
type Config struct {
	Chunk      int
	PerDigitMs int
	MinShowMs  int
	MaxShowMs  int
	Seed       int64
	HasSeed    bool
	LogLevel   string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Since  *time.Time
	Last   int
	Window int
}

// RoundRecord captures a finished round for the history log.
type RoundRecord struct {
	SessionID string
	Level     int
	Target    string
	Input     string
	Success   bool
	ShownMs   int64
	PlayedAt  time.Time
}

// RoundRow is a stored round with its row id.
type RoundRow struct {
	ID int64
	RoundRecord
}

// SessionPeak summarizes one play session for reporting.
type SessionPeak struct {
	SessionID string
	StartedAt time.Time
	Rounds    int
	Successes int
	MaxLevel  int
}
