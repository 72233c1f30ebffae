// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/recall/internal/format"
	"github.com/verte-zerg/recall/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates a list of rounds.
type Summary struct {
	Rounds       int
	Successes    int
	Sessions     int
	HighestLevel int
	AvgPeak      float64
}

// SuccessRate returns the share of successful rounds in [0, 1].
func (s Summary) SuccessRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Rounds)
}

// SessionPeaks groups rounds by play session, keeping first-seen order.
// MaxLevel is the highest level completed successfully in the session.
func SessionPeaks(rounds []model.RoundRow) []model.SessionPeak {
	index := map[string]int{}
	var out []model.SessionPeak
	for _, r := range rounds {
		i, ok := index[r.SessionID]
		if !ok {
			i = len(out)
			index[r.SessionID] = i
			out = append(out, model.SessionPeak{SessionID: r.SessionID, StartedAt: r.PlayedAt})
		}
		peak := &out[i]
		peak.Rounds++
		if r.Success {
			peak.Successes++
			if r.Level > peak.MaxLevel {
				peak.MaxLevel = r.Level
			}
		}
	}
	return out
}

// Summarize computes totals over rounds and their sessions.
func Summarize(rounds []model.RoundRow, peaks []model.SessionPeak) Summary {
	s := Summary{Rounds: len(rounds), Sessions: len(peaks)}
	for _, r := range rounds {
		if !r.Success {
			continue
		}
		s.Successes++
		if r.Level > s.HighestLevel {
			s.HighestLevel = r.Level
		}
	}
	if len(peaks) > 0 {
		total := 0
		for _, p := range peaks {
			total += p.MaxLevel
		}
		s.AvgPeak = float64(total) / float64(len(peaks))
	}
	return s
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// PeakCurve returns the moving average of session peaks as a sparkline.
func PeakCurve(peaks []model.SessionPeak, window int) string {
	values := make([]float64, len(peaks))
	for i, p := range peaks {
		values[i] = float64(p.MaxLevel)
	}
	return Sparkline(MovingAverage(values, window))
}

// RenderSummary prints the headline numbers.
func RenderSummary(w io.Writer, r Report) error {
	if r.Summary.Rounds == 0 {
		_, err := fmt.Fprintf(w, "Best streak: %d\nNo rounds found.\n", r.Best)
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Best streak: %d", r.Best),
		fmt.Sprintf("Sessions: %d", r.Summary.Sessions),
		fmt.Sprintf("Rounds: %d", r.Summary.Rounds),
		fmt.Sprintf("Success rate: %.1f%%", r.Summary.SuccessRate()*100),
		fmt.Sprintf("Highest level: %d", r.Summary.HighestLevel),
		fmt.Sprintf("Avg session peak: %.2f", r.Summary.AvgPeak),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurve prints the session peak sparkline.
func RenderCurve(w io.Writer, r Report) error {
	if len(r.Sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "Session peaks (window %d)\n%s\n\n", r.Window, PeakCurve(r.Sessions, r.Window)); err != nil {
		return err
	}
	return nil
}

// RoundTableHeaders are the column titles used by round tables.
var RoundTableHeaders = []string{"When", "Level", "Result", "Target", "Answer"}

// RoundTableRows formats rounds, newest first.
func RoundTableRows(rounds []model.RoundRow, chunk int) [][]string {
	rows := make([][]string, 0, len(rounds))
	for i := len(rounds) - 1; i >= 0; i-- {
		r := rounds[i]
		result := "miss"
		answer := format.MarkText(format.Mismatches(r.Input, r.Target))
		if r.Success {
			result = "ok"
			answer = format.ChunkDigits(r.Input, chunk)
		}
		rows = append(rows, []string{
			r.PlayedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", r.Level),
			result,
			format.ChunkDigits(r.Target, chunk),
			answer,
		})
	}
	return rows
}

// RenderRounds prints a table of rounds, newest first.
func RenderRounds(w io.Writer, rounds []model.RoundRow, chunk int) error {
	if len(rounds) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Rounds"); err != nil {
		return err
	}
	lines := roundTableLines(RoundTableRows(rounds, chunk))
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteReport prints the full plain-text report.
func WriteReport(w io.Writer, r Report, chunk int) error {
	if err := RenderSummary(w, r); err != nil {
		return err
	}
	if err := RenderCurve(w, r); err != nil {
		return err
	}
	return RenderRounds(w, r.Rounds, chunk)
}
