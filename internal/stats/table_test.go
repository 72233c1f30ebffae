package stats

import "testing"

func TestRoundTableLinesAlignColumns(t *testing.T) {
	rows := [][]string{
		{"2026-03-01 12:00", "12", "ok", "1,234", "1,234"},
		{"2026-03-02 09:30", "3", "miss", "56", "5[7]"},
	}

	lines := roundTableLines(rows)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "When             Level Result Target Answer" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "2026-03-01 12:00    12 ok     1,234  1,234 " {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "2026-03-02 09:30     3 miss   56     5[7]  " {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestRoundTableLinesWideRunes(t *testing.T) {
	lines := roundTableLines([][]string{{"日本語の日付", "7"}})
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "When         Level Result Target Answer" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "日本語の日付     7                     " {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
}

func TestRoundTableLinesHeaderOnly(t *testing.T) {
	lines := roundTableLines(nil)
	if len(lines) != 1 || lines[0] != "When Level Result Target Answer" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}
