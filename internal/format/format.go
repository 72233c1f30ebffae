// Package format groups digit sequences for display and marks answer mismatches.
package format

import "strings"

// ChunkLengths returns the group lengths for a sequence of n characters
// grouped from the right. The first group carries the remainder.
func ChunkLengths(n, size int) []int {
	if n <= 0 {
		return nil
	}
	if size <= 0 || n <= size {
		return []int{n}
	}
	first := n % size
	if first == 0 {
		first = size
	}
	out := []int{first}
	for rest := n - first; rest > 0; rest -= size {
		out = append(out, size)
	}
	return out
}

// Chunk splits seq into groups of size, counted from the right.
func Chunk(seq string, size int) []string {
	runes := []rune(seq)
	lengths := ChunkLengths(len(runes), size)
	out := make([]string, 0, len(lengths))
	pos := 0
	for _, l := range lengths {
		out = append(out, string(runes[pos:pos+l]))
		pos += l
	}
	return out
}

// ChunkDigits groups seq and joins the groups with commas: "1234567" -> "1,234,567".
func ChunkDigits(seq string, size int) string {
	return strings.Join(Chunk(seq, size), ",")
}

// Mark is one displayed character of an answer.
type Mark struct {
	Char     rune
	Mismatch bool
}

// Mismatches compares input with correct position by position. Positions
// missing from the input show a placeholder and are flagged, as are extra
// input characters.
func Mismatches(input, correct string) []Mark {
	in := []rune(input)
	want := []rune(correct)
	n := len(want)
	if len(in) > n {
		n = len(in)
	}
	out := make([]Mark, n)
	for i := 0; i < n; i++ {
		switch {
		case i >= len(in):
			out[i] = Mark{Char: '_', Mismatch: true}
		case i >= len(want):
			out[i] = Mark{Char: in[i], Mismatch: true}
		default:
			out[i] = Mark{Char: in[i], Mismatch: in[i] != want[i]}
		}
	}
	return out
}

// CountMismatches returns the number of flagged marks.
func CountMismatches(marks []Mark) int {
	n := 0
	for _, m := range marks {
		if m.Mismatch {
			n++
		}
	}
	return n
}

// MarkText renders marks as plain text, wrapping flagged characters in brackets.
func MarkText(marks []Mark) string {
	var b strings.Builder
	for _, m := range marks {
		if m.Mismatch {
			b.WriteByte('[')
			b.WriteRune(m.Char)
			b.WriteByte(']')
			continue
		}
		b.WriteRune(m.Char)
	}
	return b.String()
}
