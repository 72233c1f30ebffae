// Package generator builds random digit sequences.
package generator

import (
	"math/rand"
	"time"
)

// Generator produces random digit sequences.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Digits returns n independent, uniformly drawn digits.
// Leading zeros are kept; the result is a character sequence, not a number.
func (g *Generator) Digits(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = byte('0' + g.rnd.Intn(10))
	}
	return string(out)
}
