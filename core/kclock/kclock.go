// Package kclock defines the Clock and Random collaborators the kernel
// injects everywhere wall-clock time or randomness is observed, so tests
// can supply deterministic stand-ins (spec §6).
package kclock

import (
	"math/rand"
	"time"
)

// Clock abstracts wall-clock time.
type Clock interface {
	Now() time.Time
}

// Random abstracts uniform draws in [0,1) and integer draws. The kernel's
// Config carries one, but no kernel component draws from it: attention
// ties, PID allocation and scheduler tie-breaking are all deterministic.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// System is the default Clock, backed by time.Now.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time { return time.Now() }

// MathRandom is the default Random, backed by math/rand.
type MathRandom struct {
	src *rand.Rand
}

// NewMathRandom constructs a MathRandom seeded from seed.
func NewMathRandom(seed int64) *MathRandom {
	return &MathRandom{src: rand.New(rand.NewSource(seed))}
}

// Float64 implements Random.
func (m *MathRandom) Float64() float64 { return m.src.Float64() }

// Intn implements Random.
func (m *MathRandom) Intn(n int) int { return m.src.Intn(n) }
