package scheduler

import (
	"github.com/echokernel/cogkernel/core/process"
	"github.com/emirpasic/gods/v2/trees/binaryheap"
)

// Policy selects how Scheduler.Dequeue/Schedule pick the next process
// from the ready queue (spec §4.4).
type Policy int

const (
	RoundRobin Policy = iota
	PriorityPolicy
	ConsciousnessAware
)

// consciousnessWeight is the multiplier table from spec §4.4.
var consciousnessWeight = map[int]float64{0: 1.0, 1: 1.5, 2: 2.0, 3: 3.0}

// score implements the consciousness-aware scoring function, spec §4.4:
// base = (10-priority)*10, multiplied successively by consciousness
// weight, arousal boost, attention-focus boost, and starvation boost.
func score(p *process.Process, waitSeconds float64) float64 {
	s := float64(10-p.Priority) * 10

	w, ok := consciousnessWeight[p.ConsciousnessLevel]
	if !ok {
		w = 1.0
	}
	s *= w

	s *= 1 + 0.5*p.Emotion.Arousal

	if p.Focus.Set {
		s *= 1.3
	}

	if waitSeconds > 10 {
		s *= 1 + waitSeconds/100
	}

	return s
}

// rankedEntry is one candidate considered by a ready-queue selection pass.
type rankedEntry struct {
	seq   int64
	value float64 // priority (ascending-wins) or negative score (max-wins)
}

// selectByPriority picks the index of the ready-queue entry with the
// lowest priority number, stable with respect to insertion order. Backed
// by a binary heap (github.com/emirpasic/gods/v2) keyed on
// (priority, insertion sequence) so ties resolve to the earliest-enqueued
// entry without relying on heap-internal stability.
func selectByPriority(candidates []rankedEntry) int {
	type keyed struct {
		idx   int
		entry rankedEntry
	}
	h := binaryheap.NewWith(func(a, b keyed) int {
		if a.entry.value != b.entry.value {
			if a.entry.value < b.entry.value {
				return -1
			}
			return 1
		}
		if a.entry.seq == b.entry.seq {
			return 0
		}
		if a.entry.seq < b.entry.seq {
			return -1
		}
		return 1
	})
	for i, c := range candidates {
		h.Push(keyed{idx: i, entry: c})
	}
	top, ok := h.Pop()
	if !ok {
		return -1
	}
	return top.idx
}

// selectByScore picks the index of the highest-scoring candidate, ties
// broken by the smallest sequence number (oldest wait / earliest
// enqueued), using the same heap machinery as selectByPriority but with
// value negated so "highest score first" becomes "smallest value first".
func selectByScore(candidates []rankedEntry) int {
	negated := make([]rankedEntry, len(candidates))
	for i, c := range candidates {
		negated[i] = rankedEntry{seq: c.seq, value: -c.value}
	}
	return selectByPriority(negated)
}
