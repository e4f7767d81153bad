package srs

import "slices"

// indexQueue is an ordered list of item indices, each present at most once.
type indexQueue []int

func (q indexQueue) Contains(i int) bool {
	return slices.Contains(q, i)
}

// Push appends i unless it is already queued. It reports whether i was appended.
func (q *indexQueue) Push(i int) bool {
	if q.Contains(i) {
		return false
	}
	*q = append(*q, i)
	return true
}

// Remove deletes i, preserving the order of the rest. It reports whether i was present.
func (q *indexQueue) Remove(i int) bool {
	pos := slices.Index(*q, i)
	if pos < 0 {
		return false
	}
	*q = slices.Delete(*q, pos, pos+1)
	return true
}

// Head returns the first index.
func (q indexQueue) Head() (int, bool) {
	if len(q) == 0 {
		return -1, false
	}
	return q[0], true
}
