package srs

import (
	"iter"

	json "github.com/goccy/go-json"
)

// Arena is an append-only collection whose indices are permanent identities.
// Removed entries leave a tombstone (a nil slot) that is never reused.
type Arena[T any] struct {
	slots []*T
}

// Alloc appends v and returns its index.
func (a *Arena[T]) Alloc(v *T) int {
	a.slots = append(a.slots, v)
	return len(a.slots) - 1
}

// Get returns the live entry at i.
func (a *Arena[T]) Get(i int) (*T, bool) {
	if i < 0 || i >= len(a.slots) || a.slots[i] == nil {
		return nil, false
	}
	return a.slots[i], true
}

// Live reports whether i refers to a live entry.
func (a *Arena[T]) Live(i int) bool {
	_, ok := a.Get(i)
	return ok
}

// Tombstone marks the entry at i absent. It reports whether a live entry was removed.
func (a *Arena[T]) Tombstone(i int) bool {
	if !a.Live(i) {
		return false
	}
	a.slots[i] = nil
	return true
}

// Len returns the number of slots, tombstones included.
func (a *Arena[T]) Len() int {
	return len(a.slots)
}

// LiveCount returns the number of live entries.
func (a *Arena[T]) LiveCount() int {
	n := 0
	for _, v := range a.slots {
		if v != nil {
			n++
		}
	}
	return n
}

// All iterates live entries in index order.
func (a *Arena[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i, v := range a.slots {
			if v == nil {
				continue
			}
			if !yield(i, v) {
				return
			}
		}
	}
}

// MarshalJSON encodes the arena as an array with null tombstones.
func (a Arena[T]) MarshalJSON() ([]byte, error) {
	if a.slots == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.slots)
}

// UnmarshalJSON decodes an array with null tombstones.
func (a *Arena[T]) UnmarshalJSON(data []byte) error {
	var slots []*T
	if err := json.Unmarshal(data, &slots); err != nil {
		return err
	}
	a.slots = slots
	return nil
}
