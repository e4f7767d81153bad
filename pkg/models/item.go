// Package models contains domain models for recall.
package models

import "time"

// NeverScheduled is the NextReviewAt sentinel for items that have never been queued.
const NeverScheduled int64 = 0

// ReviewItem is one schedulable question/answer unit derived from a tracked document.
type ReviewItem struct {
	AlgorithmState AlgorithmState `json:"algorithmState"`
	NextReviewAt   int64          `json:"nextReviewAt"` // epoch millis, 0 = new
	DocumentIndex  int            `json:"ownerDocumentIndex"`
	TimesReviewed  int            `json:"timesReviewed"`
	TimesCorrect   int            `json:"timesCorrect"`
	ErrorStreak    int            `json:"errorStreak"`
}

// NewReviewItem returns a never-scheduled item owned by the given document.
func NewReviewItem(documentIndex int, state AlgorithmState) *ReviewItem {
	return &ReviewItem{
		AlgorithmState: state.Clone(),
		NextReviewAt:   NeverScheduled,
		DocumentIndex:  documentIndex,
	}
}

// IsNew reports whether the item has never been admitted to a queue.
func (i *ReviewItem) IsNew() bool {
	return i.NextReviewAt == NeverScheduled
}

// IsDue reports whether the item's scheduled review time has arrived.
func (i *ReviewItem) IsDue(now time.Time) bool {
	return !i.IsNew() && i.NextReviewAt <= now.UnixMilli()
}

// DueIn returns the time remaining until the item is due; negative when overdue.
func (i *ReviewItem) DueIn(now time.Time) time.Duration {
	return time.UnixMilli(i.NextReviewAt).Sub(now)
}

// AlgorithmState is per-item scheduling state owned by the active algorithm.
// It is kept as raw JSON and only decoded by the algorithm that wrote it.
type AlgorithmState []byte

// MarshalJSON implements json.Marshaler.
func (s AlgorithmState) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("{}"), nil
	}
	return s, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *AlgorithmState) UnmarshalJSON(data []byte) error {
	*s = append((*s)[:0], data...)
	return nil
}

// Clone returns an independent copy of the state bytes.
func (s AlgorithmState) Clone() AlgorithmState {
	if s == nil {
		return nil
	}
	out := make(AlgorithmState, len(s))
	copy(out, s)
	return out
}

// IsEmpty reports whether no algorithm has written state yet.
func (s AlgorithmState) IsEmpty() bool {
	switch string(s) {
	case "", "null", "{}":
		return true
	}
	return false
}
