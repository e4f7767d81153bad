package models

// TrackResult reports the item changes caused by tracking or refreshing documents.
type TrackResult struct {
	Path    string `json:"path,omitempty"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
}

// Merge adds another result's counts into r.
func (r *TrackResult) Merge(other TrackResult) {
	r.Added += other.Added
	r.Removed += other.Removed
}

// UntrackedDocument describes a document removed during a queue build
// because its backing file no longer exists.
type UntrackedDocument struct {
	Path  string `json:"path"`
	Items int    `json:"items"`
}

// QueueReport summarises one queue build.
type QueueReport struct {
	Untracked     []UntrackedDocument `json:"untracked,omitempty"`
	NewQueued     int                 `json:"newQueued"`
	DueQueued     int                 `json:"dueQueued"`
	Unverified    int                 `json:"unverified"`
	QueueSize     int                 `json:"queueSize"`
	RetryQueueLen int                 `json:"retryQueueSize"`
}

// Queued returns the total number of items appended to the due queue.
func (r QueueReport) Queued() int {
	return r.NewQueued + r.DueQueued
}

// UntrackedItems returns the number of items removed with auto-untracked documents.
func (r QueueReport) UntrackedItems() int {
	n := 0
	for _, u := range r.Untracked {
		n += u.Items
	}
	return n
}

// Stats is a snapshot of aggregate sizes.
type Stats struct {
	Algorithm      string `json:"algorithm"`
	Items          int    `json:"items"`
	Documents      int    `json:"documents"`
	QueueSize      int    `json:"queueSize"`
	RetryQueueSize int    `json:"retryQueueSize"`
	NewAddedToday  int    `json:"newAddedToday"`
	LastQueueAt    int64  `json:"lastQueueBuildAt"`
	// Degraded is set while stored data is unreadable and saves are refused.
	Degraded bool `json:"degraded,omitempty"`
}

// ReviewResult is the outcome of submitting one review.
type ReviewResult struct {
	NextReviewAt int64 `json:"nextReviewAt"`
	Item         int   `json:"item"`
	Correct      bool  `json:"correct"`
	Retry        bool  `json:"retry"`
}
