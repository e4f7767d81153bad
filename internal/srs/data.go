package srs

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/thebtf/recall/pkg/models"
)

// Data is the aggregate review state persisted as one JSON document.
type Data struct {
	Items              Arena[models.ReviewItem]      `json:"items"`
	Documents          Arena[models.TrackedDocument] `json:"documents"`
	DueQueue           indexQueue                    `json:"dueQueue"`
	RetryQueue         indexQueue                    `json:"retryQueue"`
	LastQueueBuildAt   int64                         `json:"lastQueueBuildAt"`
	NewItemsAddedToday int                           `json:"newItemsAddedToday"`
}

// NewData returns empty aggregate state.
func NewData() *Data {
	return &Data{
		DueQueue:   indexQueue{},
		RetryQueue: indexQueue{},
	}
}

// DecodeData merges the stored fields in raw over the defaults. Empty input and
// JSON null both yield the defaults.
func DecodeData(raw []byte) (*Data, error) {
	d := NewData()
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return d, nil
	}
	if err := json.Unmarshal(trimmed, d); err != nil {
		return nil, fmt.Errorf("decode review data: %w", err)
	}
	if d.DueQueue == nil {
		d.DueQueue = indexQueue{}
	}
	if d.RetryQueue == nil {
		d.RetryQueue = indexQueue{}
	}
	for _, doc := range d.Documents.All() {
		if doc.Items == nil {
			doc.Items = make(map[string]int)
		}
	}
	return d, nil
}

// Encode serializes the aggregate.
func (d *Data) Encode() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode review data: %w", err)
	}
	return data, nil
}

// documentIndex returns the index of the live document with path, or -1.
func (d *Data) documentIndex(path string) int {
	for i, doc := range d.Documents.All() {
		if doc.Path == path {
			return i
		}
	}
	return -1
}

// unqueue removes item i from whichever queue holds it.
func (d *Data) unqueue(i int) {
	d.DueQueue.Remove(i)
	d.RetryQueue.Remove(i)
}

// dropItem removes item i from the queues and tombstones it.
func (d *Data) dropItem(i int) bool {
	d.unqueue(i)
	return d.Items.Tombstone(i)
}

// dropDocument tombstones document di and every item it owns.
// It returns the number of items removed.
func (d *Data) dropDocument(di int) int {
	doc, ok := d.Documents.Get(di)
	if !ok {
		return 0
	}
	removed := 0
	for _, ii := range doc.ItemIndices() {
		if d.dropItem(ii) {
			removed++
		}
	}
	d.Documents.Tombstone(di)
	return removed
}

// repairQueues drops queue entries that point at dead items or repeat an
// earlier entry. An item in both queues stays in the due queue. It returns
// the number of entries dropped.
func (d *Data) repairQueues() int {
	seen := make(map[int]bool)
	dropped := 0
	keep := func(q indexQueue) indexQueue {
		out := indexQueue{}
		for _, i := range q {
			if !d.Items.Live(i) || seen[i] {
				dropped++
				continue
			}
			seen[i] = true
			out = append(out, i)
		}
		return out
	}
	d.DueQueue = keep(d.DueQueue)
	d.RetryQueue = keep(d.RetryQueue)
	return dropped
}

// Validate checks the structural invariants of the aggregate. A non-nil
// error indicates a programming error, not a user error.
func (d *Data) Validate() error {
	var errs []error

	seen := make(map[int]string)
	checkQueue := func(name string, q indexQueue) {
		local := make(map[int]bool, len(q))
		for _, i := range q {
			if !d.Items.Live(i) {
				errs = append(errs, fmt.Errorf("%s references dead item %d", name, i))
			}
			if local[i] {
				errs = append(errs, fmt.Errorf("%s holds item %d twice", name, i))
			}
			local[i] = true
			if other, ok := seen[i]; ok && other != name {
				errs = append(errs, fmt.Errorf("item %d queued in both %s and %s", i, other, name))
			}
			seen[i] = name
		}
	}
	checkQueue("dueQueue", d.DueQueue)
	checkQueue("retryQueue", d.RetryQueue)

	paths := make(map[string]int)
	for di, doc := range d.Documents.All() {
		if prev, ok := paths[doc.Path]; ok {
			errs = append(errs, fmt.Errorf("documents %d and %d share path %q", prev, di, doc.Path))
		}
		paths[doc.Path] = di
		for key, ii := range doc.Items {
			item, ok := d.Items.Get(ii)
			if !ok {
				errs = append(errs, fmt.Errorf("document %d key %q references dead item %d", di, key, ii))
				continue
			}
			if item.DocumentIndex != di {
				errs = append(errs, fmt.Errorf("item %d owned by document %d but claims %d", ii, di, item.DocumentIndex))
			}
		}
	}

	for ii, item := range d.Items.All() {
		doc, ok := d.Documents.Get(item.DocumentIndex)
		if !ok {
			errs = append(errs, fmt.Errorf("item %d orphaned: document %d is dead", ii, item.DocumentIndex))
			continue
		}
		owned := false
		for _, idx := range doc.Items {
			if idx == ii {
				owned = true
				break
			}
		}
		if !owned {
			errs = append(errs, fmt.Errorf("item %d not listed by document %d", ii, item.DocumentIndex))
		}
	}

	return errors.Join(errs...)
}
