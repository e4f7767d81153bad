package models

import "sort"

// FileItemKey is the item key every tracked document yields for itself.
const FileItemKey = "file"

// TrackedDocument is one tracked source document and the items it owns.
type TrackedDocument struct {
	Items map[string]int `json:"itemsByKey"` // item key -> item index
	Path  string         `json:"path"`
}

// NewTrackedDocument returns a document with no items yet.
func NewTrackedDocument(path string) *TrackedDocument {
	return &TrackedDocument{
		Path:  path,
		Items: make(map[string]int),
	}
}

// Keys returns the document's item keys in sorted order.
func (d *TrackedDocument) Keys() []string {
	keys := make([]string, 0, len(d.Items))
	for k := range d.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ItemIndices returns the owned item indices in key order.
func (d *TrackedDocument) ItemIndices() []int {
	keys := d.Keys()
	out := make([]int, 0, len(keys))
	for _, k := range keys {
		out = append(out, d.Items[k])
	}
	return out
}

// ItemContent is the question/answer text extracted for one item key.
type ItemContent struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Extraction is the result of running the item selectors over one document.
type Extraction struct {
	Items map[string]ItemContent `json:"items"`
	// Content is the document rewritten with generated block ids, or nil when
	// no ids had to be inserted.
	Content []byte `json:"-"`
}
