package extract

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/thebtf/recall/pkg/models"
)

// ErrUnknownSelector is returned for a selector spec with an unknown kind.
var ErrUnknownSelector = errors.New("extract: unknown selector")

// Selector kinds accepted in Spec.Kind.
const (
	KindBlocks = "blocks"
	KindInline = "inline"
)

// Spec configures one selector.
type Spec struct {
	Kind     string   `json:"kind" yaml:"kind"`
	Question []string `json:"question,omitempty" yaml:"question,omitempty"`
	Answer   []string `json:"answer,omitempty" yaml:"answer,omitempty"`
	Until    bool     `json:"until,omitempty" yaml:"until,omitempty"`
	Pattern  string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Types    []string `json:"types,omitempty" yaml:"types,omitempty"`
}

// Extractor runs the configured selectors over markdown documents. The
// whole-file item is always produced.
type Extractor struct {
	selectors  []Selector
	extensions []string
	newID      func() string
}

// New builds an extractor from selector specs, applied in order.
func New(specs []Spec) (*Extractor, error) {
	e := &Extractor{
		extensions: []string{".md"},
		newID:      NewBlockID,
	}
	for i, spec := range specs {
		sel, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("selector %d: %w", i, err)
		}
		e.selectors = append(e.selectors, sel)
	}
	return e, nil
}

func (s Spec) build() (Selector, error) {
	switch strings.ToLower(s.Kind) {
	case KindBlocks:
		b := NewBlockSelector()
		if len(s.Question) > 0 {
			b.Question = toTypes(s.Question)
		}
		if len(s.Answer) > 0 {
			b.Answer = toTypes(s.Answer)
		}
		b.Until = s.Until
		return b, nil
	case KindInline:
		return NewInlineSelector(s.Pattern, toTypes(s.Types))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelector, s.Kind)
	}
}

func toTypes(names []string) []SectionType {
	out := make([]SectionType, 0, len(names))
	for _, n := range names {
		out = append(out, SectionType(n))
	}
	return out
}

// NewBlockID returns a fresh block id.
func NewBlockID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Supports reports whether path has a markdown extension.
func (e *Extractor) Supports(p string) bool {
	return slices.Contains(e.extensions, strings.ToLower(path.Ext(p)))
}

// Extract returns the items of one document. When selectors had to generate
// block ids, Content holds the document with the ids inserted.
func (e *Extractor) Extract(p string, content []byte) (models.Extraction, error) {
	text := string(content)
	items := map[string]models.ItemContent{
		models.FileItemKey: {
			Question: strings.TrimSuffix(path.Base(p), path.Ext(p)),
			Answer:   text,
		},
	}

	sections := Parse(text)
	newID := e.uniqueID(sections)
	var inserts []Insertion
	for _, sel := range e.selectors {
		found, used := sel.Select(sections, text, newID, &inserts)
		for k, v := range found {
			if k == models.FileItemKey {
				continue
			}
			items[k] = v
		}
		sections = removeSections(sections, used)
	}

	out := models.Extraction{Items: items}
	if len(inserts) > 0 {
		out.Content = []byte(applyInsertions(text, inserts))
	}
	return out, nil
}

// uniqueID wraps newID so generated ids never repeat an id already in the document.
func (e *Extractor) uniqueID(sections []Section) func() string {
	taken := make(map[string]bool)
	for _, s := range sections {
		if s.ID != "" {
			taken[s.ID] = true
		}
	}
	return func() string {
		for {
			id := e.newID()
			if !taken[id] {
				taken[id] = true
				return id
			}
		}
	}
}

func removeSections(sections []Section, used []int) []Section {
	if len(used) == 0 {
		return sections
	}
	drop := make(map[int]bool, len(used))
	for _, i := range used {
		drop[i] = true
	}
	kept := make([]Section, 0, len(sections)-len(drop))
	for i, s := range sections {
		if !drop[i] {
			kept = append(kept, s)
		}
	}
	return kept
}

// applyInsertions writes " ^id" markers at the insertion offsets.
func applyInsertions(content string, inserts []Insertion) string {
	sorted := slices.Clone(inserts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset > sorted[j].Offset })
	for _, ins := range sorted {
		content = content[:ins.Offset] + " ^" + ins.ID + content[ins.Offset:]
	}
	return content
}
