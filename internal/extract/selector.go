package extract

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/thebtf/recall/pkg/models"
)

// Insertion is a generated block id to be written after a section.
type Insertion struct {
	ID     string
	Offset int
}

// Selector extracts items from the sections not yet claimed by an earlier selector.
type Selector interface {
	// Select returns items keyed by block id and the positions (indices into
	// sections) of every section it used.
	Select(sections []Section, content string, newID func() string, inserts *[]Insertion) (map[string]models.ItemContent, []int)
}

// BlockSelector pairs a question section with the answer sections that follow it.
type BlockSelector struct {
	Question []SectionType
	Answer   []SectionType
	// Until inverts the answer test: answer sections run until one of the
	// Answer types is met.
	Until bool
}

// NewBlockSelector returns a selector for headings answered by paragraphs,
// lists or code.
func NewBlockSelector() *BlockSelector {
	return &BlockSelector{
		Question: []SectionType{SectionHeading},
		Answer:   []SectionType{SectionParagraph, SectionList, SectionCode},
	}
}

func (b *BlockSelector) Select(sections []Section, content string, newID func() string, inserts *[]Insertion) (map[string]models.ItemContent, []int) {
	items := make(map[string]models.ItemContent)
	var used []int

	for i := 0; i < len(sections); i++ {
		q := sections[i]
		if len(b.Question) > 0 && !slices.Contains(b.Question, q.Type) {
			continue
		}
		j := i + 1
		for j < len(sections) {
			contains := slices.Contains(b.Answer, sections[j].Type)
			if contains == b.Until {
				break
			}
			j++
		}
		if j == i+1 {
			continue
		}

		answer := content[sections[i+1].Start:sections[j-1].End]
		id := q.ID
		if id == "" {
			id = newID()
			*inserts = append(*inserts, Insertion{ID: id, Offset: q.End})
		}
		items[id] = models.ItemContent{
			Question: stripHeading(q.Text(content)),
			Answer:   strings.TrimSpace(blockIDPattern.ReplaceAllString(answer, "")),
		}
		for k := i; k < j; k++ {
			used = append(used, k)
		}
		i = j - 1
	}
	return items, used
}

// DefaultInlinePattern matches "question::answer".
const DefaultInlinePattern = `^(.+?)::(.+)$`

// InlineSelector extracts at most one item per section from a regexp with
// two capture groups: question then answer.
type InlineSelector struct {
	Pattern *regexp.Regexp
	Types   []SectionType
}

// NewInlineSelector compiles pattern, which must have two capture groups.
// Empty types means paragraphs and list sections.
func NewInlineSelector(pattern string, types []SectionType) (*InlineSelector, error) {
	if pattern == "" {
		pattern = DefaultInlinePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile inline pattern: %w", err)
	}
	if re.NumSubexp() < 2 {
		return nil, fmt.Errorf("inline pattern %q: need two capture groups", pattern)
	}
	if len(types) == 0 {
		types = []SectionType{SectionParagraph, SectionList}
	}
	return &InlineSelector{Pattern: re, Types: types}, nil
}

func (s *InlineSelector) Select(sections []Section, content string, newID func() string, inserts *[]Insertion) (map[string]models.ItemContent, []int) {
	items := make(map[string]models.ItemContent)
	var used []int

	for i, sec := range sections {
		if !slices.Contains(s.Types, sec.Type) {
			continue
		}
		m := s.Pattern.FindStringSubmatch(sec.Text(content))
		if m == nil {
			continue
		}
		id := sec.ID
		if id == "" {
			id = newID()
			*inserts = append(*inserts, Insertion{ID: id, Offset: sec.End})
		}
		items[id] = models.ItemContent{
			Question: strings.TrimSpace(listPattern.ReplaceAllString(m[1], "")),
			Answer:   strings.TrimSpace(m[2]),
		}
		used = append(used, i)
	}
	return items, used
}

func stripHeading(text string) string {
	return strings.TrimSpace(strings.TrimLeft(text, "#"))
}
