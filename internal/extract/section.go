// Package extract parses markdown documents into sections and runs item
// selectors over them to produce review items.
package extract

import (
	"regexp"
	"strings"
)

// SectionType is the markdown block kind of a section.
type SectionType string

const (
	SectionParagraph     SectionType = "paragraph"
	SectionHeading       SectionType = "heading"
	SectionYAML          SectionType = "yaml"
	SectionThematicBreak SectionType = "thematicBreak"
	SectionList          SectionType = "list"
	SectionBlockquote    SectionType = "blockquote"
	SectionCode          SectionType = "code"
)

// Section is one top-level markdown block. Start and End are byte offsets
// into the content; End excludes the trailing newline.
type Section struct {
	Type  SectionType
	Start int
	End   int
	// ID is the block id from a trailing "^id" marker, empty when absent.
	ID string
}

// Text returns the section's content without its block id marker.
func (s Section) Text(content string) string {
	text := content[s.Start:s.End]
	if s.ID != "" {
		text = blockIDPattern.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

var (
	blockIDPattern = regexp.MustCompile(`\s+\^([A-Za-z0-9-]+)\s*$`)
	headingPattern = regexp.MustCompile(`^#{1,6}(\s|$)`)
	listPattern    = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s`)
)

type line struct {
	text  string
	start int
	end   int
}

func splitLines(content string) []line {
	var lines []line
	offset := 0
	for offset <= len(content) {
		idx := strings.IndexByte(content[offset:], '\n')
		if idx < 0 {
			if offset < len(content) {
				lines = append(lines, line{text: content[offset:], start: offset, end: len(content)})
			}
			break
		}
		end := offset + idx
		text := strings.TrimSuffix(content[offset:end], "\r")
		lines = append(lines, line{text: text, start: offset, end: offset + len(text)})
		offset = end + 1
	}
	return lines
}

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func isThematicBreak(trimmed string) bool {
	return trimmed == "---" || trimmed == "***" || trimmed == "___"
}

// Parse splits markdown content into top-level sections. Frontmatter is a
// yaml section; fenced code is one code section; headings and thematic
// breaks are single-line sections; contiguous list, blockquote and paragraph
// lines form one section each.
func Parse(content string) []Section {
	lines := splitLines(content)
	var sections []Section

	emit := func(t SectionType, from, to int) {
		s := Section{Type: t, Start: lines[from].start, End: lines[to].end}
		if m := blockIDPattern.FindStringSubmatch(lines[to].text); m != nil && t != SectionCode && t != SectionYAML {
			s.ID = m[1]
		}
		sections = append(sections, s)
	}

	i := 0
	if len(lines) > 0 && strings.TrimSpace(lines[0].text) == "---" {
		for j := 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j].text) == "---" {
				emit(SectionYAML, 0, j)
				i = j + 1
				break
			}
		}
	}

	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i].text)
		switch {
		case trimmed == "":
			i++

		case isFence(trimmed):
			fence := trimmed[:3]
			j := i + 1
			for j < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[j].text), fence) {
				j++
			}
			if j == len(lines) {
				j--
			}
			emit(SectionCode, i, j)
			i = j + 1

		case headingPattern.MatchString(trimmed):
			emit(SectionHeading, i, i)
			i++

		case isThematicBreak(trimmed):
			emit(SectionThematicBreak, i, i)
			i++

		default:
			t := SectionParagraph
			if listPattern.MatchString(lines[i].text) {
				t = SectionList
			} else if strings.HasPrefix(trimmed, ">") {
				t = SectionBlockquote
			}
			j := i
			for j+1 < len(lines) && continues(t, lines[j+1].text) {
				j++
			}
			emit(t, i, j)
			i = j + 1
		}
	}
	return sections
}

// continues reports whether next belongs to the running section of type t.
func continues(t SectionType, next string) bool {
	trimmed := strings.TrimSpace(next)
	if trimmed == "" || isFence(trimmed) || headingPattern.MatchString(trimmed) || isThematicBreak(trimmed) {
		return false
	}
	switch t {
	case SectionBlockquote:
		return strings.HasPrefix(trimmed, ">")
	case SectionParagraph:
		return !listPattern.MatchString(next) && !strings.HasPrefix(trimmed, ">")
	}
	return true
}
