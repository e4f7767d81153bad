package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNote = `---
title: x
---
# Capital of France ^q1

Paris is the capital.

- note

## Unanswered
## Second
Answer line
`

func TestParse(t *testing.T) {
	sections := Parse(sampleNote)
	require.Len(t, sections, 7)

	types := make([]SectionType, 0, len(sections))
	for _, s := range sections {
		types = append(types, s.Type)
	}
	assert.Equal(t, []SectionType{
		SectionYAML, SectionHeading, SectionParagraph, SectionList,
		SectionHeading, SectionHeading, SectionParagraph,
	}, types)

	assert.Equal(t, "q1", sections[1].ID)
	assert.Equal(t, "# Capital of France", sections[1].Text(sampleNote))
	assert.Equal(t, "Paris is the capital.", sections[2].Text(sampleNote))
	assert.Empty(t, sections[6].ID)
}

func TestParse_CodeAndQuotes(t *testing.T) {
	content := "> quoted\n> more\n\n```go\nfunc main() {}\n\n```\n***\nline one\nline two\n"
	sections := Parse(content)
	require.Len(t, sections, 4)
	assert.Equal(t, SectionBlockquote, sections[0].Type)
	assert.Equal(t, "> quoted\n> more", sections[0].Text(content))
	assert.Equal(t, SectionCode, sections[1].Type)
	assert.Equal(t, "```go\nfunc main() {}\n\n```", sections[1].Text(content))
	assert.Equal(t, SectionThematicBreak, sections[2].Type)
	assert.Equal(t, SectionParagraph, sections[3].Type)
	assert.Equal(t, "line one\nline two", sections[3].Text(content))
}

func TestParse_UnclosedFence(t *testing.T) {
	content := "```\ncode"
	sections := Parse(content)
	require.Len(t, sections, 1)
	assert.Equal(t, SectionCode, sections[0].Type)
	assert.Equal(t, len(content), sections[0].End)
}

func TestParse_CRLF(t *testing.T) {
	content := "# Title ^abc\r\nbody\r\n"
	sections := Parse(content)
	require.Len(t, sections, 2)
	assert.Equal(t, "abc", sections[0].ID)
	assert.Equal(t, "body", sections[1].Text(content))
}

func TestParse_Empty(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("\n\n"))
}
