package extract

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/recall/pkg/models"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
}

func newTestExtractor(t *testing.T, specs ...Spec) *Extractor {
	t.Helper()
	e, err := New(specs)
	require.NoError(t, err)
	e.newID = sequentialIDs()
	return e
}

func TestExtract_FileItemOnly(t *testing.T) {
	e := newTestExtractor(t)

	out, err := e.Extract("notes/Paris.md", []byte(sampleNote))
	require.NoError(t, err)
	assert.Equal(t, map[string]models.ItemContent{
		models.FileItemKey: {Question: "Paris", Answer: sampleNote},
	}, out.Items)
	assert.Nil(t, out.Content)
}

func TestExtract_Blocks(t *testing.T) {
	e := newTestExtractor(t, Spec{Kind: KindBlocks})

	out, err := e.Extract("a.md", []byte(sampleNote))
	require.NoError(t, err)
	require.Len(t, out.Items, 3)
	assert.Equal(t, models.ItemContent{
		Question: "Capital of France",
		Answer:   "Paris is the capital.\n\n- note",
	}, out.Items["q1"])
	assert.Equal(t, models.ItemContent{Question: "Second", Answer: "Answer line"}, out.Items["id1"])

	require.NotNil(t, out.Content)
	assert.Contains(t, string(out.Content), "## Second ^id1\nAnswer line")
	assert.Contains(t, string(out.Content), "## Unanswered\n", "headings without answers get no id")
}

func TestExtract_GeneratedIDsAreStable(t *testing.T) {
	e := newTestExtractor(t, Spec{Kind: KindBlocks})
	first, err := e.Extract("a.md", []byte(sampleNote))
	require.NoError(t, err)

	second, err := e.Extract("a.md", first.Content)
	require.NoError(t, err)
	assert.Nil(t, second.Content, "no ids left to insert")
	assert.Contains(t, second.Items, "id1")
	assert.Contains(t, second.Items, "q1")
}

func TestExtract_BlocksUntil(t *testing.T) {
	content := "# Q\n\npara\n\n> quote\n\n# Next\n"
	e := newTestExtractor(t, Spec{Kind: KindBlocks, Answer: []string{"heading"}, Until: true})

	out, err := e.Extract("a.md", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, "para\n\n> quote", out.Items["id1"].Answer)
}

func TestExtract_Inline(t *testing.T) {
	content := "What is Go::A language\n\nplain paragraph\n\n- Term::Definition ^t1\n"
	e := newTestExtractor(t, Spec{Kind: KindInline})

	out, err := e.Extract("a.md", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, models.ItemContent{Question: "What is Go", Answer: "A language"}, out.Items["id1"])
	assert.Equal(t, models.ItemContent{Question: "Term", Answer: "Definition"}, out.Items["t1"])
	assert.Len(t, out.Items, 3)
	assert.Equal(t, "What is Go::A language ^id1\n\nplain paragraph\n\n- Term::Definition ^t1\n", string(out.Content))
}

func TestExtract_GeneratedIDsSkipExisting(t *testing.T) {
	content := "q::a\n\nr::b ^id1\n"
	e := newTestExtractor(t, Spec{Kind: KindInline})

	out, err := e.Extract("a.md", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, models.ItemContent{Question: "q", Answer: "a"}, out.Items["id2"])
	assert.Equal(t, models.ItemContent{Question: "r", Answer: "b"}, out.Items["id1"])
	assert.Equal(t, "q::a ^id2\n\nr::b ^id1\n", string(out.Content))
}

func TestExtract_SectionsConsumedInOrder(t *testing.T) {
	content := "# Heading\n\nq::a\n"
	e := newTestExtractor(t, Spec{Kind: KindBlocks}, Spec{Kind: KindInline})

	out, err := e.Extract("a.md", []byte(content))
	require.NoError(t, err)
	assert.Len(t, out.Items, 2, "the paragraph answered the heading and is not offered to the inline selector")
	assert.Equal(t, "q::a", out.Items["id1"].Answer)
}

func TestNew_Errors(t *testing.T) {
	_, err := New([]Spec{{Kind: "magic"}})
	assert.ErrorIs(t, err, ErrUnknownSelector)

	_, err = New([]Spec{{Kind: KindInline, Pattern: "("}})
	assert.Error(t, err)

	_, err = New([]Spec{{Kind: KindInline, Pattern: "^(.+)$"}})
	assert.Error(t, err)
}

func TestSupports(t *testing.T) {
	e := newTestExtractor(t)
	assert.True(t, e.Supports("a/b.md"))
	assert.True(t, e.Supports("a/B.MD"))
	assert.False(t, e.Supports("a/b.png"))
	assert.False(t, e.Supports("md"))
}

func TestNewBlockID(t *testing.T) {
	a, b := NewBlockID(), NewBlockID()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^[0-9a-f]{8}$`, a)
}
