// Package text_test tests script segmentation and normalization.
package text_test

import (
	"strings"
	"testing"

	"github.com/book-expert/voice-studio/internal/text"
	"github.com/stretchr/testify/assert"
)

func TestSegmenter_Segments_ParagraphSplit(t *testing.T) {
	t.Parallel()

	script := "First paragraph line one.\nStill first paragraph.\n\n" +
		"Second paragraph!\n\n\n   \nThird paragraph"

	segmenter := text.NewSegmenter()
	segments := segmenter.Segments(script)

	assert.Equal(t, []string{
		"First paragraph line one. Still first paragraph.",
		"Second paragraph!",
		"Third paragraph.",
	}, segments)
}

func TestSegmenter_Segments_EmptyScript(t *testing.T) {
	t.Parallel()

	segmenter := text.NewSegmenter()

	assert.Empty(t, segmenter.Segments(""))
	assert.Empty(t, segmenter.Segments("   \n\n  \n"))
}

func TestSegmenter_Normalize_Punctuation(t *testing.T) {
	t.Parallel()

	segmenter := text.NewSegmenter()

	assert.Equal(
		t,
		`He said "wait" - then left.`,
		segmenter.Normalize("He said “wait” — then left."),
	)
	assert.Equal(t, "No ending.", segmenter.Normalize("No ending"))
	assert.Equal(t, "Question?", segmenter.Normalize("Question?"))
}

func TestSegmenter_CustomSplit(t *testing.T) {
	t.Parallel()

	perLine := func(script string) []string {
		return strings.Split(script, "\n")
	}

	segmenter := text.NewSegmenterWithSplit(perLine)
	segments := segmenter.Segments("one\ntwo\n\nthree")

	assert.Equal(t, []string{"one.", "two.", "three."}, segments)
}
