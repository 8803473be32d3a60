// Package text provides script segmentation and normalization for batch
// speech generation.
//
// A script is split into ordered segments, each of which becomes one
// generation request. Segments are lightly normalized so the engine receives
// clean text: collapsed whitespace, standard quotes and dashes, and a proper
// sentence ending.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Regex patterns for segmentation and cleanup.
const (
	paragraphBreakPattern = `\n\s*\n`
	whitespacePattern     = `\s+`
)

// Punctuation normalization tokens.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
)

// SplitFunc divides a script into ordered raw segments. Implementations must
// preserve segment order; empty segments are discarded by the caller.
type SplitFunc func(script string) []string

// Segmenter splits scripts into normalized segments using a configurable
// splitting rule.
type Segmenter struct {
	split             SplitFunc
	whitespaceRegexp  *regexp.Regexp
	punctuationFixups *strings.Replacer
}

// NewSegmenter creates a segmenter with the default blank-line paragraph
// splitting rule.
func NewSegmenter() *Segmenter {
	return NewSegmenterWithSplit(defaultParagraphSplit())
}

// NewSegmenterWithSplit creates a segmenter with a caller-supplied splitting
// rule.
func NewSegmenterWithSplit(split SplitFunc) *Segmenter {
	return &Segmenter{
		split:            split,
		whitespaceRegexp: regexp.MustCompile(whitespacePattern),
		punctuationFixups: strings.NewReplacer(
			emDash, "-",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
		),
	}
}

// Segments splits the script and normalizes every segment. Empty segments
// are dropped; the relative order of the remaining segments is preserved.
func (s *Segmenter) Segments(script string) []string {
	rawSegments := s.split(script)

	segments := make([]string, 0, len(rawSegments))

	for _, raw := range rawSegments {
		normalized := s.Normalize(raw)
		if normalized == "" {
			continue
		}

		segments = append(segments, normalized)
	}

	return segments
}

// Normalize collapses whitespace, standardizes punctuation and ensures the
// segment ends with sentence-ending punctuation.
func (s *Segmenter) Normalize(segment string) string {
	normalized := s.whitespaceRegexp.ReplaceAllString(segment, " ")
	normalized = s.punctuationFixups.Replace(normalized)
	normalized = strings.TrimSpace(normalized)

	return ensureSentenceEnding(normalized)
}

// defaultParagraphSplit returns the blank-line-delimited paragraph rule.
func defaultParagraphSplit() SplitFunc {
	breakRegexp := regexp.MustCompile(paragraphBreakPattern)

	return func(script string) []string {
		return breakRegexp.Split(script, -1)
	}
}

// ensureSentenceEnding appends a period to segments that do not already end
// with sentence-ending punctuation.
func ensureSentenceEnding(segment string) string {
	if segment == "" {
		return ""
	}

	lastRune, _ := utf8.DecodeLastRuneInString(segment)
	if !unicode.IsPunct(lastRune) {
		return segment + "."
	}

	switch lastRune {
	case '.', '!', '?':
		return segment
	default:
		return segment + "."
	}
}
