// Package textspan locates a quoted snippet inside the source document it
// was taken from, tolerating the whitespace, width, and case drift that
// specialist output tends to introduce.
package textspan

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/joescharf/prd/internal/models"
)

// minCoverage is the fraction of the normalized quote that the longest
// common run must cover before a fuzzy match is accepted.
const minCoverage = 0.5

// Locate maps quote back into doc and returns the byte range it occupies.
// Matching proceeds in three stages: literal substring search, search over
// a normalized view of both strings, then a longest-common-run fallback.
// The second result is false when no acceptable match exists. Locate is
// pure and never fails on malformed input.
func Locate(doc, quote string) (models.Span, bool) {
	if quote == "" {
		return models.Span{}, false
	}

	if i := strings.Index(doc, quote); i >= 0 {
		return models.Span{StartIndex: i, EndIndex: i + len(quote)}, true
	}

	docView := newView(doc)
	quoteView := newView(quote)
	if quoteView.text == "" {
		return models.Span{}, false
	}

	if b := strings.Index(docView.text, quoteView.text); b >= 0 {
		start := utf8.RuneCountInString(docView.text[:b])
		return docView.span(doc, start, utf8.RuneCountInString(quoteView.text))
	}

	return fuzzyLocate(doc, docView, quoteView)
}

// Normalize returns the normalized form of text: NFKC + NFC folded,
// lowercased, with whitespace removed and combining marks merged into
// their base character.
func Normalize(text string) string {
	return newView(text).text
}

// view pairs a normalized string with a map from each of its runes back
// to the byte offset of the source rune that produced it.
type view struct {
	text    string
	offsets []int
}

func newView(s string) view {
	var runes []rune
	var offsets []int
	for off, r := range s {
		folded := strings.ToLower(norm.NFC.String(norm.NFKC.String(string(r))))
		for _, ch := range folded {
			if unicode.IsSpace(ch) {
				continue
			}
			if unicode.Is(unicode.Mn, ch) {
				// Merge the combining mark into the preceding base
				// character instead of dropping it.
				if len(runes) == 0 {
					continue
				}
				combined := []rune(norm.NFC.String(string(runes[len(runes)-1]) + string(ch)))
				runes[len(runes)-1] = combined[len(combined)-1]
				continue
			}
			runes = append(runes, ch)
			offsets = append(offsets, off)
		}
	}
	return view{text: string(runes), offsets: offsets}
}

// span maps a run of normalized runes back to byte offsets in the source.
func (v view) span(src string, runeStart, runeLen int) (models.Span, bool) {
	if runeLen <= 0 || runeStart < 0 || runeStart+runeLen > len(v.offsets) {
		return models.Span{}, false
	}
	start := v.offsets[runeStart]
	last := v.offsets[runeStart+runeLen-1]
	_, size := utf8.DecodeRuneInString(src[last:])
	if size == 0 {
		return models.Span{}, false
	}
	return models.Span{StartIndex: start, EndIndex: last + size}, true
}

func fuzzyLocate(doc string, docView, quoteView view) (models.Span, bool) {
	docRunes := []rune(docView.text)
	quoteRunes := []rune(quoteView.text)

	start, length := longestCommonRun(docRunes, quoteRunes)
	if length == 0 {
		return models.Span{}, false
	}
	if float64(length)/float64(len(quoteRunes)) < minCoverage {
		return models.Span{}, false
	}
	return docView.span(doc, start, length)
}

// longestCommonRun finds the longest common contiguous run of a and b and
// returns its start in a plus its length. Ties resolve to the earliest
// position in a.
func longestCommonRun(a, b []rune) (aStart, length int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				curr[j] = 0
				continue
			}
			curr[j] = prev[j-1] + 1
			if curr[j] > length {
				length = curr[j]
				aStart = i - curr[j]
			}
		}
		prev, curr = curr, prev
		clear(curr)
	}
	return aStart, length
}
