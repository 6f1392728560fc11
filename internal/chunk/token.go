// Package chunk provides token-length analysis and rechunking for the
// Korean-history corpus.
package chunk

import (
	"unicode"
)

// TokenCounter estimates the token length of a text under the reranker's
// tokenizer. Counting is an estimate; the serving side owns the real
// tokenizer, so the counter only has to be consistent with itself.
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter approximates subword tokenization: each Hangul or CJK
// rune counts as one token, and runs of other non-space characters count
// one token per four runes.
type HeuristicCounter struct{}

// NewHeuristicCounter creates the default counter.
func NewHeuristicCounter() HeuristicCounter {
	return HeuristicCounter{}
}

// Count returns the estimated token length of text.
func (HeuristicCounter) Count(text string) int {
	return len(tokenSpans(text))
}

// span marks a token's byte range within the source text.
type span struct {
	start int
	end   int
}

const wordRunesPerToken = 4

// tokenSpans segments text into estimated tokens, preserving byte offsets
// so hard splits can slice the original text.
func tokenSpans(text string) []span {
	var spans []span

	wordStart := -1
	wordRunes := 0

	flushWord := func(end int) {
		if wordStart < 0 {
			return
		}
		spans = append(spans, span{start: wordStart, end: end})
		wordStart = -1
		wordRunes = 0
	}

	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			flushWord(i)

		case isCJK(r):
			flushWord(i)
			spans = append(spans, span{start: i, end: i + len(string(r))})

		default:
			if wordStart < 0 {
				wordStart = i
			}
			wordRunes++
			if wordRunes == wordRunesPerToken {
				flushWord(i + len(string(r)))
			}
		}
	}
	flushWord(len(text))

	return spans
}

// isCJK reports whether the rune is Hangul, kana or a CJK ideograph, the
// scripts a subword tokenizer treats roughly one rune per token.
func isCJK(r rune) bool {
	switch {
	case r >= 0xAC00 && r <= 0xD7A3: // Hangul syllables
		return true
	case r >= 0x1100 && r <= 0x11FF: // Hangul jamo
		return true
	case r >= 0x3130 && r <= 0x318F: // Hangul compatibility jamo
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
		return true
	case r >= 0x3040 && r <= 0x30FF: // Hiragana and katakana
		return true
	}
	return false
}
