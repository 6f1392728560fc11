package chunk

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docentsearch/docent-eval/internal/dataset"
)

var (
	spaceRun     = regexp.MustCompile(`[ \t]+`)
	blankLineRun = regexp.MustCompile(`\n{3,}`)
	paragraphSep = regexp.MustCompile(`\n\s*\n`)

	// Sentences end at Western punctuation or the common Korean polite
	// and plain endings.
	sentenceEnd = regexp.MustCompile(`(?s).+?(?:[.!?]|다\.|요\.)`)
)

// Normalize collapses whitespace ahead of unit splitting: CRLF to LF, runs
// of spaces and tabs to one space, three or more newlines to a blank line.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRun.ReplaceAllString(text, " ")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// SplitUnits splits normalized text into sentence units, paragraph by
// paragraph. A paragraph with no recognizable sentence ending stays whole.
func SplitUnits(text string) []string {
	var units []string

	for _, para := range paragraphSep.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		sentences := sentenceEnd.FindAllString(para, -1)
		if len(sentences) == 0 {
			units = append(units, para)
			continue
		}
		for _, s := range sentences {
			if s = strings.TrimSpace(s); s != "" {
				units = append(units, s)
			}
		}
	}

	return units
}

// SplitByTokens hard-splits text into pieces of at most maxTokens estimated
// tokens, slicing on token boundaries of the original text.
func SplitByTokens(text string, maxTokens int) []string {
	spans := tokenSpans(text)
	if len(spans) <= maxTokens {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var pieces []string
	for i := 0; i < len(spans); i += maxTokens {
		end := i + maxTokens
		if end > len(spans) {
			end = len(spans)
		}
		piece := strings.TrimSpace(text[spans[i].start:spans[end-1].end])
		if piece != "" {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}

// RegroupUnits packs sentence units into chunks of at most targetTokens,
// hard-splitting any unit or packed chunk that still exceeds maxTokens.
func RegroupUnits(counter TokenCounter, units []string, targetTokens, maxTokens int) []string {
	var results []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			results = append(results, strings.TrimSpace(strings.Join(current, "\n\n")))
			current = nil
			currentTokens = 0
		}
	}

	for _, unit := range units {
		unitTokens := counter.Count(unit)

		if unitTokens > maxTokens {
			flush()
			results = append(results, SplitByTokens(unit, maxTokens)...)
			continue
		}

		if len(current) > 0 && currentTokens+unitTokens > targetTokens {
			flush()
		}
		current = append(current, unit)
		currentTokens += unitTokens
	}
	flush()

	// Joining units can push a chunk back over the hard limit.
	var final []string
	for _, candidate := range results {
		if counter.Count(candidate) <= maxTokens {
			final = append(final, candidate)
			continue
		}
		final = append(final, SplitByTokens(candidate, maxTokens)...)
	}
	return final
}

// Rechunk splits each over-length chunk into sentence-regrouped children.
// Children are named `<parent>_partNN` and carry the parent's source and
// chunk ID. Chunks that produce no units are dropped.
func Rechunk(counter TokenCounter, chunks []dataset.Chunk, targetTokens, maxTokens int) []dataset.Chunk {
	var out []dataset.Chunk

	for _, c := range chunks {
		units := SplitUnits(Normalize(c.Text))
		if len(units) == 0 {
			continue
		}

		parts := RegroupUnits(counter, units, targetTokens, maxTokens)
		for i, text := range parts {
			out = append(out, dataset.Chunk{
				ChunkID:       fmt.Sprintf("%s_part%02d", c.ChunkID, i+1),
				ParentChunkID: c.ChunkID,
				Source:        c.Source,
				Text:          text,
			})
		}
	}

	return out
}
