package chunk

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/docentsearch/docent-eval/internal/dataset"
)

// Stats summarizes a token length distribution.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// OverLimitStats summarizes the chunks above the token limit.
type OverLimitStats struct {
	Count int     `json:"count"`
	Ratio float64 `json:"ratio"`
	Mean  float64 `json:"mean"`
	Max   int     `json:"max"`
}

// Offender is an over-limit chunk.
type Offender struct {
	ChunkID     string `json:"chunk_id"`
	TokenLength int    `json:"token_length"`
	Preview     string `json:"preview"`
}

// Analysis is the full token-length report for a corpus.
type Analysis struct {
	MaxTokens    int            `json:"max_tokens"`
	Stats        Stats          `json:"stats"`
	OverLimit    OverLimitStats `json:"over_limit"`
	Buckets      map[string]int `json:"buckets"`
	Offenders    []Offender     `json:"offenders"`
	PrefixCounts map[string]int `json:"prefix_counts"`
}

const previewRunes = 80

// Percentile computes the p-th percentile of sorted lengths using linear
// interpolation.
func Percentile(sorted []int, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return float64(sorted[0])
	}
	if p >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	k := float64(len(sorted)-1) * (p / 100)
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return float64(sorted[int(k)])
	}
	return float64(sorted[int(f)])*(c-k) + float64(sorted[int(c)])*(k-f)
}

// SummarizeLengths computes distribution statistics over token lengths.
func SummarizeLengths(lengths []int) Stats {
	if len(lengths) == 0 {
		return Stats{}
	}

	sorted := make([]int, len(lengths))
	copy(sorted, lengths)
	sort.Ints(sorted)

	sum := 0
	for _, l := range sorted {
		sum += l
	}

	return Stats{
		Count:  len(sorted),
		Min:    float64(sorted[0]),
		Mean:   float64(sum) / float64(len(sorted)),
		Median: Percentile(sorted, 50),
		P75:    Percentile(sorted, 75),
		P90:    Percentile(sorted, 90),
		P95:    Percentile(sorted, 95),
		Max:    float64(sorted[len(sorted)-1]),
	}
}

// Analyze measures every chunk and reports the length distribution, the
// over-limit population and its worst offenders.
func Analyze(counter TokenCounter, chunks []dataset.Chunk, maxTokens, topN int) Analysis {
	analysis := Analysis{
		MaxTokens:    maxTokens,
		Buckets:      make(map[string]int),
		PrefixCounts: make(map[string]int),
	}

	lengths := make([]int, 0, len(chunks))
	var overLengths []int
	var offenders []Offender

	for _, c := range chunks {
		tokenLen := counter.Count(c.Text)
		lengths = append(lengths, tokenLen)

		bucket := (tokenLen / 100) * 100
		analysis.Buckets[fmt.Sprintf("%04d-%04d", bucket, bucket+99)]++

		if tokenLen <= maxTokens {
			continue
		}
		overLengths = append(overLengths, tokenLen)
		offenders = append(offenders, Offender{
			ChunkID:     c.ChunkID,
			TokenLength: tokenLen,
			Preview:     preview(c.Text),
		})
		analysis.PrefixCounts[chunkPrefix(c.ChunkID)]++
	}

	analysis.Stats = SummarizeLengths(lengths)

	if len(overLengths) > 0 {
		sum, max := 0, 0
		for _, l := range overLengths {
			sum += l
			if l > max {
				max = l
			}
		}
		analysis.OverLimit = OverLimitStats{
			Count: len(overLengths),
			Ratio: float64(len(overLengths)) / float64(len(lengths)),
			Mean:  float64(sum) / float64(len(overLengths)),
			Max:   max,
		}
	}

	sort.SliceStable(offenders, func(i, j int) bool {
		return offenders[i].TokenLength > offenders[j].TokenLength
	})
	if topN > 0 && len(offenders) > topN {
		offenders = offenders[:topN]
	}
	analysis.Offenders = offenders

	return analysis
}

// chunkPrefix extracts the corpus series prefix from a chunk ID.
func chunkPrefix(chunkID string) string {
	if idx := strings.Index(chunkID, "_"); idx > 0 {
		return chunkID[:idx]
	}
	return chunkID
}

func preview(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) > previewRunes {
		runes = runes[:previewRunes]
	}
	return string(runes)
}

// Markdown renders the analysis as a report document.
func (a Analysis) Markdown() string {
	var b strings.Builder

	b.WriteString("# Chunk Token Length Report\n\n")
	fmt.Fprintf(&b, "- Total chunks: %d\n", a.Stats.Count)
	fmt.Fprintf(&b, "- Mean tokens: %.2f\n", a.Stats.Mean)
	fmt.Fprintf(&b, "- Median tokens: %.2f\n", a.Stats.Median)

	b.WriteString("\n## Distribution (tokens)\n\n")
	b.WriteString("| metric | value |\n| --- | --- |\n")
	fmt.Fprintf(&b, "| min | %.0f |\n", a.Stats.Min)
	fmt.Fprintf(&b, "| p75 | %.0f |\n", a.Stats.P75)
	fmt.Fprintf(&b, "| p90 | %.0f |\n", a.Stats.P90)
	fmt.Fprintf(&b, "| p95 | %.0f |\n", a.Stats.P95)
	fmt.Fprintf(&b, "| max | %.0f |\n", a.Stats.Max)

	b.WriteString("\n## Over-limit Chunks\n\n")
	fmt.Fprintf(&b, "- Limit: %d tokens\n", a.MaxTokens)
	fmt.Fprintf(&b, "- Over limit: %d (%.2f%% of total)\n", a.OverLimit.Count, a.OverLimit.Ratio*100)
	fmt.Fprintf(&b, "- Mean length over limit: %.2f\n", a.OverLimit.Mean)
	fmt.Fprintf(&b, "- Max length: %d\n", a.OverLimit.Max)

	if len(a.Offenders) > 0 {
		b.WriteString("\n## Top Offenders\n\n")
		b.WriteString("| rank | chunk_id | tokens | first 80 chars |\n| --- | --- | --- | --- |\n")
		for i, o := range a.Offenders {
			fmt.Fprintf(&b, "| %d | `%s` | %d | %s |\n", i+1, o.ChunkID, o.TokenLength, o.Preview)
		}
	}

	if len(a.Buckets) > 0 {
		b.WriteString("\n## Token Length Buckets (100 tokens)\n\n")
		b.WriteString("| bucket | chunks |\n| --- | --- |\n")
		buckets := make([]string, 0, len(a.Buckets))
		for bucket := range a.Buckets {
			buckets = append(buckets, bucket)
		}
		sort.Strings(buckets)
		for _, bucket := range buckets {
			fmt.Fprintf(&b, "| %s | %d |\n", bucket, a.Buckets[bucket])
		}
	}

	if len(a.PrefixCounts) > 0 {
		b.WriteString("\n## Over-limit Chunks by Prefix\n\n")
		b.WriteString("| prefix | chunks |\n| --- | --- |\n")
		type prefixCount struct {
			prefix string
			count  int
		}
		counts := make([]prefixCount, 0, len(a.PrefixCounts))
		for p, c := range a.PrefixCounts {
			counts = append(counts, prefixCount{p, c})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count != counts[j].count {
				return counts[i].count > counts[j].count
			}
			return counts[i].prefix < counts[j].prefix
		})
		for _, pc := range counts {
			fmt.Fprintf(&b, "| %s | %d |\n", pc.prefix, pc.count)
		}
	}

	return b.String()
}
