// Package evaluation computes retrieval-quality metrics over ranked
// candidate lists and aggregates them across a question set.
package evaluation

import (
	"math"
	"sort"
)

// Relevances maps a ranked candidate ID list to binary relevance labels
// against the gold set.
func Relevances(ids []string, gold map[string]struct{}) []int {
	relevances := make([]int, len(ids))
	for i, id := range ids {
		if _, ok := gold[id]; ok {
			relevances[i] = 1
		}
	}
	return relevances
}

// HitAtK returns 1 if any of the top K positions is relevant, else 0.
func HitAtK(relevances []int, k int) float64 {
	if k > len(relevances) {
		k = len(relevances)
	}
	for i := 0; i < k; i++ {
		if relevances[i] > 0 {
			return 1
		}
	}
	return 0
}

// MRR returns the reciprocal rank of the first relevant position.
func MRR(relevances []int) float64 {
	for i, r := range relevances {
		if r > 0 {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// NDCG calculates Normalized Discounted Cumulative Gain at K. The ideal
// ordering places the relevant items retrieved within the list first, so a
// ranking that fronts every hit scores 1.0.
func NDCG(relevances []int, k int) float64 {
	if k > len(relevances) {
		k = len(relevances)
	}
	if k == 0 {
		return 0
	}

	dcg := float64(relevances[0])
	for i := 1; i < k; i++ {
		dcg += float64(relevances[i]) / math.Log2(float64(i+2))
	}

	sorted := make([]int, len(relevances))
	copy(sorted, relevances)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	idcg := float64(sorted[0])
	for i := 1; i < k; i++ {
		idcg += float64(sorted[i]) / math.Log2(float64(i+2))
	}

	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// Recall calculates Recall at K against the gold set size.
func Recall(relevances []int, k, goldSize int) float64 {
	if goldSize == 0 {
		return 0
	}
	if k > len(relevances) {
		k = len(relevances)
	}

	relevantInK := 0
	for i := 0; i < k; i++ {
		if relevances[i] > 0 {
			relevantInK++
		}
	}

	return float64(relevantInK) / float64(goldSize)
}

// Precision calculates Precision at K.
func Precision(relevances []int, k int) float64 {
	if k > len(relevances) {
		k = len(relevances)
	}
	if k == 0 {
		return 0
	}

	relevant := 0
	for i := 0; i < k; i++ {
		if relevances[i] > 0 {
			relevant++
		}
	}

	return float64(relevant) / float64(k)
}

// AveragePrecision calculates Average Precision over the full list.
func AveragePrecision(relevances []int) float64 {
	relevant := 0
	sumPrecision := 0.0

	for i, r := range relevances {
		if r > 0 {
			relevant++
			sumPrecision += float64(relevant) / float64(i+1)
		}
	}

	if relevant == 0 {
		return 0
	}
	return sumPrecision / float64(relevant)
}

// Compute bundles the per-ranking metrics at cutoff k. The ranking is
// truncated to k first, so hits below the cutoff do not contribute to any
// metric.
func Compute(ids []string, gold map[string]struct{}, k int) Metrics {
	if k > 0 && k < len(ids) {
		ids = ids[:k]
	}
	relevances := Relevances(ids, gold)
	return Metrics{
		HitRate:   HitAtK(relevances, k),
		MRR:       MRR(relevances),
		NDCG:      NDCG(relevances, k),
		Recall:    Recall(relevances, k, len(gold)),
		Precision: Precision(relevances, k),
		AP:        AveragePrecision(relevances),
	}
}
