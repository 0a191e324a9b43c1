// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package strategy

import (
	"sort"

	"github.com/tomtom215/finrec/internal/recommend"
)

// rankFunc returns the ranking score of a candidate under a strategy.
type rankFunc func(c *recommend.ScoredCandidate) float64

// groupByUser partitions candidates by user, keeping users in order of first
// appearance and candidates in input order within each group.
func groupByUser(candidates []recommend.ScoredCandidate) [][]recommend.ScoredCandidate {
	index := make(map[string]int)
	var groups [][]recommend.ScoredCandidate
	for i := range candidates {
		id := candidates[i].UserID
		g, ok := index[id]
		if !ok {
			g = len(groups)
			index[id] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], candidates[i])
	}
	return groups
}

// topK ranks each user's group by rank and keeps the first k. When overwrite
// is set the ranking score replaces FinalScore in the output.
func topK(candidates []recommend.ScoredCandidate, k int, rank rankFunc, overwrite bool) []recommend.ScoredCandidate {
	out := make([]recommend.ScoredCandidate, 0, len(candidates))
	for _, group := range groupByUser(candidates) {
		scores := make([]float64, len(group))
		order := make([]int, len(group))
		for i := range group {
			scores[i] = rank(&group[i])
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return scores[order[a]] > scores[order[b]]
		})
		if len(order) > k {
			order = order[:k]
		}
		for _, i := range order {
			c := group[i]
			c.Reasoning = append([]string(nil), group[i].Reasoning...)
			if overwrite {
				c.FinalScore = round3(scores[i])
				c.Confidence = recommend.ConfidenceLabel(c.FinalScore)
			}
			out = append(out, c)
		}
	}
	return out
}
