// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package profile

import (
	"math"
	"sort"
	"time"

	"github.com/tomtom215/finrec/internal/recommend"
)

const secondsPerDay = 86400.0

type spending struct {
	total       float64
	avg         float64
	max         float64
	level       recommend.SpendingLevel
	consistency float64
	synthetic   bool
}

// spendingMetrics aggregates resolved prices. Events without a catalog match
// carry no price and do not count as transactions.
func spendingMetrics(events []recommend.EnrichedEvent) spending {
	var s spending
	prices := make([]float64, 0, len(events))
	for i := range events {
		if !events[i].InCatalog {
			continue
		}
		p := events[i].Price
		prices = append(prices, p)
		s.total += p
		if p > s.max {
			s.max = p
		}
		if !events[i].PriceSource.Authoritative() {
			s.synthetic = true
		}
	}
	s.level = recommend.SpendingLevelFor(s.total)
	if len(prices) == 0 {
		return s
	}
	s.avg = s.total / float64(len(prices))
	if s.avg > 0 && len(prices) > 1 {
		s.consistency = sampleStd(prices, s.avg) / s.avg
	}
	return s
}

type behavior struct {
	frequency  recommend.FrequencyClass
	perDay     float64
	diversity  float64
	uniqueCats int
	stability  float64
}

// behaviorMetrics computes activity rate, diversity and stability. events must
// be sorted chronologically.
func behaviorMetrics(events []recommend.EnrichedEvent, minStabilityEvents int) behavior {
	b := behavior{frequency: recommend.FrequencyUnknown}
	if first, last, ok := timeBounds(events); ok {
		days := int(last.Sub(first).Hours() / 24)
		if days <= 0 {
			days = 1
		}
		b.perDay = float64(len(events)) / float64(days)
		b.frequency = recommend.FrequencyClassFor(b.perDay)
	}

	b.uniqueCats = len(categorySet(events))
	if len(events) > 0 {
		b.diversity = float64(b.uniqueCats) / float64(len(events))
	}
	b.stability = preferenceStability(events, minStabilityEvents)
	return b
}

// preferenceStability is the Jaccard overlap of the category sets used in the
// first and second halves of the history. Short histories are neutral.
func preferenceStability(events []recommend.EnrichedEvent, minEvents int) float64 {
	if len(events) < minEvents {
		return 0.5
	}
	half := len(events) / 2
	first := categorySet(events[:half])
	second := categorySet(events[half:])

	union := len(first)
	inter := 0
	for c := range second {
		if _, ok := first[c]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0.5
	}
	return float64(inter) / float64(union)
}

// categoryAffinity blends interaction share and spend share per category over
// events with a known category, keeping the top n entries.
func categoryAffinity(events []recommend.EnrichedEvent, interactionWeight float64, n int) []recommend.CategoryScore {
	counts := make(map[string]int)
	spend := make(map[string]float64)
	total := 0
	totalSpend := 0.0
	for i := range events {
		if !events[i].HasCategory() {
			continue
		}
		c := events[i].Category
		counts[c]++
		spend[c] += events[i].Price
		total++
		totalSpend += events[i].Price
	}
	if total == 0 {
		return []recommend.CategoryScore{}
	}

	out := make([]recommend.CategoryScore, 0, len(counts))
	for c, cnt := range counts {
		share := float64(cnt) / float64(total)
		spendShare := 0.0
		if totalSpend > 0 {
			spendShare = spend[c] / totalSpend
		}
		score := interactionWeight*share + (1-interactionWeight)*spendShare
		out = append(out, recommend.CategoryScore{Category: c, Score: round3(score)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// temporalMetrics derives regularity from inter-event gaps. Histories with a
// missing timestamp or fewer than two events get neutral defaults.
func temporalMetrics(events []recommend.EnrichedEvent) (consistency float64, durationDays int, ok bool) {
	if len(events) < 2 {
		return 0.5, 0, false
	}
	for i := range events {
		if !events[i].HasTimestamp() {
			return 0.5, 0, false
		}
	}

	gaps := make([]float64, len(events)-1)
	for i := 1; i < len(events); i++ {
		gaps[i-1] = events[i].Timestamp.Sub(events[i-1].Timestamp).Seconds()
	}
	std := populationStd(gaps)
	consistency = math.Min(1, 1/(1+std/secondsPerDay))
	durationDays = int(events[len(events)-1].Timestamp.Sub(events[0].Timestamp).Hours() / 24)
	return consistency, durationDays, true
}

// completeness sums weighted presence checks, capped at 1.
func completeness(events []recommend.EnrichedEvent, totalSpent float64, uniqueCats int) float64 {
	score := 0.0
	if len(events) >= 5 {
		score += 0.3
	}
	if totalSpent > 0 {
		score += 0.3
	}
	if uniqueCats >= 2 {
		score += 0.2
	}
	if distinctTimestamps(events) >= 3 {
		score += 0.2
	}
	return math.Min(score, 1)
}

func timeBounds(events []recommend.EnrichedEvent) (first, last time.Time, ok bool) {
	for i := range events {
		ts := events[i].Timestamp
		if ts.IsZero() {
			continue
		}
		if !ok || ts.Before(first) {
			first = ts
		}
		if !ok || ts.After(last) {
			last = ts
		}
		ok = true
	}
	return first, last, ok
}

func categorySet(events []recommend.EnrichedEvent) map[string]struct{} {
	set := make(map[string]struct{})
	for i := range events {
		if events[i].HasCategory() {
			set[events[i].Category] = struct{}{}
		}
	}
	return set
}

func distinctTimestamps(events []recommend.EnrichedEvent) int {
	seen := make(map[int64]struct{}, len(events))
	for i := range events {
		if events[i].HasTimestamp() {
			seen[events[i].Timestamp.UnixNano()] = struct{}{}
		}
	}
	return len(seen)
}

func sampleStd(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
