// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package profile aggregates enriched interaction events into per-user
// behavioral and spending profiles.
package profile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/enrich"
)

// ErrNonFinite is returned when a computed profile contains NaN or Inf.
var ErrNonFinite = errors.New("profile contains non-finite value")

// Report summarizes a build.
type Report struct {
	// Profiled is the number of profiles produced.
	Profiled int `json:"profiled"`
	// Skipped counts users whose profile computation failed.
	Skipped int `json:"skipped"`
	// Excluded counts roster users without any events.
	Excluded int `json:"excluded"`
	// Sampled counts users dropped by the MaxUsers cap.
	Sampled int `json:"sampled_out"`
	// Defaulted counts profiles with neutral temporal defaults.
	Defaulted int              `json:"defaulted"`
	Status    recommend.Status `json:"status"`
}

// Builder produces UserProfiles.
type Builder struct {
	cfg      recommend.ProfileConfig
	workers  int
	seed     int64
	enricher *enrich.Enricher
	logger   zerolog.Logger
}

// NewBuilder creates a profile builder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBuilder(cfg *recommend.Config, logger zerolog.Logger) *Builder {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		cfg:      cfg.Profile,
		workers:  workers,
		seed:     cfg.Seed,
		enricher: enrich.New(cfg.Pricing, logger),
		logger:   logger.With().Str("component", "profile").Logger(),
	}
}

// Build enriches events with the catalog and profiles every user.
func (b *Builder) Build(ctx context.Context, users []recommend.User, events []recommend.InteractionEvent, catalog []recommend.CatalogItem, diag *recommend.Diagnostics) ([]recommend.UserProfile, Report, error) {
	enriched := b.enricher.Enrich(events, catalog, diag)
	return b.BuildEnriched(ctx, users, enriched.Events, diag)
}

type userEvents struct {
	user   recommend.User
	events []recommend.EnrichedEvent
}

// BuildEnriched profiles users from already enriched events. With an empty
// roster every user present in the events is profiled. Roster users without
// events are excluded and counted. The only error returned is context
// cancellation; per-user failures are skipped and counted.
func (b *Builder) BuildEnriched(ctx context.Context, users []recommend.User, events []recommend.EnrichedEvent, diag *recommend.Diagnostics) ([]recommend.UserProfile, Report, error) {
	var report Report
	if len(events) == 0 {
		diag.AddErr(recommend.StageProfile, recommend.KindBatchEmpty, recommend.ErrNoEvents)
		b.logger.Warn().Int("roster", len(users)).Msg("No events to profile")
		report.Excluded = len(users)
		report.Status = recommend.StatusEmpty
		return []recommend.UserProfile{}, report, nil
	}

	groups, excluded := b.group(users, events)
	report.Excluded = excluded
	if excluded > 0 {
		diag.Add(recommend.StageProfile, recommend.KindMissingData, excluded, "roster users without events excluded")
	}

	groups, report.Sampled = b.sample(groups)

	results := make([]recommend.UserProfile, len(groups))
	errs := make([]error, len(groups))
	defaulted := make([]bool, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range groups {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i], defaulted[i], errs[i] = b.safeProfile(groups[i])
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, report, fmt.Errorf("build profiles: %w", err)
	}

	profiles := make([]recommend.UserProfile, 0, len(groups))
	for i := range groups {
		if errs[i] != nil {
			report.Skipped++
			b.logger.Warn().Err(errs[i]).Str("user_id", groups[i].user.UserID).Msg("Skipping user profile")
			continue
		}
		if defaulted[i] {
			report.Defaulted++
		}
		profiles = append(profiles, results[i])
	}
	report.Profiled = len(profiles)

	switch {
	case len(profiles) == 0:
		report.Status = recommend.StatusEmpty
		diag.AddErr(recommend.StageProfile, recommend.KindBatchEmpty, recommend.ErrNoProfiles)
	case report.Skipped > 0 || report.Defaulted > 0:
		report.Status = recommend.StatusDegraded
	}
	if report.Skipped > 0 {
		diag.Add(recommend.StageProfile, recommend.KindEntitySkipped, report.Skipped, "user profiles skipped after failure")
	}
	if report.Defaulted > 0 {
		diag.Add(recommend.StageProfile, recommend.KindMissingData, report.Defaulted, "profiles with neutral temporal defaults")
	}

	b.logger.Info().
		Int("profiled", report.Profiled).
		Int("skipped", report.Skipped).
		Int("excluded", report.Excluded).
		Int("sampled_out", report.Sampled).
		Msg("Profiles built")

	return profiles, report, nil
}

// group partitions events per user in roster order, or first-appearance order
// when there is no roster.
func (b *Builder) group(users []recommend.User, events []recommend.EnrichedEvent) ([]userEvents, int) {
	byUser := make(map[string][]recommend.EnrichedEvent)
	var order []string
	for i := range events {
		id := events[i].UserID
		if _, ok := byUser[id]; !ok {
			order = append(order, id)
		}
		byUser[id] = append(byUser[id], events[i])
	}

	if len(users) == 0 {
		out := make([]userEvents, len(order))
		for i, id := range order {
			out[i] = userEvents{user: recommend.User{UserID: id}, events: byUser[id]}
		}
		return out, 0
	}

	out := make([]userEvents, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	excluded := 0
	for _, u := range users {
		if _, dup := seen[u.UserID]; dup {
			continue
		}
		seen[u.UserID] = struct{}{}
		evs, ok := byUser[u.UserID]
		if !ok {
			excluded++
			continue
		}
		out = append(out, userEvents{user: u, events: evs})
	}
	return out, excluded
}

// sample keeps at most MaxUsers groups, chosen with a seeded permutation and
// returned in their original order.
func (b *Builder) sample(groups []userEvents) ([]userEvents, int) {
	limit := b.cfg.MaxUsers
	if limit <= 0 || len(groups) <= limit {
		return groups, 0
	}
	rng := rand.New(rand.NewSource(b.seed)) //nolint:gosec // deterministic sampling, not security
	picked := rng.Perm(len(groups))[:limit]
	sort.Ints(picked)

	out := make([]userEvents, limit)
	for i, idx := range picked {
		out[i] = groups[idx]
	}
	return out, len(groups) - limit
}

func (b *Builder) safeProfile(ue userEvents) (p recommend.UserProfile, defaulted bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("profile user %s: panic: %v", ue.user.UserID, r)
		}
	}()
	p, defaulted = b.Profile(ue.user, ue.events)
	if !finite(&p) {
		return p, defaulted, fmt.Errorf("profile user %s: %w", ue.user.UserID, ErrNonFinite)
	}
	return p, defaulted, nil
}

// Profile computes one user's profile. defaulted reports whether temporal
// metrics fell back to neutral values.
func (b *Builder) Profile(user recommend.User, events []recommend.EnrichedEvent) (recommend.UserProfile, bool) {
	sorted := make([]recommend.EnrichedEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	s := spendingMetrics(sorted)
	bh := behaviorMetrics(sorted, b.cfg.MinStabilityEvents)
	consistency, duration, ok := temporalMetrics(sorted)

	return recommend.UserProfile{
		UserID:                user.UserID,
		TotalSpent:            s.total,
		AvgTransactionValue:   s.avg,
		MaxTransaction:        s.max,
		SpendingLevel:         s.level,
		SpendingConsistency:   s.consistency,
		InteractionFrequency:  bh.frequency,
		EventsPerDay:          bh.perDay,
		CategoryDiversity:     bh.diversity,
		UniqueCategoriesCount: bh.uniqueCats,
		PreferenceStability:   bh.stability,
		CategoryAffinity:      categoryAffinity(sorted, b.cfg.AffinityInteractionWeight, b.cfg.AffinityTopN),
		TemporalConsistency:   consistency,
		ActivityDurationDays:  duration,
		TotalInteractions:     len(sorted),
		ProfileCompleteness:   completeness(sorted, s.total, bh.uniqueCats),
		SyntheticPricing:      s.synthetic,
		Demographics:          user.Demographics,
	}, !ok
}

func finite(p *recommend.UserProfile) bool {
	values := []float64{
		p.TotalSpent, p.AvgTransactionValue, p.MaxTransaction, p.SpendingConsistency,
		p.EventsPerDay, p.CategoryDiversity, p.PreferenceStability,
		p.TemporalConsistency, p.ProfileCompleteness,
	}
	for _, c := range p.CategoryAffinity {
		values = append(values, c.Score)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
