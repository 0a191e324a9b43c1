// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package recommend

import (
	"errors"
	"strings"
	"sync"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageEnrich   Stage = "enrich"
	StageProfile  Stage = "profile"
	StageScore    Stage = "score"
	StageOptimize Stage = "optimize"
	StageEvaluate Stage = "evaluate"
)

// DiagnosticKind classifies a degraded computation path.
type DiagnosticKind string

const (
	// KindMissingData marks null prices, null categories or missing timestamps
	// that resolved to neutral defaults.
	KindMissingData DiagnosticKind = "missing_data"
	// KindEntitySkipped marks a single user dropped after a failure.
	KindEntitySkipped DiagnosticKind = "entity_skipped"
	// KindBatchEmpty marks a stage that received or produced nothing.
	KindBatchEmpty DiagnosticKind = "batch_empty"
	// KindDataQuality marks an anomaly in source data, with or without correction.
	KindDataQuality DiagnosticKind = "data_quality"
	// KindDegraded marks a fallback, such as scoring without the learned model.
	KindDegraded DiagnosticKind = "degraded"
)

// Sentinel conditions used to tag batch-empty diagnostics. The pipeline never
// returns them; they exist so callers can match diagnostics with errors.Is.
var (
	ErrNoEvents     = errors.New("no events")
	ErrNoCatalog    = errors.New("no catalog items")
	ErrNoProfiles   = errors.New("no profiles")
	ErrNoCandidates = errors.New("no candidates")
)

// Diagnostic is one observable degradation.
type Diagnostic struct {
	Stage   Stage          `json:"stage"`
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	Count   int            `json:"count"`
	Err     error          `json:"-"`
}

// Diagnostics is a concurrency-safe warnings channel threaded through a run.
// A nil *Diagnostics discards everything.
type Diagnostics struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewDiagnostics creates an empty collector.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Add records a diagnostic. Zero counts are recorded as one.
func (d *Diagnostics) Add(stage Stage, kind DiagnosticKind, count int, msg string) {
	d.add(Diagnostic{Stage: stage, Kind: kind, Count: count, Message: msg})
}

// AddErr records a diagnostic tagged with a sentinel condition.
func (d *Diagnostics) AddErr(stage Stage, kind DiagnosticKind, err error) {
	d.add(Diagnostic{Stage: stage, Kind: kind, Count: 1, Message: err.Error(), Err: err})
}

func (d *Diagnostics) add(diag Diagnostic) {
	if d == nil {
		return
	}
	if diag.Count <= 0 {
		diag.Count = 1
	}
	d.mu.Lock()
	d.items = append(d.items, diag)
	d.mu.Unlock()
}

// Items returns a copy of all recorded diagnostics in insertion order.
func (d *Diagnostics) Items() []Diagnostic {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Diagnostic, len(d.items))
	copy(out, d.items)
	return out
}

// Count sums the counts of diagnostics of a kind, optionally limited to a stage.
// An empty stage matches all stages.
func (d *Diagnostics) Count(stage Stage, kind DiagnosticKind) int {
	total := 0
	for _, item := range d.Items() {
		if item.Kind == kind && (stage == "" || item.Stage == stage) {
			total += item.Count
		}
	}
	return total
}

// Has reports whether any diagnostic wraps the target condition.
func (d *Diagnostics) Has(target error) bool {
	for _, item := range d.Items() {
		if item.Err != nil && errors.Is(item.Err, target) {
			return true
		}
	}
	return false
}

// Status is the typed outcome of a stage.
type Status int

const (
	// StatusOK means the stage ran on real signal.
	StatusOK Status = iota
	// StatusDegraded means the stage completed on defaulted or synthetic data.
	StatusDegraded
	// StatusEmpty means the stage had nothing to work on.
	StatusEmpty
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusDegraded:
		return "degraded"
	case StatusEmpty:
		return "empty"
	default:
		return "success"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

// ParseStatus maps a status name back to a Status. Unknown names map to StatusOK.
func ParseStatus(name string) Status {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "degraded":
		return StatusDegraded
	case "empty":
		return StatusEmpty
	default:
		return StatusOK
	}
}

// Worse returns the more severe of two statuses.
func (s Status) Worse(other Status) Status {
	if other > s {
		return other
	}
	return s
}
