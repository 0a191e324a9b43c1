// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package query

import (
	"testing"
	"time"
)

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder()

	if !wb.IsEmpty() {
		t.Error("Expected new builder to be empty")
	}
	if wb.Count() != 0 {
		t.Errorf("Expected count 0, got %d", wb.Count())
	}

	whereClause, args := wb.Build()
	if whereClause != "1=1" {
		t.Errorf("Expected '1=1' for empty builder, got %q", whereClause)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %d", len(args))
	}
}

func TestWhereBuilder_AddTimeRange(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name       string
		start, end *time.Time
		want       string
		wantArgs   int
	}{
		{"both", &start, &end, "started_at >= ? AND started_at <= ?", 2},
		{"start only", &start, nil, "started_at >= ?", 1},
		{"end only", nil, &end, "started_at <= ?", 1},
		{"neither", nil, nil, "1=1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			whereClause, args := NewWhereBuilder().AddTimeRange("started_at", tt.start, tt.end).Build()
			if whereClause != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, whereClause)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("Expected %d args, got %d", tt.wantArgs, len(args))
			}
		})
	}
}

func TestWhereBuilder_AddIn(t *testing.T) {
	types := []string{"card", "deposit", "loan"}

	whereClause, args := NewWhereBuilder().AddIn("product_type", types).Build()
	expected := "product_type IN (?, ?, ?)"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 3 {
		t.Fatalf("Expected 3 args, got %d", len(args))
	}
	for i, typ := range types {
		if args[i] != typ {
			t.Errorf("Expected arg[%d] = %q, got %v", i, typ, args[i])
		}
	}

	if wb := NewWhereBuilder().AddIn("product_type", nil); !wb.IsEmpty() {
		t.Error("Empty IN list should be skipped")
	}
}

func TestWhereBuilder_AddEqualSkipsEmpty(t *testing.T) {
	wb := NewWhereBuilder().AddEqual("status", "").AddEqual("strategy", "revenue")

	whereClause, args := wb.Build()
	if whereClause != "strategy = ?" {
		t.Errorf("Expected %q, got %q", "strategy = ?", whereClause)
	}
	if len(args) != 1 || args[0] != "revenue" {
		t.Errorf("Unexpected args %v", args)
	}
}

func TestWhereBuilder_AddMin(t *testing.T) {
	if wb := NewWhereBuilder().AddMin("final_score", 0); !wb.IsEmpty() {
		t.Error("Zero minimum should be skipped")
	}
	whereClause, args := NewWhereBuilder().AddMin("final_score", 0.5).Build()
	if whereClause != "final_score >= ?" || len(args) != 1 || args[0] != 0.5 {
		t.Errorf("Unexpected clause %q args %v", whereClause, args)
	}
}

func TestWhereBuilder_Combined(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	wb := NewWhereBuilder().
		AddEqual("run_id", "r1").
		AddTimeRange("started_at", &start, nil).
		AddIn("strategy", []string{"balanced", "coverage"}).
		AddClause("overall_score > ?", 0.4)

	if wb.Count() != 4 {
		t.Errorf("Expected count 4, got %d", wb.Count())
	}

	whereClause, args := wb.BuildWithPrefix()
	expected := "WHERE run_id = ? AND started_at >= ? AND strategy IN (?, ?) AND overall_score > ?"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 5 {
		t.Errorf("Expected 5 args, got %d", len(args))
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		requested, want int
	}{
		{0, 20},
		{-3, 20},
		{5, 5},
		{100, 100},
		{500, 100},
	}
	for _, tt := range tests {
		if got := Limit(tt.requested, 20, 100); got != tt.want {
			t.Errorf("Limit(%d) = %d, want %d", tt.requested, got, tt.want)
		}
	}
}
