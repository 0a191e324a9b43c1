// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package api

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/finrec/internal/database"
)

// Query limits.
const (
	defaultRunsLimit            = 50
	defaultRecommendationsLimit = 500
)

// RunsRequest is the query of GET /runs.
type RunsRequest struct {
	Status   string     `json:"status" validate:"omitempty,run_status"`
	Strategy string     `json:"strategy" validate:"omitempty,strategy,ne=auto"`
	Since    *time.Time `json:"since"`
	Until    *time.Time `json:"until"`
	Limit    int        `json:"limit" validate:"gte=1,lte=1000"`
}

// Filter converts the request to a store filter.
func (r *RunsRequest) Filter() database.RunFilter {
	return database.RunFilter{
		Status:   r.Status,
		Strategy: strings.ToLower(r.Strategy),
		Since:    r.Since,
		Until:    r.Until,
		Limit:    r.Limit,
	}
}

// RecommendationsRequest is the query of the recommendation listings.
type RecommendationsRequest struct {
	RunID        string   `json:"run_id" validate:"omitempty,max=64"`
	UserID       string   `json:"user_id" validate:"omitempty,max=128"`
	ProductTypes []string `json:"product_type" validate:"omitempty,max=20,dive,required,max=64"`
	MinScore     float64  `json:"min_score" validate:"gte=0,lte=1"`
	Limit        int      `json:"limit" validate:"gte=1,lte=10000"`
}

// Filter converts the request to a store filter.
func (r *RecommendationsRequest) Filter() database.RecommendationFilter {
	return database.RecommendationFilter{
		RunID:        r.RunID,
		UserID:       r.UserID,
		ProductTypes: r.ProductTypes,
		MinScore:     r.MinScore,
		Limit:        r.Limit,
	}
}

// TriggerRequest is the body of POST /pipeline/run.
type TriggerRequest struct {
	Strategy string `json:"strategy" validate:"omitempty,strategy"`
}

// OutcomeRequest is the body of POST /outcomes.
type OutcomeRequest struct {
	UserID    string   `json:"user_id" validate:"required,max=128"`
	ProductID string   `json:"product_id" validate:"required,max=128"`
	Label     *float64 `json:"label" validate:"required,gte=0,lte=1"`
}

// errInvalidParam wraps malformed query values so handlers answer 400.
var errInvalidParam = errors.New("invalid parameter")

func parseRunsRequest(q url.Values) (*RunsRequest, error) {
	req := &RunsRequest{
		Status:   q.Get("status"),
		Strategy: q.Get("strategy"),
		Limit:    defaultRunsLimit,
	}
	var err error
	if req.Since, err = parseTimeParam(q, "since"); err != nil {
		return nil, err
	}
	if req.Until, err = parseTimeParam(q, "until"); err != nil {
		return nil, err
	}
	if req.Limit, err = parseIntParam(q, "limit", defaultRunsLimit); err != nil {
		return nil, err
	}
	if req.Since != nil && req.Until != nil && req.Until.Before(*req.Since) {
		return nil, fmt.Errorf("%w: until must not be before since", errInvalidParam)
	}
	return req, nil
}

func parseRecommendationsRequest(q url.Values) (*RecommendationsRequest, error) {
	req := &RecommendationsRequest{
		RunID:        q.Get("run_id"),
		UserID:       q.Get("user_id"),
		ProductTypes: parseCSVParam(q, "product_type"),
	}
	var err error
	if req.Limit, err = parseIntParam(q, "limit", defaultRecommendationsLimit); err != nil {
		return nil, err
	}
	if raw := q.Get("min_score"); raw != "" {
		if req.MinScore, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("%w: min_score must be a number", errInvalidParam)
		}
	}
	return req, nil
}

func parseIntParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errInvalidParam, name)
	}
	return v, nil
}

// parseTimeParam accepts RFC3339 timestamps and plain dates.
func parseTimeParam(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD", errInvalidParam, name)
}

// parseCSVParam reads a comma-separated or repeated parameter, dropping
// blanks.
func parseCSVParam(q url.Values, name string) []string {
	var out []string
	for _, v := range q[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
