// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package validation

import (
	"errors"
	"strings"
	"testing"
)

type outcomeRequest struct {
	UserID   string  `json:"user_id" validate:"required,max=8"`
	Label    float64 `json:"label" validate:"gte=0,lte=1"`
	Strategy string  `json:"strategy" validate:"omitempty,strategy"`
	Status   string  `json:"status" validate:"omitempty,run_status"`
	Limit    int     `json:"limit" validate:"omitempty,min=1,max=500"`
	Since    string  `json:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		req       outcomeRequest
		wantField string
		wantMsg   string
	}{
		{name: "valid", req: outcomeRequest{UserID: "u1", Label: 1, Strategy: "revenue", Status: "degraded", Limit: 10, Since: "2026-03-01T00:00:00Z"}},
		{name: "auto strategy", req: outcomeRequest{UserID: "u1", Strategy: "AUTO"}},
		{name: "missing user", req: outcomeRequest{}, wantField: "user_id", wantMsg: "user_id is required"},
		{name: "long user", req: outcomeRequest{UserID: "abcdefghi"}, wantField: "user_id", wantMsg: "at most 8 characters"},
		{name: "label above one", req: outcomeRequest{UserID: "u", Label: 1.5}, wantField: "label", wantMsg: "less than or equal to 1"},
		{name: "unknown strategy", req: outcomeRequest{UserID: "u", Strategy: "greedy"}, wantField: "strategy", wantMsg: "auto, balanced"},
		{name: "unknown status", req: outcomeRequest{UserID: "u", Status: "ok"}, wantField: "status", wantMsg: "success, degraded, empty"},
		{name: "limit too large", req: outcomeRequest{UserID: "u", Limit: 501}, wantField: "limit", wantMsg: "at most 500"},
		{name: "bad datetime", req: outcomeRequest{UserID: "u", Since: "yesterday"}, wantField: "since", wantMsg: "RFC3339"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v", err)
				}
				return
			}
			var verr *RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateStruct() error = %v, want *RequestValidationError", err)
			}
			if len(verr.Fields) != 1 || verr.Fields[0].Field != tt.wantField {
				t.Fatalf("fields = %+v, want one error on %s", verr.Fields, tt.wantField)
			}
			if !strings.Contains(verr.Error(), tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", verr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&outcomeRequest{Label: -1, Limit: 1000})
	var verr *RequestValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v", err)
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("fields = %+v, want 3", verr.Fields)
	}
	if got := strings.Count(verr.Error(), ";"); got != 2 {
		t.Errorf("joined message = %q", verr.Error())
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	if got := (&RequestValidationError{}).Error(); got != "validation failed" {
		t.Errorf("Error() = %q", got)
	}
}
