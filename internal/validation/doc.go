// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

/*
Package validation validates API request structs with go-playground/validator.

A single validator instance is built once and shared; it caches struct
metadata and is safe for concurrent use. Error field names come from json
tags, and two domain rules are registered on top of the built-ins:

	strategy    auto, balanced, revenue, coverage or engagement
	run_status  success, degraded or empty

Example:

	type triggerRequest struct {
	    Strategy string `json:"strategy" validate:"omitempty,strategy"`
	}

	if err := validation.ValidateStruct(&req); err != nil {
	    var verr *validation.RequestValidationError
	    errors.As(err, &verr)
	    // respond 400 with verr.Fields
	}
*/
package validation
