// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/finrec/internal/logging"
)

// Header names carrying request tracing IDs.
const (
	RequestIDHeader     = "X-Request-ID"
	CorrelationIDHeader = "X-Correlation-ID"
)

// maxIDLength bounds client-supplied IDs before they reach logs.
const maxIDLength = 128

// RequestID tags each request with a request ID and a correlation ID.
// Upstream values are kept when present; otherwise new UUIDs are generated.
// Both are echoed in response headers and stored in the context, where the
// pipeline picks up the correlation ID for runs the request triggers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := headerID(r, RequestIDHeader)
		correlationID := headerID(r, CorrelationIDHeader)
		if correlationID == "" {
			correlationID = requestID
		}

		w.Header().Set(RequestIDHeader, requestID)
		w.Header().Set(CorrelationIDHeader, correlationID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithCorrelationID(ctx, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func headerID(r *http.Request, name string) string {
	id := r.Header.Get(name)
	if id == "" {
		if name == RequestIDHeader {
			return uuid.New().String()
		}
		return ""
	}
	if len(id) > maxIDLength {
		id = id[:maxIDLength]
	}
	return id
}
