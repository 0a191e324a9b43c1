// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"

	"github.com/tomtom215/finrec/internal/recommend"
)

// ErrInvalidCatalog is returned when a catalog fails validation.
var ErrInvalidCatalog = errors.New("invalid product catalog")

// Load reads a catalog file. An empty path returns the built-in catalog.
func Load(path string) ([]recommend.ProductDefinition, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	products, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return products, nil
}

// Parse decodes a catalog from JSON. Both a flat array of products and an
// object keyed by product type are accepted; in the grouped form the key
// sets the type of products that do not declare one.
func Parse(data []byte) ([]recommend.ProductDefinition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidCatalog)
	}

	var products []recommend.ProductDefinition
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, fmt.Errorf("decode products: %w", err)
		}
	} else {
		var grouped map[string][]recommend.ProductDefinition
		if err := json.Unmarshal(trimmed, &grouped); err != nil {
			return nil, fmt.Errorf("decode grouped products: %w", err)
		}
		types := make([]string, 0, len(grouped))
		for t := range grouped {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			for _, p := range grouped[t] {
				if p.Type == "" {
					p.Type = t
				}
				products = append(products, p)
			}
		}
	}

	if err := Validate(products); err != nil {
		return nil, err
	}
	return products, nil
}

// Validate checks catalog invariants: at least one product, unique non-empty
// ids, a name and a type on every product, and business values in [0,1].
func Validate(products []recommend.ProductDefinition) error {
	if len(products) == 0 {
		return fmt.Errorf("%w: no products", ErrInvalidCatalog)
	}
	seen := make(map[string]struct{}, len(products))
	for i := range products {
		p := &products[i]
		switch {
		case p.ID == "":
			return fmt.Errorf("%w: product %d has no id", ErrInvalidCatalog, i)
		case p.Name == "":
			return fmt.Errorf("%w: product %s has no name", ErrInvalidCatalog, p.ID)
		case p.Type == "":
			return fmt.Errorf("%w: product %s has no type", ErrInvalidCatalog, p.ID)
		case p.BusinessValue < 0 || p.BusinessValue > 1:
			return fmt.Errorf("%w: product %s business value %v outside [0,1]", ErrInvalidCatalog, p.ID, p.BusinessValue)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate product id %s", ErrInvalidCatalog, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
