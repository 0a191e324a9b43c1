// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package recommend

import (
	"strings"
	"time"
)

// ActionType classifies a raw user interaction.
type ActionType string

const (
	ActionView      ActionType = "view"
	ActionClick     ActionType = "click"
	ActionAddToCart ActionType = "add_to_cart"
	ActionPurchase  ActionType = "purchase"
	ActionLike      ActionType = "like"
	ActionOther     ActionType = "other"
)

// ParseActionType maps a raw action label to an ActionType.
// Unrecognized labels map to ActionOther.
func ParseActionType(s string) ActionType {
	switch a := ActionType(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionView, ActionClick, ActionAddToCart, ActionPurchase, ActionLike:
		return a
	default:
		return ActionOther
	}
}

// InteractionEvent is a single raw user interaction with a catalog item.
type InteractionEvent struct {
	UserID string     `json:"user_id"`
	ItemID string     `json:"item_id"`
	Action ActionType `json:"action_type"`

	// Timestamp is the zero time when the source had no usable timestamp.
	Timestamp time.Time `json:"timestamp"`

	Subdomain string `json:"subdomain,omitempty"`
}

// HasTimestamp reports whether the event carries a usable timestamp.
func (e *InteractionEvent) HasTimestamp() bool {
	return !e.Timestamp.IsZero()
}

// CatalogItem carries the product attributes of an interaction target.
// Empty Category and Subcategory mean null; a nil Price means no usable price.
type CatalogItem struct {
	ItemID      string   `json:"item_id"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// PriceSource records where an enriched event's price came from.
type PriceSource int

const (
	// PriceNone means the item was not in the catalog and carries no price.
	PriceNone PriceSource = iota
	// PriceCatalog means the catalog price was used as-is.
	PriceCatalog
	// PriceLogCorrected means the catalog price was exponentiated back from log scale.
	PriceLogCorrected
	// PriceSynthetic means the price was derived from a hash of the category.
	PriceSynthetic
)

// String returns the name of the price source.
func (s PriceSource) String() string {
	switch s {
	case PriceCatalog:
		return "catalog"
	case PriceLogCorrected:
		return "log_corrected"
	case PriceSynthetic:
		return "synthetic"
	default:
		return "none"
	}
}

// Authoritative reports whether the price came unchanged from the catalog.
func (s PriceSource) Authoritative() bool {
	return s == PriceCatalog
}

// EnrichedEvent is an InteractionEvent left-joined with its catalog item.
type EnrichedEvent struct {
	InteractionEvent

	Category    string      `json:"category,omitempty"`
	Subcategory string      `json:"subcategory,omitempty"`
	Price       float64     `json:"price"`
	PriceSource PriceSource `json:"price_source"`
	InCatalog   bool        `json:"in_catalog"`
}

// HasCategory reports whether the event resolved to a non-null category.
func (e *EnrichedEvent) HasCategory() bool {
	return IsKnownCategory(e.Category)
}

// IsKnownCategory reports whether a category label carries information.
// Empty strings and the literal "null" produced by some exports are treated as null.
func IsKnownCategory(c string) bool {
	c = strings.TrimSpace(c)
	return c != "" && !strings.EqualFold(c, "null")
}

// Demographics holds optional roster attributes. Empty strings mean unknown.
type Demographics struct {
	AgeGroup        string `json:"age_group,omitempty"`
	SpecialStatus   string `json:"special_status,omitempty"`
	SalaryAccount   string `json:"salary_account,omitempty"`
	ResidentStatus  string `json:"resident_status,omitempty"`
	PartnerEmployee string `json:"partner_employee,omitempty"`
	LoyaltyProgram  string `json:"loyalty_program,omitempty"`
}

// Attribute returns the named demographic attribute and whether it is known.
func (d *Demographics) Attribute(name string) (string, bool) {
	var v string
	switch name {
	case AttrAgeGroup:
		v = d.AgeGroup
	case AttrSpecialStatus:
		v = d.SpecialStatus
	case AttrSalaryAccount:
		v = d.SalaryAccount
	case AttrResidentStatus:
		v = d.ResidentStatus
	case AttrPartnerEmployee:
		v = d.PartnerEmployee
	case AttrLoyaltyProgram:
		v = d.LoyaltyProgram
	}
	return v, v != ""
}

// Demographic attribute names used by roster data and target rules.
const (
	AttrAgeGroup        = "age_group"
	AttrSpecialStatus   = "special_status"
	AttrSalaryAccount   = "salary_account"
	AttrResidentStatus  = "resident_status"
	AttrPartnerEmployee = "partner_employee"
	AttrLoyaltyProgram  = "loyalty_program"
)

// User is a roster entry.
type User struct {
	UserID       string       `json:"user_id"`
	Demographics Demographics `json:"demographics"`
}

// SpendingLevel buckets a user's total spend.
type SpendingLevel int

const (
	SpendingVeryLow SpendingLevel = iota
	SpendingLow
	SpendingMedium
	SpendingHigh
	SpendingVeryHigh
)

// SpendingLevelFor buckets a total spend amount.
func SpendingLevelFor(total float64) SpendingLevel {
	switch {
	case total > 50000:
		return SpendingVeryHigh
	case total > 20000:
		return SpendingHigh
	case total > 5000:
		return SpendingMedium
	case total > 1000:
		return SpendingLow
	default:
		return SpendingVeryLow
	}
}

// String returns the name of the spending level.
func (l SpendingLevel) String() string {
	switch l {
	case SpendingLow:
		return "low"
	case SpendingMedium:
		return "medium"
	case SpendingHigh:
		return "high"
	case SpendingVeryHigh:
		return "very_high"
	default:
		return "very_low"
	}
}

// ParseSpendingLevel parses a level name, defaulting to SpendingVeryLow.
func ParseSpendingLevel(s string) SpendingLevel {
	switch strings.ToLower(s) {
	case "low":
		return SpendingLow
	case "medium":
		return SpendingMedium
	case "high":
		return SpendingHigh
	case "very_high":
		return SpendingVeryHigh
	default:
		return SpendingVeryLow
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l SpendingLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *SpendingLevel) UnmarshalText(b []byte) error {
	*l = ParseSpendingLevel(string(b))
	return nil
}

// FrequencyClass buckets a user's events per active day.
type FrequencyClass int

const (
	// FrequencyUnknown is used when the history has no usable timestamps.
	FrequencyUnknown FrequencyClass = iota
	FrequencyLow
	FrequencyMedium
	FrequencyHigh
	FrequencyVeryHigh
)

// FrequencyClassFor buckets an events-per-day rate.
func FrequencyClassFor(perDay float64) FrequencyClass {
	switch {
	case perDay > 10:
		return FrequencyVeryHigh
	case perDay > 5:
		return FrequencyHigh
	case perDay > 2:
		return FrequencyMedium
	default:
		return FrequencyLow
	}
}

// String returns the name of the frequency class.
func (f FrequencyClass) String() string {
	switch f {
	case FrequencyLow:
		return "low"
	case FrequencyMedium:
		return "medium"
	case FrequencyHigh:
		return "high"
	case FrequencyVeryHigh:
		return "very_high"
	default:
		return "unknown"
	}
}

// ParseFrequencyClass parses a class name, defaulting to FrequencyUnknown.
func ParseFrequencyClass(s string) FrequencyClass {
	switch strings.ToLower(s) {
	case "low":
		return FrequencyLow
	case "medium":
		return FrequencyMedium
	case "high":
		return FrequencyHigh
	case "very_high":
		return FrequencyVeryHigh
	default:
		return FrequencyUnknown
	}
}

// ActivityLevel maps the class onto [0,1] for model features.
func (f FrequencyClass) ActivityLevel() float64 {
	switch f {
	case FrequencyLow:
		return 0.3
	case FrequencyMedium:
		return 0.5
	case FrequencyHigh:
		return 0.7
	case FrequencyVeryHigh:
		return 0.9
	default:
		return 0.5
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f FrequencyClass) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FrequencyClass) UnmarshalText(b []byte) error {
	*f = ParseFrequencyClass(string(b))
	return nil
}

// CategoryScore is one entry of a user's category affinity ranking.
type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// UserProfile is the per-user behavioral and spending aggregate.
// Every numeric field is finite; missing data resolves to neutral defaults.
type UserProfile struct {
	UserID string `json:"user_id"`

	// Spending
	TotalSpent          float64       `json:"total_spent"`
	AvgTransactionValue float64       `json:"avg_transaction_value"`
	MaxTransaction      float64       `json:"max_transaction"`
	SpendingLevel       SpendingLevel `json:"spending_level"`
	SpendingConsistency float64       `json:"spending_consistency"`

	// Behavior
	InteractionFrequency  FrequencyClass `json:"interaction_frequency"`
	EventsPerDay          float64        `json:"events_per_day"`
	CategoryDiversity     float64        `json:"category_diversity"`
	UniqueCategoriesCount int            `json:"unique_categories_count"`
	PreferenceStability   float64        `json:"preference_stability"`

	// CategoryAffinity holds at most ten entries sorted by score descending.
	CategoryAffinity []CategoryScore `json:"category_affinity"`

	// Temporal
	TemporalConsistency  float64 `json:"temporal_consistency"`
	ActivityDurationDays int     `json:"activity_duration_days"`

	// Meta
	TotalInteractions   int     `json:"total_interactions"`
	ProfileCompleteness float64 `json:"profile_completeness"`

	// SyntheticPricing is set when any spend figure used a non-catalog price.
	SyntheticPricing bool `json:"synthetic_pricing"`

	Demographics Demographics `json:"demographics"`
}

// Affinity returns the affinity score for a category, or 0.
func (p *UserProfile) Affinity(category string) float64 {
	for _, c := range p.CategoryAffinity {
		if strings.EqualFold(c.Category, category) {
			return c.Score
		}
	}
	return 0
}

// TopCategory returns the highest-affinity category, if any.
func (p *UserProfile) TopCategory() (string, bool) {
	if len(p.CategoryAffinity) == 0 {
		return "", false
	}
	return p.CategoryAffinity[0].Category, true
}

// ProductDefinition is a curated financial product.
type ProductDefinition struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Type   string       `json:"type"`
	Target []TargetRule `json:"target"`

	// BusinessValue is a static priority weight in [0,1].
	BusinessValue float64 `json:"business_value"`
}

// ScoredCandidate is one scored (user, product) pair.
type ScoredCandidate struct {
	UserID      string `json:"user_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ProductType string `json:"product_type"`

	BaseMatchScore float64 `json:"base_match_score"`
	FinalScore     float64 `json:"final_score"`
	BusinessValue  float64 `json:"business_value"`

	// TargetFit is the share of evaluable target rules the profile satisfies.
	TargetFit float64 `json:"target_fit"`

	Reasoning   []string `json:"reasoning"`
	MLEnhanced  bool     `json:"ml_enhanced"`
	Explanation string   `json:"explanation"`
	Confidence  string   `json:"confidence"`
}

// ConfidenceLabel maps a score onto a coarse confidence label.
func ConfidenceLabel(score float64) string {
	switch {
	case score > 0.8:
		return "very_high"
	case score > 0.6:
		return "high"
	case score > 0.4:
		return "medium"
	default:
		return "low"
	}
}

// Strategy is a selection policy applied to the full candidate set.
type Strategy string

const (
	StrategyCoverage   Strategy = "coverage"
	StrategyRevenue    Strategy = "revenue"
	StrategyEngagement Strategy = "engagement"
	StrategyBalanced   Strategy = "balanced"
)

// ParseStrategy maps a label to a Strategy. Unknown labels fall back to balanced.
func ParseStrategy(label string) Strategy {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(label))); s {
	case StrategyCoverage, StrategyRevenue, StrategyEngagement, StrategyBalanced:
		return s
	default:
		return StrategyBalanced
	}
}

// AllStrategies returns every strategy in comparison order.
func AllStrategies() []Strategy {
	return []Strategy{StrategyCoverage, StrategyRevenue, StrategyEngagement, StrategyBalanced}
}

// OptimizedSet is the output of a strategy: candidates grouped per user,
// users in first-appearance order, each group ordered by the strategy's ranking.
type OptimizedSet struct {
	Strategy        Strategy          `json:"strategy"`
	Recommendations []ScoredCandidate `json:"recommendations"`
}

// ForUser returns the recommendations for a single user.
func (s *OptimizedSet) ForUser(userID string) []ScoredCandidate {
	var out []ScoredCandidate
	for i := range s.Recommendations {
		if s.Recommendations[i].UserID == userID {
			out = append(out, s.Recommendations[i])
		}
	}
	return out
}
