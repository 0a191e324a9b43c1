// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package catalog provides the curated financial product catalog.
//
// The built-in catalog is Go data. A deployment can replace it with a JSON
// file, either a flat array of products or an object mapping product type to
// its products.
package catalog

import (
	"strconv"

	"github.com/tomtom215/finrec/internal/recommend"
)

// Product types of the built-in catalog.
const (
	TypeDeposits        = "deposits"
	TypeSavingsAccounts = "savings_accounts"
	TypePremiumCards    = "premium_cards"
	TypeCreditCards     = "credit_cards"
	TypeDebitCards      = "debit_cards"
	TypeInvestmentFunds = "investment_funds"
	TypePremiumServices = "premium_services"
)

func minSpent(v float64) recommend.TargetRule {
	return recommend.TargetRule{Kind: recommend.RuleMinTotalSpent, Threshold: v}
}

func minFreq(f recommend.FrequencyClass) recommend.TargetRule {
	return recommend.TargetRule{Kind: recommend.RuleMinFrequency, Frequency: f}
}

func minLevel(l recommend.SpendingLevel) recommend.TargetRule {
	return recommend.TargetRule{Kind: recommend.RuleMinSpendingLevel, Level: l}
}

func minStability(v float64) recommend.TargetRule {
	return recommend.TargetRule{Kind: recommend.RuleMinStability, Threshold: v}
}

func categories(c ...string) recommend.TargetRule {
	return recommend.TargetRule{Kind: recommend.RuleCategoryAffinity, Categories: c}
}

func demographic(attr, value string) recommend.TargetRule {
	return recommend.TargetRule{Kind: recommend.RuleDemographic, Attribute: attr, Value: value}
}

// propensity records a target trait the behavioral profile cannot observe.
func propensity(attr string, v float64) recommend.TargetRule {
	return recommend.TargetRule{Kind: recommend.RulePropensity, Attribute: attr, Value: strconv.FormatFloat(v, 'f', -1, 64)}
}

func experience(level string) recommend.TargetRule {
	return recommend.TargetRule{Kind: recommend.RulePropensity, Attribute: "investment_experience", Value: level}
}

func product(id, name, typ string, bv float64, rules ...recommend.TargetRule) recommend.ProductDefinition {
	return recommend.ProductDefinition{ID: id, Name: name, Type: typ, BusinessValue: bv, Target: rules}
}

const (
	low      = recommend.FrequencyLow
	medium   = recommend.FrequencyMedium
	high     = recommend.FrequencyHigh
	pensions = "pensioner"
	honored  = "honored"
	yes      = "true"
)

// Default returns a fresh copy of the built-in catalog.
func Default() []recommend.ProductDefinition {
	return []recommend.ProductDefinition{
		// Deposits
		product("deposit_1", "Accumulative Deposit", TypeDeposits, 0.7,
			propensity("min_balance", 1000), propensity("savings_behavior", 0.7), minFreq(medium)),
		product("deposit_2", "Profitable Deposit", TypeDeposits, 0.8,
			propensity("min_balance", 10000), propensity("savings_behavior", 0.8), minFreq(low)),
		product("deposit_3", "Pension Deposit", TypeDeposits, 0.6,
			demographic(recommend.AttrAgeGroup, pensions), propensity("savings_behavior", 0.6), minFreq(medium)),
		product("deposit_4", "Special Deposit", TypeDeposits, 0.9,
			demographic(recommend.AttrSpecialStatus, honored), propensity("min_balance", 50000), propensity("savings_behavior", 0.9)),

		// Savings accounts
		product("savings_1", "Free Savings Account", TypeSavingsAccounts, 0.6,
			propensity("min_balance", 1), minFreq(high), propensity("liquidity_needs", 0.9)),
		product("savings_2", "Free Plus Savings Account", TypeSavingsAccounts, 0.7,
			propensity("digital_services_usage", 0.7), minFreq(high), propensity("min_balance", 1000)),
		product("savings_3", "Honored Status Savings Account", TypeSavingsAccounts, 0.8,
			demographic(recommend.AttrSpecialStatus, honored), propensity("min_balance", 5000), propensity("savings_behavior", 0.8)),

		// Premium cards
		product("premium_card_1", "Premium Debit Card", TypePremiumCards, 0.9,
			minSpent(50000), minStability(0.7), minFreq(high)),

		// Credit cards
		product("credit_1", "180 Days Interest-Free Credit Card", TypeCreditCards, 0.8,
			minSpent(20000), propensity("credit_affinity", 0.6), minFreq(high)),
		product("credit_2", "Premium Credit Card", TypeCreditCards, 0.85,
			minSpent(50000), propensity("credit_affinity", 0.8), minLevel(recommend.SpendingHigh)),

		// Debit cards
		product("debit_1", "Salary PRO Card", TypeDebitCards, 0.7,
			demographic(recommend.AttrSalaryAccount, yes), minFreq(medium), minLevel(recommend.SpendingMedium)),
		product("debit_2", "Everyday Card", TypeDebitCards, 0.6,
			minFreq(high), propensity("credit_affinity", 0.5), minLevel(recommend.SpendingMedium)),
		product("debit_3", "Strong People Card", TypeDebitCards, 0.8,
			demographic(recommend.AttrSpecialStatus, honored), demographic(recommend.AttrSalaryAccount, yes), minLevel(recommend.SpendingHigh)),
		product("debit_4", "Salary Plus Card", TypeDebitCards, 0.65,
			demographic(recommend.AttrSalaryAccount, yes), minFreq(medium), minLevel(recommend.SpendingMedium)),
		product("debit_5", "Military Pension Card", TypeDebitCards, 0.7,
			demographic(recommend.AttrAgeGroup, pensions), demographic(recommend.AttrSpecialStatus, "military"), minFreq(medium)),
		product("debit_6", "Pension Card", TypeDebitCards, 0.6,
			demographic(recommend.AttrAgeGroup, pensions), minFreq(medium), minLevel(recommend.SpendingLow)),
		product("debit_7", "Forward Only Card", TypeDebitCards, 0.65,
			categories("sports", "medicine"), minFreq(medium), minLevel(recommend.SpendingMedium)),
		product("debit_8", "Sports Club Card", TypeDebitCards, 0.6,
			demographic(recommend.AttrLoyaltyProgram, "cska"), minFreq(medium), minLevel(recommend.SpendingMedium)),
		product("debit_9", "Resident Card", TypeDebitCards, 0.5,
			demographic(recommend.AttrResidentStatus, yes), minFreq(medium), minLevel(recommend.SpendingMedium)),
		product("debit_10", "Partner Employee Card", TypeDebitCards, 0.7,
			demographic(recommend.AttrSalaryAccount, yes), demographic(recommend.AttrPartnerEmployee, yes), minFreq(medium)),
		product("debit_11", "Your Cashback Card", TypeDebitCards, 0.6,
			minFreq(high), minLevel(recommend.SpendingMedium), propensity("cashback_preference", 0.8)),
		product("debit_12", "Your Cashback Sticker", TypeDebitCards, 0.55,
			minFreq(high), propensity("contactless_preference", 0.9), minLevel(recommend.SpendingMedium)),

		// Investment funds
		product("fund_1", "Equity Fund", TypeInvestmentFunds, 0.8,
			propensity("risk_tolerance", 0.7), experience("intermediate"), propensity("min_investment", 5000)),
		product("fund_2", "Mixed Investment Fund", TypeInvestmentFunds, 0.7,
			propensity("risk_tolerance", 0.5), experience("beginner"), propensity("min_investment", 3000)),
		product("fund_3", "Bond Fund", TypeInvestmentFunds, 0.6,
			propensity("risk_tolerance", 0.3), experience("beginner"), propensity("min_investment", 3000)),
		product("fund_4", "Defense Industry Fund", TypeInvestmentFunds, 0.85,
			propensity("risk_tolerance", 0.8), experience("advanced"), propensity("min_investment", 10000)),
		product("fund_5", "Promising Investments Fund", TypeInvestmentFunds, 0.75,
			propensity("risk_tolerance", 0.7), experience("intermediate"), propensity("min_investment", 7000)),
		product("fund_6", "Window of Opportunity Fund", TypeInvestmentFunds, 0.9,
			propensity("risk_tolerance", 0.8), experience("advanced"), propensity("min_investment", 15000)),
		product("fund_7", "Global Balance Fund", TypeInvestmentFunds, 0.7,
			propensity("risk_tolerance", 0.6), experience("intermediate"), propensity("min_investment", 10000)),
		product("fund_8", "Financial Cushion Fund", TypeInvestmentFunds, 0.5,
			propensity("risk_tolerance", 0.2), experience("beginner"), propensity("min_investment", 1000)),
		product("fund_9", "Financial Flow Fund", TypeInvestmentFunds, 0.6,
			propensity("risk_tolerance", 0.4), experience("beginner"), propensity("min_investment", 5000)),
		product("fund_10", "Natural Resources Fund", TypeInvestmentFunds, 0.75,
			propensity("risk_tolerance", 0.7), experience("intermediate"), propensity("min_investment", 8000)),
		product("fund_11", "Eastern Markets Fund", TypeInvestmentFunds, 0.7,
			propensity("risk_tolerance", 0.6), experience("intermediate"), propensity("min_investment", 10000)),
		product("fund_12", "Dividend Equity Fund", TypeInvestmentFunds, 0.65,
			propensity("risk_tolerance", 0.5), experience("intermediate"), propensity("min_investment", 6000)),

		// Premium services
		product("premium_1", "Premium Banking Package", TypePremiumServices, 0.95,
			minSpent(100000), minStability(0.8), propensity("assets_level", 3)),
		product("premium_2", "Premium Assistance", TypePremiumServices, 0.85,
			minSpent(80000), propensity("travel_frequency", 3), minLevel(recommend.SpendingHigh)),
		product("premium_3", "Discretionary Asset Management", TypePremiumServices, 0.9,
			propensity("assets_level", 4), experience("advanced"), propensity("min_investment", 500000)),
	}
}

// Types returns the distinct product types in catalog order.
func Types(products []recommend.ProductDefinition) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range products {
		if _, ok := seen[products[i].Type]; ok {
			continue
		}
		seen[products[i].Type] = struct{}{}
		out = append(out, products[i].Type)
	}
	return out
}
