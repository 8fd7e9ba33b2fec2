// Package domain holds the billing plan table, subscription lifecycle states
// and the errors shared by the entitlement and webhook services.
package domain

import "strings"

// Plan identifies a subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Status represents subscription lifecycle states.
type Status string

const (
	StatusTrialing   Status = "trialing"
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusIncomplete Status = "incomplete"
)

// Unlimited marks a ceiling that is effectively not enforced.
const Unlimited = 999999

// Limits are the numeric ceilings and feature flags of a plan. The table is
// immutable and loaded once; plan resolution never fails open.
type Limits struct {
	MaxCollaborators     int
	MaxClients           int
	MaxActiveProductions int
	Features             []string
}

var planLimits = map[Plan]Limits{
	PlanFree: {
		MaxCollaborators:     2,
		MaxClients:           5,
		MaxActiveProductions: 1,
		Features:             []string{"basic_calendar"},
	},
	PlanStarter: {
		MaxCollaborators:     5,
		MaxClients:           Unlimited,
		MaxActiveProductions: 10,
		Features:             []string{"basic_calendar", "chat_support"},
	},
	PlanPro: {
		MaxCollaborators:     20,
		MaxClients:           Unlimited,
		MaxActiveProductions: Unlimited,
		Features:             []string{"advanced_reports", "email_support", "team_management"},
	},
	PlanEnterprise: {
		MaxCollaborators:     Unlimited,
		MaxClients:           Unlimited,
		MaxActiveProductions: Unlimited,
		Features:             []string{"all"},
	},
}

// ParsePlan normalizes a raw plan value. Unrecognized values report ok=false.
func ParsePlan(raw string) (Plan, bool) {
	switch Plan(strings.ToLower(strings.TrimSpace(raw))) {
	case PlanFree:
		return PlanFree, true
	case PlanStarter:
		return PlanStarter, true
	case PlanPro:
		return PlanPro, true
	case PlanEnterprise:
		return PlanEnterprise, true
	default:
		return PlanFree, false
	}
}

// ParseStatus normalizes a raw subscription status value.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusTrialing:
		return StatusTrialing, true
	case StatusActive:
		return StatusActive, true
	case StatusPastDue:
		return StatusPastDue, true
	case StatusCanceled:
		return StatusCanceled, true
	case StatusIncomplete:
		return StatusIncomplete, true
	default:
		return StatusIncomplete, false
	}
}

// LimitsFor resolves the ceilings for a plan, falling back to the most
// restrictive (free) tier for unrecognized plan values.
func LimitsFor(plan Plan) Limits {
	if limits, ok := planLimits[plan]; ok {
		return limits
	}
	return planLimits[PlanFree]
}

// HasFeature reports whether the plan includes a feature flag.
func (l Limits) HasFeature(code string) bool {
	for _, f := range l.Features {
		if f == "all" || f == code {
			return true
		}
	}
	return false
}
