package entitlements

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/listingcraft/listingcraft/internal/pkg/env"
)

type Status string

const (
	StatusNone     Status = "none"
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// ParseStatus normalizes a provider status string. Unknown values collapse
// to "none" so a bad upstream payload can never grant access.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusTrialing:
		return StatusTrialing
	case StatusActive:
		return StatusActive
	case StatusPastDue:
		return StatusPastDue
	case StatusCanceled:
		return StatusCanceled
	default:
		return StatusNone
	}
}

// Record is the per-user entitlement state held in the identity provider's
// public metadata. The service never keeps a copy across requests.
type Record struct {
	SubscriptionStatus   Status     `json:"subscriptionStatus"`
	ListingCount         int        `json:"listingCount"`
	TrialStartDate       *time.Time `json:"trialStartDate,omitempty"`
	SubscriptionEndDate  *time.Time `json:"subscriptionEndDate,omitempty"`
	StripeCustomerID     string     `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId,omitempty"`
}

// Limits holds the configurable free-tier bounds.
type Limits struct {
	TrialDays int
	FreeQuota int
}

func LimitsFromEnv() Limits {
	return Limits{
		TrialDays: envInt("FREE_TRIAL_DAYS", 3),
		FreeQuota: envInt("FREE_LISTINGS_COUNT", 2),
	}
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(env.GetEnv(key, "")); err == nil && v >= 0 {
		return v
	}
	return def
}

// Decision is the outcome of a gate check. Reason is user-facing and only
// set when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  string
}

// Decide applies the entitlement rules to a record. inflight counts slot
// reservations by concurrent requests from the same user; it only matters
// for the free-quota branch.
func Decide(rec Record, inflight int, now time.Time, limits Limits) Decision {
	if rec.SubscriptionStatus == StatusActive {
		return Decision{Allowed: true}
	}

	if rec.SubscriptionStatus == StatusTrialing && rec.TrialStartDate != nil {
		trialEnd := rec.TrialStartDate.AddDate(0, 0, limits.TrialDays)
		if now.Before(trialEnd) {
			return Decision{Allowed: true}
		}
		return Decision{
			Allowed: false,
			Reason:  "Your free trial has ended. Please subscribe to continue.",
		}
	}

	if rec.ListingCount+inflight < limits.FreeQuota {
		return Decision{Allowed: true}
	}

	return Decision{
		Allowed: false,
		Reason:  fmt.Sprintf("You've used your %d free listings. Subscribe to continue creating listings.", limits.FreeQuota),
	}
}
