package billing

import (
	"strings"

	"github.com/listingcraft/listingcraft/internal/pkg/entitlements"
)

// StripeStatusToEntitlementStatus maps Stripe subscription statuses onto
// the entitlement state machine. Anything that does not clearly entitle or
// clearly cancel collapses to "none" so billing noise can never grant
// access.
func StripeStatusToEntitlementStatus(status string) entitlements.Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active":
		return entitlements.StatusActive
	case "trialing":
		return entitlements.StatusTrialing
	case "past_due":
		return entitlements.StatusPastDue
	case "canceled", "unpaid", "incomplete_expired":
		return entitlements.StatusCanceled
	default:
		return entitlements.StatusNone
	}
}
