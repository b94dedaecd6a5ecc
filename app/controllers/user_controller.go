package controllers

import (
	"math"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/listingcraft/listingcraft/internal/pkg/entitlements"
	"github.com/listingcraft/listingcraft/internal/pkg/usercontext"
)

// HandleUserEntitlements powers the dashboard status widget: current plan
// state, listings used, and remaining trial days.
func HandleUserEntitlements(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	rec, err := entitlementSvc.Record(c.UserContext(), user.UserID)
	if err != nil {
		return storeErrorResponse(c, err)
	}

	now := time.Now()
	limits := entitlementSvc.Limits()
	decision := entitlements.Decide(rec, 0, now, limits)

	trialDaysLeft := 0
	if rec.SubscriptionStatus == entitlements.StatusTrialing && rec.TrialStartDate != nil {
		remaining := rec.TrialStartDate.AddDate(0, 0, limits.TrialDays).Sub(now)
		if remaining > 0 {
			trialDaysLeft = int(math.Ceil(remaining.Hours() / 24))
		}
	}

	return c.JSON(fiber.Map{
		"subscriptionStatus": rec.SubscriptionStatus,
		"listingCount":       rec.ListingCount,
		"freeQuota":          limits.FreeQuota,
		"trialDaysLeft":      trialDaysLeft,
		"canCreateListing":   decision.Allowed,
		"reason":             decision.Reason,
	})
}
