package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/listingcraft/listingcraft/internal/pkg/billing"
	"github.com/listingcraft/listingcraft/internal/pkg/entitlements"
	"github.com/listingcraft/listingcraft/internal/pkg/usercontext"
)

// HandleCreateCheckout creates (or reuses) the Stripe customer for the
// caller and opens a subscription checkout session.
func HandleCreateCheckout(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	ctx := c.UserContext()

	rec, err := entitlementSvc.Record(ctx, user.UserID)
	if err != nil {
		return storeErrorResponse(c, err)
	}

	customerID := rec.StripeCustomerID
	if customerID == "" {
		customer, err := stripeClient.CreateCustomer(ctx, user.UserID)
		if err != nil {
			log.Printf("stripe customer creation failed for user %s: %v", user.UserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create checkout session"})
		}
		customerID = customer.ID
		if err := entitlementSvc.LinkStripeCustomer(ctx, user.UserID, customerID); err != nil {
			return storeErrorResponse(c, err)
		}
	}

	session, err := stripeClient.CreateCheckoutSession(ctx, customerID, user.UserID, requestOrigin(c))
	if err != nil {
		log.Printf("stripe checkout session failed for user %s: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create checkout session"})
	}

	return c.JSON(fiber.Map{
		"sessionId": session.ID,
		"url":       session.URL,
	})
}

// HandleSubscriptionStatus returns the caller's entitlement record and,
// when a subscription is linked, refreshes its status from Stripe first.
// No webhooks exist; this polling read keeps local state convergent.
func HandleSubscriptionStatus(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	ctx := c.UserContext()

	rec, err := entitlementSvc.Record(ctx, user.UserID)
	if err != nil {
		return storeErrorResponse(c, err)
	}

	if rec.StripeSubscriptionID != "" {
		sub, err := stripeClient.GetSubscription(ctx, rec.StripeSubscriptionID)
		switch {
		case err == nil:
			status := billing.StripeStatusToEntitlementStatus(sub.Status)
			if status != rec.SubscriptionStatus {
				end := sub.PeriodEnd()
				if err := entitlementSvc.ReconcileWithBilling(ctx, user.UserID, status, end); err != nil {
					return storeErrorResponse(c, err)
				}
				rec.SubscriptionStatus = status
				rec.SubscriptionEndDate = end
			}
		case errors.Is(err, billing.ErrSubscriptionNotFound):
			// Subscription was deleted on Stripe's side.
			if rec.SubscriptionStatus == entitlements.StatusActive {
				if err := entitlementSvc.ReconcileWithBilling(ctx, user.UserID, entitlements.StatusCanceled, nil); err != nil {
					return storeErrorResponse(c, err)
				}
				rec.SubscriptionStatus = entitlements.StatusCanceled
			}
		default:
			// Stripe unreachable: serve the last known local state.
			log.Printf("stripe subscription read failed for user %s: %v", user.UserID, err)
		}
	}

	return c.JSON(rec)
}

type syncSubscriptionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// HandleSyncSubscription verifies a completed checkout session and persists
// the resulting subscription linkage.
func HandleSyncSubscription(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	ctx := c.UserContext()

	var req syncSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Session ID is required"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Session ID is required"})
	}

	session, err := stripeClient.GetCheckoutSession(ctx, req.SessionID)
	if err != nil {
		log.Printf("stripe checkout session read failed for user %s: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sync subscription"})
	}

	if session.PaymentStatus != "paid" || session.SubscriptionID == "" {
		return c.JSON(fiber.Map{
			"success": false,
			"message": "Payment not completed",
		})
	}

	sub, err := stripeClient.GetSubscription(ctx, session.SubscriptionID)
	if err != nil {
		log.Printf("stripe subscription read failed for user %s: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sync subscription"})
	}

	status := billing.StripeStatusToEntitlementStatus(sub.Status)
	if err := entitlementSvc.ApplySubscription(ctx, user.UserID, sub.ID, sub.CustomerID, status, sub.PeriodEnd()); err != nil {
		return storeErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success":            true,
		"subscriptionStatus": status,
	})
}
