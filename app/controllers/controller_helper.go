package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/listingcraft/listingcraft/internal/pkg/billing"
	"github.com/listingcraft/listingcraft/internal/pkg/entitlements"
	"github.com/listingcraft/listingcraft/internal/pkg/env"
	"github.com/listingcraft/listingcraft/internal/pkg/identity"
	"github.com/listingcraft/listingcraft/internal/pkg/pipeline"
)

var (
	entitlementSvc *entitlements.Service
	processor      *pipeline.Processor
	stripeClient   *billing.StripeClient

	validate = validator.New()
)

// Initialize wires the controller dependencies; called once from the router.
func Initialize(svc *entitlements.Service, proc *pipeline.Processor, stripe *billing.StripeClient) {
	entitlementSvc = svc
	processor = proc
	stripeClient = stripe
}

// storeErrorResponse maps entitlement store failures onto HTTP responses.
// Store outages deny the request (503) instead of silently allowing it.
func storeErrorResponse(c *fiber.Ctx, err error) error {
	if errors.Is(err, entitlements.ErrStoreUnavailable) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Account service is temporarily unavailable. Please try again.",
		})
	}
	if errors.Is(err, identity.ErrNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

func requestOrigin(c *fiber.Ctx) string {
	if origin := c.Get(fiber.HeaderOrigin); origin != "" {
		return origin
	}
	return env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000")
}
