package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/listingcraft/listingcraft/app/controllers"
	"github.com/listingcraft/listingcraft/internal/pkg/billing"
	"github.com/listingcraft/listingcraft/internal/pkg/cache"
	"github.com/listingcraft/listingcraft/internal/pkg/entitlements"
	"github.com/listingcraft/listingcraft/internal/pkg/generation"
	"github.com/listingcraft/listingcraft/internal/pkg/identity"
	"github.com/listingcraft/listingcraft/internal/pkg/middleware"
	"github.com/listingcraft/listingcraft/internal/pkg/pipeline"
	"github.com/listingcraft/listingcraft/internal/pkg/vision"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Wire adapters and services once at startup.
	store := entitlements.NewIdentityStore(identity.NewClientFromEnv())
	slots := entitlements.NewRedisSlots(cache.GetClient())
	svc := entitlements.NewService(store, slots, entitlements.LimitsFromEnv())

	modes := pipeline.ModesFromEnv()
	var gen generation.Client
	if modes.Generation == pipeline.GenerationReal {
		gen = generation.NewOpenAIClientFromEnv()
	}
	proc := pipeline.NewProcessor(modes, vision.NewClientFromEnv(), gen)

	controllers.Initialize(svc, proc, billing.NewStripeClientFromEnv())

	// Session token auth applies to everything under /api.
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
	}), middleware.SessionAuthMiddleware())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1", middleware.RequireAPIAuth)
	v1.Post("/listings/process", controllers.HandleProcessImages)
	v1.Get("/user/entitlements", controllers.HandleUserEntitlements)
	v1.Post("/billing/checkout", controllers.HandleCreateCheckout)
	v1.Get("/billing/subscription", controllers.HandleSubscriptionStatus)
	v1.Post("/billing/sync", controllers.HandleSyncSubscription)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
