package controllers

import (
	"errors"
	"io"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/listingcraft/listingcraft/internal/pkg/imageprep"
	"github.com/listingcraft/listingcraft/internal/pkg/pipeline"
	"github.com/listingcraft/listingcraft/internal/pkg/usercontext"
)

// HandleProcessImages turns 1-5 uploaded property photos into listing copy.
// Flow: auth -> trial init -> entitlement gate -> validate -> pipeline ->
// usage increment. The count is incremented only after the pipeline fully
// succeeded.
func HandleProcessImages(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	ctx := c.UserContext()

	// Initialize trial for new users
	if err := entitlementSvc.InitializeTrial(ctx, user.UserID); err != nil {
		return storeErrorResponse(c, err)
	}

	// Subscription/paywall gate; the reservation holds a slot for this
	// request so concurrent requests cannot overshoot the free quota.
	decision, release, err := entitlementSvc.ReserveListingSlot(ctx, user.UserID)
	if err != nil {
		return storeErrorResponse(c, err)
	}
	if !decision.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":                decision.Reason,
			"requiresSubscription": true,
		})
	}
	defer release()

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No images provided"})
	}
	files := form.File["images"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No images provided"})
	}
	if len(files) > pipeline.MaxImages {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Maximum 5 images allowed"})
	}

	images := make([]pipeline.Image, 0, len(files))
	for _, fh := range files {
		if fh.Size > imageprep.MaxFileBytes {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "File size too large. Maximum size is 10 MB."})
		}

		src, err := fh.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Could not read uploaded file"})
		}
		data, err := io.ReadAll(io.LimitReader(src, imageprep.MaxFileBytes+1))
		src.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Could not read uploaded file"})
		}
		if len(data) > imageprep.MaxFileBytes {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "File size too large. Maximum size is 10 MB."})
		}

		head := data
		if len(head) > 512 {
			head = head[:512]
		}
		if _, err := imageprep.ValidateImageBySniff(fh.Filename, head); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		prepared, err := imageprep.Prepare(data)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid image file"})
		}
		images = append(images, pipeline.Image{Base64: prepared.Base64})
	}

	result, err := processor.Process(ctx, images)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoImages) || errors.Is(err, pipeline.ErrTooManyImages) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	// Increment listing count after successful processing. The content is
	// already generated, so a failed write must not fail the response.
	if err := entitlementSvc.IncrementListingCount(ctx, user.UserID); err != nil {
		log.Printf("failed to increment listing count for user %s: %v", user.UserID, err)
	}

	return c.JSON(result)
}
