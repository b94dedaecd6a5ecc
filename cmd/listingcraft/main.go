package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/listingcraft/listingcraft/internal/pkg/cache"
	"github.com/listingcraft/listingcraft/internal/pkg/env"
	"github.com/listingcraft/listingcraft/internal/pkg/logger"
	"github.com/listingcraft/listingcraft/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	cache.SetupCache()

	logFormat := "json"
	if env.IsDev() {
		logFormat = "console"
	}
	logger.Setup(logger.Config{
		Level:  env.GetEnv("LOG_LEVEL", "info"),
		Format: logFormat,
	})

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 60 * 1024 * 1024, // 5 photos x 10 MiB + form overhead
	})

	// recovery and logging
	app.Use(recover.New(), fiberlogger.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
