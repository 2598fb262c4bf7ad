// Package http содержит компоненты для HTTP сервера.
package http

import (
	"github.com/gofiber/fiber/v3"

	"megachess/internal/auth/adapters/http/auth"
	"megachess/internal/auth/adapters/http/middleware"
	"megachess/internal/auth/ports/api"
)

// SetupRouter настраивает маршрутизацию для HTTP сервера.
func SetupRouter(app *fiber.App, useCase api.UserUseCase) {
	authHandler := auth.NewHandler(useCase)

	// Middleware для всех запросов.
	app.Use(middleware.NewLoggerMiddleware())
	app.Use(middleware.NewRecoveryMiddleware())

	// Путь подтверждения сохранен как в ссылке, уходящей в письме.
	app.Get("/confirm_registration", authHandler.ConfirmRegistration)

	// API версии 1.
	apiV1 := app.Group("/api/v1")

	// Auth routes (публичные).
	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Get("/confirm", authHandler.ConfirmRegistration)
	authRoutes.Post("/login", authHandler.Login)

	// Защищенные маршруты.
	userRoutes := apiV1.Group("/user")
	userRoutes.Use(middleware.NewAuthMiddleware(useCase))
	userRoutes.Get("/profile", authHandler.GetProfile)

	// Обработчик для несуществующих маршрутов.
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Route not found",
		})
	})
}
