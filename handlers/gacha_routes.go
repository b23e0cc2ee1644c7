// handlers/gacha_routes.go
package handlers

import (
	"qube-quest/middleware"
	"qube-quest/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupGachaRoutes(app *fiber.App, engine *services.GachaEngine, spinLimit fiber.Handler, logger *zap.Logger) {
	userCtx := middleware.UserContextMiddleware(logger)

	app.Get("/gacha/config", userCtx, func(c *fiber.Ctx) error {
		bands := services.Bands()
		rates := make([]fiber.Map, 0, len(bands))
		for _, b := range bands {
			rates = append(rates, fiber.Map{
				"tier":    b.Tier,
				"percent": b.Upper - b.Lower,
			})
		}
		return c.JSON(fiber.Map{"spin_cost": engine.SpinCost(), "rates": rates})
	})

	// 🎲 One spin per request; the limiter runs after the user is known.
	app.Post("/gacha/spin", userCtx, spinLimit, func(c *fiber.Ctx) error {
		res, err := engine.Spin(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(fiber.Map{
			"tier":    res.Tier,
			"balance": res.Account.Points,
			"cubes":   res.Account.Cubes.Map(),
			"spin_id": res.Record.ID,
		})
	})

	app.Get("/gacha/history", userCtx, func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		spins, err := engine.History(c.UserContext(), middleware.UserID(c), limit)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(fiber.Map{"spins": spins})
	})
}
