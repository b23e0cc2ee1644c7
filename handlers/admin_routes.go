// handlers/admin_routes.go
package handlers

import (
	"qube-quest/middleware"
	"qube-quest/models"
	"qube-quest/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupAdminRoutes(app *fiber.App, quests *services.QuestService, ledger *services.SubmissionLedger, stats *services.StatsService, logger *zap.Logger) {
	// 🔐 Admin routes: gateway user context plus the admin role
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(logger), middleware.RequireRole(middleware.RoleAdmin))

	admin.Post("/quests", func(c *fiber.Ctx) error {
		var in services.CreateQuestInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
		}
		quest, err := quests.CreateQuest(c.UserContext(), in)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(quest)
	})

	admin.Get("/submissions", func(c *fiber.Ctx) error {
		filter := services.SubmissionFilter{
			Status:  models.SubmissionStatus(c.Query("status")),
			QuestID: c.Query("quest_id"),
			Limit:   c.QueryInt("limit", 50),
		}
		if filter.Status != "" {
			switch filter.Status {
			case models.SubmissionPending, models.SubmissionApproved, models.SubmissionRejected:
			default:
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown status filter"})
			}
		}
		if u := c.Query("user"); u != "" {
			addr, err := services.NormalizeAddress(u)
			if err != nil {
				return respondError(c, logger, err)
			}
			filter.UserAddress = addr
		}
		subs, err := ledger.List(c.UserContext(), filter)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(fiber.Map{"submissions": subs})
	})

	admin.Post("/submissions/:id/approve", func(c *fiber.Ctx) error {
		sub, err := ledger.Approve(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, logger, err)
		}
		logger.Info("admin approved submission", zap.String("id", sub.ID), zap.String("admin", middleware.UserID(c)))
		return c.JSON(sub)
	})

	admin.Post("/submissions/:id/reject", func(c *fiber.Ctx) error {
		sub, err := ledger.Reject(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, logger, err)
		}
		logger.Info("admin rejected submission", zap.String("id", sub.ID), zap.String("admin", middleware.UserID(c)))
		return c.JSON(sub)
	})

	admin.Get("/stats", func(c *fiber.Ctx) error {
		overview, err := stats.Overview(c.UserContext())
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(overview)
	})

	admin.Get("/stats/quests/:id", func(c *fiber.Ctx) error {
		qs, err := stats.ForQuest(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(qs)
	})
}
