// handlers/quest_routes.go
package handlers

import (
	"strings"

	"qube-quest/middleware"
	"qube-quest/models"
	"qube-quest/services"
	"qube-quest/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// maxProofSize bounds a proof screenshot upload.
const maxProofSize = 10 * 1024 * 1024

func SetupQuestRoutes(app *fiber.App, quests *services.QuestService, ledger *services.SubmissionLedger, storage utils.ProofStorage, logger *zap.Logger) {
	userCtx := middleware.UserContextMiddleware(logger)

	app.Get("/quests", userCtx, func(c *fiber.Ctx) error {
		list, err := quests.ListVisible(c.UserContext())
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(fiber.Map{"quests": list})
	})

	app.Get("/quests/:id", userCtx, func(c *fiber.Ctx) error {
		quest, err := quests.GetQuest(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(quest)
	})

	// 📸 Submit proof for one task. Screenshot tasks need a multipart "proof" file;
	// other task types send their proof as form fields (e.g. "url").
	app.Post("/quests/:questId/tasks/:taskId/submissions", userCtx, func(c *fiber.Ctx) error {
		quest, task, err := quests.OpenTask(c.UserContext(), c.Params("questId"), c.Params("taskId"))
		if err != nil {
			return respondError(c, logger, err)
		}
		userID := middleware.UserID(c)

		proof := map[string]interface{}{}
		if fh, ferr := c.FormFile("proof"); ferr == nil {
			if fh.Size > maxProofSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "proof file too large"})
			}
			if ct := fh.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "proof must be an image"})
			}
			url, err := storage.Save(c.UserContext(), fh, utils.ProofKey(quest.ID, task.ID, userID, fh.Filename))
			if err != nil {
				logger.Error("proof upload failed", zap.String("quest_id", quest.ID), zap.String("task_id", task.ID), zap.Error(err))
				return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to store proof"})
			}
			proof["imageUrl"] = url
		} else if task.Type == models.TaskTypeScreenshot {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "proof image is required"})
		}
		if v := strings.TrimSpace(c.FormValue("url")); v != "" {
			proof["url"] = v
		}
		if v := strings.TrimSpace(c.FormValue("note")); v != "" {
			proof["note"] = v
		}
		if len(proof) == 0 && task.Type != models.TaskTypeButtonClick {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "proof is required"})
		}

		sub, err := ledger.Submit(c.UserContext(), services.SubmitRequest{
			UserAddress: userID,
			QuestID:     quest.ID,
			TaskID:      task.ID,
			TaskType:    task.Type,
			Method:      models.VerificationManual,
			Proof:       proof,
			Points:      task.Points,
		})
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	app.Get("/quests/:questId/tasks/:taskId/submission", userCtx, func(c *fiber.Ctx) error {
		sub, err := ledger.Get(c.UserContext(), middleware.UserID(c), c.Params("questId"), c.Params("taskId"))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(sub)
	})
}
