package moderation

import (
	"github.com/hllmltyl/geri-donusum/internal/auth"
	"github.com/hllmltyl/geri-donusum/internal/point"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, ctrl *Controller, authMiddleware fiber.Handler) {
	r.Post("/points/:id/approve", authMiddleware, func(c *fiber.Ctx) error {
		viewer := auth.ViewerFromCtx(c)
		if err := ctrl.Approve(c.Context(), viewer, c.Params("id")); err != nil {
			return moderationError(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Put("/points/:id", authMiddleware, func(c *fiber.Ctx) error {
		var meta point.Metadata
		if err := c.BodyParser(&meta); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		viewer := auth.ViewerFromCtx(c)
		if err := ctrl.EditMetadata(c.Context(), viewer, c.Params("id"), meta); err != nil {
			return moderationError(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Delete("/points/:id", authMiddleware, func(c *fiber.Ctx) error {
		viewer := auth.ViewerFromCtx(c)
		if err := ctrl.Delete(c.Context(), viewer, c.Params("id")); err != nil {
			return moderationError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/moderation/pending", authMiddleware, func(c *fiber.Ctx) error {
		pending, err := ctrl.Pending(auth.ViewerFromCtx(c))
		if err != nil {
			return moderationError(err)
		}
		if pending == nil {
			pending = []point.RecyclingPoint{}
		}
		return c.JSON(pending)
	})
}

func moderationError(err error) *fiber.Error {
	switch {
	case err == point.ErrUnauthorized:
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case point.IsValidation(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case point.IsTransport(err):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
