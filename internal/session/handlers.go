package session

import (
	"github.com/hllmltyl/geri-donusum/internal/auth"
	"github.com/hllmltyl/geri-donusum/internal/cache"
	"github.com/hllmltyl/geri-donusum/internal/point"

	"github.com/gofiber/fiber/v2"
)

type coordinateBody struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type detailsBody struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    point.Category `json:"category"`
}

// RegisterRoutes exposes the add-or-edit flow. locate supplies the seeding
// coordinate (device position when the client reported one, configured
// default otherwise) and may return nil.
func RegisterRoutes(r fiber.Router, mgr *Manager, c *cache.Cache, locate func(*fiber.Ctx) *point.Coordinate, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		machine := mgr.ForViewer(auth.ViewerFromCtx(c))
		return c.JSON(fiber.Map{"state": machine.State(), "draft": machine.Draft()})
	})

	r.Post("/start", authMiddleware, func(ctx *fiber.Ctx) error {
		machine := mgr.ForViewer(auth.ViewerFromCtx(ctx))
		if err := machine.StartAdd(locate(ctx)); err != nil {
			return sessionError(err)
		}
		return ctx.JSON(fiber.Map{"state": machine.State(), "draft": machine.Draft()})
	})

	r.Post("/edit/:id", authMiddleware, func(ctx *fiber.Ctx) error {
		target, ok := c.Get(ctx.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "point not found")
		}
		machine := mgr.ForViewer(auth.ViewerFromCtx(ctx))
		if err := machine.StartEdit(target); err != nil {
			return sessionError(err)
		}
		return ctx.JSON(fiber.Map{"state": machine.State(), "draft": machine.Draft()})
	})

	r.Post("/viewport", authMiddleware, func(ctx *fiber.Ctx) error {
		var body coordinateBody
		if err := ctx.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		machine := mgr.ForViewer(auth.ViewerFromCtx(ctx))
		machine.ViewportChanged(point.Coordinate{Lat: body.Lat, Lng: body.Lng})
		return ctx.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/confirm", authMiddleware, func(ctx *fiber.Ctx) error {
		machine := mgr.ForViewer(auth.ViewerFromCtx(ctx))
		if err := machine.ConfirmLocation(); err != nil {
			return sessionError(err)
		}
		return ctx.JSON(fiber.Map{"state": machine.State()})
	})

	r.Post("/details", authMiddleware, func(ctx *fiber.Ctx) error {
		var body detailsBody
		if err := ctx.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		machine := mgr.ForViewer(auth.ViewerFromCtx(ctx))
		if err := machine.SetDetails(body.Title, body.Description, body.Category); err != nil {
			return sessionError(err)
		}
		return ctx.JSON(fiber.Map{"state": machine.State(), "draft": machine.Draft()})
	})

	r.Post("/submit", authMiddleware, func(ctx *fiber.Ctx) error {
		machine := mgr.ForViewer(auth.ViewerFromCtx(ctx))
		done, err := machine.Submit(ctx.Context())
		if err != nil {
			return sessionError(err)
		}

		if err := <-done; err != nil {
			return sessionError(err)
		}
		return ctx.JSON(fiber.Map{"state": machine.State()})
	})

	r.Post("/cancel", authMiddleware, func(ctx *fiber.Ctx) error {
		machine := mgr.ForViewer(auth.ViewerFromCtx(ctx))
		machine.Cancel()
		return ctx.JSON(fiber.Map{"state": machine.State()})
	})

	r.Post("/ack", authMiddleware, func(ctx *fiber.Ctx) error {
		machine := mgr.ForViewer(auth.ViewerFromCtx(ctx))
		if err := machine.Acknowledge(); err != nil {
			return sessionError(err)
		}
		return ctx.JSON(fiber.Map{"state": machine.State(), "draft": machine.Draft()})
	})
}

func sessionError(err error) *fiber.Error {
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
