package point

import "github.com/gofiber/fiber/v2"

// Reader is the read surface handlers use: the cache, not the store, so
// responses reflect exactly what connected map sessions see.
type Reader interface {
	Snapshot() []RecyclingPoint
	Get(id string) (RecyclingPoint, bool)
	Degraded() error
}

// CanSeeFunc decides per-point visibility for the calling viewer. Wiring it
// in as a function keeps this package free of the visibility dependency.
type CanSeeFunc func(c *fiber.Ctx, p RecyclingPoint) bool

func RegisterRoutes(r fiber.Router, reader Reader, canSee CanSeeFunc, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		visible := []RecyclingPoint{}
		for _, p := range reader.Snapshot() {
			if canSee(c, p) {
				visible = append(visible, p)
			}
		}

		if err := reader.Degraded(); err != nil {
			// Stale-but-available: serve the last snapshot and flag it.
			c.Set("X-Points-Degraded", "true")
		}
		return c.JSON(visible)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		p, ok := reader.Get(c.Params("id"))
		if !ok || !canSee(c, p) {
			return fiber.NewError(fiber.StatusNotFound, "point not found")
		}
		return c.JSON(p)
	})
}
