package auth

import (
	"strings"

	"github.com/hllmltyl/geri-donusum/internal/visibility"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ViewerLocal is the fiber locals key the middleware stores the viewer under.
const ViewerLocal = "viewer"

// RequireViewer validates bearer tokens and stores the viewer context in
// locals. Requests without a valid token are rejected.
func RequireViewer(secret string) fiber.Handler {
	resolve := resolveViewer(secret)
	return func(c *fiber.Ctx) error {
		viewer, err := resolve(c)
		if err != nil {
			return err
		}
		if !viewer.SignedIn() {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		c.Locals(ViewerLocal, viewer)
		return c.Next()
	}
}

// OptionalViewer admits anonymous viewers: a missing Authorization header
// yields the anonymous context, an invalid token is still rejected.
func OptionalViewer(secret string) fiber.Handler {
	resolve := resolveViewer(secret)
	return func(c *fiber.Ctx) error {
		viewer, err := resolve(c)
		if err != nil {
			return err
		}
		c.Locals(ViewerLocal, viewer)
		return c.Next()
	}
}

// ViewerFromCtx returns the viewer resolved by the middleware, or the
// anonymous context when none ran.
func ViewerFromCtx(c *fiber.Ctx) visibility.ViewerContext {
	if viewer, ok := c.Locals(ViewerLocal).(visibility.ViewerContext); ok {
		return viewer
	}
	return visibility.Anonymous
}

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

func resolveViewer(secret string) func(*fiber.Ctx) (visibility.ViewerContext, error) {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) (visibility.ViewerContext, error) {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return visibility.Anonymous, nil
		}

		parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
			return secretBytes, nil
		})
		if err != nil {
			return visibility.ViewerContext{}, fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		claims, ok := parsed.Claims.(*Claims)
		if !ok || !parsed.Valid {
			return visibility.ViewerContext{}, fiber.NewError(fiber.StatusUnauthorized, "token invalid")
		}
		return viewerFromClaims(claims), nil
	}
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
