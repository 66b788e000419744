package stream

import (
	"github.com/hllmltyl/geri-donusum/internal/auth"
	"github.com/hllmltyl/geri-donusum/internal/visibility"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mounts the live map stream. Anonymous viewers may connect;
// they only ever receive verified points.
func RegisterRoutes(r fiber.Router, hub *Hub, optionalAuth fiber.Handler, onOpen, onClose func()) {
	r.Use("/ws", optionalAuth, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		viewer, ok := c.Locals(auth.ViewerLocal).(visibility.ViewerContext)
		if !ok {
			viewer = visibility.Anonymous
		}

		client := hub.Register(viewer)
		defer hub.Unregister(client)
		if onOpen != nil {
			onOpen()
		}
		if onClose != nil {
			defer onClose()
		}

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}
			hub.HandleMessage(client, raw)
		}
		<-done
	}))
}
