package server

import (
	"github.com/hllmltyl/geri-donusum/internal/auth"
	"github.com/hllmltyl/geri-donusum/internal/cache"
	"github.com/hllmltyl/geri-donusum/internal/config"
	"github.com/hllmltyl/geri-donusum/internal/engine"
	"github.com/hllmltyl/geri-donusum/internal/metrics"
	"github.com/hllmltyl/geri-donusum/internal/moderation"
	"github.com/hllmltyl/geri-donusum/internal/point"
	"github.com/hllmltyl/geri-donusum/internal/session"
	"github.com/hllmltyl/geri-donusum/internal/stream"
	"github.com/hllmltyl/geri-donusum/internal/visibility"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Engine *engine.Engine
	Stream *stream.Hub
	Feed   *point.Feed
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	prom := metrics.New()
	feed := point.NewFeed(redisClient)
	store := point.NewPostgresStore(db, feed)
	pointCache := cache.New()
	eng := engine.New(store, feed, pointCache, prom)
	sessions := session.NewManager(store)
	hub := stream.NewHub(pointCache, sessions)

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Engine: eng,
		Stream: hub,
		Feed:   feed,
	}

	registerRoutes(s, store, pointCache, sessions, prom)
	return s
}

func registerRoutes(s *Server, store point.Store, pointCache *cache.Cache, sessions *session.Manager, prom *metrics.Provider) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{"status": "ok"}
		if err := pointCache.Degraded(); err != nil {
			status["feed"] = "degraded"
		}
		return c.JSON(status)
	})
	s.App.Get(s.Cfg.MetricsPath, adaptor.HTTPHandler(prom.Handler()))

	requireViewer := auth.RequireViewer(s.Cfg.JWTSecret)
	optionalViewer := auth.OptionalViewer(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))

	canSee := func(c *fiber.Ctx, p point.RecyclingPoint) bool {
		return visibility.CanSee(p, auth.ViewerFromCtx(c))
	}
	point.RegisterRoutes(s.App.Group("/points"), pointCache, canSee, optionalViewer)

	moderation.RegisterRoutes(s.App, moderation.NewController(store, pointCache), requireViewer)

	locate := func(c *fiber.Ctx) *point.Coordinate {
		var body struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		}
		if err := c.BodyParser(&body); err == nil && body.Lat != nil && body.Lng != nil {
			return &point.Coordinate{Lat: *body.Lat, Lng: *body.Lng}
		}
		if s.Cfg.DefaultLat == 0 && s.Cfg.DefaultLng == 0 {
			return nil
		}
		return &point.Coordinate{Lat: s.Cfg.DefaultLat, Lng: s.Cfg.DefaultLng}
	}
	session.RegisterRoutes(s.App.Group("/session"), sessions, pointCache, locate, requireViewer)

	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, optionalViewer,
		func() { prom.OpenStreams.Inc() },
		func() { prom.OpenStreams.Dec() })
}
