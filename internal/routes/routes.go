package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/config"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/middleware"
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	swagger "github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Handlers bundles everything Setup mounts.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Health  *handlers.HealthHandler
	User    *handlers.UserHandler
	Catalog *handlers.CatalogHandler
	Title   *handlers.TitleHandler
	Review  *handlers.ReviewHandler
	Comment *handlers.CommentHandler
}

// Setup mounts the API under /v1. prom may be nil, in which case /metrics
// is not served.
func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers, prom *fiberprometheus.FiberPrometheus) {
	if prom != nil {
		prom.RegisterAt(app, "/metrics")
		app.Use(prom.Middleware)
	}

	app.Get("/health", h.Health.Check)
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/v1", middleware.OptionalJWT(cfg), middleware.LoadActor(db))
	if cfg.APIRateLimit > 0 {
		api.Use(rateLimit(cfg.APIRateLimit))
	}

	// Auth: public, stricter limit
	auth := api.Group("/auth")
	if cfg.AuthRateLimit > 0 {
		auth.Use(rateLimit(cfg.AuthRateLimit))
	}
	auth.Post("/signup", h.Auth.Signup)
	auth.Post("/token", h.Auth.Token)

	// Users: me before :username so it is not taken as a name
	users := api.Group("/users")
	users.Get("/me", h.User.Me)
	users.Patch("/me", h.User.UpdateMe)

	adminOnly := middleware.AdminRequired()
	users.Get("/", adminOnly, h.User.List)
	users.Post("/", adminOnly, h.User.Create)
	users.Get("/:username", adminOnly, h.User.Get)
	users.Patch("/:username", adminOnly, h.User.Update)
	users.Delete("/:username", adminOnly, h.User.Delete)

	// Catalog
	api.Get("/categories", h.Catalog.ListCategories)
	api.Post("/categories", h.Catalog.CreateCategory)
	api.Delete("/categories/:slug", h.Catalog.DeleteCategory)

	api.Get("/genres", h.Catalog.ListGenres)
	api.Post("/genres", h.Catalog.CreateGenre)
	api.Delete("/genres/:slug", h.Catalog.DeleteGenre)

	titles := api.Group("/titles")
	titles.Get("/", h.Title.List)
	titles.Post("/", h.Title.Create)
	titles.Get("/:title_id", h.Title.Get)
	titles.Patch("/:title_id", h.Title.Update)
	titles.Delete("/:title_id", h.Title.Delete)

	// Reviews and comments
	reviews := titles.Group("/:title_id/reviews")
	reviews.Get("/", h.Review.List)
	reviews.Post("/", h.Review.Create)
	reviews.Get("/:review_id", h.Review.Get)
	reviews.Patch("/:review_id", h.Review.Update)
	reviews.Delete("/:review_id", h.Review.Delete)

	comments := reviews.Group("/:review_id/comments")
	comments.Get("/", h.Comment.List)
	comments.Post("/", h.Comment.Create)
	comments.Get("/:comment_id", h.Comment.Get)
	comments.Patch("/:comment_id", h.Comment.Update)
	comments.Delete("/:comment_id", h.Comment.Delete)
}

func rateLimit(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               perMinute,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}
