// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/travelhub/internal/cache"
	"github.com/iliyamo/travelhub/internal/config"
	"github.com/iliyamo/travelhub/internal/handler"
	"github.com/iliyamo/travelhub/internal/logger"
	"github.com/iliyamo/travelhub/internal/middleware"
	"github.com/iliyamo/travelhub/internal/model"
)

// Deps is everything the route table needs. Redis may be nil, in which
// case the response cache and the rate limiter pass requests through.
type Deps struct {
	Log       *logger.Logger
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Verifier  middleware.Verifier
	DB        handler.Pinger

	Auth     *handler.AuthHandler
	Products *handler.ProductHandler
	Packages *handler.PackageHandler
	Carts    *handler.CartHandler
	Catalog  handler.CatalogService
}

// kindRoutes maps each domain page to the product kind it serves.
var kindRoutes = []struct {
	path string
	kind model.Kind
}{
	{"/flights", model.KindFlight},
	{"/hotels", model.KindHotel},
	{"/transport", model.KindTransport},
	{"/excursions", model.KindExcursion},
}

// New builds the echo instance with the global middleware stack and the
// /api route table.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORS())
	e.Use(middleware.RequestLogger(d.Log))

	e.GET("/healthz", handler.Health(d.DB))
	Register(e.Group("/api"), d)
	return e
}

// Register adds every API route to g.
func Register(g *echo.Group, d Deps) {
	authn := middleware.Authenticate(d.Verifier)
	admin := middleware.RequireRole(model.RoleAdmin)
	cached := middleware.NewRedisCache(d.Cache, d.Redis, d.Log)
	// Cached carts embed product and package summaries, so catalog writes
	// drop them too.
	purge := middleware.PurgeOnWrite(d.Cache, d.Redis, d.Log, cache.KeyPrefix)
	limited := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	// ---- Auth ----
	a := g.Group("/auth")
	a.POST("/register", d.Auth.Register, limited)
	a.POST("/login", d.Auth.Login, limited)
	a.GET("/me", d.Auth.Me, authn)

	// Catalog routes share the /api prefix, so their middleware is attached
	// per route rather than through empty-prefix groups.
	reads := []echo.MiddlewareFunc{authn, cached}
	writes := []echo.MiddlewareFunc{authn, admin, purge}

	// ---- Catalog reads ----
	g.GET("/products", d.Products.List, reads...)
	g.GET("/products/:id", d.Products.Get, reads...)
	g.GET("/packages", d.Packages.List, reads...)
	g.GET("/packages/:id", d.Packages.Get, reads...)

	// ---- Catalog writes (ADMIN) ----
	g.POST("/products", d.Products.Create, writes...)
	g.PUT("/products/:id", d.Products.Update, writes...)
	g.DELETE("/products/:id", d.Products.Delete, writes...)
	g.POST("/packages", d.Packages.Create, writes...)
	g.PUT("/packages/:id", d.Packages.Update, writes...)
	g.DELETE("/packages/:id", d.Packages.Delete, writes...)

	for _, kr := range kindRoutes {
		h := handler.NewKindHandler(d.Catalog, kr.kind)
		g.GET(kr.path, h.List, reads...)
		g.GET(kr.path+"/:id", h.Get, reads...)
		g.POST(kr.path, h.Create, writes...)
	}

	g.GET("/dashboard/stats", d.Products.Stats, authn, admin)

	// ---- Cart (any authenticated role, own cart only) ----
	c := g.Group("/cart", authn)
	c.GET("", d.Carts.Get)
	c.DELETE("", d.Carts.Clear)
	c.POST("/items", d.Carts.AddItem)
	c.PUT("/items/:id", d.Carts.UpdateItem)
	c.DELETE("/items/:id", d.Carts.RemoveItem)
}
