package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/travelhub/internal/cache"
	"github.com/iliyamo/travelhub/internal/config"
	"github.com/iliyamo/travelhub/internal/database"
	"github.com/iliyamo/travelhub/internal/handler"
	"github.com/iliyamo/travelhub/internal/logger"
	"github.com/iliyamo/travelhub/internal/model"
	"github.com/iliyamo/travelhub/internal/queue"
	"github.com/iliyamo/travelhub/internal/repository"
	"github.com/iliyamo/travelhub/internal/router"
	"github.com/iliyamo/travelhub/internal/service"
)

func main() {
	seedAdmin := flag.String("seed-admin", "", "create an ADMIN account before serving, as email:password:name")
	flag.Parse()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Fatal("database unavailable", "error", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(db); err != nil {
			lg.Fatal("migrate", "error", err)
		}
		lg.Info("migrations applied")
	}

	cacheCfg := config.LoadCacheConfig()
	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Warn("redis unavailable; response cache, cart cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		qcfg := config.LoadQueueConfig()
		pub := queue.NewAMQPPublisher(qcfg, lg.With("component", "publisher"))
		defer pub.Close()
		events = pub

		go func() {
			if err := queue.StartAuditConsumer(ctx, qcfg, lg.With("component", "audit")); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	users := repository.NewUserRepo(db)
	products := repository.NewProductRepo(db)
	packages := repository.NewPackageRepo(db)
	carts := repository.NewCartRepo(db)

	auth, err := service.NewAuthService(users, service.AuthConfig{
		Secret:   cfg.JWTSecret,
		TokenTTL: cfg.TokenTTL,
	}, lg.With("component", "auth"))
	if err != nil {
		lg.Fatal("init auth", "error", err)
	}
	catalog := service.NewCatalogService(products, packages, events, lg.With("component", "catalog"))
	bundles := service.NewPackageService(packages, events, lg.With("component", "packages"))
	cartSvc := service.NewCartService(carts, cache.NewRedisCache(rdb, cacheCfg.CartTTL), lg.With("component", "cart"))

	if *seedAdmin != "" {
		if err := seed(ctx, auth, *seedAdmin); err != nil {
			lg.Fatal("seed admin", "error", err)
		}
		lg.Info("admin account ready")
	}

	e := router.New(router.Deps{
		Log:       lg,
		Redis:     rdb,
		Cache:     cacheCfg,
		RateLimit: config.LoadRateLimitConfig(),
		Verifier:  auth,
		DB:        db,
		Auth:      handler.NewAuthHandler(auth),
		Products:  handler.NewProductHandler(catalog),
		Packages:  handler.NewPackageHandler(bundles),
		Carts:     handler.NewCartHandler(cartSvc),
		Catalog:   catalog,
	})

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server", "error", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", "error", err)
	}
}

// seed creates the admin account described by arg ("email:password:name").
// An existing account with that email is left as is.
func seed(ctx context.Context, auth *service.AuthService, arg string) error {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) != 3 {
		return errors.New("expected email:password:name")
	}
	_, err := auth.CreateAdmin(ctx, parts[0], parts[1], parts[2])
	if errors.Is(err, model.ErrDuplicateIdentity) {
		return nil
	}
	return err
}
