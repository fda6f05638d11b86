package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/landmarkmap/internal/adapters/geoclue"
	"github.com/samirrijal/landmarkmap/internal/adapters/http"
	"github.com/samirrijal/landmarkmap/internal/adapters/landmarkapi"
	"github.com/samirrijal/landmarkmap/internal/adapters/memcache"
	natsadapter "github.com/samirrijal/landmarkmap/internal/adapters/nats"
	"github.com/samirrijal/landmarkmap/internal/adapters/nominatim"
	"github.com/samirrijal/landmarkmap/internal/adapters/valkey"
	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/core/ports"
	"github.com/samirrijal/landmarkmap/internal/core/usecases"
	"github.com/samirrijal/landmarkmap/internal/pkg/config"
	"github.com/samirrijal/landmarkmap/internal/pkg/logging"
	"github.com/samirrijal/landmarkmap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("landmarkmap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Landmark catalog
	landmarks := usecases.SampleCatalog()
	if cfg.Landmarks.CatalogFile != "" {
		landmarks, err = usecases.LoadCatalog(cfg.Landmarks.CatalogFile)
		if err != nil {
			log.Fatalf("catalog: %v", err)
		}
	}
	catalog := usecases.NewCatalogService(landmarks)
	slog.Info("catalog loaded", "landmarks", catalog.Len())

	// Cache: Valkey when configured, in-process otherwise
	var cache ports.CacheService
	var valkeyCache *valkey.Cache
	if cfg.Valkey.Enabled {
		valkeyCache, err = valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
		if err != nil {
			slog.Warn("valkey unavailable, using in-process cache", "error", err)
		} else {
			defer valkeyCache.Close()
			cache = valkeyCache
		}
	}
	if cache == nil {
		cache = memcache.New(time.Duration(cfg.Geocoder.CacheTTLSeconds)*time.Second, 10*time.Minute)
	}

	// Geocoding
	geocoder := usecases.NewGeocodeService(
		nominatim.New(cfg.Geocoder.Server, cfg.Geocoder.RatePerSecond),
		cache,
		cfg.Geocoder.CacheTTLSeconds,
	)

	// Landmark source for widget sessions
	var source ports.LandmarkSource = catalog
	if cfg.Landmarks.Endpoint != "" {
		source = landmarkapi.New(cfg.Landmarks.Endpoint, time.Duration(cfg.Landmarks.TimeoutSeconds)*time.Second)
		slog.Info("landmark endpoint configured", "endpoint", cfg.Landmarks.Endpoint)
	}

	// NATS
	var publisher ports.EventPublisher
	var nc *natsadapter.Publisher
	if cfg.NATS.Enabled {
		nc, err = natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer nc.Close()
			publisher = nc
		}
	}

	// Host positioning
	locateTimeout := time.Duration(cfg.Locator.TimeoutSeconds) * time.Second
	var positions ports.PositionProvider
	if cfg.Locator.Source == "geoclue" {
		positions = geoclue.New(cfg.Locator.DesktopID, locateTimeout)
	}

	deps := &http.Dependencies{
		Catalog:         catalog,
		Landmarks:       source,
		Geocoder:        geocoder,
		Publisher:       publisher,
		Positions:       positions,
		Map:             mapOptions(cfg.Map),
		PositionTimeout: locateTimeout,
		DocsPath:        http.DefaultDocsPath,
		NATS:            nc,
		Cache:           valkeyCache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024,
		AppName:      "Landmark Map API",
		ErrorHandler: http.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func mapOptions(m config.MapConfig) usecases.Options {
	opts := usecases.DefaultOptions()
	opts.DefaultCenter = domain.GeoPoint{Lat: m.DefaultLat, Lon: m.DefaultLon}
	opts.DefaultZoom = m.DefaultZoom
	opts.SearchZoom = m.SearchZoom
	opts.LocateZoom = m.LocateZoom
	opts.DebounceWindow = m.DebounceWindow()
	opts.DefaultRadius = m.DefaultRadiusM
	opts.FetchOnLocateFailure = m.FetchOnLocateFailure
	opts.LocateOnStart = m.LocateOnStart
	return opts
}
