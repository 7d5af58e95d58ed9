package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"trip-route-engine/internal/adapters/cache"
	"trip-route-engine/internal/adapters/distance"
	"trip-route-engine/internal/api"
	"trip-route-engine/internal/api/handlers"
	"trip-route-engine/internal/config"
	"trip-route-engine/internal/ports"
	"trip-route-engine/internal/services"

	"github.com/joho/godotenv"
)

// main is the application composition root.
// It wires concrete adapters (cache stores, ORS or offline distance) behind
// ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	srvCfg := config.LoadServer()
	optCfg, err := config.LoadOptimization(srvCfg.OptimizationFile)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closer, err := cache.OpenStore(ctx, srvCfg.RedisURL, srvCfg.DatabaseURL, optCfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()

	provider, geocoder := buildProviders(srvCfg)

	routes := cache.NewRouteCache(optCfg.RouteCacheCapacity, optCfg.RouteCacheTTL())
	var coordStore ports.CoordinateStore
	var routeStore ports.RouteStore
	if store != nil {
		coordStore, routeStore = store, store
	}
	coords := cache.NewCoordinateCache(optCfg.CoordinateCacheCapacity, optCfg.CoordinateCacheTTL(), geocoder, coordStore)

	optimizer := services.NewRouteOptimizer(
		services.NewRouteLookup(routes, routeStore, provider),
		services.WithCoordinateResolver(coords),
	)

	router := api.NewRouter(api.Deps{
		Optimize: &handlers.OptimizeHandler{
			Optimizer:    optimizer,
			Config:       optCfg,
			Resolver:     coords,
			DefaultStart: srvCfg.StartLocation,
		},
		Caches: &handlers.CacheHandler{Routes: routes, Coordinates: coords, Store: store},
	})

	// Timeouts are tuned for cold-cache optimization (external API latency).
	srv := &http.Server{
		Addr:              ":" + srvCfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown failed: %v", err)
		}
	}()

	log.Printf("Server listening addr=:%s", srvCfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// buildProviders returns ORS when an API key is configured, otherwise the
// offline haversine estimate with no geocoder.
func buildProviders(cfg config.Server) (ports.DistanceProvider, ports.Geocoder) {
	if cfg.ORSAPIKey == "" {
		log.Println("ORS_API_KEY not set: using offline haversine distances, address lookup disabled")
		return distance.NewHaversineProvider(), nil
	}

	ors, err := distance.NewORSProvider(
		cfg.ORSAPIKey,
		distance.WithBaseURL(cfg.ORSBaseURL),
		distance.WithProfile(cfg.ORSProfile),
	)
	if err != nil {
		log.Fatal(err)
	}
	return ors, ors
}
