package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"trip-route-engine/internal/adapters/cache"
	"trip-route-engine/internal/adapters/distance"
	"trip-route-engine/internal/adapters/repositories"
	"trip-route-engine/internal/config"
	"trip-route-engine/internal/domain"
	"trip-route-engine/internal/platform/db"
	"trip-route-engine/internal/ports"
	"trip-route-engine/internal/services"

	"github.com/joho/godotenv"
)

const usage = `usage: dbtool <command> [flags]

commands:
  init                  create the cache tables in DATABASE_URL
  clear                 empty the shared cache store (REDIS_URL or DATABASE_URL)
  optimize -day FILE    optimize a day definition and print the result as JSON
`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case "init":
		err = initSchema()
	case "clear":
		err = clearStore(ctx)
	case "optimize":
		err = optimizeDay(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func initSchema() error {
	databaseURL := config.Get("DATABASE_URL", "")
	if strings.TrimSpace(databaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Println("Initializing cache schema...")
	if err := repositories.InitSchema(conn, db.DriverFor(databaseURL)); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	log.Println("Schema ready.")
	return nil
}

func clearStore(ctx context.Context) error {
	optCfg, err := config.LoadOptimization(config.Get("OPTIMIZATION_CONFIG", ""))
	if err != nil {
		return err
	}

	store, closer, err := cache.OpenStore(ctx, config.Get("REDIS_URL", ""), config.Get("DATABASE_URL", ""), optCfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	if store == nil {
		return errors.New("REDIS_URL or DATABASE_URL is required")
	}
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache store: %w", err)
	}
	log.Println("Cache store cleared.")
	return nil
}

func optimizeDay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	dayPath := fs.String("day", config.Get("DAY_PATH", "data/seeds/day.json"), "day definition (JSON)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srvCfg := config.LoadServer()
	optCfg, err := config.LoadOptimization(srvCfg.OptimizationFile)
	if err != nil {
		return err
	}

	day, err := repositories.LoadDayFromJSON(*dayPath)
	if err != nil {
		return err
	}
	if day.Start == nil {
		return fmt.Errorf("optimize: %s has no start coordinates", *dayPath)
	}

	var provider ports.DistanceProvider = distance.NewHaversineProvider()
	var opts []services.OptimizerOption
	if srvCfg.ORSAPIKey != "" {
		ors, err := distance.NewORSProvider(srvCfg.ORSAPIKey, distance.WithBaseURL(srvCfg.ORSBaseURL), distance.WithProfile(srvCfg.ORSProfile))
		if err != nil {
			return err
		}
		provider = ors
		coords := cache.NewCoordinateCache(optCfg.CoordinateCacheCapacity, optCfg.CoordinateCacheTTL(), ors, nil)
		opts = append(opts, services.WithCoordinateResolver(coords))
	}

	routes := cache.NewRouteCache(optCfg.RouteCacheCapacity, optCfg.RouteCacheTTL())
	optimizer := services.NewRouteOptimizer(services.NewRouteLookup(routes, nil, provider), opts...)

	res, err := optimizer.Optimize(ctx, day, *day.Start, optCfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*domain.OptimizationResult
		ProposedIDs []string `json:"proposed_ids"`
	}{res, res.ProposedIDs()})
}
