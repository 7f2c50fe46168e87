package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"tripadvisor_hotels/internal/adapters/observability"
	"tripadvisor_hotels/internal/adapters/proxy"
	redisad "tripadvisor_hotels/internal/adapters/redis"
	"tripadvisor_hotels/internal/adapters/tripadvisor"
	"tripadvisor_hotels/internal/app"
	"tripadvisor_hotels/internal/cities"
	"tripadvisor_hotels/internal/domain"
	"tripadvisor_hotels/internal/shared"
	mongosink "tripadvisor_hotels/internal/storage/mongo"
	mysqlrepo "tripadvisor_hotels/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	list, err := loadCities(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("cities not loaded")
	}

	log.Info().
		Int("cities", len(list)).
		Str("sink", cfg.Sink).
		Bool("bind_identity", cfg.BindIdentity).
		Int("sink_workers", cfg.SinkWorkers).
		Msg("harvester starting")

	sink, closeSink := openSink(ctx, cfg)
	defer closeSink()

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	var c domain.Cache = cache
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without location cache")
		c = nil
	}

	pool, err := proxy.NewPool(proxy.FromConfig(cfg.ProxyTemplate, cfg.ProxyURLs), 0, cfg.ProxySessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("proxy pool")
	}
	src := tripadvisor.NewSource(tripadvisor.Config{
		SiteBase:      cfg.SiteBase,
		BootstrapPath: cfg.BootstrapPath,
		GraphQLBase:   cfg.GraphQLBase,
		ListingBase:   cfg.ListingBase,
		APIKey:        cfg.APIKey,
		RPS:           cfg.RPS,
		RetryDelay:    cfg.RetryDelay,
		Timeout:       cfg.Timeout,
	}, pool)

	svc := app.NewHarvestService(src, sink, c, app.HarvestOptions{
		BindIdentity: cfg.BindIdentity,
		SinkWorkers:  cfg.SinkWorkers,
		LocationTTL:  cfg.LocationTTL,
	})

	start := time.Now()
	sum, err := svc.Run(ctx, list)
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int("cities", sum.Cities).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Int("pages", sum.Pages).
		Int("records", sum.Records).
		Int("sink_errors", sum.SinkErrors).
		Dur("took", time.Since(start)).
		Msg("harvest finished")
	if err != nil {
		closeSink()
		os.Exit(1)
	}
}

func loadCities(cfg shared.Config) ([]string, error) {
	if cfg.Cities != "" {
		return cities.Split(cfg.Cities, cfg.CitiesSuffix), nil
	}
	return cities.Load(cfg.CitiesFile, cfg.CitiesCountry, cfg.CitiesSuffix)
}

// openSink returns the configured sink and its cleanup; it exits on failure.
func openSink(ctx context.Context, cfg shared.Config) (domain.HotelSink, func()) {
	switch cfg.Sink {
	case "mongo":
		s, err := mongosink.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoCollection)
		if err != nil {
			log.Fatal().Err(err).Msg("mongo connect failed")
		}
		log.Info().Str("db", cfg.MongoDB).Str("collection", cfg.MongoCollection).Msg("mongo sink ready")
		return s, func() { _ = s.Close(context.Background()) }
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		repo := mysqlrepo.New(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate failed")
		}
		log.Info().Msg("mysql sink ready")
		return repo, func() { _ = db.Close() }
	default:
		log.Fatal().Str("sink", cfg.Sink).Msg("unknown SINK, want mysql or mongo")
		return nil, nil
	}
}
