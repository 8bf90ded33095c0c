package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/cache"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/charts"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/config"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/dashboard"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/fetchers"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/logger"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/process"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/render"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/server"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Falling back to OS environment variables.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLog := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	appLog.Infof("Starting SwarmPAL processor %s on port %s", config.GetVersion(), cfg.Port)
	appLog.Infof("Storage backend: %s", cfg.StorageBackend)

	store, err := storage.NewClient(ctx, cfg)
	if err != nil {
		appLog.Fatal("Failed to initialize storage", err)
	}
	defer store.Close()

	cacheSvc := cache.NewService(store)
	fetcher := fetchers.New(fetchers.Options{
		ViresURL:   cfg.ViresURL,
		Timeout:    time.Duration(cfg.FetchTimeoutSec) * time.Second,
		RetryCount: cfg.FetchRetryCount,
		RetryWait:  time.Duration(cfg.FetchRetryWaitSec) * time.Second,
	})

	controllers, err := buildDashboards(cfg, fetcher, cacheSvc)
	if err != nil {
		appLog.Fatal("Failed to build dashboards", err)
	}

	srv, err := server.NewServer(cfg, controllers, fetchers.NewBulletinFetcher(cfg.BulletinURL))
	if err != nil {
		appLog.Fatal("Failed to build server", err)
	}
	defer srv.Close()

	for _, ctrl := range controllers {
		go ctrl.Watch(ctx)
		if cfg.PrecacheOnStart {
			go func(c *dashboard.Controller) {
				if err := c.RestoreOrInit(ctx); err != nil {
					appLog.Warnf("initial state for %s: %v", c.Definition().Name, err)
				}
			}(ctrl)
		}
	}

	if err := srv.Run(ctx); err != nil {
		appLog.Fatal("Server error", err)
	}
	appLog.Info("Server stopped")
}

// buildDashboards wires the TFA and DSECS dashboards with their figure
// renderers. TFA paints one quicklook figure; DSECS animates one frame per
// analyzed orbit pass.
func buildDashboards(cfg *config.Config, fetcher *fetchers.Fetcher, cacheSvc *cache.Service) ([]*dashboard.Controller, error) {
	registry := process.NewRegistry()
	gen := charts.NewGenerator()

	tfaDef := dashboard.TFADefinition(cfg.ViresURL)
	tfaAdapter := render.NewAdapter(tfaDef.Title, gen, func(tree *paldata.DataTree) (map[int][]byte, error) {
		img, err := gen.TFAQuicklook(tree)
		if err != nil {
			return nil, err
		}
		return map[int][]byte{0: img}, nil
	})
	tfa, err := dashboard.NewController(tfaDef, fetcher, registry, tfaAdapter, cacheSvc)
	if err != nil {
		return nil, err
	}

	dsecsDef := dashboard.DSECSDefinition(cfg.ViresURL)
	dsecsAdapter := render.NewAdapter(dsecsDef.Title, gen, gen.DSECSFrames)
	dsecs, err := dashboard.NewController(dsecsDef, fetcher, registry, dsecsAdapter, cacheSvc)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.AnimationIntervalMS) * time.Millisecond
	tfa.Player().SetInterval(interval)
	dsecs.Player().SetInterval(interval)

	return []*dashboard.Controller{tfa, dsecs}, nil
}
