// README: Entry point; loads config, wires services, starts the HTTP server and background jobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"shiftroute/internal/ai"
	"shiftroute/internal/config"
	"shiftroute/internal/geo"
	httptransport "shiftroute/internal/http"
	"shiftroute/internal/http/handlers"
	"shiftroute/internal/infra"
	"shiftroute/internal/maps"
	"shiftroute/internal/modules/aiusage"
	"shiftroute/internal/modules/demand"
	"shiftroute/internal/modules/greedy"
	"shiftroute/internal/modules/history"
	"shiftroute/internal/modules/planner"
	"shiftroute/internal/modules/qlearning"
)

var interruptSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
	syscall.SIGINT,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	infra.SetupLogger(cfg.IsDevelopment(), cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), interruptSignals...)
	defer stop()

	table, err := demand.LoadCSV(cfg.Dataset.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Dataset.Path).Msg("cannot load demand dataset")
	}
	log.Info().Int("records", table.Len()).Ints("hours", table.Hours()).Msg("demand dataset loaded")

	verifier := newVerifier(ctx, cfg)
	estimator := newEstimator(ctx, cfg)

	var (
		recorder planner.Recorder
		hist     handlers.History
		quota    handlers.Quota
	)
	waitGroup, ctx := errgroup.WithContext(ctx)

	if cfg.DB.DSN != "" {
		if err := infra.RunMigrations(cfg.DB.MigrationURL, cfg.DB.DSN); err != nil {
			log.Fatal().Err(err).Msg("failed to run db migrations")
		}
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot connect to db")
		}
		defer pool.Close()

		historySvc := history.NewService(history.NewStore(pool))
		recorder, hist = historySvc, historySvc
		quota = aiusage.NewService(aiusage.NewStore(pool), 0)
		runRetention(ctx, waitGroup, cfg, historySvc)
	} else {
		log.Warn().Msg("SHIFT_DB_DSN not set; route history and briefing quota disabled")
	}

	var briefer ai.Briefer
	if cfg.AI.GeminiKey != "" {
		gemini, err := ai.NewGeminiBriefer(ctx, cfg.AI.GeminiKey, cfg.AI.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot create gemini briefer")
		}
		defer gemini.Close()
		briefer = gemini
	}

	plannerSvc := planner.NewService(table, estimator, plannerOptions(cfg), recorder)
	if cfg.Dispatch.Warm {
		waitGroup.Go(func() error {
			if err := plannerSvc.Warm(ctx); err != nil {
				log.Error().Err(err).Msg("q-learning warm-up failed; retrying on first request")
			}
			return nil
		})
	}

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Planner:  plannerSvc,
		History:  hist,
		Briefer:  briefer,
		Quota:    quota,
		Verifier: verifier,
	})
	server := httptransport.NewServer(cfg.HTTP.Addr, router, cfg.HTTP.ShutdownTimeout)
	waitGroup.Go(func() error {
		return server.Run(ctx)
	})

	if err := waitGroup.Wait(); err != nil {
		log.Fatal().Err(err).Msg("error from wait group")
	}
	log.Info().Msg("shiftroute stopped")
}

func newVerifier(ctx context.Context, cfg config.Config) infra.TokenVerifier {
	if cfg.Firebase.ProjectID == "" {
		if !cfg.IsDevelopment() {
			log.Fatal().Msg("SHIFT_FIREBASE_PROJECT_ID is required outside development")
		}
		log.Warn().Msg("firebase not configured; bearer tokens are trusted as caller IDs")
		return infra.NoopVerifier{}
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("firebase init")
	}
	return verifier
}

func newEstimator(ctx context.Context, cfg config.Config) maps.Estimator {
	var oracle maps.Oracle
	switch cfg.Oracle.Provider {
	case "osrm":
		oracle = maps.NewOSRMClient(cfg.Oracle.BaseURL, cfg.Oracle.Profile, cfg.Oracle.Timeout)
	case "google":
		client, err := maps.NewGoogleClient(cfg.Oracle.GoogleAPIKey, cfg.Oracle.Region)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot create google maps client")
		}
		oracle = client
	}

	opts := []maps.Option{
		maps.WithTimeout(cfg.Oracle.Timeout),
		maps.WithRateLimit(cfg.Oracle.RatePerSecond, cfg.Oracle.Burst),
	}
	if cfg.Redis.Addr != "" {
		client, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable; travel estimates will not be cached")
		} else {
			opts = append(opts, maps.WithCache(maps.NewRedisCache(client, cfg.Redis.CacheTTL)))
		}
	}
	log.Info().Str("provider", cfg.Oracle.Provider).Msg("travel estimator ready")
	return maps.NewFallbackEstimator(oracle, opts...)
}

func plannerOptions(cfg config.Config) planner.Options {
	d := cfg.Dispatch
	return planner.Options{
		QLearning: qlearning.Options{
			Grid: geo.Grid{
				Bounds: geo.Bounds{
					MinLat: cfg.Grid.MinLat,
					MaxLat: cfg.Grid.MaxLat,
					MinLng: cfg.Grid.MinLng,
					MaxLng: cfg.Grid.MaxLng,
				},
				Size: cfg.Grid.Size,
			},
			Episodes:     d.Episodes,
			MaxSteps:     d.MaxSteps,
			Alpha:        d.Alpha,
			Gamma:        d.Gamma,
			TrainExplore: d.TrainExplore,
			Explore:      d.Explore,
			Seed:         d.Seed,
			Parallelism:  d.Parallelism,
		},
		Greedy: greedy.Options{
			Seed:        d.Seed,
			Parallelism: d.Parallelism,
			DropoffPool: d.DropoffPool,
			PickupPool:  d.PickupPool,
		},
		Parallelism: d.Parallelism,
	}
}

func runRetention(ctx context.Context, waitGroup *errgroup.Group, cfg config.Config, svc *history.Service) {
	retention := history.NewRetention(svc, cfg.History.PruneSchedule, cfg.Retention())
	if err := retention.Start(); err != nil {
		log.Fatal().Err(err).Msg("cannot start history retention")
	}
	waitGroup.Go(func() error {
		<-ctx.Done()
		retention.Stop()
		return nil
	})
}
