// cmd/api/main.go

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	eventsadapter "connectr/internal/adapter/events"
	"connectr/internal/adapter/storage"
	"connectr/internal/adapter/storage/memory"
	"connectr/internal/config"
	"connectr/internal/domain/events"
	"connectr/internal/domain/identity"
	"connectr/internal/logger"
	"connectr/internal/scheduler"
	"connectr/internal/security"
	"connectr/internal/server"
	geoService "connectr/internal/service/geo"
	identityService "connectr/internal/service/identity"
	moodService "connectr/internal/service/mood"
)

// stores groups the storage backends the services need
type stores struct {
	users     identityService.UserStore
	locations geoService.LocationStore
	entries   moodService.EntryStore
	close     func()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize storage
	st, err := initStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer st.close()

	// Event bus is optional
	var publisher events.Publisher = eventsadapter.NoopPublisher{}
	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		natsConn, err = eventsadapter.Connect(cfg.NATS, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer natsConn.Close()
		publisher = eventsadapter.NewNATSPublisher(natsConn, log)
	} else {
		log.Warn().Msg("NATS_URL not set, events are disabled")
	}

	// Security primitives
	encryptor, err := security.NewEncryptor(cfg.Encryption.Key, cfg.Encryption.Salt)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption")
	}

	tokens, err := security.NewJWTTokenManager(security.JWTConfig{
		Secret: cfg.Identity.TokenSecret,
		Issuer: cfg.Identity.TokenIssuer,
		TTL:    cfg.Identity.TokenExpiry,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	hasher := security.NewArgon2Hasher(security.DefaultParams)

	// Initialize services
	moods := moodService.NewService(
		st.entries,
		encryptor,
		publisher,
		moodService.Config{
			DefaultWindowDays: cfg.Mood.DefaultWindowDays,
			MaxWindowDays:     cfg.Mood.MaxWindowDays,
			MaxNotesLength:    cfg.Mood.MaxNotesLength,
			MaxActivities:     cfg.Mood.MaxActivities,
			EventsTopic:       cfg.Mood.EventsTopic,
		},
		log,
	)

	proximity := geoService.NewProximityService(
		st.locations,
		geoService.NewPrivacyManager(),
		publisher,
		geoService.ProximityConfig{
			DefaultRadius: cfg.Geo.DefaultRadius,
			MinRadius:     cfg.Geo.MinRadius,
			MaxRadius:     cfg.Geo.MaxRadius,
			LocationTTL:   cfg.Geo.LocationTTL,
		},
		log,
	)

	users := identityService.NewService(
		st.users,
		moods,
		tokens,
		hasher,
		publisher,
		identityService.Config{
			ResetTokenExpiry:       cfg.Identity.ResetTokenExpiry,
			DefaultLocationSharing: identity.LocationSharingLevel(cfg.Identity.DefaultLocationSharing),
			EventsTopic:            cfg.Identity.EventsTopic,
		},
		log,
	)

	// Background jobs
	sched := scheduler.New(log, cfg.Server.RequestTimeout)
	if err := sched.AddJob(cfg.Geo.PruneSchedule, scheduler.NewPruneLocationsJob(proximity, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule location pruning")
	}
	sched.Start()

	// Initialize HTTP server
	deps := server.Dependencies{
		Identity:  users,
		Mood:      moods,
		Locations: proximity,
		Tokens:    tokens,
		// Identity events carry reset tokens and stay off the client stream
		StreamTopics: []string{cfg.Mood.EventsTopic, events.LocationTopic},
	}
	if natsConn != nil {
		deps.Events = natsConn
	}

	httpServer := server.NewServer(cfg.Server, deps, log)

	// Start HTTP server
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Info().Msg("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	sched.Stop()

	log.Info().Msg("Shutdown complete")
}

// initStorage picks the postgres or in-memory backend
func initStorage(ctx context.Context, cfg config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		mem := memory.NewStore()
		return &stores{users: mem, locations: mem, entries: mem, close: func() {}}, nil
	}

	db, err := storage.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := storage.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.Database).
		Msg("Connected to postgres")

	userStore := storage.NewUserStore(db)
	return &stores{
		users:     userStore,
		locations: userStore,
		entries:   storage.NewMoodStore(db),
		close:     db.Close,
	}, nil
}
