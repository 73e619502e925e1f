package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stagecast/internal/app"
	"stagecast/internal/config"
	"stagecast/internal/domain"
	"stagecast/internal/infra/memory"
	pgstore "stagecast/internal/infra/postgres"
	rediscache "stagecast/internal/infra/redis"
	transport "stagecast/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the event activity server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	mem := memory.NewStore()

	var (
		events       app.EventStore       = mem
		activities   app.ActivityStore    = mem
		votes        app.VoteStore        = mem
		entries      app.EntryStore       = mem
		participants app.ParticipantStore = mem
		answers      app.AnswerStore      = mem
	)
	if pool != nil {
		store := pgstore.NewStore(pool)
		events, activities, participants, answers = store, store, store, store
		votes, entries = store, store
	} else {
		// Memory mode seeds a demo event so the server is usable out of the box.
		mem.PutEvent(domain.Event{ID: "event-1", OrganizerID: "org-1", Status: domain.EventLive})
	}
	if redisClient != nil {
		activityTTL := config.TTLDuration(cfg.Cache.ActivityTTL, 10*time.Minute)
		activities = rediscache.NewActivityCache(redisClient, activities, activityTTL)
		votes = rediscache.NewVoteStore(redisClient)
		entries = rediscache.NewEntryStore(redisClient)
	}

	policy := retryPolicy(cfg)
	events = app.RetryingEventStore{Inner: events, Policy: policy}
	activities = app.RetryingActivityStore{Inner: activities, Policy: policy}
	votes = app.RetryingVoteStore{Inner: votes, Policy: policy}
	entries = app.RetryingEntryStore{Inner: entries, Policy: policy}

	lifecycle := app.NewLifecycleService(events, activities)
	polls := app.NewPollService(activities, votes)
	raffles := app.NewRaffleService(activities, entries)
	quizzes := app.NewQuizService(events, activities, participants, answers)

	hub := transport.NewHub(log)
	wsHandler := transport.NewWSHandler(quizzes, polls, raffles, hub, log)
	adminHandler := transport.NewAdminHandler(lifecycle, polls, raffles, quizzes, hub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	adminHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting event activity server", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func retryPolicy(cfg config.Config) app.RetryPolicy {
	policy := app.DefaultRetryPolicy()
	if cfg.Retry.MaxRetries > 0 {
		policy.MaxRetries = uint64(cfg.Retry.MaxRetries)
	}
	policy.InitialInterval = config.TTLDuration(cfg.Retry.InitialInterval, policy.InitialInterval)
	policy.MaxInterval = config.TTLDuration(cfg.Retry.MaxInterval, policy.MaxInterval)
	return policy
}
