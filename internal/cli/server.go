package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/config"
	"quizroom-service/internal/infra/memory"
	pgloader "quizroom-service/internal/infra/postgres"
	redisstore "quizroom-service/internal/infra/redis"
	"quizroom-service/internal/logging"
	transport "quizroom-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", os.Getenv("PORT"), "port to listen on (overrides config)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
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
			Addr:                  cfg.Redis.Addr,
			Password:              cfg.Redis.Password,
			DB:                    cfg.Redis.DB,
			ContextTimeoutEnabled: true,
		})
		defer redisClient.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(memory.SampleQuizzes())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuizRepository
	if redisClient != nil {
		quizzes = redisstore.NewQuizRepository(redisClient, loader, quizTTL, log)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	roomTTL := config.Duration(cfg.Redis.TTL, 6*time.Hour)
	var rooms app.RoomRegistry
	var redisRooms *redisstore.RoomStore
	if redisClient != nil {
		redisRooms = redisstore.NewRoomStore(redisClient, roomTTL, log)
		rooms = redisRooms
	} else {
		rooms = memory.NewRoomStore()
	}

	hub := transport.NewHub(log)
	service := app.NewGameService(rooms, quizzes, hub,
		app.WithTimings(gameTimings(cfg)),
		app.WithLogger(log),
		app.WithLookupTimeout(config.Duration(cfg.Quiz.LookupTimeout, 5*time.Second)),
	)
	wsHandler := transport.NewWSHandler(service, hub, transport.Settings{
		CommandsPerSecond: cfg.WS.CommandsPerSecond,
		Burst:             cfg.WS.Burst,
		AllowedOrigins:    cfg.WS.AllowedOrigins,
	}, log)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewMux(wsHandler, service),
		ReadHeaderTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting quiz room server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if redisRooms != nil {
		g.Go(func() error {
			refreshReservations(gctx, redisRooms, roomTTL/2, log)
			return nil
		})
	}

	return g.Wait()
}

// refreshReservations keeps Redis room codes alive for rooms that outlast the TTL.
func refreshReservations(ctx context.Context, rooms *redisstore.RoomStore, every time.Duration, log zerolog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rooms.Refresh(ctx)
			log.Debug().Int("rooms", rooms.Count()).Msg("room reservations refreshed")
		}
	}
}

func gameTimings(cfg config.Config) app.Timings {
	defaults := app.DefaultTimings()
	return app.Timings{
		Countdown:    config.Duration(cfg.Game.Countdown, defaults.Countdown),
		QuestionTime: config.Duration(cfg.Game.QuestionTime, defaults.QuestionTime),
		RevealDelay:  config.Duration(cfg.Game.RevealDelay, defaults.RevealDelay),
	}
}
