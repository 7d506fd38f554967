package cli

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/backend"
	"quiz-session-service/internal/infra/memory"
	pgstore "quiz-session-service/internal/infra/postgres"
	redisstore "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/logger"
	transport "quiz-session-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Warn().Str("path", configPath).Msg("config file not found, using defaults")
	}

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
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 3*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		loader    memory.QuestionLoader
		responses app.ResponsePersistence
	)
	switch {
	case cfg.Backend.URL != "":
		client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Token, config.TTLDuration(cfg.Backend.Timeout, 10*time.Second))
		loader, responses = client, client
		log.Info().Str("url", cfg.Backend.URL).Msg("using platform backend")
	case pool != nil:
		loader, responses = pgstore.NewQuestionLoader(pool), pgstore.NewResponseStore(pool)
		log.Info().Msg("using postgres storage")
	default:
		loader = memory.NewStaticQuestionLoader(sampleExams())
		if redisClient != nil {
			responses = redisstore.NewResponseStore(redisClient, redisTTL)
			log.Info().Msg("using sample exams with redis responses")
		} else {
			responses = memory.NewResponseStore()
			log.Info().Msg("using sample exams with in-memory responses")
		}
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questions app.QuestionSource
	var store app.SessionRepository
	if redisClient != nil {
		questions = redisstore.NewQuestionRepository(redisClient, loader, questionTTL)
		store = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
		store = memory.NewSessionStore()
	}

	service := app.NewSessionService(store, questions, responses, log,
		app.WithTickInterval(config.TTLDuration(cfg.Session.Tick, time.Second)),
	)
	wsHandler := transport.NewWSHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting exam session service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleExams provides a small demo exam; configure backend.url or postgres.url in production.
func sampleExams() map[int][]domain.Question {
	return map[int][]domain.Question{
		1: {
			{ID: 1, Prompt: "What is 12 x 12?", OptionA: "124", OptionB: "144", OptionC: "142", OptionD: "132", Correct: "B", Type: domain.QuestionTypeFour, CategoryID: 1},
			{ID: 2, Prompt: "Which number continues the series 2, 6, 18, 54?", OptionA: "108", OptionB: "72", OptionC: "162", OptionD: "216", Correct: "C", Type: domain.QuestionTypeFour, CategoryID: 1},
			{ID: 3, Prompt: "All squares are rectangles.", OptionA: "True", OptionB: "False", Correct: "A", Type: domain.QuestionTypeBinary, CategoryID: 2},
			{ID: 4, Prompt: "If 3 pens cost 45, how much do 7 pens cost?", OptionA: "95", OptionB: "105", OptionC: "115", OptionD: "100", Correct: "B", Type: domain.QuestionTypeFour, CategoryID: 1},
		},
	}
}
