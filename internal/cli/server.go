package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-leaderboard-service/internal/app"
	"quiz-leaderboard-service/internal/config"
	"quiz-leaderboard-service/internal/domain"
	"quiz-leaderboard-service/internal/infra/memory"
	pgstore "quiz-leaderboard-service/internal/infra/postgres"
	infraredis "quiz-leaderboard-service/internal/infra/redis"
	"quiz-leaderboard-service/internal/scoring"
	transport "quiz-leaderboard-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// services is the wired application; close releases its connections.
type services struct {
	quizzes  *app.QuizService
	attempts *app.AttemptService
	close    func()
}

// buildServices picks Postgres or the in-memory store, and Redis or
// in-process caching and fan-out, from what the config provides.
func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		quizStore    app.QuizStore
		attemptStore app.AttemptStore
		loader       memory.QuizLoader
	)
	if cfg.Postgres.URL != "" {
		db, err := openDB(cfg)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		if err := migrateDB(ctx, db); err != nil {
			closeAll()
			return nil, err
		}

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, pool.Close)

		store := pgstore.NewStore(db)
		quizStore, attemptStore = store, store
		loader = pgstore.NewQuizLoader(pool)
	} else {
		store := memory.NewStore()
		if err := seedSampleQuiz(ctx, store); err != nil {
			return nil, err
		}
		quizStore, attemptStore, loader = store, store, store
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizRepo app.QuizRepository
		feed     app.LeaderboardFeed
	)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
		feed = infraredis.NewFeed(redisClient)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		feed = memory.NewFeed()
	}

	evaluator := scoring.NewEvaluator(cfg.Scoring.QuestionValue)
	return &services{
		quizzes:  app.NewQuizService(quizStore, quizRepo),
		attempts: app.NewAttemptService(attemptStore, quizRepo, evaluator, feed),
		close:    closeAll,
	}, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	if cfg.Auth.JWTSecret == "" {
		log.Printf("auth.jwt_secret is empty; authenticated endpoints will reject every token")
	}

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(svc.quizzes, svc.attempts, transport.NewAuthenticator(cfg.Auth.JWTSecret)),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket streams stay open for the life of a quiz.
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedSampleQuiz gives the in-memory mode something to answer.
func seedSampleQuiz(ctx context.Context, store *memory.Store) error {
	quiz := domain.Quiz{
		CreatorID:   1,
		Title:       "Warm-up",
		Description: "A single arithmetic question",
		OpenTime:    time.Now(),
		Questions: []domain.Question{
			{
				Text: "What is 2 + 2?",
				Choices: []domain.Choice{
					{Text: "3", IsCorrect: false},
					{Text: "4", IsCorrect: true},
					{Text: "5", IsCorrect: false},
				},
			},
		},
	}
	scoring.RecomputeIsOpen(&quiz, quiz.OpenTime)
	if err := store.CreateQuiz(ctx, &quiz); err != nil {
		return err
	}
	log.Printf("seeded sample quiz %d", quiz.ID)
	return nil
}
