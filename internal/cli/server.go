package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"levelquiz-service/internal/app"
	"levelquiz-service/internal/auth"
	"levelquiz-service/internal/config"
	"levelquiz-service/internal/infra/memory"
	"levelquiz-service/internal/infra/postgres"
	redisindex "levelquiz-service/internal/infra/redis"
	"levelquiz-service/internal/metrics"
	transport "levelquiz-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	seed, err := memory.SeedQuestions()
	if err != nil {
		return err
	}
	fallbackQuestions := memory.NewQuestionRepository(seed)
	fallbackResults := memory.NewResultRepository()

	// Primary store only when Postgres is configured; otherwise the
	// fallback repositories carry everything (dev mode).
	var (
		pgQuestions *postgres.QuestionRepository
		pgResults   *postgres.ResultRepository
		users       auth.UserStore
		accounts    app.UserDirectory
	)
	memUsers := memory.NewUserRepository()
	users, accounts = memUsers, memUsers
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		gate := postgres.NewGate(config.Duration(cfg.Store.Cooldown, 15*time.Second))
		store := postgres.NewStore(pool, gate, config.Duration(cfg.Store.QueryTimeout, 5*time.Second))
		pgQuestions = store.Questions()
		pgResults = store.Results()
		pgUsers := store.Users()
		users, accounts = pgUsers, pgUsers
	}

	var index app.RankIndex
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		index = redisindex.NewLeaderboardIndex(client)
	}

	var questionStore, resultStore = nilQuestionStore(pgQuestions), nilResultStore(pgResults)
	questionService := app.NewQuestionService(questionStore, fallbackQuestions, logger)
	resultService := app.NewResultService(resultStore, fallbackResults, index, logger)
	adminService := app.NewAdminService(questionService, resultService, accounts, logger)

	var provider auth.IdentityProvider
	if cfg.Provider.VerifyURL != "" {
		provider = auth.NewHTTPProvider(cfg.Provider.VerifyURL, 5*time.Second)
	}
	authService := auth.NewService(users, provider, auth.Config{
		Secret:        []byte(cfg.Auth.Secret),
		TokenTTL:      config.Duration(cfg.Auth.TokenTTL, 24*time.Hour),
		AdminEmail:    cfg.Auth.AdminEmail,
		AdminPassword: cfg.Auth.AdminPassword,
	}, logger)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	router := transport.NewRouter(transport.RouterDeps{
		Auth:           authService,
		Resolver:       authService,
		Questions:      questionService,
		Results:        resultService,
		Admin:          adminService,
		ProviderClient: cfg.Provider.Client,
		Collector:      collector,
		Gatherer:       registry,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting levelquiz service", slog.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

// nilQuestionStore keeps the typed-nil pointer out of the interface so the
// services can test against nil.
func nilQuestionStore(repo *postgres.QuestionRepository) app.QuestionStore {
	if repo == nil {
		return nil
	}
	return repo
}

func nilResultStore(repo *postgres.ResultRepository) app.ResultStore {
	if repo == nil {
		return nil
	}
	return repo
}
