package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"levelquiz-service/internal/config"
	"levelquiz-service/internal/infra/memory"
	"levelquiz-service/internal/infra/postgres"
)

// NewSeedCmd loads the embedded question set into Postgres. Rows that
// already exist (by id) are skipped, so reseeding is safe.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the embedded question set into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			seed, err := memory.SeedQuestions()
			if err != nil {
				return err
			}

			store := postgres.NewStore(pool, postgres.NewGate(0), 10*time.Second)
			questions := store.Questions()
			inserted := 0
			for _, q := range seed {
				if _, err := questions.Get(cmd.Context(), q.ID); err == nil {
					continue
				}
				if err := questions.Create(cmd.Context(), q); err != nil {
					return fmt.Errorf("seed %s: %w", q.ID, err)
				}
				inserted++
			}
			slog.Info("seed complete", slog.Int("inserted", inserted), slog.Int("total", len(seed)))
			return nil
		},
	}
}
