package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"quizroom-service/internal/config"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
	"quizroom-service/internal/infra/postgres"
	"quizroom-service/internal/logging"

	"github.com/spf13/cobra"
)

// NewSeedCmd inserts quizzes into Postgres, either the built-in samples or a JSON file.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed quizzes into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return errNoPostgres
			}
			log := logging.New(cfg.Log.Level, cfg.Log.Format)

			quizzes, err := seedQuizzes(file)
			if err != nil {
				return err
			}

			db := openBun(cfg.Postgres.URL)
			defer db.Close()
			if err := migrateDB(cmd.Context(), db, log); err != nil {
				return err
			}

			writer := postgres.NewQuizWriter(db)
			for _, quiz := range quizzes {
				id, err := writer.Save(cmd.Context(), quiz)
				if err != nil {
					return err
				}
				log.Info().Str("quiz", id).Str("title", quiz.Title).Int("questions", len(quiz.Questions)).Msg("quiz seeded")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file with an array of quizzes (defaults to the built-in samples)")
	return cmd
}

func seedQuizzes(file string) ([]domain.Quiz, error) {
	if file == "" {
		samples := memory.SampleQuizzes()
		ids := make([]string, 0, len(samples))
		for id := range samples {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		quizzes := make([]domain.Quiz, 0, len(ids))
		for _, id := range ids {
			quizzes = append(quizzes, samples[id])
		}
		return quizzes, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var quizzes []domain.Quiz
	if err := json.Unmarshal(data, &quizzes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return quizzes, nil
}
