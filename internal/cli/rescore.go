package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"quiz-leaderboard-service/internal/config"
)

// NewRescoreCmd recomputes one attempt's score from its stored answers.
func NewRescoreCmd(configPath *string) *cobra.Command {
	var attemptID int64
	cmd := &cobra.Command{
		Use:   "rescore",
		Short: "Recompute the score of an attempt and rerank its quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			if attemptID <= 0 {
				return fmt.Errorf("--attempt is required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("rescore needs postgres: the in-memory store has nothing to repair")
			}
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.close()

			attempt, err := svc.attempts.Rescore(cmd.Context(), attemptID)
			if err != nil {
				return err
			}
			log.Printf("attempt %d on quiz %d rescored to %.2f", attempt.ID, attempt.QuizID, attempt.Score)
			return nil
		},
	}
	cmd.Flags().Int64Var(&attemptID, "attempt", 0, "attempt id to rescore")
	return cmd
}
