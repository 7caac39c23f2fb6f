package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"quiz-leaderboard-service/internal/config"
)

// NewRerankCmd recomputes the stored leaderboard ranks of one quiz.
func NewRerankCmd(configPath *string) *cobra.Command {
	var quizID int64
	cmd := &cobra.Command{
		Use:   "rerank",
		Short: "Recompute leaderboard ranks of a quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			if quizID <= 0 {
				return fmt.Errorf("--quiz is required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("rerank needs postgres: the in-memory store has nothing to repair")
			}
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.close()

			written, err := svc.attempts.RerankQuiz(cmd.Context(), quizID)
			if err != nil {
				return err
			}
			log.Printf("quiz %d reranked, %d ranks rewritten", quizID, written)
			return nil
		},
	}
	cmd.Flags().Int64Var(&quizID, "quiz", 0, "quiz id to rerank")
	return cmd
}
