package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-leaderboard-service/internal/domain"
)

// QuizLoader loads the full quiz graph from Postgres in a single round trip.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

// loadQuizSQL folds questions and choices into one JSON document shaped like domain.Quiz.
const loadQuizSQL = `
SELECT json_build_object(
    'id', qz.id,
    'creator_id', qz.creator_id,
    'title', qz.title,
    'description', qz.description,
    'open_time', qz.open_time,
    'close_time', qz.close_time,
    'is_open', qz.is_open,
    'questions', COALESCE((
        SELECT json_agg(json_build_object(
            'id', qs.id,
            'quiz_id', qs.quiz_id,
            'text', qs.text,
            'choices', COALESCE((
                SELECT json_agg(json_build_object(
                    'id', c.id,
                    'question_id', c.question_id,
                    'text', c.text,
                    'is_correct', c.is_correct
                ) ORDER BY c.position, c.id)
                FROM choices c
                WHERE c.question_id = qs.id
            ), '[]'::json)
        ) ORDER BY qs.position, qs.id)
        FROM questions qs
        WHERE qs.quiz_id = qz.id
    ), '[]'::json)
)
FROM quizzes qz
WHERE qz.id = $1`

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, loadQuizSQL, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}
