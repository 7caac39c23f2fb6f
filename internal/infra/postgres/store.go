package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-leaderboard-service/internal/app"
	"quiz-leaderboard-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID          int64      `bun:"id,pk,autoincrement"`
	CreatorID   int64      `bun:"creator_id,notnull"`
	Title       string     `bun:"title,notnull"`
	Description string     `bun:"description,notnull"`
	OpenTime    time.Time  `bun:"open_time,notnull"`
	CloseTime   *time.Time `bun:"close_time"`
	IsOpen      bool       `bun:"is_open,notnull"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qs"`

	ID       int64  `bun:"id,pk,autoincrement"`
	QuizID   int64  `bun:"quiz_id,notnull"`
	Position int    `bun:"position,notnull"`
	Text     string `bun:"text,notnull"`
}

type choiceRow struct {
	bun.BaseModel `bun:"table:choices,alias:c"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id,notnull"`
	Position   int    `bun:"position,notnull"`
	Text       string `bun:"text,notnull"`
	IsCorrect  bool   `bun:"is_correct,notnull"`
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:attempt"`

	ID        int64        `bun:"id,pk,autoincrement"`
	QuizID    int64        `bun:"quiz_id,notnull"`
	UserID    int64        `bun:"user_id,notnull"`
	Username  string       `bun:"username,notnull"`
	StartTime time.Time    `bun:"start_time,notnull"`
	EndTime   *time.Time   `bun:"end_time"`
	Score     float64      `bun:"score,notnull"`
	Answers   []*answerRow `bun:"rel:has-many,join:id=attempt_id"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:attempted_answers,alias:aa"`

	ID            int64   `bun:"id,pk,autoincrement"`
	AttemptID     int64   `bun:"attempt_id,notnull"`
	QuestionID    int64   `bun:"question_id,notnull"`
	ChoiceID      int64   `bun:"choice_id,notnull"`
	IsCorrect     bool    `bun:"is_correct,notnull"`
	PointsAwarded float64 `bun:"points_awarded,notnull"`
}

type entryRow struct {
	bun.BaseModel `bun:"table:leaderboard_entries,alias:le"`

	ID       int64   `bun:"id,pk,autoincrement"`
	QuizID   int64   `bun:"quiz_id,notnull"`
	UserID   int64   `bun:"user_id,notnull"`
	Username string  `bun:"username,notnull"`
	Score    float64 `bun:"score,notnull"`
	Rank     int     `bun:"rank,notnull"`
}

func (r quizRow) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:          r.ID,
		CreatorID:   r.CreatorID,
		Title:       r.Title,
		Description: r.Description,
		OpenTime:    r.OpenTime,
		CloseTime:   r.CloseTime,
		IsOpen:      r.IsOpen,
	}
}

func (r attemptRow) toDomain() domain.Attempt {
	attempt := domain.Attempt{
		ID:        r.ID,
		QuizID:    r.QuizID,
		UserID:    r.UserID,
		Username:  r.Username,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Score:     r.Score,
	}
	for _, a := range r.Answers {
		attempt.Answers = append(attempt.Answers, a.toDomain())
	}
	return attempt
}

func (r answerRow) toDomain() domain.AttemptedAnswer {
	return domain.AttemptedAnswer{
		ID:            r.ID,
		AttemptID:     r.AttemptID,
		QuestionID:    r.QuestionID,
		ChoiceID:      r.ChoiceID,
		IsCorrect:     r.IsCorrect,
		PointsAwarded: r.PointsAwarded,
	}
}

func (r entryRow) toDomain() domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		ID:       r.ID,
		QuizID:   r.QuizID,
		UserID:   r.UserID,
		Username: r.Username,
		Score:    r.Score,
		Rank:     r.Rank,
	}
}

// Store persists quizzes, attempts and leaderboard entries with bun.
// It implements app.QuizStore and app.AttemptStore.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := quizRow{
			CreatorID:   quiz.CreatorID,
			Title:       quiz.Title,
			Description: quiz.Description,
			OpenTime:    quiz.OpenTime,
			CloseTime:   quiz.CloseTime,
			IsOpen:      quiz.IsOpen,
		}
		if _, err := tx.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		quiz.ID = row.ID

		for i := range quiz.Questions {
			question := &quiz.Questions[i]
			qrow := questionRow{QuizID: quiz.ID, Position: i, Text: question.Text}
			if _, err := tx.NewInsert().Model(&qrow).Returning("id").Exec(ctx); err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
			question.ID = qrow.ID
			question.QuizID = quiz.ID
			if len(question.Choices) == 0 {
				continue
			}

			crows := make([]choiceRow, len(question.Choices))
			for j, c := range question.Choices {
				crows[j] = choiceRow{QuestionID: question.ID, Position: j, Text: c.Text, IsCorrect: c.IsCorrect}
			}
			if _, err := tx.NewInsert().Model(&crows).Returning("id").Exec(ctx); err != nil {
				return fmt.Errorf("insert choices: %w", err)
			}
			for j := range question.Choices {
				question.Choices[j].ID = crows[j].ID
				question.Choices[j].QuestionID = question.ID
			}
		}
		return nil
	})
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	row := quizRow{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		OpenTime:    quiz.OpenTime,
		CloseTime:   quiz.CloseTime,
		IsOpen:      quiz.IsOpen,
	}
	res, err := s.db.NewUpdate().
		Model(&row).
		Column("title", "description", "open_time", "close_time", "is_open").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return expectRow(res, domain.ErrQuizNotFound)
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockQuiz(ctx, tx, quizID); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*quizRow)(nil)).Where("id = ?", quizID).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete quiz: %w", err)
		}
		return expectRow(res, domain.ErrQuizNotFound)
	})
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []quizRow
	if err := s.db.NewSelect().Model(&rows).Order("open_time ASC", "id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	quizzes := make([]domain.Quiz, 0, len(rows))
	for _, r := range rows {
		quizzes = append(quizzes, r.toDomain())
	}
	return quizzes, nil
}

// Atomically runs fn in a transaction holding the quiz's advisory lock, so
// writers on the same quiz are serialized while other quizzes proceed.
func (s *Store) Atomically(ctx context.Context, quizID int64, fn func(tx app.AttemptTx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockQuiz(ctx, tx, quizID); err != nil {
			return err
		}
		exists, err := tx.NewSelect().Model((*quizRow)(nil)).Where("id = ?", quizID).Exists(ctx)
		if err != nil {
			return fmt.Errorf("check quiz: %w", err)
		}
		if !exists {
			return domain.ErrQuizNotFound
		}
		return fn(&pgTx{tx: tx, quizID: quizID})
	})
}

func (s *Store) GetAttempt(ctx context.Context, attemptID int64) (domain.Attempt, error) {
	return selectAttempt(ctx, s.db, attemptID)
}

func (s *Store) ListAttempts(ctx context.Context, quizID int64) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().
		Model(&rows).
		Relation("Answers", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("aa.id ASC")
		}).
		Where("attempt.quiz_id = ?", quizID).
		Order("attempt.start_time DESC", "attempt.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	attempts := make([]domain.Attempt, 0, len(rows))
	for _, r := range rows {
		attempts = append(attempts, r.toDomain())
	}
	return attempts, nil
}

func (s *Store) LeaderboardEntries(ctx context.Context, quizID int64) ([]domain.LeaderboardEntry, error) {
	return selectEntries(ctx, s.db, quizID)
}

func lockQuiz(ctx context.Context, tx bun.Tx, quizID int64) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", quizID); err != nil {
		return fmt.Errorf("lock quiz %d: %w", quizID, err)
	}
	return nil
}

func selectAttempt(ctx context.Context, db bun.IDB, attemptID int64) (domain.Attempt, error) {
	var row attemptRow
	err := db.NewSelect().
		Model(&row).
		Relation("Answers", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("aa.id ASC")
		}).
		Where("attempt.id = ?", attemptID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return row.toDomain(), nil
}

func selectEntries(ctx context.Context, db bun.IDB, quizID int64) ([]domain.LeaderboardEntry, error) {
	var rows []entryRow
	err := db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		Order("score DESC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard entries: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toDomain())
	}
	return entries, nil
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

// pgTx is the app.AttemptTx view of one open transaction.
type pgTx struct {
	tx     bun.Tx
	quizID int64
}

func (t *pgTx) InsertAttempt(ctx context.Context, attempt *domain.Attempt) error {
	row := attemptRow{
		QuizID:    t.quizID,
		UserID:    attempt.UserID,
		Username:  attempt.Username,
		StartTime: attempt.StartTime,
		EndTime:   attempt.EndTime,
		Score:     attempt.Score,
	}
	if _, err := t.tx.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyAttempted
		}
		return fmt.Errorf("insert attempt: %w", err)
	}
	attempt.ID = row.ID
	attempt.QuizID = t.quizID
	return nil
}

func (t *pgTx) GetAttempt(ctx context.Context, attemptID int64) (domain.Attempt, error) {
	attempt, err := selectAttempt(ctx, t.tx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.QuizID != t.quizID {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (t *pgTx) DeleteAttempt(ctx context.Context, attemptID int64) error {
	res, err := t.tx.NewDelete().
		Model((*attemptRow)(nil)).
		Where("id = ?", attemptID).
		Where("quiz_id = ?", t.quizID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	return expectRow(res, domain.ErrAttemptNotFound)
}

func (t *pgTx) DeleteAnswers(ctx context.Context, attemptID int64) error {
	if _, err := t.tx.NewDelete().Model((*answerRow)(nil)).Where("attempt_id = ?", attemptID).Exec(ctx); err != nil {
		return fmt.Errorf("delete answers: %w", err)
	}
	return nil
}

func (t *pgTx) InsertAnswers(ctx context.Context, answers []domain.AttemptedAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	rows := make([]answerRow, len(answers))
	for i, a := range answers {
		rows[i] = answerRow{
			AttemptID:     a.AttemptID,
			QuestionID:    a.QuestionID,
			ChoiceID:      a.ChoiceID,
			IsCorrect:     a.IsCorrect,
			PointsAwarded: a.PointsAwarded,
		}
	}
	if _, err := t.tx.NewInsert().Model(&rows).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert answers: %w", err)
	}
	for i := range answers {
		answers[i].ID = rows[i].ID
	}
	return nil
}

func (t *pgTx) Answers(ctx context.Context, attemptID int64) ([]domain.AttemptedAnswer, error) {
	var rows []answerRow
	if err := t.tx.NewSelect().Model(&rows).Where("attempt_id = ?", attemptID).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	answers := make([]domain.AttemptedAnswer, 0, len(rows))
	for _, r := range rows {
		answers = append(answers, r.toDomain())
	}
	return answers, nil
}

func (t *pgTx) SaveScore(ctx context.Context, attemptID int64, score float64, endTime *time.Time) error {
	res, err := t.tx.NewUpdate().
		Model((*attemptRow)(nil)).
		Set("score = ?", score).
		Set("end_time = ?", endTime).
		Where("id = ?", attemptID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return expectRow(res, domain.ErrAttemptNotFound)
}

func (t *pgTx) PutEntry(ctx context.Context, entry domain.LeaderboardEntry) error {
	row := entryRow{
		QuizID:   t.quizID,
		UserID:   entry.UserID,
		Username: entry.Username,
		Score:    entry.Score,
	}
	_, err := t.tx.NewInsert().
		Model(&row).
		On("CONFLICT (quiz_id, user_id) DO UPDATE").
		Set("score = EXCLUDED.score").
		Set("username = EXCLUDED.username").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("put leaderboard entry: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteEntry(ctx context.Context, userID int64) error {
	_, err := t.tx.NewDelete().
		Model((*entryRow)(nil)).
		Where("quiz_id = ?", t.quizID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete leaderboard entry: %w", err)
	}
	return nil
}

func (t *pgTx) Entries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return selectEntries(ctx, t.tx, t.quizID)
}

func (t *pgTx) SetRanks(ctx context.Context, changes []domain.RankChange) error {
	for _, c := range changes {
		_, err := t.tx.NewUpdate().
			Model((*entryRow)(nil)).
			Set("rank = ?", c.Rank).
			Where("id = ?", c.EntryID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("set rank: %w", err)
		}
	}
	return nil
}
