package http

import (
	"time"

	"quiz-leaderboard-service/internal/app"
	"quiz-leaderboard-service/internal/domain"
)

type quizSummaryView struct {
	ID          int64      `json:"id"`
	CreatorID   int64      `json:"creator_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OpenTime    time.Time  `json:"open_time"`
	CloseTime   *time.Time `json:"close_time"`
	IsOpen      bool       `json:"is_open"`
}

// choiceView never exposes correctness.
type choiceView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type questionView struct {
	ID      int64        `json:"id"`
	Text    string       `json:"text"`
	Choices []choiceView `json:"choices"`
}

type quizDetailView struct {
	quizSummaryView
	Questions   []questionView       `json:"questions"`
	Leaderboard []leaderboardRowView `json:"leaderboard"`
}

type leaderboardRowView struct {
	Username string  `json:"username"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

type leaderboardView struct {
	QuizTitle   string               `json:"quiz_title"`
	Leaderboard []leaderboardRowView `json:"leaderboard"`
}

type answerReviewView struct {
	Question       string   `json:"question"`
	SelectedChoice string   `json:"selected_choice"`
	IsCorrect      bool     `json:"is_correct"`
	PointsAwarded  float64  `json:"points_awarded"`
	CorrectAnswers []string `json:"correct_answers,omitempty"`
}

type attemptView struct {
	ID        int64              `json:"id"`
	Quiz      int64              `json:"quiz"`
	QuizTitle string             `json:"quiz_title"`
	User      string             `json:"user"`
	Score     float64            `json:"score"`
	StartTime time.Time          `json:"start_time"`
	EndTime   *time.Time         `json:"end_time"`
	Answers   []answerReviewView `json:"answers"`
}

func newQuizSummaryView(q domain.Quiz) quizSummaryView {
	return quizSummaryView{
		ID:          q.ID,
		CreatorID:   q.CreatorID,
		Title:       q.Title,
		Description: q.Description,
		OpenTime:    q.OpenTime,
		CloseTime:   q.CloseTime,
		IsOpen:      q.IsOpen,
	}
}

func newQuizDetailView(q domain.Quiz, lb domain.Leaderboard) quizDetailView {
	view := quizDetailView{
		quizSummaryView: newQuizSummaryView(q),
		Questions:       make([]questionView, 0, len(q.Questions)),
		Leaderboard:     newLeaderboardRows(lb),
	}
	for _, question := range q.Questions {
		qv := questionView{ID: question.ID, Text: question.Text, Choices: make([]choiceView, 0, len(question.Choices))}
		for _, c := range question.Choices {
			qv.Choices = append(qv.Choices, choiceView{ID: c.ID, Text: c.Text})
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

func newLeaderboardRows(lb domain.Leaderboard) []leaderboardRowView {
	rows := make([]leaderboardRowView, 0, len(lb.Entries))
	for _, e := range lb.Entries {
		rows = append(rows, leaderboardRowView{Username: e.Username, Score: e.Score, Rank: e.Rank})
	}
	return rows
}

func newLeaderboardView(lb domain.Leaderboard) leaderboardView {
	return leaderboardView{QuizTitle: lb.QuizTitle, Leaderboard: newLeaderboardRows(lb)}
}

// newAttemptView renders a scored attempt. Correct answers are looked up in
// the quiz because the attempt only stores the selected choice, and are left
// out unless the review may show the key.
func newAttemptView(review app.AttemptReview) attemptView {
	a := review.Attempt
	view := attemptView{
		ID:        a.ID,
		Quiz:      a.QuizID,
		QuizTitle: review.Quiz.Title,
		User:      a.Username,
		Score:     a.Score,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Answers:   make([]answerReviewView, 0, len(a.Answers)),
	}
	for _, ans := range a.Answers {
		row := answerReviewView{IsCorrect: ans.IsCorrect, PointsAwarded: ans.PointsAwarded}
		if question, ok := review.Quiz.Question(ans.QuestionID); ok {
			row.Question = question.Text
			if choice, ok := question.Choice(ans.ChoiceID); ok {
				row.SelectedChoice = choice.Text
			}
			if review.ShowKey {
				row.CorrectAnswers = question.CorrectChoices()
			}
		}
		view.Answers = append(view.Answers, row)
	}
	return view
}
