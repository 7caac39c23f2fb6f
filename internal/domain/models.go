package domain

import "time"

// User is the authenticated identity supplied by the request layer.
type User struct {
	ID       int64
	Username string
}

// Choice is a possible answer for a question.
type Choice struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

// Question models an MCQ question with zero, one or several correct choices.
type Question struct {
	ID      int64    `json:"id"`
	QuizID  int64    `json:"quiz_id"`
	Text    string   `json:"text"`
	Choices []Choice `json:"choices"`
}

// Choice returns the choice with the given id.
func (q Question) Choice(id int64) (Choice, bool) {
	for _, c := range q.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// CorrectCount is the number of choices flagged correct.
func (q Question) CorrectCount() int {
	n := 0
	for _, c := range q.Choices {
		if c.IsCorrect {
			n++
		}
	}
	return n
}

// CorrectChoices returns the labels of all correct choices in order.
func (q Question) CorrectChoices() []string {
	var out []string
	for _, c := range q.Choices {
		if c.IsCorrect {
			out = append(out, c.Text)
		}
	}
	return out
}

// Quiz is an ordered collection of questions with an attempt window.
type Quiz struct {
	ID          int64      `json:"id"`
	CreatorID   int64      `json:"creator_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OpenTime    time.Time  `json:"open_time"`
	CloseTime   *time.Time `json:"close_time,omitempty"`
	IsOpen      bool       `json:"is_open"`
	Questions   []Question `json:"questions"`
}

// Question returns the question with the given id.
func (q Quiz) Question(id int64) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// AnswerSubmission is one {question, selected_choice} pair from a client.
type AnswerSubmission struct {
	QuestionID int64
	ChoiceID   int64
}

// AttemptedAnswer links an attempt to the choice selected for one question.
// IsCorrect and PointsAwarded are derived when the answer is stored.
type AttemptedAnswer struct {
	ID            int64
	AttemptID     int64
	QuestionID    int64
	ChoiceID      int64
	IsCorrect     bool
	PointsAwarded float64
}

// Attempt is one user's submission against one quiz.
type Attempt struct {
	ID        int64
	QuizID    int64
	UserID    int64
	Username  string
	StartTime time.Time
	EndTime   *time.Time
	Score     float64
	Answers   []AttemptedAnswer
}

// LeaderboardEntry is the cached score and rank of one user in one quiz.
// ID reflects creation order and breaks ties between equal scores.
type LeaderboardEntry struct {
	ID       int64   `json:"id"`
	QuizID   int64   `json:"quizId"`
	UserID   int64   `json:"userId"`
	Username string  `json:"username"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// RankChange is a rank that must be written back to a stored entry.
type RankChange struct {
	EntryID int64
	Rank    int
}

// Leaderboard captures the ordered scoreboard for a quiz.
type Leaderboard struct {
	QuizID    int64              `json:"quizId"`
	QuizTitle string             `json:"quizTitle"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
