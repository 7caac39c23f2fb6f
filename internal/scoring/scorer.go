package scoring

import (
	"math"

	"quiz-leaderboard-service/internal/domain"
)

// scorePrecision keeps scores to six decimal places.
const scorePrecision = 1e6

// Round brings a score to its canonical precision, so split-credit sums that
// differ only by float error in their last bit compare equal.
func Round(score float64) float64 {
	return math.Round(score*scorePrecision) / scorePrecision
}

// TotalScore sums the awarded points of an attempt's answers. No answers scores 0.
func TotalScore(answers []domain.AttemptedAnswer) float64 {
	total := 0.0
	for _, a := range answers {
		total += a.PointsAwarded
	}
	return Round(total)
}
