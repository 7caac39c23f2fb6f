package scoring

import (
	"sort"

	"quiz-leaderboard-service/internal/domain"
)

// Standings returns a copy of entries ordered by score descending, then entry ID
// ascending, with competition ranks assigned: tied scores share a rank and the
// next distinct score is ranked by its 1-based position (90, 90, 80 -> 1, 1, 3).
func Standings(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	ordered := make([]domain.LeaderboardEntry, len(entries))
	copy(ordered, entries)

	for i := range ordered {
		ordered[i].Score = Round(ordered[i].Score)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].ID < ordered[j].ID
	})

	for i := range ordered {
		if i > 0 && ordered[i].Score == ordered[i-1].Score {
			ordered[i].Rank = ordered[i-1].Rank
			continue
		}
		ordered[i].Rank = i + 1
	}
	return ordered
}

// Rerank computes standings and returns only the entries whose stored rank is stale.
func Rerank(entries []domain.LeaderboardEntry) []domain.RankChange {
	stored := make(map[int64]int, len(entries))
	for _, e := range entries {
		stored[e.ID] = e.Rank
	}

	var changes []domain.RankChange
	for _, e := range Standings(entries) {
		if stored[e.ID] != e.Rank {
			changes = append(changes, domain.RankChange{EntryID: e.ID, Rank: e.Rank})
		}
	}
	return changes
}
