package scoring

import (
	"testing"

	"quiz-leaderboard-service/internal/domain"
)

func TestStandingsCompetitionRanks(t *testing.T) {
	entries := entriesWithScores(90, 90, 80, 80, 70)

	got := Standings(entries)
	want := []int{1, 1, 3, 3, 5}
	for i, e := range got {
		if e.Rank != want[i] {
			t.Fatalf("position %d: expected rank %d, got %d (%+v)", i, want[i], e.Rank, got)
		}
	}
}

func TestStandingsOrdersByScoreThenID(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		{ID: 3, Score: 50},
		{ID: 1, Score: 80},
		{ID: 4, Score: 95},
		{ID: 2, Score: 50},
	}

	got := Standings(entries)
	wantIDs := []int64{4, 1, 2, 3}
	wantRanks := []int{1, 2, 3, 3}
	for i, e := range got {
		if e.ID != wantIDs[i] || e.Rank != wantRanks[i] {
			t.Fatalf("position %d: expected id=%d rank=%d, got %+v", i, wantIDs[i], wantRanks[i], e)
		}
	}
	if entries[0].ID != 3 || entries[0].Rank != 0 {
		t.Fatalf("expected input left untouched, got %+v", entries)
	}
}

func TestStandingsTiesScoresEqualAfterRounding(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		{ID: 1, Score: 23.333333333333332},
		{ID: 2, Score: 23.333333333333336},
	}

	got := Standings(entries)
	if got[0].ID != 1 || got[0].Rank != 1 || got[1].ID != 2 || got[1].Rank != 1 {
		t.Fatalf("expected both entries at rank 1 in id order, got %+v", got)
	}
}

func TestStandingsEmpty(t *testing.T) {
	if got := Standings(nil); len(got) != 0 {
		t.Fatalf("expected no standings, got %+v", got)
	}
}

func TestRerankWritesOnlyStaleRanks(t *testing.T) {
	entries := Standings(entriesWithScores(90, 80, 70))

	if changes := Rerank(entries); len(changes) != 0 {
		t.Fatalf("expected no writes for unchanged scores, got %+v", changes)
	}

	// Third place catches up with second.
	entries[2].Score = 80
	changes := Rerank(entries)
	if len(changes) != 1 {
		t.Fatalf("expected a single rank write, got %+v", changes)
	}
	if changes[0].EntryID != entries[2].ID || changes[0].Rank != 2 {
		t.Fatalf("expected entry %d to move to rank 2, got %+v", entries[2].ID, changes[0])
	}
}

func TestRerankNewEntry(t *testing.T) {
	entries := Standings(entriesWithScores(80))
	entries = append(entries, domain.LeaderboardEntry{ID: 99, Score: 95})

	changes := Rerank(entries)
	if len(changes) != 2 {
		t.Fatalf("expected both entries rewritten, got %+v", changes)
	}
	got := map[int64]int{}
	for _, c := range changes {
		got[c.EntryID] = c.Rank
	}
	if got[99] != 1 || got[entries[0].ID] != 2 {
		t.Fatalf("expected new leader rank 1 and previous rank 2, got %+v", got)
	}
}

func entriesWithScores(scores ...float64) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, len(scores))
	for i, s := range scores {
		entries[i] = domain.LeaderboardEntry{ID: int64(i + 1), QuizID: 1, UserID: int64(100 + i), Score: s}
	}
	return entries
}
