package service

import (
	"sort"

	"nascon-platform/internal/model"
)

// RankLeaderboard orders entries by average score, highest first. Entries
// without any score go last. Equal averages fall back to ascending
// participant id, i.e. earlier registration first, and every entry gets a
// distinct sequential rank starting at 1.
func RankLeaderboard(entries []model.LeaderboardEntry) []model.LeaderboardEntry {
	out := make([]model.LeaderboardEntry, len(entries))
	copy(out, entries)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].AverageScore, out[j].AverageScore
		switch {
		case a == nil && b == nil:
			return out[i].ParticipantID < out[j].ParticipantID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		default:
			return out[i].ParticipantID < out[j].ParticipantID
		}
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// ValidScore reports whether score lies in the accepted [0, 100] range.
func ValidScore(score float64) bool {
	return score >= 0 && score <= 100
}
