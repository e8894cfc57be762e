package rating

// Display conversions between star counts and the 0-100 presentation scale.
//
// The two tables are independent and deliberately not inverses of each other:
// StarsToScore maps exactly onto {20,40,60,80,100} while ScoreToStars buckets
// with thresholds at 90/70/50/30. A score of 85 is 4 stars, yet 4 stars is 80.
// The canonical scale for validation and aggregation remains 1-5.

const starScoreStep = 20

// Star thresholds for ScoreToStars.
const (
	fiveStarThreshold  = 90
	fourStarThreshold  = 70
	threeStarThreshold = 50
	twoStarThreshold   = 30
)

// StarsToScore converts a star count (1-5) to the 0-100 display score.
// Any other star count yields 0.
func StarsToScore(stars int) int {
	if stars < MinScore || stars > MaxScore {
		return 0
	}
	return stars * starScoreStep
}

// ScoreToStars buckets a 0-100 display score into a star count (1-5).
func ScoreToStars(score float64) int {
	switch {
	case score >= fiveStarThreshold:
		return 5
	case score >= fourStarThreshold:
		return 4
	case score >= threeStarThreshold:
		return 3
	case score >= twoStarThreshold:
		return 2
	default:
		return 1
	}
}
