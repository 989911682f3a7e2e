package back

import (
	"math"
	"time"
)

// Rating system parameters, inherited from the season the ladder was tuned
// on. Changing any of these invalidates comparisons with older snapshots.
const (
	// InitialRating is the rating assigned to a player the first time they
	// show up in a roster.
	InitialRating = 1500

	// RatingFloor is the absolute minimum rating, no loss streak can go
	// below it.
	RatingFloor = 100

	MaxKFactor          = 50.0
	MinKFactor          = 15.0
	StabilizationGames  = 25
	HighRatingThreshold = 1700
	HighRatingKFactor   = 0.8

	// InactivityThresholdDays is the number of days without playing after
	// which a rating above InitialRating starts decaying.
	InactivityThresholdDays = 16

	// InactivityDecayStep is subtracted once per processed match from the
	// rating of an inactive player, it does not compound per day.
	InactivityDecayStep = 10
)

// expectedScore returns the probability in [0, 1] of A beating B under the
// usual Elo logistic curve. Extreme rating gaps saturate the exponent and
// naturally clamp the result to 0 or 1.
func expectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}

// dynamicKFactor decays from MaxKFactor toward MinKFactor as a player
// accumulates games, so fresh players move fast and veterans stabilize.
// High-rated players get a reduced K to dampen runaway leaders.
// The result is rounded to one decimal, as displayed in player stats.
func dynamicKFactor(gamesPlayed int, rating int) float64 {
	if gamesPlayed == 0 {
		return MaxKFactor
	}

	decay := float64(StabilizationGames) / 3.0
	k := MinKFactor + (MaxKFactor-MinKFactor)*math.Exp(-float64(gamesPlayed)/decay)
	if rating > HighRatingThreshold {
		k *= HighRatingKFactor
	}

	return math.Round(k*10) / 10
}

// scoreMultiplier scales a rating change by the margin of victory.
// Non-positive scores carry no margin information and leave the change
// unscaled.
func scoreMultiplier(winnerScore, loserScore int) float64 {
	if winnerScore <= 0 || loserScore <= 0 {
		return 1.0
	}

	switch diff := winnerScore - loserScore; {
	case diff >= 8:
		return 1.5
	case diff >= 5:
		return 1.2
	case diff >= 3:
		return 1.0
	default:
		return 0.8
	}
}

// teamAverageRating is the arithmetic mean of the team's ratings, players
// without a rating count as InitialRating. An empty roster averages to
// InitialRating so a degenerate matchup computes an expected score of 0.5
// instead of dividing by zero.
func teamAverageRating(players []string, ratings map[string]int) float64 {
	if len(players) == 0 {
		return InitialRating
	}

	var total int
	for _, name := range players {
		rating, ok := ratings[name]
		if !ok {
			rating = InitialRating
		}
		total += rating
	}

	return float64(total) / float64(len(players))
}

// newRating applies one match outcome to a rating. actual is 1 for a win,
// 0 for a loss and 0.5 for a draw. The result is rounded to the nearest
// integer and never goes below RatingFloor.
func newRating(oldRating int, actual, expected float64, gamesPlayed int, multiplier float64) int {
	k := dynamicKFactor(gamesPlayed, oldRating)
	delta := k * (actual - expected) * multiplier

	ret := int(math.Round(float64(oldRating) + delta))
	if ret < RatingFloor {
		return RatingFloor
	}

	return ret
}

// inactivityDecay nudges the rating of a player who sat out back toward
// InitialRating, one step per processed match. Ratings at or below
// InitialRating are left alone, decay never creates rating.
func inactivityDecay(oldRating int, daysInactive int) int {
	if daysInactive <= InactivityThresholdDays || oldRating <= InitialRating {
		return oldRating
	}

	ret := oldRating - InactivityDecayStep
	if ret < InitialRating {
		return InitialRating
	}

	return ret
}

// daysBetween counts whole days from a to b, negative if b is before a.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
