package back // nolint:testpackage

import (
	"math"
	"testing"
)

func TestExpectedScoreSymmetry(t *testing.T) {
	ratings := []float64{100, 800, 1400, 1500, 1502.5, 1700, 2400, 9000}

	for _, a := range ratings {
		for _, b := range ratings {
			sum := expectedScore(a, b) + expectedScore(b, a)
			if math.Abs(sum-1.0) > 1e-9 {
				t.Errorf("expectedScore(%f, %f) + inverse = %f, expected 1.0", a, b, sum)
			}
		}
	}
}

func TestExpectedScoreExtremes(t *testing.T) {
	if v := expectedScore(1e9, 100); v != 1.0 {
		t.Errorf("expected overwhelming favorite to clamp to 1.0, got %f", v)
	}
	if v := expectedScore(100, 1e9); v != 0.0 {
		t.Errorf("expected overwhelming underdog to clamp to 0.0, got %f", v)
	}
}

func TestDynamicKFactorFreshPlayer(t *testing.T) {
	for _, rating := range []int{100, 1500, 1700, 1800, 3000} {
		if k := dynamicKFactor(0, rating); k != MaxKFactor {
			t.Errorf("dynamicKFactor(0, %d) = %f, expected %f", rating, k, MaxKFactor)
		}
	}
}

func TestDynamicKFactorMonotone(t *testing.T) {
	for _, rating := range []int{1500, 1800} {
		prev := dynamicKFactor(0, rating)
		for games := 1; games <= 100; games++ {
			k := dynamicKFactor(games, rating)
			if k > prev {
				t.Fatalf("K factor increased from %f to %f at %d games (rating %d)", prev, k, games, rating)
			}
			prev = k
		}
	}
}

func TestDynamicKFactorHighRated(t *testing.T) {
	for games := 1; games <= 50; games++ {
		regular := dynamicKFactor(games, 1500)
		high := dynamicKFactor(games, 1800)
		if high >= regular {
			t.Errorf("at %d games, high-rated K %f should be below regular K %f", games, high, regular)
		}
	}
}

func TestScoreMultiplier(t *testing.T) {
	cases := []struct {
		winner, loser int
		expected      float64
	}{
		{21, 13, 1.5},
		{21, 16, 1.2},
		{21, 18, 1.0},
		{21, 19, 0.8},
		{21, 20, 0.8},
		{25, 17, 1.5},
		{0, 0, 1.0},
		{21, 0, 1.0},
		{-3, 2, 1.0},
	}

	for _, c := range cases {
		if v := scoreMultiplier(c.winner, c.loser); v != c.expected {
			t.Errorf("scoreMultiplier(%d, %d) = %f, expected %f", c.winner, c.loser, v, c.expected)
		}
	}
}

func TestTeamAverageRating(t *testing.T) {
	ratings := map[string]int{"Alice": 1600, "Bob": 1400}

	if avg := teamAverageRating(nil, ratings); avg != InitialRating {
		t.Errorf("empty roster average = %f, expected %d", avg, InitialRating)
	}
	if avg := teamAverageRating([]string{"Alice", "Bob"}, ratings); avg != 1500 {
		t.Errorf("average = %f, expected 1500", avg)
	}
	if avg := teamAverageRating([]string{"Alice", "Nobody"}, ratings); avg != 1550 {
		t.Errorf("average with unknown player = %f, expected 1550", avg)
	}
}

func TestNewRatingFloor(t *testing.T) {
	if v := newRating(RatingFloor, 0, 1, 10, 1.5); v != RatingFloor {
		t.Errorf("rating dropped below the floor: %d", v)
	}
	if v := newRating(110, 0, 1, 0, 1.5); v != RatingFloor {
		t.Errorf("rating should clamp to %d, got %d", RatingFloor, v)
	}
}

func TestNewRatingFirstGame(t *testing.T) {
	// Even 1500 teams, a 21-18 win: K=50, margin multiplier 1.0.
	if v := newRating(1500, 1, 0.5, 0, 1.0); v != 1525 {
		t.Errorf("winner rating = %d, expected 1525", v)
	}
	if v := newRating(1500, 0, 0.5, 0, 1.0); v != 1475 {
		t.Errorf("loser rating = %d, expected 1475", v)
	}
}

func TestInactivityDecay(t *testing.T) {
	cases := []struct {
		rating, days, expected int
	}{
		{1600, 20, 1590}, // one step, not one per day
		{1600, 16, 1600}, // at the threshold, no decay yet
		{1600, 17, 1590},
		{1505, 30, 1500}, // never below the initial rating
		{1500, 100, 1500},
		{1400, 100, 1400}, // decay never touches ratings below initial
	}

	for _, c := range cases {
		if v := inactivityDecay(c.rating, c.days); v != c.expected {
			t.Errorf("inactivityDecay(%d, %d) = %d, expected %d", c.rating, c.days, v, c.expected)
		}
	}
}

func TestInactivityDecayNeverRaises(t *testing.T) {
	for rating := 1400; rating <= 1700; rating += 10 {
		for days := 0; days <= 40; days += 5 {
			if v := inactivityDecay(rating, days); v > rating {
				t.Fatalf("inactivityDecay(%d, %d) raised the rating to %d", rating, days, v)
			}
		}
	}
}
