package back

import (
	"errors"
	"log"
	"time"

	"volleyladder/internal/util"

	"github.com/jmoiron/sqlx"
)

type RatingChangeReason int

const (
	RatingChangePlayed RatingChangeReason = 0 // player was on one of the rosters
	RatingChangeDecay  RatingChangeReason = 1 // player sat out long enough to decay
	RatingChangeBonus  RatingChangeReason = 2 // MVP bonus
)

// A RatingChange describes one player's rating movement from a committed
// snapshot, ready to be rendered by the front end.
type RatingChange struct {
	PlayerName string
	Old, New   int
	Reason     RatingChangeReason
}

func (c RatingChange) Delta() int {
	return c.New - c.Old
}

// SubmitMatch records one match and appends the resulting rating snapshot.
// The roster lookup is a capability: the caller decides where the
// rosters-of-the-day come from, StoredRosters() being the default.
//
// The whole read-compute-append sequence runs under the record lock and a
// single transaction: a submission either commits fully or leaves no trace.
func (b *Back) SubmitMatch(
	date time.Time,
	team1, team2 string,
	score1, score2 int,
	rosters RosterLookup,
) (Match, []RatingChange, error) {
	match, err := NewMatch(date, team1, team2, score1, score2)
	if err != nil {
		return Match{}, nil, err
	}

	roster1, err := resolveRoster(rosters, team1, date)
	if err != nil {
		return Match{}, nil, err
	}
	roster2, err := resolveRoster(rosters, team2, date)
	if err != nil {
		return Match{}, nil, err
	}

	b.recordMx.Lock()
	defer b.recordMx.Unlock()

	var changes []RatingChange
	if err := b.transaction(func(tx *sqlx.Tx) error {
		return submitMatchTx(tx, match, roster1, roster2, &changes)
	}); err != nil {
		return Match{}, nil, err
	}

	b.cache.invalidate(cacheKeyStandings)
	log.Printf("info: recorded match %s (%s %d - %d %s), %d rating changes",
		match.ID, match.Team1, match.Score1, match.Score2, match.Team2, len(changes))

	return match, changes, nil
}

func submitMatchTx(tx *sqlx.Tx, match Match, roster1, roster2 []string, changes *[]RatingChange) error {
	state, err := getLatestRatingState(tx)
	if err != nil {
		return err
	}

	next, computed := computeMatchOutcome(state, match, roster1, roster2)

	if err := match.insert(tx); err != nil {
		return err
	}

	if err := appendSnapshot(tx, newMatchSnapshot(match), next); err != nil {
		return err
	}

	*changes = computed
	return nil
}

func resolveRoster(rosters RosterLookup, teamName string, date time.Time) ([]string, error) {
	names, err := rosters.Players(teamName, date)
	if err != nil {
		var notFound ErrRosterNotFound
		if errors.As(err, &notFound) {
			log.Printf("warning: skipping match update: %s", err)
		}
		return nil, err
	}

	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			filtered = append(filtered, name)
		}
	}

	if len(filtered) == 0 {
		err := ErrRosterNotFound{TeamName: teamName, Date: date}
		log.Printf("warning: skipping match update: %s", err)
		return nil, err
	}

	return filtered, nil
}

// computeMatchOutcome is the Computed step: every delta is derived from the
// pre-match state so the result does not depend on the order teammates are
// processed in. Players on a roster get the Elo update, known absentees get
// the inactivity check, everyone else is carried forward untouched.
func computeMatchOutcome(
	state ratingState,
	match Match,
	roster1, roster2 []string,
) (ratingState, []RatingChange) {
	next := state.clone()
	next.seed(roster1)
	next.seed(roster2)

	// Pre-match view, frozen before any mutation below.
	preRatings := next.ratings()

	avg1 := teamAverageRating(roster1, preRatings)
	avg2 := teamAverageRating(roster2, preRatings)
	exp1 := expectedScore(avg1, avg2)
	exp2 := 1 - exp1

	actual1, actual2 := 0.5, 0.5
	switch {
	case match.Score1 > match.Score2:
		actual1, actual2 = 1, 0
	case match.Score2 > match.Score1:
		actual1, actual2 = 0, 1
	}

	multiplier := 1.0
	if match.Score1 != match.Score2 {
		winner, loser := match.Score1, match.Score2
		if loser > winner {
			winner, loser = loser, winner
		}
		multiplier = scoreMultiplier(winner, loser)
	}

	var changes []RatingChange
	played := make(map[string]struct{}, len(roster1)+len(roster2))

	apply := func(names []string, actual, expected float64) {
		for _, name := range names {
			if _, ok := played[name]; ok {
				continue
			}
			played[name] = struct{}{}

			v := next[name]
			old := preRatings[name]
			v.Rating = newRating(old, actual, expected, v.GamesPlayed, multiplier)
			v.GamesPlayed++
			v.LastPlayedAt = util.NewNullTimeAsTimestamp(match.Date.Time())

			changes = append(changes, RatingChange{
				PlayerName: name,
				Old:        old,
				New:        v.Rating,
				Reason:     RatingChangePlayed,
			})
		}
	}
	apply(roster1, actual1, exp1)
	apply(roster2, actual2, exp2)

	for _, name := range next.sortedNames() {
		if _, ok := played[name]; ok {
			continue
		}

		v := next[name]
		if !v.LastPlayedAt.Valid {
			continue
		}

		days := daysBetween(v.LastPlayedAt.Time.Time(), match.Date.Time())
		decayed := inactivityDecay(v.Rating, days)
		if decayed == v.Rating {
			continue
		}

		changes = append(changes, RatingChange{
			PlayerName: name,
			Old:        v.Rating,
			New:        decayed,
			Reason:     RatingChangeDecay,
		})
		v.Rating = decayed
	}

	return next, changes
}
