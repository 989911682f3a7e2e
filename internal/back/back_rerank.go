package back

import (
	"log"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
)

// Rerank wipes every snapshot and replays the recorded matches and MVP
// bonuses in order, the escape hatch after a roster had to be fixed by
// hand. Within one day matches replay before bonuses, the vote always
// happened after the day's last set.
func (b *Back) Rerank() error {
	start := time.Now()

	b.recordMx.Lock()
	defer b.recordMx.Unlock()

	if err := b.transaction(func(tx *sqlx.Tx) error {
		if err := deleteAllSnapshots(tx); err != nil {
			return err
		}

		matches, err := getMatches(tx)
		if err != nil {
			return err
		}

		bonuses, err := getMvpBonuses(tx)
		if err != nil {
			return err
		}

		for _, event := range mergeReplayEvents(matches, bonuses) {
			if event.match != nil {
				if err := replayMatch(tx, *event.match); err != nil {
					return err
				}
				continue
			}

			if err := replayBonus(tx, *event.bonus); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return err
	}

	b.cache.invalidate(cacheKeyStandings)
	log.Printf("info: recomputed rankings in %s", time.Since(start))

	return nil
}

type replayEvent struct {
	match *Match
	bonus *MvpBonus
}

func (e replayEvent) date() time.Time {
	if e.match != nil {
		return e.match.Date.Time()
	}

	return e.bonus.Date.Time()
}

func mergeReplayEvents(matches []Match, bonuses []MvpBonus) []replayEvent {
	events := make([]replayEvent, 0, len(matches)+len(bonuses))
	for k := range matches {
		events = append(events, replayEvent{match: &matches[k]})
	}
	for k := range bonuses {
		events = append(events, replayEvent{bonus: &bonuses[k]})
	}

	// Stable keeps the original append order within a day.
	sort.SliceStable(events, func(i, j int) bool {
		di, dj := events[i].date(), events[j].date()
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return events[i].match != nil && events[j].bonus != nil
	})

	return events
}

func replayMatch(tx *sqlx.Tx, match Match) error {
	roster1, err := getRoster(tx, match.Team1, match.Date)
	if err != nil {
		log.Printf("warning: rerank: no roster for %q on %s, match %s left unscored",
			match.Team1, match.Date, match.ID)
		return nil
	}
	roster2, err := getRoster(tx, match.Team2, match.Date)
	if err != nil {
		log.Printf("warning: rerank: no roster for %q on %s, match %s left unscored",
			match.Team2, match.Date, match.ID)
		return nil
	}

	state, err := getLatestRatingState(tx)
	if err != nil {
		return err
	}

	next, _ := computeMatchOutcome(state, match, roster1.PlayerNames.Slice(), roster2.PlayerNames.Slice())

	return appendSnapshot(tx, newMatchSnapshot(match), next)
}

// replayBonus re-applies the audited bonus amount, the audit row itself is
// left as recorded even if the replayed ratings drifted.
func replayBonus(tx *sqlx.Tx, bonus MvpBonus) error {
	state, err := getLatestRatingState(tx)
	if err != nil {
		return err
	}

	next := state.clone()
	for _, v := range next {
		if v.Player.ID == bonus.PlayerID {
			v.Rating += bonus.Bonus
			break
		}
	}

	return appendSnapshot(tx, newBonusSnapshot(bonus.Date.Time()), next)
}
