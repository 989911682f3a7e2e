package back

import (
	"log"
	"time"

	"volleyladder/internal/util"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// An MvpBonus is the audit record of one MVP vote payout.
type MvpBonus struct {
	ID        util.UUIDAsBlob
	CreatedAt util.TimeAsTimestamp
	PlayerID  util.UUIDAsBlob
	Date      util.TimeAsDate

	MatchesPlayed int
	Bonus         int
	OldRating     int
	NewRating     int
}

func (m *MvpBonus) insert(tx *sqlx.Tx) error {
	query, args, err := squirrel.Insert("MvpBonus").SetMap(squirrel.Eq{
		"ID":            m.ID,
		"CreatedAt":     m.CreatedAt,
		"PlayerID":      m.PlayerID,
		"Date":          m.Date,
		"MatchesPlayed": m.MatchesPlayed,
		"Bonus":         m.Bonus,
		"OldRating":     m.OldRating,
		"NewRating":     m.NewRating,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

func getMvpBonuses(tx *sqlx.Tx) ([]MvpBonus, error) {
	var ret []MvpBonus
	if err := tx.Select(&ret, `SELECT * FROM MvpBonus ORDER BY MvpBonus.rowid ASC`); err != nil {
		return nil, err
	}

	return ret, nil
}

// ApplyMvpBonus grants the MVP of a day their bonus, scaled by how many
// matches they played that day, and appends a bonus snapshot so the rating
// history stays append-only. A bonus can never create a player: an unseeded
// name is reported as ErrPlayerNotFound, and zero matches played yields
// zero bonus without touching the history.
func (b *Back) ApplyMvpBonus(playerName string, date time.Time, matchesPlayedToday int) (int, error) {
	if matchesPlayedToday <= 0 {
		return 0, nil
	}

	b.recordMx.Lock()
	defer b.recordMx.Unlock()

	bonus := b.bonusPerMatch * matchesPlayedToday

	if err := b.transaction(func(tx *sqlx.Tx) error {
		state, err := getLatestRatingState(tx)
		if err != nil {
			return err
		}

		v, ok := state[playerName]
		if !ok {
			return ErrPlayerNotFound{Name: playerName}
		}

		next := state.clone()
		winner := next[playerName]
		winner.Rating = v.Rating + bonus

		if err := appendSnapshot(tx, newBonusSnapshot(date), next); err != nil {
			return err
		}

		audit := MvpBonus{
			ID:            util.NewUUIDAsBlob(),
			CreatedAt:     util.TimeAsTimestamp(time.Now()),
			PlayerID:      winner.Player.ID,
			Date:          util.NewTimeAsDate(date),
			MatchesPlayed: matchesPlayedToday,
			Bonus:         bonus,
			OldRating:     v.Rating,
			NewRating:     winner.Rating,
		}

		return audit.insert(tx)
	}); err != nil {
		return 0, err
	}

	b.cache.invalidate(cacheKeyStandings)
	log.Printf("info: applied MVP bonus of %d to %s", bonus, playerName)

	return bonus, nil
}

// CountPlayerMatchesOnDay tells how many matches of a given day had the
// player on either roster, which is the multiplier the MVP bonus uses.
func (b *Back) CountPlayerMatchesOnDay(playerName string, date time.Time) (count int, _ error) {
	day := util.NewTimeAsDate(date)

	if err := b.transaction(func(tx *sqlx.Tx) error {
		var matches []Match
		if err := tx.Select(
			&matches,
			`SELECT * FROM Match WHERE Match.Date = ? ORDER BY Match.rowid ASC`,
			day,
		); err != nil {
			return err
		}

		for _, match := range matches {
			for _, teamName := range []string{match.Team1, match.Team2} {
				roster, err := getRoster(tx, teamName, day)
				if err != nil {
					continue // no roster recorded, nothing to count
				}

				if contains(roster.PlayerNames.Slice(), playerName) {
					count++
					break
				}
			}
		}

		return nil
	}); err != nil {
		return 0, err
	}

	return count, nil
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}

	return false
}
