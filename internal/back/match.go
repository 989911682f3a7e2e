package back

import (
	"database/sql"
	"errors"
	"time"

	"volleyladder/internal/util"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v4"
)

// A Match is one recorded set between two named teams on a given day.
// It is immutable once committed, the only allowed mutation is an explicit
// deletion which takes the paired snapshot down with it.
type Match struct {
	ID        util.UUIDAsBlob
	CreatedAt util.TimeAsTimestamp
	Date      util.TimeAsDate

	Team1  string
	Team2  string
	Score1 int
	Score2 int

	// Winner is the winning team name, null on a draw.
	Winner null.String
}

// NewMatch validates and assembles a match record. It rejects empty team
// names, a team playing itself, and negative scores before any roster or
// rating is looked at.
func NewMatch(date time.Time, team1, team2 string, score1, score2 int) (Match, error) {
	if team1 == "" || team2 == "" {
		return Match{}, ErrEmptyTeamName
	}
	if team1 == team2 {
		return Match{}, ErrSameTeam
	}
	if score1 < 0 || score2 < 0 {
		return Match{}, ErrInvalidScore
	}

	var winner null.String
	switch {
	case score1 > score2:
		winner = null.StringFrom(team1)
	case score2 > score1:
		winner = null.StringFrom(team2)
	}

	return Match{
		ID:        util.NewUUIDAsBlob(),
		CreatedAt: util.TimeAsTimestamp(time.Now()),
		Date:      util.NewTimeAsDate(date),
		Team1:     team1,
		Team2:     team2,
		Score1:    score1,
		Score2:    score2,
		Winner:    winner,
	}, nil
}

func (m Match) IsDraw() bool {
	return !m.Winner.Valid
}

func (m *Match) insert(tx *sqlx.Tx) error {
	query, args, err := squirrel.Insert("Match").SetMap(squirrel.Eq{
		"ID":        m.ID,
		"CreatedAt": m.CreatedAt,
		"Date":      m.Date,
		"Team1":     m.Team1,
		"Team2":     m.Team2,
		"Score1":    m.Score1,
		"Score2":    m.Score2,
		"Winner":    m.Winner,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

func getMatches(tx *sqlx.Tx) ([]Match, error) {
	var ret []Match
	// rowid is the append order, CreatedAt has only second resolution.
	if err := tx.Select(&ret, `SELECT * FROM Match ORDER BY Match.rowid ASC`); err != nil {
		return nil, err
	}

	return ret, nil
}

func deleteMatch(tx *sqlx.Tx, id util.UUIDAsBlob) error {
	_, err := tx.Exec(`DELETE FROM Match WHERE Match.ID = ?`, id)
	return err
}

func getLastMatchOfDay(tx *sqlx.Tx, date util.TimeAsDate) (Match, error) {
	var ret Match
	query := `SELECT * FROM Match WHERE Match.Date = ? ORDER BY Match.rowid DESC LIMIT 1`
	if err := tx.Get(&ret, query, date); err != nil {
		return Match{}, err
	}

	return ret, nil
}

// DeleteLastMatch removes the most recent match of the given day together
// with its paired rating snapshot, which is the only way a recorded match
// ever goes away. Later snapshots are left untouched, there is no
// re-scoring.
func (b *Back) DeleteLastMatch(date time.Time) (Match, error) {
	b.recordMx.Lock()
	defer b.recordMx.Unlock()

	var match Match
	if err := b.transaction(func(tx *sqlx.Tx) (err error) {
		match, err = getLastMatchOfDay(tx, util.NewTimeAsDate(date))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return util.ErrPublic("there is no match to delete on that day")
			}
			return err
		}

		return util.ConcatErrors([]error{
			deleteSnapshotByMatchID(tx, match.ID),
			deleteMatch(tx, match.ID),
		})
	}); err != nil {
		return Match{}, err
	}

	b.cache.invalidate(cacheKeyStandings)

	return match, nil
}
