package back

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"volleyladder/internal/util"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// A Roster is the list of players who made up a named team on a given day.
// Team names are only meaningful within their day.
type Roster struct {
	ID        util.UUIDAsBlob
	CreatedAt util.TimeAsTimestamp
	Date      util.TimeAsDate
	TeamName  string

	PlayerNames util.StringArrayAsJSON
}

func NewRoster(date time.Time, teamName string, playerNames []string) Roster {
	return Roster{
		ID:          util.NewUUIDAsBlob(),
		CreatedAt:   util.TimeAsTimestamp(time.Now()),
		Date:        util.NewTimeAsDate(date),
		TeamName:    teamName,
		PlayerNames: playerNames,
	}
}

// upsert replaces any roster previously confirmed for the same team and
// day, regenerating teams before the first match is a normal workflow.
func (r *Roster) upsert(tx *sqlx.Tx) error {
	if _, err := tx.Exec(
		`DELETE FROM Roster WHERE Roster.Date = ? AND Roster.TeamName = ?`,
		r.Date, r.TeamName,
	); err != nil {
		return err
	}

	query, args, err := squirrel.Insert("Roster").SetMap(squirrel.Eq{
		"ID":          r.ID,
		"CreatedAt":   r.CreatedAt,
		"Date":        r.Date,
		"TeamName":    r.TeamName,
		"PlayerNames": r.PlayerNames,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

func getRoster(tx *sqlx.Tx, teamName string, date util.TimeAsDate) (Roster, error) {
	var ret Roster
	query := `SELECT * FROM Roster WHERE Roster.Date = ? AND Roster.TeamName = ? LIMIT 1`
	if err := tx.Get(&ret, query, date, teamName); err != nil {
		return Roster{}, err
	}

	return ret, nil
}

// RosterLookup resolves the roster of a team for a given day. Match
// submission receives it as a capability so the chat front end can supply
// its own source of truth.
type RosterLookup interface {
	Players(teamName string, date time.Time) ([]string, error)
}

// StoredRosters returns the lookup backed by the confirmed roster table,
// which is what team confirmation writes to.
func (b *Back) StoredRosters() RosterLookup {
	return storedRosters{db: b.db}
}

type storedRosters struct {
	db *sqlx.DB
}

func (r storedRosters) Players(teamName string, date time.Time) (names []string, _ error) {
	if err := util.Transaction(context.Background(), r.db, func(tx *sqlx.Tx) error {
		roster, err := getRoster(tx, teamName, util.NewTimeAsDate(date))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRosterNotFound{TeamName: teamName, Date: date}
			}
			return err
		}

		names = roster.PlayerNames.Slice()
		return nil
	}); err != nil {
		return nil, err
	}

	return names, nil
}
