package back

import (
	"database/sql"
	"errors"
	"sort"
	"time"

	"volleyladder/internal/util"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type SnapshotKind int

const ( // this is stored in DB, don't change values
	SnapshotKindMatch SnapshotKind = 0
	SnapshotKindBonus SnapshotKind = 1
)

// A RatingSnapshot is one append-only step of the rating history. Match
// snapshots are 1:1 with their Match, bonus snapshots stand on their own
// (MatchID is null). Each snapshot carries a RatingEntry for every player
// ever seen, so any snapshot is a complete picture of the ladder.
type RatingSnapshot struct {
	ID        util.UUIDAsBlob
	CreatedAt util.TimeAsTimestamp
	Kind      SnapshotKind
	MatchID   util.NullUUIDAsBlob
	Date      util.TimeAsDate
}

type RatingEntry struct {
	SnapshotID util.UUIDAsBlob
	PlayerID   util.UUIDAsBlob

	Rating      int
	GamesPlayed int

	// LastPlayedAt is null for players who were seeded but never actually
	// played, inactivity decay does not apply to them.
	LastPlayedAt util.NullTimeAsTimestamp
}

func newMatchSnapshot(match Match) RatingSnapshot {
	return RatingSnapshot{
		ID:        util.NewUUIDAsBlob(),
		CreatedAt: util.TimeAsTimestamp(time.Now()),
		Kind:      SnapshotKindMatch,
		MatchID:   util.NewNullUUIDAsBlob(match.ID),
		Date:      match.Date,
	}
}

func newBonusSnapshot(date time.Time) RatingSnapshot {
	return RatingSnapshot{
		ID:        util.NewUUIDAsBlob(),
		CreatedAt: util.TimeAsTimestamp(time.Now()),
		Kind:      SnapshotKindBonus,
		Date:      util.NewTimeAsDate(date),
	}
}

// playerState is one player's standing as of a snapshot, the unit the
// rating engine works on.
type playerState struct {
	Player       Player
	Rating       int
	GamesPlayed  int
	LastPlayedAt util.NullTimeAsTimestamp
}

// ratingState is the full ladder standing keyed by display name. It only
// ever grows, a seeded player stays in every subsequent snapshot.
type ratingState map[string]*playerState

func (s ratingState) ratings() map[string]int {
	ret := make(map[string]int, len(s))
	for name, v := range s {
		ret[name] = v.Rating
	}

	return ret
}

// seed registers unknown roster players at the initial rating with zero
// games. Seeding an already-known player is a no-op, their standing is
// preserved.
func (s ratingState) seed(names []string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := s[name]; ok {
			continue
		}

		s[name] = &playerState{
			Player:      NewPlayer(name),
			Rating:      InitialRating,
			GamesPlayed: 0,
		}
	}
}

func (s ratingState) clone() ratingState {
	ret := make(ratingState, len(s))
	for name, v := range s {
		c := *v
		ret[name] = &c
	}

	return ret
}

func (s ratingState) sortedNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// getLatestRatingState loads the standing as of the most recent snapshot,
// or an empty state when no match was ever recorded. Write paths call this
// inside their transaction, never through the display cache.
func getLatestRatingState(tx *sqlx.Tx) (ratingState, error) {
	var snapshot RatingSnapshot
	query := `SELECT * FROM RatingSnapshot ORDER BY RatingSnapshot.rowid DESC LIMIT 1`
	if err := tx.Get(&snapshot, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ratingState{}, nil
		}
		return nil, err
	}

	var entries []RatingEntry
	if err := tx.Select(
		&entries,
		`SELECT * FROM RatingEntry WHERE RatingEntry.SnapshotID = ?`,
		snapshot.ID,
	); err != nil {
		return nil, err
	}

	players, err := getPlayers(tx)
	if err != nil {
		return nil, err
	}
	byID := make(map[util.UUIDAsBlob]Player, len(players))
	for k := range players {
		byID[players[k].ID] = players[k]
	}

	ret := make(ratingState, len(entries))
	for _, entry := range entries {
		player, ok := byID[entry.PlayerID]
		if !ok {
			// Entry without a Player row means a broken migration, surface
			// it instead of silently dropping history.
			return nil, errors.New("rating entry references unknown player " + entry.PlayerID.String())
		}

		ret[player.Name] = &playerState{
			Player:       player,
			Rating:       entry.Rating,
			GamesPlayed:  entry.GamesPlayed,
			LastPlayedAt: entry.LastPlayedAt,
		}
	}

	return ret, nil
}

// appendSnapshot writes the snapshot header and one entry per known
// player, creating Player rows for the freshly seeded ones. The enclosing
// transaction makes the append atomic, no reader ever sees a partial
// snapshot.
func appendSnapshot(tx *sqlx.Tx, snapshot RatingSnapshot, state ratingState) error {
	query, args, err := squirrel.Insert("RatingSnapshot").SetMap(squirrel.Eq{
		"ID":        snapshot.ID,
		"CreatedAt": snapshot.CreatedAt,
		"Kind":      snapshot.Kind,
		"MatchID":   snapshot.MatchID,
		"Date":      snapshot.Date,
	}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	for _, name := range state.sortedNames() {
		v := state[name]

		existing, err := getPlayerByName(tx, name)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if err := v.Player.insert(tx); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			// A Player row can predate its first rating entry (fixtures,
			// confirmed rosters), reuse it instead of inserting a twin.
			v.Player = existing
		}

		query, args, err := squirrel.Insert("RatingEntry").SetMap(squirrel.Eq{
			"SnapshotID":   snapshot.ID,
			"PlayerID":     v.Player.ID,
			"Rating":       v.Rating,
			"GamesPlayed":  v.GamesPlayed,
			"LastPlayedAt": v.LastPlayedAt,
		}).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return err
		}
	}

	return nil
}

func deleteSnapshotByMatchID(tx *sqlx.Tx, matchID util.UUIDAsBlob) error {
	var snapshot RatingSnapshot
	query := `SELECT * FROM RatingSnapshot WHERE RatingSnapshot.MatchID = ? LIMIT 1`
	if err := tx.Get(&snapshot, query, matchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	if _, err := tx.Exec(
		`DELETE FROM RatingEntry WHERE RatingEntry.SnapshotID = ?`,
		snapshot.ID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(
		`DELETE FROM RatingSnapshot WHERE RatingSnapshot.ID = ?`,
		snapshot.ID,
	); err != nil {
		return err
	}

	return nil
}

func deleteAllSnapshots(tx *sqlx.Tx) error {
	if _, err := tx.Exec(`DELETE FROM RatingEntry`); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM RatingSnapshot`); err != nil {
		return err
	}

	return nil
}
