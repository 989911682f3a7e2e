package back

import (
	"database/sql"
	"errors"
	"sort"

	"volleyladder/internal/util"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const cacheKeyStandings = "standings"

// PlayerStanding is one player's line in the cached display state.
type PlayerStanding struct {
	Rating      int
	GamesPlayed int
}

// getStandings serves display reads through the pull-through cache, up to
// 60 seconds stale. Write paths never call this, they load their state
// inside their own transaction.
func (b *Back) getStandings() (map[string]PlayerStanding, error) {
	value, err := b.cache.get(cacheKeyStandings, func() (interface{}, error) {
		var state ratingState
		if err := b.transaction(func(tx *sqlx.Tx) (err error) {
			state, err = getLatestRatingState(tx)
			return err
		}); err != nil {
			return nil, err
		}

		standings := make(map[string]PlayerStanding, len(state))
		for name, v := range state {
			standings[name] = PlayerStanding{
				Rating:      v.Rating,
				GamesPlayed: v.GamesPlayed,
			}
		}

		return standings, nil
	})
	if err != nil {
		return nil, err
	}

	return value.(map[string]PlayerStanding), nil
}

func (b *Back) GetCurrentRatings() (map[string]int, error) {
	standings, err := b.getStandings()
	if err != nil {
		return nil, err
	}

	ret := make(map[string]int, len(standings))
	for name, v := range standings {
		ret[name] = v.Rating
	}

	return ret, nil
}

func (b *Back) GetPlayerGamesCount(playerName string) (int, error) {
	standings, err := b.getStandings()
	if err != nil {
		return 0, err
	}

	standing, ok := standings[playerName]
	if !ok {
		return 0, ErrPlayerNotFound{Name: playerName}
	}

	return standing.GamesPlayed, nil
}

// A RatingPoint is one step of a player's rating history.
type RatingPoint struct {
	Date   util.TimeAsDate
	Rating int
}

func (b *Back) GetPlayerRatingHistory(playerName string) (history []RatingPoint, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) error {
		player, err := getPlayerByName(tx, playerName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrPlayerNotFound{Name: playerName}
			}
			return err
		}

		query := `
        SELECT RatingSnapshot.Date AS Date, RatingEntry.Rating AS Rating
        FROM RatingEntry
        INNER JOIN RatingSnapshot ON (RatingEntry.SnapshotID = RatingSnapshot.ID)
        WHERE RatingEntry.PlayerID = ?
        ORDER BY RatingSnapshot.rowid ASC`

		return tx.Select(&history, query, player.ID)
	}); err != nil {
		return nil, err
	}

	return history, nil
}

// A WeeklyAverage aggregates rating points over one ISO week, this is what
// the front end plots as the rating trend.
type WeeklyAverage struct {
	Year, Week int
	Rating     float64
}

func WeeklyAverages(history []RatingPoint) []WeeklyAverage {
	type key struct{ year, week int }

	sums := map[key]struct {
		total, count int
	}{}

	for _, point := range history {
		year, week := point.Date.Time().ISOWeek()
		k := key{year, week}
		v := sums[k]
		v.total += point.Rating
		v.count++
		sums[k] = v
	}

	ret := make([]WeeklyAverage, 0, len(sums))
	for k, v := range sums {
		ret = append(ret, WeeklyAverage{
			Year:   k.year,
			Week:   k.week,
			Rating: float64(v.total) / float64(v.count),
		})
	}

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Year != ret[j].Year {
			return ret[i].Year < ret[j].Year
		}
		return ret[i].Week < ret[j].Week
	})

	return ret
}

type LeaderboardEntry struct {
	PlayerName  string
	Rating      int
	GamesPlayed int
}

// GetLeaderboard returns the players with at least minGames matches sorted
// by rating. Ties are broken by name using Ukrainian collation, byte order
// mangles the roster's Cyrillic names.
func (b *Back) GetLeaderboard(minGames int) ([]LeaderboardEntry, error) {
	standings, err := b.getStandings()
	if err != nil {
		return nil, err
	}

	ret := make([]LeaderboardEntry, 0, len(standings))
	for name, v := range standings {
		if v.GamesPlayed < minGames {
			continue
		}

		ret = append(ret, LeaderboardEntry{
			PlayerName:  name,
			Rating:      v.Rating,
			GamesPlayed: v.GamesPlayed,
		})
	}

	collator := collate.New(language.Ukrainian)
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Rating != ret[j].Rating {
			return ret[i].Rating > ret[j].Rating
		}
		return collator.CompareString(ret[i].PlayerName, ret[j].PlayerName) < 0
	})

	return ret, nil
}

// MinLeaderboardGames exposes the configured leaderboard cutoff to the
// display layer.
func (b *Back) MinLeaderboardGames() int {
	return b.minLeaderboardGames
}

// PlayerStatus is the stabilization tier derived from games played, the
// front end shows it next to the K factor.
type PlayerStatus string

const (
	PlayerStatusRookie      PlayerStatus = "rookie"
	PlayerStatusAdapting    PlayerStatus = "adapting"
	PlayerStatusStabilizing PlayerStatus = "stabilizing"
	PlayerStatusStable      PlayerStatus = "stable"
)

func playerStatus(gamesPlayed int) PlayerStatus {
	switch {
	case gamesPlayed < 5:
		return PlayerStatusRookie
	case gamesPlayed < 15:
		return PlayerStatusAdapting
	case gamesPlayed < StabilizationGames:
		return PlayerStatusStabilizing
	default:
		return PlayerStatusStable
	}
}

type PlayerStats struct {
	PlayerName  string
	Rating      int
	GamesPlayed int
	KFactor     float64
	Status      PlayerStatus

	// GamesToStabilize is how many matches remain before the K factor
	// settles, zero once stable.
	GamesToStabilize int
}

func (b *Back) GetPlayerStats(playerName string) (PlayerStats, error) {
	standings, err := b.getStandings()
	if err != nil {
		return PlayerStats{}, err
	}

	standing, ok := standings[playerName]
	if !ok {
		return PlayerStats{}, ErrPlayerNotFound{Name: playerName}
	}

	remaining := StabilizationGames - standing.GamesPlayed
	if remaining < 0 {
		remaining = 0
	}

	return PlayerStats{
		PlayerName:       playerName,
		Rating:           standing.Rating,
		GamesPlayed:      standing.GamesPlayed,
		KFactor:          dynamicKFactor(standing.GamesPlayed, standing.Rating),
		Status:           playerStatus(standing.GamesPlayed),
		GamesToStabilize: remaining,
	}, nil
}
