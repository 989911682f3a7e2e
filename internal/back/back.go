package back

import (
	"fmt"
	"log"
	"sync"
	"time"

	"volleyladder/internal/config"

	"github.com/jmoiron/sqlx"
)

// Back is the ladder core: it owns the database, the display cache and the
// in-memory team proposals, and serializes every rating write.
type Back struct {
	db    *sqlx.DB
	cache *displayCache

	// recordMx guards the whole "read latest snapshot, compute, append"
	// sequence. Two concurrent submissions racing it would silently lose
	// one update, this is the single most load-bearing lock in here.
	recordMx sync.Mutex

	proposalsMx sync.Mutex
	proposals   map[string]TeamAssignment

	bonusPerMatch       int
	minLeaderboardGames int
	balanceAttempts     int
	excludedPairs       []ExclusionPair
}

func New(sqlDriver string, sqlDSN string, conf *config.Config) (*Back, error) {
	// Why even bother converting names? A single greppable string across all
	// your source code is better than any odd conversion scheme you could ever
	// come up with.
	// HACK: This is global but putting this in init() makes test ugly.
	// As only the Back relies on the DB, this seems like an okay-ish place.
	sqlx.NameMapper = func(v string) string { return v }

	db, err := sqlx.Connect(sqlDriver, sqlDSN)
	if err != nil {
		return nil, err
	}

	excluded := make([]ExclusionPair, 0, len(conf.ExcludedPairs))
	for _, v := range conf.ExcludedPairs {
		excluded = append(excluded, ExclusionPair{v[0], v[1]})
	}

	return &Back{
		db:                  db,
		cache:               newDisplayCache(displayCacheTTL),
		proposals:           map[string]TeamAssignment{},
		bonusPerMatch:       conf.BonusPerMatch,
		minLeaderboardGames: conf.MinLeaderboardGames,
		balanceAttempts:     conf.BalanceAttempts,
		excludedPairs:       excluded,
	}, nil
}

// Run performs housekeeping every minute until done is closed.
func (b *Back) Run(wg *sync.WaitGroup, done <-chan struct{}) {
	wg.Add(1)
	defer wg.Done()
	log.Print("info: starting Back dæmon")

	for {
		if err := b.runPeriodicTasks(); err != nil {
			log.Printf("error: runPeriodicTasks: %s", err)
		}

		select {
		case <-time.After(1 * time.Minute):
		case <-done:
			return
		}
	}
}

func (b *Back) runPeriodicTasks() error {
	b.sweepStaleProposals(time.Now())
	return nil
}

type transactionCallback func(*sqlx.Tx) error

func (b *Back) transaction(cb transactionCallback) error {
	tx, err := b.db.Beginx()
	if err != nil {
		return wrapStoreErr(err)
	}

	if err := cb(tx); err != nil {
		if err2 := tx.Rollback(); err2 != nil {
			return fmt.Errorf("rollback error: %s\noriginal error: %s", err2, err)
		}

		return wrapStoreErr(err)
	}

	return wrapStoreErr(tx.Commit())
}
