package back

import (
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Validation sentinels, raised before any roster or rating is touched.
var (
	ErrInvalidScore  = errors.New("scores must be non-negative integers")
	ErrEmptyTeamName = errors.New("team names cannot be empty")
	ErrSameTeam      = errors.New("a team cannot play against itself")
)

// ErrRosterNotFound means no roster was recorded for a team on a given day.
// A match update hitting it is skipped, not failed: the caller reports it
// and moves on.
type ErrRosterNotFound struct {
	TeamName string
	Date     time.Time
}

func (e ErrRosterNotFound) Error() string {
	return fmt.Sprintf("no roster found for team %q on %s", e.TeamName, e.Date.Format("2006-01-02"))
}

// ErrPlayerNotFound is returned by stats queries and bonus application for
// players that never appeared in a snapshot. Neither path may create one.
type ErrPlayerNotFound struct {
	Name string
}

func (e ErrPlayerNotFound) Error() string {
	return fmt.Sprintf("player %q has no rating history", e.Name)
}

// ErrBalancingInfeasible is returned when no balancing attempt within the
// configured bound satisfied both the tolerance and the exclusion
// constraints. Best carries the least-bad attempt so the caller can decide
// to use it anyway.
type ErrBalancingInfeasible struct {
	Attempts       int
	BestGap        float64
	BestViolations int
	Best           *TeamAssignment
}

func (e ErrBalancingInfeasible) Error() string {
	return fmt.Sprintf(
		"no balanced partition found in %d attempts (best gap %.2f, %d exclusion violations)",
		e.Attempts, e.BestGap, e.BestViolations,
	)
}

// ErrTransientStore wraps a store error the caller may retry with backoff,
// typically sqlite reporting the database as busy or locked.
type ErrTransientStore struct {
	Err error
}

func (e ErrTransientStore) Error() string {
	return fmt.Sprintf("transient store error: %s", e.Err)
}

func (e ErrTransientStore) Unwrap() error {
	return e.Err
}

// wrapStoreErr tags retryable sqlite failures so callers can tell them apart
// from hard errors, everything else passes through untouched.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return ErrTransientStore{Err: err}
		}
	}

	return err
}
