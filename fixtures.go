package main

import (
	"log"
	"time"

	"volleyladder/internal/back"
	"volleyladder/internal/config"
)

func loadFixtures(conf *config.Config) error {
	b, err := back.New("sqlite3", conf.SQLDSN, conf)
	if err != nil {
		return err
	}

	names := []string{"Alice", "Bob", "Cara", "Dan", "Eve", "Frank", "Gail", "Hank"}
	for _, name := range names {
		if _, err := b.RegisterTelegramName(name, "@"+name); err != nil {
			return err
		}
	}

	pool, err := b.BuildCandidatePool(names)
	if err != nil {
		return err
	}

	date := time.Now()
	assignment, err := b.GenerateTeams(pool, date, 2, conf.BalanceMaxDifference)
	if err != nil {
		return err
	}

	if err := b.ConfirmTeams(assignment.ID); err != nil {
		return err
	}

	team1, team2 := assignment.Teams[0].Name, assignment.Teams[1].Name
	match, changes, err := b.SubmitMatch(date, team1, team2, 21, 18, b.StoredRosters())
	if err != nil {
		return err
	}

	log.Printf("info: fixtures: match %s recorded with %d rating changes", match.ID, len(changes))

	return nil
}
