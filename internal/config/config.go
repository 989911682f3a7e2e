package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

type Config struct {
	// SQLDSN is the sqlite3 DSN of the ladder database.
	SQLDSN string

	// WebAddr is the host:port the read-only HTTP API listens on.
	WebAddr string

	// BonusPerMatch is the amount of rating points an MVP earns per match
	// played on the day of the vote.
	BonusPerMatch int

	// MinLeaderboardGames is the number of played matches required before a
	// player shows up on the leaderboard.
	MinLeaderboardGames int

	// BalanceMaxDifference is the default tolerated gap between the average
	// weights of generated teams.
	BalanceMaxDifference float64

	// BalanceAttempts bounds the number of restarts of the team balancing
	// search before it gives up.
	BalanceAttempts int

	// ExcludedPairs lists the pairs of players that must never end up on
	// the same team.
	ExcludedPairs [][2]string
}

func NewFromUserConfigDir() (*Config, error) {
	c := &Config{}
	if err := c.ReloadFromUserConfigDir(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) expandFromEnv() {
	vars := []struct {
		src string
		dst *string
	}{
		{"VOLLEYLADDER_SQL_DSN", &c.SQLDSN},
		{"VOLLEYLADDER_WEB_ADDR", &c.WebAddr},
	}

	for _, v := range vars {
		if str := os.Getenv(v.src); str != "" {
			*v.dst = str
		}
	}
}

func (c *Config) applyDefaults() {
	if c.SQLDSN == "" {
		c.SQLDSN = "./volleyladder.db"
	}
	if c.WebAddr == "" {
		c.WebAddr = "127.0.0.1:3001"
	}
	if c.BonusPerMatch == 0 {
		c.BonusPerMatch = 3
	}
	if c.MinLeaderboardGames == 0 {
		c.MinLeaderboardGames = 15
	}
	if c.BalanceMaxDifference == 0 {
		c.BalanceMaxDifference = 20.0
	}
	if c.BalanceAttempts == 0 {
		c.BalanceAttempts = 200
	}
}

func (c *Config) ReloadFromUserConfigDir() error {
	path, err := getOrCreateUserConfigPath()
	if err != nil {
		return err
	}
	log.Printf("debug: reading conf from %s", path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		*c = Config{}
		c.expandFromEnv()
		c.applyDefaults()

		// First run, persist the defaults so there is a file to edit.
		return c.Write()
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(c); err != nil {
		return err
	}

	c.expandFromEnv()
	c.applyDefaults()

	return nil
}

func getOrCreateUserConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(configDir, "volleyladder")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	return filepath.Join(dir, "config.json"), nil
}

func (c *Config) Write() error {
	path, err := getOrCreateUserConfigPath()
	if err != nil {
		return err
	}
	log.Printf("debug: writing conf to %s", path)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o700)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(f).Encode(c); err != nil {
		if err2 := f.Close(); err2 != nil {
			return fmt.Errorf("unable to close file (%s) after error: %w", err2, err)
		}

		return err
	}

	return f.Close()
}
