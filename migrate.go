package main

import (
	"errors"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func migrateDB(dsn string) error {
	m, err := migrate.New("file://migrations", "sqlite3://"+dsn)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Print("info: database already up to date")
			return nil
		}

		return err
	}

	log.Print("info: database migrated")

	return nil
}
