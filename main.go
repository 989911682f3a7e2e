package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"volleyladder/internal/back"
	"volleyladder/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

// Version holds the build-time version string.
var Version = "unknown" // nolint:gochecknoglobals

func main() {
	flag.Parse()

	if err := run(flag.Arg(0)); err != nil {
		log.Fatalf("error: %s", err)
	}
}

func run(command string) error {
	switch command {
	case "version":
		fmt.Fprintf(os.Stdout, "volleyladder %s\n", Version)
		return nil
	case "migrate":
		conf, err := config.NewFromUserConfigDir()
		if err != nil {
			return err
		}
		return migrateDB(conf.SQLDSN)
	case "serve":
		conf, err := config.NewFromUserConfigDir()
		if err != nil {
			return err
		}
		b, err := back.New("sqlite3", conf.SQLDSN, conf)
		if err != nil {
			return err
		}
		return serve(b, conf)
	case "rerank":
		conf, err := config.NewFromUserConfigDir()
		if err != nil {
			return err
		}
		b, err := back.New("sqlite3", conf.SQLDSN, conf)
		if err != nil {
			return err
		}
		return b.Rerank()
	case "dev:fixtures":
		conf, err := config.NewFromUserConfigDir()
		if err != nil {
			return err
		}
		return loadFixtures(conf)
	case "help":
		fmt.Fprint(os.Stdout, help())
		return nil
	default:
		fmt.Fprint(os.Stderr, help())
		os.Exit(1)
		return nil
	}
}

func help() string {
	return fmt.Sprintf(`
volleyladder tracks the ratings of a pickup volleyball ladder and splits
the day's players into balanced teams.

Usage: %[1]s COMMAND [ARGS…]

COMMANDS
    dev:fixtures create default data for quick testing during development
    help         display this help
    migrate      apply pending database migrations
    rerank       recompute every rating snapshot from the recorded matches
    serve        run the ladder dæmon and its read-only HTTP API
    version      display the current version
`,
		os.Args[0],
	)
}
