package back // nolint:testpackage

import (
	"errors"
	"os"
	"testing"

	"volleyladder/internal/config"
	"volleyladder/internal/util"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
)

func newStoreBack(t *testing.T) *Back {
	t.Helper()

	f, err := os.CreateTemp("", "*.db")
	if err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	f.Close()
	t.Cleanup(func() {
		os.Remove(path)
	})

	migrator, err := migrate.New("file://../../migrations", "sqlite3://"+path)
	if err != nil {
		t.Fatal(err)
	}
	if err := migrator.Up(); err != nil {
		t.Fatal(err)
	}
	migrator.Close()

	b, err := New("sqlite3", path, &config.Config{
		BonusPerMatch:       3,
		MinLeaderboardGames: 15,
		BalanceAttempts:     200,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.db.Close() })

	return b
}

// confirmedTeams runs the generate-confirm flow and returns the assignment
// whose rosters are now stored for the day.
func confirmedTeams(t *testing.T, b *Back) TeamAssignment {
	t.Helper()

	assignment, err := b.GenerateTeams(evenPool("Alice", "Bob", "Cara", "Dan"), testDate(), 2, 100)
	if err != nil {
		t.Fatalf("GenerateTeams: %s", err)
	}
	if err := b.ConfirmTeams(assignment.ID); err != nil {
		t.Fatalf("ConfirmTeams: %s", err)
	}

	return assignment
}

func TestSubmitMatchRoundTrip(t *testing.T) {
	b := newStoreBack(t)
	assignment := confirmedTeams(t, b)
	winners, losers := assignment.Teams[0], assignment.Teams[1]

	match, changes, err := b.SubmitMatch(
		testDate(), winners.Name, losers.Name, 21, 18, b.StoredRosters(),
	)
	if err != nil {
		t.Fatalf("SubmitMatch: %s", err)
	}
	if match.Winner.String != winners.Name {
		t.Errorf("winner = %q, expected %q", match.Winner.String, winners.Name)
	}
	if len(changes) != 4 {
		t.Errorf("expected 4 rating changes, got %d", len(changes))
	}

	ratings, err := b.GetCurrentRatings()
	if err != nil {
		t.Fatalf("GetCurrentRatings: %s", err)
	}
	for _, m := range winners.Members {
		if ratings[m.Name] != 1525 {
			t.Errorf("%s rating = %d, expected 1525", m.Name, ratings[m.Name])
		}
	}
	for _, m := range losers.Members {
		if ratings[m.Name] != 1475 {
			t.Errorf("%s rating = %d, expected 1475", m.Name, ratings[m.Name])
		}
	}

	games, err := b.GetPlayerGamesCount(winners.Members[0].Name)
	if err != nil {
		t.Fatalf("GetPlayerGamesCount: %s", err)
	}
	if games != 1 {
		t.Errorf("games = %d, expected 1", games)
	}
}

func TestMvpBonusAndRerankRoundTrip(t *testing.T) {
	b := newStoreBack(t)
	assignment := confirmedTeams(t, b)
	winners, losers := assignment.Teams[0], assignment.Teams[1]

	if _, _, err := b.SubmitMatch(
		testDate(), winners.Name, losers.Name, 21, 18, b.StoredRosters(),
	); err != nil {
		t.Fatalf("SubmitMatch: %s", err)
	}

	mvp := winners.Members[0].Name
	played, err := b.CountPlayerMatchesOnDay(mvp, testDate())
	if err != nil {
		t.Fatalf("CountPlayerMatchesOnDay: %s", err)
	}
	if played != 1 {
		t.Fatalf("played = %d, expected 1", played)
	}

	bonus, err := b.ApplyMvpBonus(mvp, testDate(), played)
	if err != nil {
		t.Fatalf("ApplyMvpBonus: %s", err)
	}
	if bonus != 3 {
		t.Errorf("bonus = %d, expected 3", bonus)
	}

	assertRatings := func(step string) {
		t.Helper()

		ratings, err := b.GetCurrentRatings()
		if err != nil {
			t.Fatalf("%s: GetCurrentRatings: %s", step, err)
		}
		if ratings[mvp] != 1528 {
			t.Errorf("%s: %s rating = %d, expected 1528", step, mvp, ratings[mvp])
		}
		for _, m := range losers.Members {
			if ratings[m.Name] != 1475 {
				t.Errorf("%s: %s rating = %d, expected 1475", step, m.Name, ratings[m.Name])
			}
		}
	}
	assertRatings("after bonus")

	history, err := b.GetPlayerRatingHistory(mvp)
	if err != nil {
		t.Fatalf("GetPlayerRatingHistory: %s", err)
	}
	if len(history) != 2 || history[0].Rating != 1525 || history[1].Rating != 1528 {
		t.Fatalf("history = %+v, expected the match point then the bonus point", history)
	}

	// Replaying from scratch must land on the same standings.
	if err := b.Rerank(); err != nil {
		t.Fatalf("Rerank: %s", err)
	}
	assertRatings("after rerank")

	var notFound ErrPlayerNotFound
	if _, err := b.ApplyMvpBonus("Nobody", testDate(), 1); !errors.As(err, &notFound) {
		t.Errorf("bonus for an unseeded player returned %v, expected ErrPlayerNotFound", err)
	}
}

func TestDeleteLastMatchRoundTrip(t *testing.T) {
	b := newStoreBack(t)
	assignment := confirmedTeams(t, b)

	match, _, err := b.SubmitMatch(
		testDate(), assignment.Teams[0].Name, assignment.Teams[1].Name, 21, 18, b.StoredRosters(),
	)
	if err != nil {
		t.Fatalf("SubmitMatch: %s", err)
	}

	deleted, err := b.DeleteLastMatch(testDate())
	if err != nil {
		t.Fatalf("DeleteLastMatch: %s", err)
	}
	if deleted.ID != match.ID {
		t.Errorf("deleted %s, expected %s", deleted.ID, match.ID)
	}

	ratings, err := b.GetCurrentRatings()
	if err != nil {
		t.Fatalf("GetCurrentRatings: %s", err)
	}
	if len(ratings) != 0 {
		t.Errorf("ratings survived the snapshot deletion: %v", ratings)
	}

	var pub util.ErrPublic
	if _, err := b.DeleteLastMatch(testDate()); !errors.As(err, &pub) {
		t.Errorf("second delete returned %v, expected a public error", err)
	}
}

func TestRegisterTelegramName(t *testing.T) {
	b := newStoreBack(t)

	player, err := b.RegisterTelegramName("Олена", "@olena")
	if err != nil {
		t.Fatalf("RegisterTelegramName: %s", err)
	}
	if !player.TelegramName.Valid || player.TelegramName.String != "@olena" {
		t.Errorf("handle = %+v, expected @olena", player.TelegramName)
	}

	// Clearing and re-reading goes through the store.
	if _, err := b.RegisterTelegramName("Олена", ""); err != nil {
		t.Fatalf("RegisterTelegramName: %s", err)
	}

	if err := b.transaction(func(tx *sqlx.Tx) error {
		stored, err := getPlayerByName(tx, "Олена")
		if err != nil {
			return err
		}
		if stored.ID != player.ID {
			t.Errorf("re-registering created a twin: %s vs %s", stored.ID, player.ID)
		}
		if stored.TelegramName.Valid {
			t.Errorf("handle = %+v, expected it cleared", stored.TelegramName)
		}
		return nil
	}); err != nil {
		t.Fatalf("transaction: %s", err)
	}
}
