package back

import (
	"database/sql"
	"errors"
	"time"

	"volleyladder/internal/util"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// A Player is anyone who ever appeared in a roster. The display name is the
// only identity the outside world knows, the UUID exists so history and
// snapshots survive a rename.
type Player struct {
	ID        util.UUIDAsBlob
	CreatedAt util.TimeAsTimestamp
	Name      string

	// TelegramName is the optional handle the chat front end knows this
	// player by, it plays no role in the core.
	TelegramName sql.NullString
}

func NewPlayer(name string) Player {
	return Player{
		ID:        util.NewUUIDAsBlob(),
		CreatedAt: util.TimeAsTimestamp(time.Now()),
		Name:      name,
	}
}

func (p *Player) insert(tx *sqlx.Tx) error {
	query, args, err := squirrel.Insert("Player").SetMap(squirrel.Eq{
		"ID":           p.ID,
		"CreatedAt":    p.CreatedAt,
		"Name":         p.Name,
		"TelegramName": p.TelegramName,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

func (p *Player) update(tx *sqlx.Tx) error {
	query, args, err := squirrel.Update("Player").SetMap(squirrel.Eq{
		"Name":         p.Name,
		"TelegramName": p.TelegramName,
	}).Where("Player.ID = ?", p.ID).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

// RegisterTelegramName links the chat handle the front end knows a player
// by, creating the player on first contact. An empty handle clears the
// link.
func (b *Back) RegisterTelegramName(playerName, telegramName string) (player Player, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) error {
		var err error
		player, err = getOrCreatePlayerByName(tx, playerName)
		if err != nil {
			return err
		}

		player.TelegramName = util.NullString(telegramName)
		return player.update(tx)
	}); err != nil {
		return Player{}, err
	}

	return player, nil
}

func getPlayerByName(tx *sqlx.Tx, name string) (Player, error) {
	var ret Player
	query := `SELECT * FROM Player WHERE Player.Name = ? LIMIT 1`
	if err := tx.Get(&ret, query, name); err != nil {
		return Player{}, err
	}

	return ret, nil
}

func getPlayers(tx *sqlx.Tx) ([]Player, error) {
	var ret []Player
	if err := tx.Select(&ret, `SELECT * FROM Player ORDER BY Player.Name ASC`); err != nil {
		return nil, err
	}

	return ret, nil
}

// getOrCreatePlayerByName implements the implicit player lifecycle: the
// first roster a name appears in creates the player, nothing ever deletes
// one.
func getOrCreatePlayerByName(tx *sqlx.Tx, name string) (Player, error) {
	player, err := getPlayerByName(tx, name)
	if err == nil {
		return player, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Player{}, err
	}

	player = NewPlayer(name)
	if err := player.insert(tx); err != nil {
		return Player{}, err
	}

	return player, nil
}
