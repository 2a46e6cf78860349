package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/snapetech/xtreamsync/internal/xtream"
)

// ToggleFavorite flips an item's favorite membership: removes the row when
// its composite key already exists, inserts it otherwise. The check and the
// write share one transaction under the single-writer mutex, so two rapid
// toggles land as toggle-on then toggle-off, never a duplicate.
// Returns true when the item is a favorite after the call.
func (r *Repository) ToggleFavorite(ctx context.Context, item PlayableItem) (bool, error) {
	key := item.FavoriteKey()
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	var nowFavorite bool
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM favorites WHERE favorite_key = ?`, key).Scan(&exists)
		switch {
		case err == sql.ErrNoRows:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO favorites (favorite_key, account_id, media_kind, item_id, title, playback_url, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				key, item.AccountID, string(item.Kind), item.ID, item.Title, item.StreamURL, time.Now().UTC().Unix())
			nowFavorite = true
			return err
		case err != nil:
			return err
		default:
			_, err = tx.ExecContext(ctx, `DELETE FROM favorites WHERE favorite_key = ?`, key)
			nowFavorite = false
			return err
		}
	})
	return nowFavorite, err
}

// IsFavorite reports whether the item's key is saved.
func (r *Repository) IsFavorite(ctx context.Context, item PlayableItem) (bool, error) {
	var exists int
	err := r.store.DB().QueryRowContext(ctx,
		`SELECT 1 FROM favorites WHERE favorite_key = ?`, item.FavoriteKey()).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// ListFavorites returns an account's saved items as playables, newest first.
func (r *Repository) ListFavorites(ctx context.Context, accountID string) ([]PlayableItem, error) {
	rows, err := r.store.DB().QueryContext(ctx,
		`SELECT account_id, media_kind, item_id, title, playback_url
		 FROM favorites WHERE account_id = ?
		 ORDER BY created_at DESC, favorite_key`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PlayableItem
	for rows.Next() {
		var p PlayableItem
		var kindStr string
		if err := rows.Scan(&p.AccountID, &kindStr, &p.ID, &p.Title, &p.StreamURL); err != nil {
			return nil, err
		}
		p.Kind = xtream.MediaKind(kindStr)
		p.Subtitle = "Favorite · " + p.Kind.Label()
		out = append(out, p)
	}
	return out, rows.Err()
}
