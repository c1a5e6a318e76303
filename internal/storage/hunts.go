package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Hunt operations

// OpenHunt records an in-flight hunt for a profile unless one is already open
func (r *Repository) OpenHunt(ctx context.Context, uid string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO hunts (profile_uid, created_at)
		 SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM hunts WHERE profile_uid = ? AND target IS NULL)`,
		uid, toMillis(at), uid,
	)
	return err
}

// UpdateHuntResults writes a hunt outcome for one of several candidate
// users sharing a display name. The candidate owning an open hunt wins; a
// lone candidate without an open hunt gets a completed record. Anything
// still ambiguous is dropped. Returns the resolved user id, or "".
func (r *Repository) UpdateHuntResults(ctx context.Context, candidates []string, res HuntResult, at time.Time) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}

	var resolved string
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		owners, err := openHuntOwners(ctx, tx, candidates)
		if err != nil {
			return err
		}

		switch {
		case len(owners) == 1:
			if _, err := tx.ExecContext(ctx,
				`UPDATE hunts SET target = ?, money = ?, xp = ?, loot = ?, completed_at = ?
				 WHERE id = (SELECT id FROM hunts WHERE profile_uid = ? AND target IS NULL ORDER BY created_at DESC, id DESC LIMIT 1)`,
				res.Target, res.Money, res.XP, res.Loot, toMillis(at), owners[0],
			); err != nil {
				return fmt.Errorf("complete hunt: %w", err)
			}
			resolved = owners[0]
		case len(owners) == 0 && len(candidates) == 1:
			result, err := tx.ExecContext(ctx,
				`INSERT INTO hunts (profile_uid, target, money, xp, loot, created_at, completed_at)
				 SELECT ?, ?, ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM profiles WHERE uid = ?)`,
				candidates[0], res.Target, res.Money, res.XP, res.Loot, toMillis(at), toMillis(at), candidates[0],
			)
			if err != nil {
				return fmt.Errorf("record hunt: %w", err)
			}
			if n, _ := result.RowsAffected(); n > 0 {
				resolved = candidates[0]
			}
		}
		return nil
	})
	return resolved, err
}

func openHuntOwners(ctx context.Context, tx *sql.Tx, candidates []string) ([]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(candidates)), ",")
	args := make([]any, len(candidates))
	for i, c := range candidates {
		args[i] = c
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT profile_uid FROM hunts WHERE target IS NULL AND profile_uid IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		owners = append(owners, uid)
	}
	return owners, rows.Err()
}

// LatestHunt returns the most recent hunt of a profile
func (r *Repository) LatestHunt(ctx context.Context, uid string) (*Hunt, error) {
	h := &Hunt{}
	var target sql.NullString
	var created int64
	var completed sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, profile_uid, target, money, xp, loot, created_at, completed_at
		 FROM hunts WHERE profile_uid = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		uid,
	).Scan(&h.ID, &h.ProfileUID, &target, &h.Money, &h.XP, &h.Loot, &created, &completed)
	if err != nil {
		return nil, notFound(err)
	}
	h.Target = target.String
	h.CreatedAt = fromMillis(created)
	if completed.Valid {
		t := fromMillis(completed.Int64)
		h.CompletedAt = &t
	}
	return h, nil
}

// Gamble operations

// CreateGamble stores a gambling outcome once per results message.
// inserted is false when the message was already recorded.
func (r *Repository) CreateGamble(ctx context.Context, g *Gamble) (inserted bool, err error) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO gambles (profile_uid, message_id, game, outcome, amount, created_at)
		 VALUES (?, NULLIF(?, ''), ?, ?, ?, ?) ON CONFLICT(message_id) DO NOTHING`,
		g.ProfileUID, g.MessageID, g.Game, g.Outcome, g.Amount, toMillis(g.CreatedAt),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		g.ID, _ = res.LastInsertId()
	}
	return n > 0, nil
}

// ListGambles returns a profile's gambling outcomes, oldest first
func (r *Repository) ListGambles(ctx context.Context, uid string) ([]*Gamble, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, profile_uid, COALESCE(message_id, ''), game, outcome, amount, created_at
		 FROM gambles WHERE profile_uid = ? ORDER BY id`,
		uid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gambles []*Gamble
	for rows.Next() {
		g := &Gamble{}
		var created int64
		if err := rows.Scan(&g.ID, &g.ProfileUID, &g.MessageID, &g.Game, &g.Outcome, &g.Amount, &created); err != nil {
			return nil, err
		}
		g.CreatedAt = fromMillis(created)
		gambles = append(gambles, g)
	}

	return gambles, rows.Err()
}
