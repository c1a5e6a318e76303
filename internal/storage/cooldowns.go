package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const upsertCooldownSQL = `INSERT INTO cooldowns (profile_uid, type, expires_at, notified) VALUES (?, ?, ?, 0)
	ON CONFLICT(profile_uid, type) DO UPDATE SET expires_at = excluded.expires_at, notified = 0`

// ApplyCooldowns upserts and deletes cooldowns in a single transaction.
// An upsert replaces the timer of the same (profile, type) and resets its
// notified flag; deleting a missing cooldown is a no-op.
func (r *Repository) ApplyCooldowns(ctx context.Context, upserts []CoolDown, deletes []CooldownKey) error {
	if len(upserts) == 0 && len(deletes) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertCooldowns(ctx, tx, upserts); err != nil {
			return err
		}
		for _, key := range deletes {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM cooldowns WHERE profile_uid = ? AND type = ?`,
				key.ProfileUID, key.Type,
			); err != nil {
				return fmt.Errorf("delete cooldown %s/%s: %w", key.ProfileUID, key.Type, err)
			}
		}
		return nil
	})
}

func upsertCooldowns(ctx context.Context, tx *sql.Tx, upserts []CoolDown) error {
	for _, cd := range upserts {
		if _, err := tx.ExecContext(ctx, upsertCooldownSQL, cd.ProfileUID, cd.Type, toMillis(cd.After)); err != nil {
			return fmt.Errorf("upsert cooldown %s/%s: %w", cd.ProfileUID, cd.Type, err)
		}
	}
	return nil
}

// ListCooldowns returns a profile's cooldowns ordered by expiry
func (r *Repository) ListCooldowns(ctx context.Context, uid string) ([]*CoolDown, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, profile_uid, type, expires_at, notified FROM cooldowns WHERE profile_uid = ? ORDER BY expires_at`,
		uid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cooldowns []*CoolDown
	for rows.Next() {
		cd := &CoolDown{}
		var after int64
		if err := rows.Scan(&cd.ID, &cd.ProfileUID, &cd.Type, &after, &cd.Notified); err != nil {
			return nil, err
		}
		cd.After = fromMillis(after)
		cooldowns = append(cooldowns, cd)
	}

	return cooldowns, rows.Err()
}

// DueCooldowns returns every unnotified cooldown expired at now, with the
// channel its owner was last seen in
func (r *Repository) DueCooldowns(ctx context.Context, now time.Time) ([]*DueCooldown, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.profile_uid, c.type, c.expires_at, c.notified, p.channel_id, p.last_known_nickname
		 FROM cooldowns c
		 JOIN profiles p ON p.uid = c.profile_uid
		 WHERE c.notified = 0 AND c.expires_at <= ?
		 ORDER BY c.expires_at`,
		toMillis(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []*DueCooldown
	for rows.Next() {
		d := &DueCooldown{}
		var after int64
		if err := rows.Scan(&d.ID, &d.ProfileUID, &d.Type, &after, &d.Notified, &d.ChannelID, &d.Nickname); err != nil {
			return nil, err
		}
		d.After = fromMillis(after)
		due = append(due, d)
	}

	return due, rows.Err()
}

// MarkCooldownNotified flags a delivered cooldown. The expiry must still
// match, so a timer re-upserted since it was fetched stays pending.
func (r *Repository) MarkCooldownNotified(ctx context.Context, id int64, after time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cooldowns SET notified = 1 WHERE id = ? AND expires_at = ?`,
		id, toMillis(after),
	)
	return err
}

// Guild cooldown operations

// SetGuildCooldown replaces the server-level guild timer
func (r *Repository) SetGuildCooldown(ctx context.Context, gc GuildCooldown) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guild_cooldowns (server_id, set_by_uid, channel_id, expires_at, notified) VALUES (?, ?, ?, ?, 0)
		 ON CONFLICT(server_id) DO UPDATE SET
			set_by_uid = excluded.set_by_uid,
			channel_id = excluded.channel_id,
			expires_at = excluded.expires_at,
			notified = 0`,
		gc.ServerID, gc.SetByUID, gc.ChannelID, toMillis(gc.After),
	)
	return err
}

// GetGuildCooldown retrieves a server's guild timer
func (r *Repository) GetGuildCooldown(ctx context.Context, serverID string) (*GuildCooldown, error) {
	gc := &GuildCooldown{}
	var after int64
	err := r.db.QueryRowContext(ctx,
		`SELECT server_id, set_by_uid, channel_id, expires_at, notified FROM guild_cooldowns WHERE server_id = ?`,
		serverID,
	).Scan(&gc.ServerID, &gc.SetByUID, &gc.ChannelID, &after, &gc.Notified)
	if err != nil {
		return nil, notFound(err)
	}
	gc.After = fromMillis(after)
	return gc, nil
}

// DueGuildCooldowns returns expired, unnotified guild timers. Members are
// the roster of the setter's in-game guild, or just the setter.
func (r *Repository) DueGuildCooldowns(ctx context.Context, now time.Time) ([]*DueGuildCooldown, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT server_id, set_by_uid, channel_id, expires_at, notified FROM guild_cooldowns
		 WHERE notified = 0 AND expires_at <= ?
		 ORDER BY expires_at`,
		toMillis(now),
	)
	if err != nil {
		return nil, err
	}

	var due []*DueGuildCooldown
	for rows.Next() {
		d := &DueGuildCooldown{}
		var after int64
		if err := rows.Scan(&d.ServerID, &d.SetByUID, &d.ChannelID, &after, &d.Notified); err != nil {
			rows.Close()
			return nil, err
		}
		d.After = fromMillis(after)
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// the connection is released before the member queries below
	rows.Close()

	for _, d := range due {
		members, err := r.guildmatesOf(ctx, d.SetByUID)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			members = []string{d.SetByUID}
		}
		d.MemberUIDs = members
	}

	return due, nil
}

// MarkGuildCooldownNotified flags a delivered guild timer, guarded by its
// expiry like MarkCooldownNotified
func (r *Repository) MarkGuildCooldownNotified(ctx context.Context, serverID string, after time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE guild_cooldowns SET notified = 1 WHERE server_id = ? AND expires_at = ?`,
		serverID, toMillis(after),
	)
	return err
}
