package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Guild membership operations

// SetGuildMembership replaces the full member list of an in-game guild
func (r *Repository) SetGuildMembership(ctx context.Context, guild string, uids []string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM guild_members WHERE guild_name = ?`, guild); err != nil {
			return fmt.Errorf("clear guild %s: %w", guild, err)
		}
		for _, uid := range uids {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO guild_members (guild_name, uid) VALUES (?, ?)`,
				guild, uid,
			); err != nil {
				return fmt.Errorf("add member to guild %s: %w", guild, err)
			}
		}
		return nil
	})
}

// GuildMembers lists the user ids of an in-game guild
func (r *Repository) GuildMembers(ctx context.Context, guild string) ([]string, error) {
	return r.queryUIDs(ctx, `SELECT uid FROM guild_members WHERE guild_name = ? ORDER BY uid`, guild)
}

// guildmatesOf lists every member of the guilds uid belongs to, uid included
func (r *Repository) guildmatesOf(ctx context.Context, uid string) ([]string, error) {
	return r.queryUIDs(ctx,
		`SELECT DISTINCT mate.uid FROM guild_members me
		 JOIN guild_members mate ON mate.guild_name = me.guild_name
		 WHERE me.uid = ? ORDER BY mate.uid`,
		uid,
	)
}

func (r *Repository) queryUIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}
