package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Group activity operations

// CreateGroupActivity stores a new open activity, replacing any open
// activity of the same type started by the same owner
func (r *Repository) CreateGroupActivity(ctx context.Context, a *GroupActivity) error {
	a.ID = uuid.NewString()
	a.Version = uuid.NewString()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM group_activities WHERE owner_uid = ? AND type = ?`,
			a.OwnerUID, a.Type,
		); err != nil {
			return fmt.Errorf("replace open activity: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_activities (id, type, owner_uid, owner_name, server_id, channel_id, created_at, version)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Type, a.OwnerUID, a.OwnerName, a.ServerID, a.ChannelID, toMillis(a.CreatedAt), a.Version,
		); err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
		for _, m := range a.Members {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO group_activity_members (activity_id, uid, name) VALUES (?, ?, ?)`,
				a.ID, m.UID, m.Name,
			); err != nil {
				return fmt.Errorf("insert activity member: %w", err)
			}
		}
		return nil
	})
}

// LatestGroupActivity returns the newest activity of a type started by
// ownerUID no earlier than since
func (r *Repository) LatestGroupActivity(ctx context.Context, ownerUID, activityType string, since time.Time) (*GroupActivity, error) {
	return r.latestGroupActivity(ctx, "owner_uid", ownerUID, activityType, since)
}

// LatestGroupActivityByOwnerName is LatestGroupActivity keyed by the
// owner's display name, for confirmations that carry no user id
func (r *Repository) LatestGroupActivityByOwnerName(ctx context.Context, ownerName, activityType string, since time.Time) (*GroupActivity, error) {
	return r.latestGroupActivity(ctx, "owner_name", ownerName, activityType, since)
}

func (r *Repository) latestGroupActivity(ctx context.Context, column, value, activityType string, since time.Time) (*GroupActivity, error) {
	a := &GroupActivity{}
	var created int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, type, owner_uid, owner_name, server_id, channel_id, created_at, version
		 FROM group_activities
		 WHERE `+column+` = ? AND type = ? AND created_at >= ?
		 ORDER BY created_at DESC LIMIT 1`,
		value, activityType, toMillis(since),
	).Scan(&a.ID, &a.Type, &a.OwnerUID, &a.OwnerName, &a.ServerID, &a.ChannelID, &created, &a.Version)
	if err != nil {
		return nil, notFound(err)
	}
	a.CreatedAt = fromMillis(created)

	rows, err := r.db.QueryContext(ctx,
		`SELECT uid, name FROM group_activity_members WHERE activity_id = ? ORDER BY rowid`,
		a.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m ActivityMember
		if err := rows.Scan(&m.UID, &m.Name); err != nil {
			return nil, err
		}
		a.Members = append(a.Members, m)
	}

	return a, rows.Err()
}

// ConfirmGroupActivity consumes an open activity and writes the cooldowns
// it produced, atomically. ErrConflict means the activity was already
// consumed or replaced since it was read.
func (r *Repository) ConfirmGroupActivity(ctx context.Context, a *GroupActivity, cooldowns []CoolDown) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM group_activities WHERE id = ? AND version = ?`,
			a.ID, a.Version,
		)
		if err != nil {
			return fmt.Errorf("consume activity: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConflict
		}
		return upsertCooldowns(ctx, tx, cooldowns)
	})
}

// PurgeStaleGroupActivities deletes activities created before cutoff
func (r *Repository) PurgeStaleGroupActivities(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM group_activities WHERE created_at < ?`,
		toMillis(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
