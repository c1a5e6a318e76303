package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/game"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/storage"
)

// openGroupActivity registers a group activity started by a command,
// with the author and every mentioned player as participants
func (p *Processor) openGroupActivity(ctx context.Context, server *storage.Server, msg Message, owner *storage.Profile, activity game.CooldownType, now time.Time) error {
	members := []storage.ActivityMember{{UID: owner.UID, Name: msg.AuthorName}}
	seen := map[string]bool{owner.UID: true}

	for _, m := range msg.Mentions {
		if seen[m.UID] || m.UID == p.gameBotID {
			continue
		}
		seen[m.UID] = true

		// participants need a profile to own the cooldown they will get
		if _, _, err := p.store.GetOrCreateProfile(ctx, storage.Profile{
			UID:               m.UID,
			LastKnownNickname: m.Name,
			ServerID:          server.ID,
			ChannelID:         msg.ChannelID,
		}); err != nil {
			return fmt.Errorf("get participant profile %s: %w", m.UID, err)
		}
		members = append(members, storage.ActivityMember{UID: m.UID, Name: m.Name})
	}

	a := &storage.GroupActivity{
		Type:      string(activity),
		OwnerUID:  owner.UID,
		OwnerName: msg.AuthorName,
		ServerID:  server.ID,
		ChannelID: msg.ChannelID,
		CreatedAt: now,
		Members:   members,
	}
	if err := p.store.CreateGroupActivity(ctx, a); err != nil {
		return fmt.Errorf("create %s activity for %s: %w", activity, owner.UID, err)
	}
	slog.Debug("Group activity opened", "activity", activity, "owner", owner.UID, "participants", len(members))
	return nil
}

// confirmByOwner matches a confirmation embed against the newest open
// activity of the player shown in the embed
func (p *Processor) confirmByOwner(ctx context.Context, ownerUID string, activity game.CooldownType, embed game.Embed, observed time.Time) error {
	a, err := p.store.LatestGroupActivity(ctx, ownerUID, string(activity), observed.Add(-p.staleAfter))
	return p.confirm(ctx, a, err, embed, observed)
}

// confirmByOwnerName is confirmByOwner for embeds naming the initiator
// only by display name
func (p *Processor) confirmByOwnerName(ctx context.Context, ownerName string, activity game.CooldownType, embed game.Embed, observed time.Time) error {
	a, err := p.store.LatestGroupActivityByOwnerName(ctx, ownerName, string(activity), observed.Add(-p.staleAfter))
	return p.confirm(ctx, a, err, embed, observed)
}

// confirm moves an open activity to confirmed: its cooldowns are written
// and the activity discarded in one repository call. Stale, missing,
// rejected or already consumed activities are a no-op.
func (p *Processor) confirm(ctx context.Context, a *storage.GroupActivity, lookupErr error, embed game.Embed, observed time.Time) error {
	if errors.Is(lookupErr, storage.ErrNotFound) {
		p.metrics.GroupConfirmation("unmatched")
		return nil
	}
	if lookupErr != nil {
		return fmt.Errorf("find group activity: %w", lookupErr)
	}

	rule, err := p.rules.Get(game.CooldownType(a.Type))
	if err != nil {
		slog.Warn("Open activity has no confirmation rule", "activity", a.Type, "id", a.ID)
		return nil
	}

	owner := game.Participant{UID: a.OwnerUID, Name: a.OwnerName}
	participants := make([]game.Participant, 0, len(a.Members))
	for _, m := range a.Members {
		participants = append(participants, game.Participant{UID: m.UID, Name: m.Name})
	}
	if len(participants) == 0 {
		participants = append(participants, owner)
	}

	if !rule.Confirms(owner, participants, embed) {
		p.metrics.GroupConfirmation("rejected")
		return nil
	}

	after := observed.Add(rule.Cooldown())
	cooldowns := make([]storage.CoolDown, 0, len(participants))
	for _, part := range participants {
		cooldowns = append(cooldowns, storage.CoolDown{
			ProfileUID: part.UID,
			Type:       string(rule.CooldownType()),
			After:      after,
		})
	}

	err = p.store.ConfirmGroupActivity(ctx, a, cooldowns)
	if errors.Is(err, storage.ErrConflict) {
		slog.Debug("Group activity already consumed", "activity", a.Type, "id", a.ID)
		p.metrics.GroupConfirmation("conflict")
		return nil
	}
	if err != nil {
		return fmt.Errorf("confirm %s activity %s: %w", a.Type, a.ID, err)
	}

	p.metrics.GroupConfirmation("confirmed")
	slog.Info("Group activity confirmed", "activity", a.Type, "owner", a.OwnerUID, "participants", len(cooldowns))
	return nil
}
