package ingest

import (
	"context"
	"fmt"

	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/game"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/storage"
)

// handleCommand observes a player's "rpg ..." command and starts the
// matching timer, hunt or group activity
func (p *Processor) handleCommand(ctx context.Context, server *storage.Server, msg Message) error {
	cmd, ok := game.ParseCommand(msg.Content)
	if !ok {
		return nil
	}
	now := p.now()

	profile, _, err := p.store.GetOrCreateProfile(ctx, storage.Profile{
		UID:               msg.AuthorID,
		LastKnownNickname: msg.AuthorName,
		ServerID:          server.ID,
		ChannelID:         msg.ChannelID,
	})
	if err != nil {
		return fmt.Errorf("get profile %s: %w", msg.AuthorID, err)
	}
	if err := p.relocate(ctx, profile, server.ID, msg.ChannelID); err != nil {
		return err
	}

	switch {
	case cmd.Type == game.CooldownGuild:
		return p.setGuildCooldown(ctx, server, msg.ChannelID, profile, now.Add(cmd.Cooldown))
	case p.rules.Has(cmd.Type):
		return p.openGroupActivity(ctx, server, msg, profile, cmd.Type, now)
	case cmd.Type == game.CooldownHunt || cmd.Type == game.CooldownAdventure:
		if err := p.store.OpenHunt(ctx, profile.UID, now); err != nil {
			return fmt.Errorf("open hunt for %s: %w", profile.UID, err)
		}
	}

	cd := storage.CoolDown{ProfileUID: profile.UID, Type: string(cmd.Type), After: now.Add(cmd.Cooldown)}
	if err := p.store.ApplyCooldowns(ctx, []storage.CoolDown{cd}, nil); err != nil {
		return fmt.Errorf("upsert %s cooldown for %s: %w", cmd.Type, profile.UID, err)
	}
	return nil
}
