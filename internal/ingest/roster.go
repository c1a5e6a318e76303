package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/game"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/storage"
)

// HandleEdit processes an edited game bot message. Guild rosters are only
// ever edited in place, so they are resolved here; other edits run through
// the regular extractors. before may be nil when the transport did not
// cache the original.
func (p *Processor) HandleEdit(ctx context.Context, before *Message, after Message, dir Directory) error {
	if after.AuthorID != p.gameBotID {
		return nil
	}
	if before != nil && before.Content == after.Content && reflect.DeepEqual(before.Embeds, after.Embeds) {
		return nil
	}

	server, err := p.activeServer(ctx, after.ServerID)
	if err != nil || server == nil {
		return err
	}

	if roster, ok := game.ParseRoster(after.Embeds); ok {
		return p.resolveRoster(ctx, roster, dir)
	}
	return p.handleGameMessage(ctx, server, after, dir)
}

// resolveRoster maps roster tokens to user ids by exact name and
// discriminator and replaces the guild's membership. Unknown tokens are
// dropped.
func (p *Processor) resolveRoster(ctx context.Context, roster game.Roster, dir Directory) error {
	type tag struct{ name, discriminator string }
	index := make(map[tag]string)
	for _, m := range dir.Members() {
		index[tag{m.Username, m.Discriminator}] = m.ID
	}

	uids := make([]string, 0, len(roster.Members))
	for _, member := range roster.Members {
		uid, ok := index[tag{member.Name, member.Discriminator}]
		if !ok {
			slog.Debug("Roster member not found", "guild", roster.Guild, "name", member.Name)
			continue
		}
		uids = append(uids, uid)
	}

	if err := p.store.SetGuildMembership(ctx, roster.Guild, uids); err != nil {
		return fmt.Errorf("set membership of guild %s: %w", roster.Guild, err)
	}
	slog.Info("Guild roster updated", "guild", roster.Guild, "members", len(uids), "listed", len(roster.Members))
	return nil
}

// handleHuntResult resolves the hunter's display name to candidate users
// and lets the repository pick the one with an open hunt
func (p *Processor) handleHuntResult(ctx context.Context, res game.HuntResult, dir Directory) error {
	var candidates []string
	seen := make(map[string]bool)
	for _, m := range dir.Members() {
		if m.Username == res.Name && !seen[m.ID] {
			seen[m.ID] = true
			candidates = append(candidates, m.ID)
		}
	}

	uid, err := p.store.UpdateHuntResults(ctx, candidates, storage.HuntResult{
		Target: res.Target,
		Money:  res.Money,
		XP:     res.XP,
		Loot:   res.Loot,
	}, p.now())
	if err != nil {
		return fmt.Errorf("update hunt results for %q: %w", res.Name, err)
	}
	if uid == "" {
		slog.Debug("Hunt result dropped", "name", res.Name, "candidates", len(candidates))
		p.metrics.HuntResult("dropped")
		return nil
	}
	p.metrics.HuntResult("resolved")
	return nil
}
