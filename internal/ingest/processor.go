// Package ingest turns game bot messages and player commands into
// repository writes. It knows nothing about the chat transport: callers
// convert their messages into Message and supply a Directory of members.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/game"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/metrics"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/storage"
)

// DefaultStaleAfter is how long an open group activity waits for its
// confirmation
const DefaultStaleAfter = 5 * time.Minute

// Message is a chat message as seen by the processor
type Message struct {
	ID         string
	ServerID   string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Content    string
	Mentions   []game.Participant
	Embeds     []game.Embed
}

// Member is a user visible to the bot
type Member struct {
	ID            string
	Username      string
	Discriminator string
}

// Directory lists the users visible to the bot at call time
type Directory interface {
	Members() []Member
}

// Store is the repository surface the processor writes through
type Store interface {
	GetServer(ctx context.Context, id string) (*storage.Server, error)
	GetOrCreateProfile(ctx context.Context, p storage.Profile) (*storage.Profile, bool, error)
	UpdateProfileLocation(ctx context.Context, uid, serverID, channelID string) error
	ApplyCooldowns(ctx context.Context, upserts []storage.CoolDown, deletes []storage.CooldownKey) error
	SetGuildCooldown(ctx context.Context, gc storage.GuildCooldown) error
	OpenHunt(ctx context.Context, uid string, at time.Time) error
	UpdateHuntResults(ctx context.Context, candidates []string, res storage.HuntResult, at time.Time) (string, error)
	CreateGamble(ctx context.Context, g *storage.Gamble) (bool, error)
	CreateGroupActivity(ctx context.Context, a *storage.GroupActivity) error
	LatestGroupActivity(ctx context.Context, ownerUID, activityType string, since time.Time) (*storage.GroupActivity, error)
	LatestGroupActivityByOwnerName(ctx context.Context, ownerName, activityType string, since time.Time) (*storage.GroupActivity, error)
	ConfirmGroupActivity(ctx context.Context, a *storage.GroupActivity, cooldowns []storage.CoolDown) error
	SetGuildMembership(ctx context.Context, guild string, uids []string) error
}

var _ Store = (*storage.Repository)(nil)

// Options configures a Processor
type Options struct {
	GameBotID  string
	StaleAfter time.Duration
	Rules      *game.Registry
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Processor handles incoming and edited messages
type Processor struct {
	store      Store
	gameBotID  string
	staleAfter time.Duration
	rules      *game.Registry
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New creates a Processor writing to store
func New(store Store, opts Options) *Processor {
	p := &Processor{
		store:      store,
		gameBotID:  opts.GameBotID,
		staleAfter: opts.StaleAfter,
		rules:      opts.Rules,
		metrics:    opts.Metrics,
		now:        opts.Now,
	}
	if p.staleAfter <= 0 {
		p.staleAfter = DefaultStaleAfter
	}
	if p.rules == nil {
		p.rules = game.DefaultRegistry()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// HandleMessage processes a newly created message. Game bot output goes
// through the extractors, player messages through the command observer.
func (p *Processor) HandleMessage(ctx context.Context, msg Message, dir Directory) error {
	server, err := p.activeServer(ctx, msg.ServerID)
	if err != nil || server == nil {
		return err
	}

	if msg.AuthorID == p.gameBotID {
		return p.handleGameMessage(ctx, server, msg, dir)
	}
	return p.handleCommand(ctx, server, msg)
}

// activeServer returns nil without error for unknown or inactive servers
func (p *Processor) activeServer(ctx context.Context, id string) (*storage.Server, error) {
	server, err := p.store.GetServer(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get server %s: %w", id, err)
	}
	if !server.Active {
		return nil, nil
	}
	return server, nil
}

// handleGameMessage runs the hunt extractor on the content, or the
// classifier on every embed. The two paths never both run.
func (p *Processor) handleGameMessage(ctx context.Context, server *storage.Server, msg Message, dir Directory) error {
	if strings.Contains(msg.Content, game.HuntCue) {
		if res, ok := game.ParseHuntResult(msg.Content); ok {
			return p.handleHuntResult(ctx, res, dir)
		}
	}

	for _, embed := range msg.Embeds {
		if err := p.handleEmbed(ctx, server, msg, embed); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) handleEmbed(ctx context.Context, server *storage.Server, msg Message, embed game.Embed) error {
	profile, err := p.profileFromEmbed(ctx, server, msg, embed)
	if err != nil {
		return err
	}

	// players move even when the embed carries nothing we track
	if profile != nil {
		if err := p.relocate(ctx, profile, server.ID, msg.ChannelID); err != nil {
			return err
		}
	}

	c := game.Classify(embed)
	p.metrics.EmbedClassified(c.Category.String())
	observed := p.now()

	switch c.Category {
	case game.CategoryNone:
	case game.CategoryCooldownList:
		if profile != nil {
			err = p.applyCooldownList(ctx, server, msg, profile, embed, observed)
		}
	case game.CategoryCooldownResponse:
		if profile != nil {
			err = p.applyCooldownResponse(ctx, server, msg, profile, embed, observed)
		}
	case game.CategoryGamble:
		if profile != nil {
			err = p.recordGamble(ctx, msg, profile, c.Key, embed, observed)
		}
	case game.CategoryGroupActivity:
		if profile != nil {
			err = p.confirmByOwner(ctx, profile.UID, game.CooldownType(c.Key), embed, observed)
		}
	case game.CategoryArena:
		err = p.confirmByOwnerName(ctx, c.Key, game.CooldownArena, embed, observed)
	}
	return err
}

// profileFromEmbed resolves the player shown in the embed author icon.
// Embeds without an avatar resolve to nil.
func (p *Processor) profileFromEmbed(ctx context.Context, server *storage.Server, msg Message, embed game.Embed) (*storage.Profile, error) {
	uid, ok := game.AvatarUserID(embed.IconURL)
	if !ok {
		return nil, nil
	}
	profile, _, err := p.store.GetOrCreateProfile(ctx, storage.Profile{
		UID:               uid,
		LastKnownNickname: game.AuthorName(embed.Author),
		ServerID:          server.ID,
		ChannelID:         msg.ChannelID,
	})
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", uid, err)
	}
	return profile, nil
}

// relocate points the profile at the channel it was last seen in
func (p *Processor) relocate(ctx context.Context, profile *storage.Profile, serverID, channelID string) error {
	if profile.ServerID == serverID && profile.ChannelID == channelID {
		return nil
	}
	if err := p.store.UpdateProfileLocation(ctx, profile.UID, serverID, channelID); err != nil {
		return fmt.Errorf("update profile location %s: %w", profile.UID, err)
	}
	profile.ServerID = serverID
	profile.ChannelID = channelID
	return nil
}

func (p *Processor) applyCooldownList(ctx context.Context, server *storage.Server, msg Message, profile *storage.Profile, embed game.Embed, observed time.Time) error {
	batch := game.ExtractCooldownList(embed, observed)
	if batch.Empty() {
		return nil
	}

	upserts := make([]storage.CoolDown, 0, len(batch.Upserts))
	for _, u := range batch.Upserts {
		upserts = append(upserts, storage.CoolDown{ProfileUID: profile.UID, Type: string(u.Type), After: u.After})
	}
	deletes := make([]storage.CooldownKey, 0, len(batch.Deletes))
	for _, typ := range batch.Deletes {
		deletes = append(deletes, storage.CooldownKey{ProfileUID: profile.UID, Type: string(typ)})
	}

	if err := p.store.ApplyCooldowns(ctx, upserts, deletes); err != nil {
		return fmt.Errorf("apply cooldowns for %s: %w", profile.UID, err)
	}
	slog.Debug("Cooldown list applied", "profile", profile.UID, "upserts", len(upserts), "deletes", len(deletes))

	if batch.Guild != nil {
		return p.setGuildCooldown(ctx, server, msg.ChannelID, profile, *batch.Guild)
	}
	return nil
}

func (p *Processor) applyCooldownResponse(ctx context.Context, server *storage.Server, msg Message, profile *storage.Profile, embed game.Embed, observed time.Time) error {
	update, ok := game.ExtractCooldownResponse(embed, observed)
	if !ok {
		return nil
	}
	if update.Type == game.CooldownGuild {
		return p.setGuildCooldown(ctx, server, msg.ChannelID, profile, update.After)
	}

	cd := storage.CoolDown{ProfileUID: profile.UID, Type: string(update.Type), After: update.After}
	if err := p.store.ApplyCooldowns(ctx, []storage.CoolDown{cd}, nil); err != nil {
		return fmt.Errorf("upsert %s cooldown for %s: %w", update.Type, profile.UID, err)
	}
	return nil
}

func (p *Processor) setGuildCooldown(ctx context.Context, server *storage.Server, channelID string, profile *storage.Profile, after time.Time) error {
	err := p.store.SetGuildCooldown(ctx, storage.GuildCooldown{
		ServerID:  server.ID,
		SetByUID:  profile.UID,
		ChannelID: channelID,
		After:     after,
	})
	if err != nil {
		return fmt.Errorf("set guild cooldown for server %s: %w", server.ID, err)
	}
	return nil
}

func (p *Processor) recordGamble(ctx context.Context, msg Message, profile *storage.Profile, gameName string, embed game.Embed, observed time.Time) error {
	res, ok := game.ExtractGamble(gameName, embed)
	if !ok {
		return nil
	}
	inserted, err := p.store.CreateGamble(ctx, &storage.Gamble{
		ProfileUID: profile.UID,
		MessageID:  msg.ID,
		Game:       res.Game,
		Outcome:    res.Outcome,
		Amount:     res.Amount,
		CreatedAt:  observed,
	})
	if err != nil {
		return fmt.Errorf("record gamble for %s: %w", profile.UID, err)
	}
	if !inserted {
		slog.Debug("Gamble already recorded", "message", msg.ID)
	}
	return nil
}
