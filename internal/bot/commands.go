package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/storage"
)

// Slash command definitions
func (b *Bot) getCommandDefinitions() []*discordgo.ApplicationCommand {
	var manageServer int64 = 1 << 5 // Manage Server
	dmAllowed := false

	return []*discordgo.ApplicationCommand{
		{
			Name:        "cooldowns",
			Description: "Show your pending Epic RPG cooldowns",
		},
		{
			Name:                     "tracking",
			Description:              "Turn cooldown tracking on or off for this server",
			DefaultMemberPermissions: &manageServer,
			DMPermission:             &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "Whether messages in this server are tracked",
					Required:    true,
				},
			},
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	slog.Info("Registering slash commands")

	commandDefinitions := b.getCommandDefinitions()
	registeredCommands := make([]*discordgo.ApplicationCommand, 0, len(commandDefinitions))

	for _, cmd := range commandDefinitions {
		registered, err := b.session.ApplicationCommandCreate(
			b.session.State.User.ID,
			"", // Empty string = global command
			cmd,
		)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
		registeredCommands = append(registeredCommands, registered)
		slog.Debug("Registered command", "name", cmd.Name)
	}

	b.commands = registeredCommands
	slog.Info("Slash commands registered", "count", len(registeredCommands))
	return nil
}

// removeCommands removes all registered slash commands. Commands that
// fail to delete are kept for a later attempt.
func (b *Bot) removeCommands() {
	if len(b.commands) == 0 || b.session.State.User == nil {
		return
	}

	var kept []*discordgo.ApplicationCommand
	for _, cmd := range b.commands {
		err := b.session.ApplicationCommandDelete(b.session.State.User.ID, "", cmd.ID)
		if err != nil {
			slog.Error("Failed to remove command", "name", cmd.Name, "error", err)
			kept = append(kept, cmd)
			continue
		}
		slog.Debug("Removed command", "name", cmd.Name)
	}
	b.commands = kept
}

// handleCooldowns handles the /cooldowns command
func (b *Bot) handleCooldowns(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if user == nil {
		respondWithMessage(s, i, "Could not tell who asked.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	cooldowns, err := b.repo.ListCooldowns(ctx, user.ID)
	if err != nil {
		slog.Error("Failed to list cooldowns", "user", user.ID, "error", err)
		respondWithMessage(s, i, "Failed to retrieve your cooldowns.")
		return
	}

	var guild *storage.GuildCooldown
	if i.GuildID != "" {
		guild, err = b.repo.GetGuildCooldown(ctx, i.GuildID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.Error("Failed to get guild cooldown", "guild", i.GuildID, "error", err)
		}
	}

	respondWithMessage(s, i, formatCooldowns(cooldowns, guild, time.Now()))
}

// handleTracking handles the /tracking command
func (b *Bot) handleTracking(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondWithMessage(s, i, "Tracking can only be changed inside a server.")
		return
	}
	enabled := i.ApplicationCommandData().Options[0].BoolValue()

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	err := b.repo.SetServerActive(ctx, i.GuildID, enabled)
	if errors.Is(err, storage.ErrNotFound) {
		err = b.repo.UpsertServer(ctx, &storage.Server{ID: i.GuildID, Active: enabled})
	}
	if err != nil {
		slog.Error("Failed to update tracking", "guild", i.GuildID, "error", err)
		respondWithMessage(s, i, "Failed to update tracking. Please try again.")
		return
	}

	slog.Info("Tracking changed", "guild", i.GuildID, "enabled", enabled)
	if enabled {
		respondWithMessage(s, i, "Cooldown tracking is now **on** for this server.")
		return
	}
	respondWithMessage(s, i, "Cooldown tracking is now **off** for this server.")
}

// formatCooldowns renders pending timers with Discord relative timestamps
func formatCooldowns(cooldowns []*storage.CoolDown, guild *storage.GuildCooldown, now time.Time) string {
	var sb strings.Builder
	for _, cd := range cooldowns {
		if cd.Notified {
			continue
		}
		writeCooldown(&sb, cd.Type, cd.After, now)
	}
	if guild != nil && !guild.Notified {
		writeCooldown(&sb, "guild", guild.After, now)
	}

	if sb.Len() == 0 {
		return "You have no pending cooldowns."
	}
	return "**Your cooldowns:**\n" + sb.String()
}

func writeCooldown(sb *strings.Builder, name string, after, now time.Time) {
	if !after.After(now) {
		fmt.Fprintf(sb, "`%s` ready\n", name)
		return
	}
	fmt.Fprintf(sb, "`%s` <t:%d:R>\n", name, after.Unix())
}

// Helper functions

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func respondWithMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Error("Failed to respond to interaction", "error", err)
	}
}
