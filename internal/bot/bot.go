package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/config"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/ingest"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/metrics"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/scheduler"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/storage"
)

const (
	// messages kept in the state cache so edits come with their previous version
	messageCacheSize = 200

	handlerTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Bot represents the Discord bot instance
type Bot struct {
	config    *config.Config
	session   *discordgo.Session
	repo      *storage.Repository
	processor *ingest.Processor
	scheduler *scheduler.Scheduler
	gatherer  prometheus.Gatherer
	commands  []*discordgo.ApplicationCommand
}

// New creates a new Bot instance. Metrics are registered with reg.
func New(cfg *config.Config, reg *prometheus.Registry) (*Bot, error) {
	// Create Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	// Members are needed to resolve hunt names and guild rosters, content
	// to observe player commands
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent
	session.State.MaxMessageCount = messageCacheSize

	// Initialize storage
	repo, err := storage.NewRepository(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	m := metrics.New(reg)

	b := &Bot{
		config:  cfg,
		session: session,
		repo:    repo,
		processor: ingest.New(repo, ingest.Options{
			GameBotID:  cfg.GameBotID,
			StaleAfter: cfg.GroupStaleAfter,
			Metrics:    m,
		}),
		scheduler: scheduler.New(repo, &channelSender{session: session}, scheduler.Options{
			Interval:   cfg.SchedulerInterval,
			StaleAfter: cfg.GroupStaleAfter,
			Limiter:    rate.NewLimiter(rate.Limit(cfg.SendRatePerSecond), 1),
			Metrics:    m,
		}),
		gatherer: reg,
	}

	// Register event handlers
	b.registerHandlers()

	return b, nil
}

// Start opens the Discord connection and registers slash commands
func (b *Bot) Start(ctx context.Context) error {
	// Open Discord connection
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Connected to Discord", "user", b.session.State.User.Username)

	// Register slash commands
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	return nil
}

// Run blocks until ctx is cancelled, running the reminder scheduler and,
// when configured, the metrics endpoint
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.scheduler.Start(ctx)
		return nil
	})

	if b.config.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              b.config.MetricsAddr,
			Handler:           metrics.Handler(b.gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("Serving metrics", "addr", b.config.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Stop gracefully shuts down the bot
func (b *Bot) Stop() error {
	// Wait for an in-flight reminder tick
	b.scheduler.Stop()

	var errs []error

	if b.session != nil {
		if b.config.RemoveCommandsOnShutdown {
			b.removeCommands()
		}

		// Close Discord session
		errs = append(errs, b.session.Close())
	}

	// Close storage
	if b.repo != nil {
		errs = append(errs, b.repo.Close())
	}

	return errors.Join(errs...)
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(b.handleMessageCreate)
	b.session.AddHandler(b.handleMessageUpdate)
	b.session.AddHandler(b.handleGuildCreate)
	b.session.AddHandler(b.handleGuildDelete)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is ready", "guilds", len(r.Guilds))
	})
}

// handleMessageCreate feeds new messages to the processor
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !b.relevant(s, m.Message) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := b.processor.HandleMessage(ctx, toMessage(m.Message), b.directory()); err != nil {
		slog.Error("Failed to handle message", "message", m.ID, "channel", m.ChannelID, "error", err)
	}
}

// handleMessageUpdate feeds edits to the processor, with the cached
// previous version when available
func (b *Bot) handleMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	// partial updates carry no author
	if m.Author == nil && m.BeforeUpdate != nil {
		m.Author = m.BeforeUpdate.Author
	}
	if !b.relevant(s, m.Message) {
		return
	}

	var before *ingest.Message
	if m.BeforeUpdate != nil {
		prev := toMessage(m.BeforeUpdate)
		before = &prev
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := b.processor.HandleEdit(ctx, before, toMessage(m.Message), b.directory()); err != nil {
		slog.Error("Failed to handle edit", "message", m.ID, "channel", m.ChannelID, "error", err)
	}
}

// relevant drops direct messages, our own messages and other bots
func (b *Bot) relevant(s *discordgo.Session, m *discordgo.Message) bool {
	if m == nil || m.GuildID == "" || m.Author == nil {
		return false
	}
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return false
	}
	return !m.Author.Bot || m.Author.ID == b.config.GameBotID
}

func (b *Bot) directory() ingest.Directory {
	return &stateDirectory{state: b.session.State}
}

// handleGuildCreate records servers the bot is in
func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := b.repo.UpsertServer(ctx, &storage.Server{ID: g.ID, Name: g.Name, Active: true}); err != nil {
		slog.Error("Failed to save server", "guild", g.ID, "error", err)
		return
	}
	slog.Debug("Server available", "guild", g.ID, "name", g.Name, "members", len(g.Members))
}

// handleGuildDelete deactivates servers the bot was removed from
func (b *Bot) handleGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	// an outage, not a removal
	if g.Unavailable {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := b.repo.SetServerActive(ctx, g.ID, false); err != nil && !errors.Is(err, storage.ErrNotFound) {
		slog.Error("Failed to deactivate server", "guild", g.ID, "error", err)
	}
}

// handleInteraction processes slash command interactions
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	slog.Debug("Received command", "command", data.Name, "guild", i.GuildID)

	switch data.Name {
	case "cooldowns":
		b.handleCooldowns(s, i)
	case "tracking":
		b.handleTracking(s, i)
	default:
		slog.Warn("Unknown command", "command", data.Name)
	}
}
