// Package scheduler delivers reminders for expired cooldowns
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/metrics"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/storage"
)

const (
	DefaultInterval   = 5 * time.Second
	DefaultStaleAfter = 5 * time.Minute

	// upper bound for one tick, which runs detached from shutdown
	tickTimeout = 30 * time.Second
)

// Store is the repository surface the scheduler reads and marks
type Store interface {
	PurgeStaleGroupActivities(ctx context.Context, cutoff time.Time) (int64, error)
	DueCooldowns(ctx context.Context, now time.Time) ([]*storage.DueCooldown, error)
	MarkCooldownNotified(ctx context.Context, id int64, after time.Time) error
	DueGuildCooldowns(ctx context.Context, now time.Time) ([]*storage.DueGuildCooldown, error)
	MarkGuildCooldownNotified(ctx context.Context, serverID string, after time.Time) error
}

var _ Store = (*storage.Repository)(nil)

// Sender delivers a text message to a channel
type Sender interface {
	Send(ctx context.Context, channelID, content string) error
}

// Options configures a Scheduler
type Options struct {
	Interval   time.Duration
	StaleAfter time.Duration
	// Limiter paces outgoing reminders. Nil sends without pacing.
	Limiter *rate.Limiter
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Scheduler periodically purges stale group activities and sends
// reminders for due cooldowns
type Scheduler struct {
	store      Store
	sender     Sender
	interval   time.Duration
	staleAfter time.Duration
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	now        func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Scheduler
func New(store Store, sender Sender, opts Options) *Scheduler {
	s := &Scheduler{
		store:      store,
		sender:     sender,
		interval:   opts.Interval,
		staleAfter: opts.StaleAfter,
		limiter:    opts.Limiter,
		metrics:    opts.Metrics,
		now:        opts.Now,
		stopChan:   make(chan struct{}),
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.staleAfter <= 0 {
		s.staleAfter = DefaultStaleAfter
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Start runs the tick loop until ctx is cancelled or Stop is called. A
// tick in progress is finished before Start returns.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting scheduler", "interval", s.interval)

	s.wg.Add(1)
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped (context cancelled)")
			return
		case <-s.stopChan:
			slog.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop signals the scheduler to stop and waits for Start to return
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tickTimeout)
	defer cancel()
	s.Tick(ctx)
}

// Tick runs a single pass: purge, cooldown reminders, guild reminders.
// Failures are logged per record and never abort the pass.
func (s *Scheduler) Tick(ctx context.Context) {
	start := time.Now()
	defer func() { s.metrics.ObserveTick(time.Since(start).Seconds()) }()

	now := s.now()
	s.purge(ctx, now)
	s.remindCooldowns(ctx, now)
	s.remindGuilds(ctx, now)
}

func (s *Scheduler) purge(ctx context.Context, now time.Time) {
	n, err := s.store.PurgeStaleGroupActivities(ctx, now.Add(-s.staleAfter))
	if err != nil {
		slog.Error("Failed to purge stale group activities", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("Purged stale group activities", "count", n)
	}
	s.metrics.Purged(n)
}

func (s *Scheduler) remindCooldowns(ctx context.Context, now time.Time) {
	due, err := s.store.DueCooldowns(ctx, now)
	if err != nil {
		slog.Error("Failed to get due cooldowns", "error", err)
		return
	}

	for _, cd := range due {
		content := CooldownReminder(cd.ProfileUID, cd.Type)
		if err := s.send(ctx, cd.ChannelID, content); err != nil {
			slog.Error("Failed to send reminder", "profile", cd.ProfileUID, "type", cd.Type, "channel", cd.ChannelID, "error", err)
			s.metrics.Reminder("cooldown", "failed")
			continue
		}
		if err := s.store.MarkCooldownNotified(ctx, cd.ID, cd.After); err != nil {
			slog.Error("Failed to mark cooldown notified", "profile", cd.ProfileUID, "type", cd.Type, "error", err)
			continue
		}
		s.metrics.Reminder("cooldown", "sent")
	}
}

func (s *Scheduler) remindGuilds(ctx context.Context, now time.Time) {
	due, err := s.store.DueGuildCooldowns(ctx, now)
	if err != nil {
		slog.Error("Failed to get due guild cooldowns", "error", err)
		return
	}

	for _, gc := range due {
		content := GuildReminder(gc.MemberUIDs)
		if err := s.send(ctx, gc.ChannelID, content); err != nil {
			slog.Error("Failed to send guild reminder", "server", gc.ServerID, "channel", gc.ChannelID, "error", err)
			s.metrics.Reminder("guild", "failed")
			continue
		}
		if err := s.store.MarkGuildCooldownNotified(ctx, gc.ServerID, gc.After); err != nil {
			slog.Error("Failed to mark guild cooldown notified", "server", gc.ServerID, "error", err)
			continue
		}
		s.metrics.Reminder("guild", "sent")
	}
}

func (s *Scheduler) send(ctx context.Context, channelID, content string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for send slot: %w", err)
		}
	}
	return s.sender.Send(ctx, channelID, content)
}

// CooldownReminder formats the reminder for one player's timer
func CooldownReminder(uid, cooldownType string) string {
	return fmt.Sprintf("<@%s>, your **%s** cooldown is ready!", uid, cooldownType)
}

// GuildReminder formats the guild raid reminder for every member
func GuildReminder(uids []string) string {
	mentions := make([]string, 0, len(uids))
	for _, uid := range uids {
		mentions = append(mentions, "<@"+uid+">")
	}
	return strings.Join(mentions, " ") + ", your **guild** cooldown is ready!"
}
