package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/game"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/metrics"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/storage"
)

const gameBot = "555955826880413696"

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type staticDirectory []Member

func (d staticDirectory) Members() []Member { return d }

type fixture struct {
	proc    *Processor
	repo    *storage.Repository
	metrics *metrics.Metrics
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewRepository(storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.UpsertServer(context.Background(), &storage.Server{ID: "s1", Name: "Test", Active: true}))

	f := &fixture{repo: repo, metrics: metrics.New(prometheus.NewRegistry()), now: t0}
	f.proc = New(repo, Options{
		GameBotID: gameBot,
		Metrics:   f.metrics,
		Now:       func() time.Time { return f.now },
	})
	return f
}

func avatar(uid string) string {
	return "https://cdn.discordapp.com/avatars/" + uid + "/abcdef.png"
}

func gameMessage(id string, embeds ...game.Embed) Message {
	return Message{ID: id, ServerID: "s1", ChannelID: "c1", AuthorID: gameBot, AuthorName: "EPIC RPG", Embeds: embeds}
}

func command(uid, name, content string, mentions ...game.Participant) Message {
	return Message{ID: "m-" + uid, ServerID: "s1", ChannelID: "c1", AuthorID: uid, AuthorName: name, Content: content, Mentions: mentions}
}

func cooldownsByType(t *testing.T, repo *storage.Repository, uid string) map[string]time.Time {
	t.Helper()
	list, err := repo.ListCooldowns(context.Background(), uid)
	require.NoError(t, err)
	out := make(map[string]time.Time, len(list))
	for _, cd := range list {
		out[cd.Type] = cd.After
	}
	return out
}

func TestHandleMessage_InactiveServer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.repo.UpsertServer(ctx, &storage.Server{ID: "s2", Name: "Off", Active: false}))

	for _, server := range []string{"s2", "unknown"} {
		msg := command("111", "PlayerOne", "rpg hunt")
		msg.ServerID = server
		require.NoError(t, f.proc.HandleMessage(ctx, msg, staticDirectory{}))
	}

	_, err := f.repo.GetProfile(ctx, "111")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHandleMessage_CooldownList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.repo.GetOrCreateProfile(ctx, storage.Profile{UID: "111", LastKnownNickname: "PlayerOne", ServerID: "s1", ChannelID: "old"})
	require.NoError(t, err)
	require.NoError(t, f.repo.ApplyCooldowns(ctx, []storage.CoolDown{{ProfileUID: "111", Type: "weekly", After: t0.Add(time.Hour)}}, nil))

	embed := game.Embed{
		Author:  "PlayerOne — cooldowns",
		IconURL: avatar("111"),
		Fields: []game.Field{
			{Name: ":gift: Rewards", Value: ":clock4: ~-~ **`Daily`** (**3h 0m 0s**)\n:white_check_mark: ~-~ **`Weekly`**"},
			{Name: ":sparkles: Experience", Value: ":clock4: ~-~ **`Hunt`** (**0h 0m 45s**)\n:clock4: ~-~ **`Guild raid`** (**1h 0m 0s**)"},
		},
	}
	require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g1", embed), staticDirectory{}))

	cds := cooldownsByType(t, f.repo, "111")
	assert.Equal(t, map[string]time.Time{
		"daily": t0.Add(3 * time.Hour),
		"hunt":  t0.Add(45 * time.Second),
	}, cds)

	gc, err := f.repo.GetGuildCooldown(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), gc.After)
	assert.Equal(t, "111", gc.SetByUID)

	p, err := f.repo.GetProfile(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, "c1", p.ChannelID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EmbedsClassified.WithLabelValues("cooldown_list")))
}

func TestHandleMessage_CooldownResponse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	hunted := game.Embed{
		Author:  "PlayerOne — cooldown",
		IconURL: avatar("111"),
		Title:   "You have already looked around, wait at least **0h 0m 30s**",
	}
	// "looked around" names no timer
	require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g1", hunted), staticDirectory{}))
	assert.Empty(t, cooldownsByType(t, f.repo, "111"))

	hunted.Title = "You have already hunted, wait at least **0h 0m 30s**"
	require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g2", hunted), staticDirectory{}))
	assert.Equal(t, map[string]time.Time{"hunt": t0.Add(30 * time.Second)}, cooldownsByType(t, f.repo, "111"))

	guild := game.Embed{
		Author:  "PlayerOne — cooldown",
		IconURL: avatar("111"),
		Title:   "Your guild has already raided, wait at least **1h 30m**",
	}
	require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g3", guild), staticDirectory{}))

	gc, err := f.repo.GetGuildCooldown(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(90*time.Minute), gc.After)
}

// failingCooldownStore rejects every cooldown write
type failingCooldownStore struct {
	*storage.Repository
}

func (failingCooldownStore) ApplyCooldowns(context.Context, []storage.CoolDown, []storage.CooldownKey) error {
	return errors.New("disk full")
}

func TestHandleMessage_RelocatesWhenExtractorFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	proc := New(failingCooldownStore{f.repo}, Options{
		GameBotID: gameBot,
		Metrics:   f.metrics,
		Now:       func() time.Time { return f.now },
	})

	_, _, err := f.repo.GetOrCreateProfile(ctx, storage.Profile{UID: "111", LastKnownNickname: "PlayerOne", ServerID: "s1", ChannelID: "old"})
	require.NoError(t, err)

	embed := game.Embed{
		Author:  "PlayerOne — cooldown",
		IconURL: avatar("111"),
		Title:   "You have already hunted, wait at least **0h 0m 30s**",
	}
	assert.Error(t, proc.HandleMessage(ctx, gameMessage("g1", embed), staticDirectory{}))

	p, err := f.repo.GetProfile(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, "c1", p.ChannelID)
	assert.Empty(t, cooldownsByType(t, f.repo, "111"))
}

func TestHandleMessage_RelocatesOnUntrackedEmbed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.repo.GetOrCreateProfile(ctx, storage.Profile{UID: "111", LastKnownNickname: "PlayerOne", ServerID: "s1", ChannelID: "old"})
	require.NoError(t, err)

	embed := game.Embed{Author: "PlayerOne — profile", IconURL: avatar("111"), Description: "level 42"}
	require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g1", embed), staticDirectory{}))

	p, err := f.repo.GetProfile(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, "c1", p.ChannelID)
}

func TestHandleMessage_NoAvatarIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	embed := game.Embed{Author: "PlayerOne — cooldown", Title: "You have already hunted, wait at least 30s"}
	require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g1", embed), staticDirectory{}))

	_, err := f.repo.GetProfile(ctx, "111")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHandleMessage_GambleDeduplicated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	embed := game.Embed{
		Author:      "PlayerOne's coinflip",
		IconURL:     avatar("111"),
		Description: "**PlayerOne** chose heads and won **1,500** coins!",
	}
	require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g1", embed), staticDirectory{}))
	require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g1", embed), staticDirectory{}))

	gambles, err := f.repo.ListGambles(ctx, "111")
	require.NoError(t, err)
	require.Len(t, gambles, 1)
	assert.Equal(t, "coinflip", gambles[0].Game)
	assert.Equal(t, game.OutcomeWon, gambles[0].Outcome)
	assert.EqualValues(t, 1500, gambles[0].Amount)
}

func TestHandleMessage_CommandCooldown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.proc.HandleMessage(ctx, command("111", "PlayerOne", "rpg daily"), staticDirectory{}))
	require.NoError(t, f.proc.HandleMessage(ctx, command("111", "PlayerOne", "rpg inventory"), staticDirectory{}))

	assert.Equal(t, map[string]time.Time{"daily": t0.Add(24 * time.Hour)}, cooldownsByType(t, f.repo, "111"))

	require.NoError(t, f.proc.HandleMessage(ctx, command("111", "PlayerOne", "rpg guild raid"), staticDirectory{}))
	gc, err := f.repo.GetGuildCooldown(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(2*time.Hour), gc.After)
}

func TestHandleMessage_GroupActivity(t *testing.T) {
	ctx := context.Background()
	two := game.Participant{UID: "222", Name: "PlayerTwo"}
	confirmation := game.Embed{
		Author:      "PlayerOne — duel",
		IconURL:     avatar("111"),
		Description: "**PlayerOne** and **PlayerTwo** are fighting!",
	}

	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.proc.HandleMessage(ctx, command("111", "PlayerOne", "rpg duel <@222>", two), staticDirectory{}))

		// the command alone starts no timer
		assert.Empty(t, cooldownsByType(t, f.repo, "111"))

		f.now = t0.Add(time.Minute)
		require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g1", confirmation), staticDirectory{}))

		want := map[string]time.Time{"duel": t0.Add(time.Minute + 2*time.Hour)}
		assert.Equal(t, want, cooldownsByType(t, f.repo, "111"))
		assert.Equal(t, want, cooldownsByType(t, f.repo, "222"))

		_, err := f.repo.LatestGroupActivity(ctx, "111", "duel", time.Time{})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// a second confirmation finds nothing to consume
		require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g2", confirmation), staticDirectory{}))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GroupConfirmations.WithLabelValues("confirmed")))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GroupConfirmations.WithLabelValues("unmatched")))
	})

	t.Run("stale", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.proc.HandleMessage(ctx, command("111", "PlayerOne", "rpg duel <@222>", two), staticDirectory{}))

		f.now = t0.Add(6 * time.Minute)
		require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g1", confirmation), staticDirectory{}))

		assert.Empty(t, cooldownsByType(t, f.repo, "111"))
		assert.Empty(t, cooldownsByType(t, f.repo, "222"))

		// left for the purge
		_, err := f.repo.LatestGroupActivity(ctx, "111", "duel", time.Time{})
		assert.NoError(t, err)
	})

	t.Run("participant missing from confirmation", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.proc.HandleMessage(ctx, command("111", "PlayerOne", "rpg duel <@222>", two), staticDirectory{}))

		partial := confirmation
		partial.Description = "**PlayerOne** is fighting alone"
		require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g1", partial), staticDirectory{}))

		assert.Empty(t, cooldownsByType(t, f.repo, "111"))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GroupConfirmations.WithLabelValues("rejected")))
	})

	t.Run("miniboss uses the dungeon timer", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.proc.HandleMessage(ctx, command("111", "PlayerOne", "rpg miniboss <@222>", two), staticDirectory{}))

		embed := game.Embed{
			Author:      "PlayerOne — miniboss",
			IconURL:     avatar("111"),
			Description: "**PlayerOne**, **PlayerTwo** defeated the miniboss",
		}
		require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g1", embed), staticDirectory{}))

		want := map[string]time.Time{"dungeon": t0.Add(12 * time.Hour)}
		assert.Equal(t, want, cooldownsByType(t, f.repo, "222"))
	})
}

func TestHandleMessage_Arena(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.proc.HandleMessage(ctx, command("111", "PlayerOne", "rpg arena"), staticDirectory{}))

	embed := game.Embed{Description: "**PlayerOne** started an arena event!\nReact to join"}
	require.NoError(t, f.proc.HandleMessage(ctx, gameMessage("g1", embed), staticDirectory{}))

	assert.Equal(t, map[string]time.Time{"arena": t0.Add(12 * time.Hour)}, cooldownsByType(t, f.repo, "111"))
}

func TestHandleMessage_HuntResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dir := staticDirectory{
		{ID: "111", Username: "PlayerOne", Discriminator: "0"},
		{ID: "222", Username: "PlayerOne", Discriminator: "0"},
		{ID: "333", Username: "Other", Discriminator: "0"},
	}
	_, _, err := f.repo.GetOrCreateProfile(ctx, storage.Profile{UID: "222", LastKnownNickname: "PlayerOne", ServerID: "s1", ChannelID: "c1"})
	require.NoError(t, err)

	require.NoError(t, f.proc.HandleMessage(ctx, command("111", "PlayerOne", "rpg hunt"), dir))
	assert.Equal(t, map[string]time.Time{"hunt": t0.Add(time.Minute)}, cooldownsByType(t, f.repo, "111"))

	result := gameMessage("g1")
	result.Content = "**PlayerOne** found and killed a **Dragon**\nEarned 1,000 coins and 50 XP"
	require.NoError(t, f.proc.HandleMessage(ctx, result, dir))

	h, err := f.repo.LatestHunt(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, "Dragon", h.Target)
	assert.EqualValues(t, 1000, h.Money)
	assert.EqualValues(t, 50, h.XP)

	// both namesakes are idle now, so the next result is ambiguous
	require.NoError(t, f.proc.HandleMessage(ctx, result, dir))
	_, err = f.repo.LatestHunt(ctx, "222")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HuntResults.WithLabelValues("resolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HuntResults.WithLabelValues("dropped")))
}

func TestHandleEdit_Roster(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dir := staticDirectory{
		{ID: "111", Username: "alice", Discriminator: "0001"},
		{ID: "222", Username: "bob#12", Discriminator: "0002"},
		{ID: "333", Username: "carol", Discriminator: "0"},
	}

	roster := gameMessage("g1", game.Embed{Fields: []game.Field{{
		Name:  "**Knights** members",
		Value: "**alice#0001**\n**bob#12#0002**\n**carol**\n**ghost#9999**",
	}}})

	// unchanged edits are skipped
	require.NoError(t, f.proc.HandleEdit(ctx, &roster, roster, dir))
	members, err := f.repo.GuildMembers(ctx, "Knights")
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, f.proc.HandleEdit(ctx, nil, roster, dir))
	members, err = f.repo.GuildMembers(ctx, "Knights")
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222", "333"}, members)

	// the same roster seen again leaves membership unchanged
	require.NoError(t, f.proc.HandleEdit(ctx, nil, roster, dir))
	members, err = f.repo.GuildMembers(ctx, "Knights")
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222", "333"}, members)

	// an edit from a player is never a roster
	forged := roster
	forged.AuthorID = "111"
	forged.Embeds = []game.Embed{{Fields: []game.Field{{Name: "**Knights** members", Value: "**alice#0001**"}}}}
	require.NoError(t, f.proc.HandleEdit(ctx, nil, forged, dir))
	members, err = f.repo.GuildMembers(ctx, "Knights")
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestHandleEdit_RunsExtractors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	before := gameMessage("g1", game.Embed{
		Author:      "PlayerOne's blackjack",
		IconURL:     avatar("111"),
		Description: "Hit or stand?",
	})
	require.NoError(t, f.proc.HandleMessage(ctx, before, staticDirectory{}))

	after := gameMessage("g1", game.Embed{
		Author:      "PlayerOne's blackjack",
		IconURL:     avatar("111"),
		Description: "**PlayerOne** lost 200 coins",
	})
	require.NoError(t, f.proc.HandleEdit(ctx, &before, after, staticDirectory{}))

	gambles, err := f.repo.ListGambles(ctx, "111")
	require.NoError(t, err)
	require.Len(t, gambles, 1)
	assert.Equal(t, game.OutcomeLost, gambles[0].Outcome)
	assert.EqualValues(t, 200, gambles[0].Amount)
}
