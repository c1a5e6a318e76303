package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/game"
	"github.com/Sutazu-kun/epic-rpg-discord-helper/internal/ingest"
)

// channelSender delivers reminders through the Discord session
type channelSender struct {
	session *discordgo.Session
}

func (c *channelSender) Send(ctx context.Context, channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

// stateDirectory lists the cached members of every guild the bot is in
type stateDirectory struct {
	state *discordgo.State
}

func (d *stateDirectory) Members() []ingest.Member {
	d.state.RLock()
	defer d.state.RUnlock()

	var out []ingest.Member
	seen := make(map[string]bool)
	for _, guild := range d.state.Guilds {
		for _, m := range toMembers(guild.Members) {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			out = append(out, m)
		}
	}
	return out
}

func toMembers(members []*discordgo.Member) []ingest.Member {
	out := make([]ingest.Member, 0, len(members))
	for _, m := range members {
		if m == nil || m.User == nil {
			continue
		}
		out = append(out, ingest.Member{
			ID:            m.User.ID,
			Username:      m.User.Username,
			Discriminator: m.User.Discriminator,
		})
	}
	return out
}

// toMessage converts a discordgo message into the processor's form
func toMessage(m *discordgo.Message) ingest.Message {
	msg := ingest.Message{
		ID:        m.ID,
		ServerID:  m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
	}
	for _, u := range m.Mentions {
		if u == nil {
			continue
		}
		msg.Mentions = append(msg.Mentions, game.Participant{UID: u.ID, Name: u.Username})
	}
	for _, e := range m.Embeds {
		if e == nil {
			continue
		}
		msg.Embeds = append(msg.Embeds, toEmbed(e))
	}
	return msg
}

func toEmbed(e *discordgo.MessageEmbed) game.Embed {
	out := game.Embed{Title: e.Title, Description: e.Description}
	if e.Author != nil {
		out.Author = e.Author.Name
		out.IconURL = e.Author.IconURL
	}
	for _, f := range e.Fields {
		if f == nil {
			continue
		}
		out.Fields = append(out.Fields, game.Field{Name: f.Name, Value: f.Value})
	}
	return out
}
