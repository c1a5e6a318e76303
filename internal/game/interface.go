package game

import (
	"strings"
	"time"
)

// CooldownType identifies one Epic RPG timer (or group activity)
type CooldownType string

const (
	CooldownDaily     CooldownType = "daily"
	CooldownWeekly    CooldownType = "weekly"
	CooldownLootbox   CooldownType = "lootbox"
	CooldownVote      CooldownType = "vote"
	CooldownHunt      CooldownType = "hunt"
	CooldownAdventure CooldownType = "adventure"
	CooldownTraining  CooldownType = "training"
	CooldownDuel      CooldownType = "duel"
	CooldownQuest     CooldownType = "quest"
	CooldownWork      CooldownType = "work"
	CooldownFarm      CooldownType = "farm"
	CooldownHorse     CooldownType = "horse"
	CooldownArena     CooldownType = "arena"
	CooldownDungeon   CooldownType = "dungeon"
	CooldownMiniboss  CooldownType = "miniboss"
	CooldownGuild     CooldownType = "guild"
)

// Embed is a transport-neutral view of a chat message embed
type Embed struct {
	Author      string // author label
	IconURL     string // author icon, usually the player's avatar
	Title       string
	Description string
	Fields      []Field
}

// Field is one name/value pair of an embed
type Field struct {
	Name  string
	Value string
}

// Text returns every text part of the embed joined by newlines.
func (e Embed) Text() string {
	parts := make([]string, 0, 3+2*len(e.Fields))
	for _, p := range []string{e.Author, e.Title, e.Description} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	for _, f := range e.Fields {
		parts = append(parts, f.Name, f.Value)
	}
	return strings.Join(parts, "\n")
}

// Participant is a player taking part in a group activity
type Participant struct {
	UID  string
	Name string
}

// ConfirmationRule decides whether an embed confirms an open group activity
// and what cooldown the participants receive when it does.
type ConfirmationRule interface {
	// Activity returns the group activity this rule handles
	Activity() CooldownType

	// CooldownType returns the timer written for every participant.
	// It differs from Activity only where the game shares one timer
	// between several activities (miniboss uses the dungeon timer).
	CooldownType() CooldownType

	// Cooldown returns the timer length started by a confirmation
	Cooldown() time.Duration

	// Confirms reports whether the embed is a valid confirmation for the
	// activity started by owner with the given participants.
	Confirms(owner Participant, participants []Participant, embed Embed) bool
}
