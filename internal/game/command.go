package game

import (
	"strings"
	"time"
)

// CommandPrefix starts every Epic RPG command typed by a player
const CommandPrefix = "rpg "

// Command is a player-typed game command that starts a timer
type Command struct {
	Type     CooldownType
	Cooldown time.Duration
}

var workCommands = map[string]bool{
	"chop": true, "axe": true, "bowsaw": true, "chainsaw": true,
	"fish": true, "net": true, "boat": true, "bigboat": true,
	"pickup": true, "ladder": true, "tractor": true, "greenhouse": true,
	"mine": true, "pickaxe": true, "drill": true, "dynamite": true,
}

var commandCooldowns = map[CooldownType]time.Duration{
	CooldownHunt:      time.Minute,
	CooldownAdventure: time.Hour,
	CooldownTraining:  15 * time.Minute,
	CooldownWork:      5 * time.Minute,
	CooldownFarm:      10 * time.Minute,
	CooldownDaily:     24 * time.Hour,
	CooldownWeekly:    7 * 24 * time.Hour,
	CooldownVote:      12 * time.Hour,
	CooldownLootbox:   3 * time.Hour,
	CooldownQuest:     6 * time.Hour,
	CooldownDuel:      2 * time.Hour,
	CooldownHorse:     24 * time.Hour,
	CooldownArena:     12 * time.Hour,
	CooldownDungeon:   12 * time.Hour,
	CooldownMiniboss:  12 * time.Hour,
	CooldownGuild:     2 * time.Hour,
}

// ParseCommand recognises "rpg <action> ..." and returns the timer it
// starts. Commands that start no timer are not a match.
func ParseCommand(content string) (Command, bool) {
	lower := strings.ToLower(strings.TrimSpace(content))
	if !strings.HasPrefix(lower, CommandPrefix) {
		return Command{}, false
	}
	tokens := strings.Fields(lower[len(CommandPrefix):])
	if len(tokens) == 0 {
		return Command{}, false
	}

	typ, ok := commandType(tokens)
	if !ok {
		return Command{}, false
	}
	return Command{Type: typ, Cooldown: commandCooldowns[typ]}, true
}

func commandType(tokens []string) (CooldownType, bool) {
	switch action := tokens[0]; {
	case action == "hunt":
		return CooldownHunt, true
	case action == "adventure" || action == "adv":
		return CooldownAdventure, true
	case action == "training" || action == "tr" || action == "ultraining" || action == "ultr":
		return CooldownTraining, true
	case workCommands[action]:
		return CooldownWork, true
	case action == "farm":
		return CooldownFarm, true
	case action == "daily":
		return CooldownDaily, true
	case action == "weekly":
		return CooldownWeekly, true
	case action == "vote":
		return CooldownVote, true
	case action == "buy":
		if len(tokens) > 1 && (strings.HasSuffix(tokens[len(tokens)-1], "lootbox") || tokens[len(tokens)-1] == "lb") {
			return CooldownLootbox, true
		}
	case action == "quest":
		return CooldownQuest, true
	case action == "epic":
		if len(tokens) > 1 && tokens[1] == "quest" {
			return CooldownQuest, true
		}
	case action == "duel":
		return CooldownDuel, true
	case action == "horse":
		if len(tokens) > 1 && (tokens[1] == "breeding" || tokens[1] == "breed" || tokens[1] == "race") {
			return CooldownHorse, true
		}
	case action == "arena":
		return CooldownArena, true
	case action == "dungeon" || action == "dung":
		return CooldownDungeon, true
	case action == "miniboss":
		return CooldownMiniboss, true
	case action == "guild":
		if len(tokens) > 1 && (tokens[1] == "raid" || tokens[1] == "upgrade") {
			return CooldownGuild, true
		}
	}
	return "", false
}
