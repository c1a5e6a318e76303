package game

import "regexp"

// Category is the kind of game-bot embed, as decided by Classify
type Category int

const (
	CategoryNone Category = iota
	CategoryCooldownList
	CategoryCooldownResponse
	CategoryGamble
	CategoryGroupActivity
	CategoryArena
)

func (c Category) String() string {
	switch c {
	case CategoryCooldownList:
		return "cooldown_list"
	case CategoryCooldownResponse:
		return "cooldown_response"
	case CategoryGamble:
		return "gamble"
	case CategoryGroupActivity:
		return "group_activity"
	case CategoryArena:
		return "arena"
	default:
		return "none"
	}
}

// Cue fragments matched against a lower-cased embed author label.
var (
	cooldownListCues = []string{"cooldowns", "ready"}

	cooldownResponseCue = "cooldown"

	gambleCues = []string{"blackjack", "coinflip", "slots", "dice", "wheel", "cups"}

	// arena has no author icon, it is detected from the description instead
	groupActivityCues = []CooldownType{CooldownMiniboss, CooldownDungeon, CooldownDuel, CooldownHorse}
)

var arenaRegex = regexp.MustCompile(`\*\*(.+?)\*\* started an arena event`)

// cooldownLabels maps cooldown-list row labels to timers. First match wins,
// so combined rows ("Dungeon | Miniboss") resolve to the earlier entry.
var cooldownLabels = []struct {
	cue string
	typ CooldownType
}{
	{"daily", CooldownDaily},
	{"weekly", CooldownWeekly},
	{"lootbox", CooldownLootbox},
	{"vote", CooldownVote},
	{"hunt", CooldownHunt},
	{"adventure", CooldownAdventure},
	{"training", CooldownTraining},
	{"duel", CooldownDuel},
	{"quest", CooldownQuest},
	{"chop", CooldownWork},
	{"fish", CooldownWork},
	{"pickup", CooldownWork},
	{"mine", CooldownWork},
	{"farm", CooldownFarm},
	{"horse", CooldownHorse},
	{"arena", CooldownArena},
	{"dungeon", CooldownDungeon},
	{"miniboss", CooldownDungeon},
	{"guild", CooldownGuild},
}

// cooldownResponses maps phrases of "you have already ..." titles to timers.
var cooldownResponses = []struct {
	cue string
	typ CooldownType
}{
	{"hunted", CooldownHunt},
	{"adventure", CooldownAdventure},
	{"trained", CooldownTraining},
	{"daily", CooldownDaily},
	{"weekly", CooldownWeekly},
	{"lootbox", CooldownLootbox},
	{"voted", CooldownVote},
	{"quest", CooldownQuest},
	{"resources", CooldownWork},
	{"farm", CooldownFarm},
	{"horse", CooldownHorse},
	{"arena", CooldownArena},
	{"fight with a boss", CooldownDungeon},
	{"dungeon", CooldownDungeon},
	{"miniboss", CooldownDungeon},
	{"fight with a user", CooldownDuel},
	{"duel", CooldownDuel},
	{"guild", CooldownGuild},
}
