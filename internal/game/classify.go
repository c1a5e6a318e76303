package game

import "strings"

// Classification is the outcome of Classify. Key carries the matched
// gamble game, group activity type or arena initiator name.
type Classification struct {
	Category Category
	Key      string
}

type classifyRule struct {
	category Category
	match    func(label string, e Embed) (string, bool)
}

// classifyRules are evaluated top to bottom and the first match wins:
//
//  1. cooldown list ("cooldowns", "ready")
//  2. cooldown response ("cooldown")
//  3. gambling result (game names)
//  4. group activity confirmation (activity names, arena excluded)
//  5. arena start, matched on the description instead of the label
//
// Cues are matched against the action part of the label only, so a player
// named "Cooldownz" is not mistaken for a cooldown response. A label
// containing both the response cue and an activity name is a cooldown
// response.
var classifyRules = []classifyRule{
	{CategoryCooldownList, func(label string, _ Embed) (string, bool) {
		return firstCue(label, cooldownListCues)
	}},
	{CategoryCooldownResponse, func(label string, _ Embed) (string, bool) {
		return cooldownResponseCue, strings.Contains(label, cooldownResponseCue)
	}},
	{CategoryGamble, func(label string, _ Embed) (string, bool) {
		return firstCue(label, gambleCues)
	}},
	{CategoryGroupActivity, func(label string, _ Embed) (string, bool) {
		for _, activity := range groupActivityCues {
			if strings.Contains(label, string(activity)) {
				return string(activity), true
			}
		}
		return "", false
	}},
	{CategoryArena, func(_ string, e Embed) (string, bool) {
		m := arenaRegex.FindStringSubmatch(e.Description)
		if m == nil {
			return "", false
		}
		return m[1], true
	}},
}

// Classify picks the single category an embed belongs to
func Classify(e Embed) Classification {
	label := AuthorAction(strings.ToLower(e.Author))
	for _, rule := range classifyRules {
		if key, ok := rule.match(label, e); ok {
			return Classification{Category: rule.category, Key: key}
		}
	}
	return Classification{Category: CategoryNone}
}

func firstCue(label string, cues []string) (string, bool) {
	for _, cue := range cues {
		if strings.Contains(label, cue) {
			return cue, true
		}
	}
	return "", false
}
