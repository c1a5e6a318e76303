package game

import (
	"regexp"
	"strings"
)

// HuntCue marks a hunt or adventure outcome in plain message content
const HuntCue = "found and killed"

var (
	huntRegex = regexp.MustCompile(`\*{0,2}([^*\n]+?)\*{0,2} found and killed (?:an? |the )?\*{0,2}([^*!\n]+)`)
	earnRegex = regexp.MustCompile(`(?i)earned ([\d,]+) coins and ([\d,]+) xp`)
	lootRegex = regexp.MustCompile(`(?im)\bgot (?:an? |\d+ )?(?:<a?:\w+:\d+>\s*)?\*{0,2}([^*\n]+?)\*{0,2}\s*$`)
)

// HuntResult is the outcome of one hunt as read from message content
type HuntResult struct {
	Name   string // display name of the hunter
	Target string
	Money  int64
	XP     int64
	Loot   string
}

// ParseHuntResult extracts a hunt outcome such as
// "**PlayerOne** found and killed a **Dragon**\nEarned 1,000 coins and 50 XP".
func ParseHuntResult(content string) (HuntResult, bool) {
	if !strings.Contains(content, HuntCue) {
		return HuntResult{}, false
	}
	m := huntRegex.FindStringSubmatch(content)
	if m == nil {
		return HuntResult{}, false
	}

	res := HuntResult{
		Name:   strings.TrimSpace(m[1]),
		Target: strings.TrimSpace(m[2]),
	}
	if res.Name == "" || res.Target == "" {
		return HuntResult{}, false
	}
	if earned := earnRegex.FindStringSubmatch(content); earned != nil {
		res.Money = parseAmount(earned[1])
		res.XP = parseAmount(earned[2])
	}
	if loot := lootRegex.FindStringSubmatch(content); loot != nil {
		res.Loot = strings.TrimSpace(loot[1])
	}
	return res, true
}
