package game

import (
	"regexp"
	"strings"
)

// Gamble outcomes
const (
	OutcomeWon  = "won"
	OutcomeLost = "lost"
	OutcomeTied = "tied"
)

var (
	gambleAmountRegex = regexp.MustCompile(`(?i)\b(won|lost)\b[^\d\n]*([\d,]+)`)
	gambleTieRegex    = regexp.MustCompile(`(?i)\b(tie|tied|draw)\b`)
)

// GambleResult is the parsed outcome of one gambling results screen
type GambleResult struct {
	Game    string
	Outcome string
	Amount  int64
}

// ExtractGamble reads the outcome of a results screen for game. Screens
// that show no outcome yet (a blackjack hand in progress) are not a match.
func ExtractGamble(game string, e Embed) (GambleResult, bool) {
	parts := []string{e.Description}
	for _, f := range e.Fields {
		parts = append(parts, f.Name, f.Value)
	}
	text := strings.Join(parts, "\n")

	if m := gambleAmountRegex.FindStringSubmatch(text); m != nil {
		return GambleResult{
			Game:    game,
			Outcome: strings.ToLower(m[1]),
			Amount:  parseAmount(m[2]),
		}, true
	}
	if gambleTieRegex.MatchString(text) {
		return GambleResult{Game: game, Outcome: OutcomeTied}, true
	}
	return GambleResult{}, false
}
