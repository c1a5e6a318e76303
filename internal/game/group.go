package game

import (
	"strings"
	"time"
)

// memberRule confirms an activity when the confirmation text names the
// required players. ownerOnly relaxes that to the initiator, for activities
// anybody may join after the start.
type memberRule struct {
	activity     CooldownType
	cooldownType CooldownType
	cooldown     time.Duration
	ownerOnly    bool
}

func defaultRules() []ConfirmationRule {
	return []ConfirmationRule{
		&memberRule{activity: CooldownDungeon, cooldownType: CooldownDungeon, cooldown: 12 * time.Hour},
		&memberRule{activity: CooldownMiniboss, cooldownType: CooldownDungeon, cooldown: 12 * time.Hour},
		&memberRule{activity: CooldownDuel, cooldownType: CooldownDuel, cooldown: 2 * time.Hour},
		&memberRule{activity: CooldownHorse, cooldownType: CooldownHorse, cooldown: 24 * time.Hour},
		&memberRule{activity: CooldownArena, cooldownType: CooldownArena, cooldown: 12 * time.Hour, ownerOnly: true},
	}
}

func (r *memberRule) Activity() CooldownType     { return r.activity }
func (r *memberRule) CooldownType() CooldownType { return r.cooldownType }
func (r *memberRule) Cooldown() time.Duration    { return r.cooldown }

func (r *memberRule) Confirms(owner Participant, participants []Participant, embed Embed) bool {
	text := strings.ToLower(StripMarkdown(embed.Text()))
	if !strings.Contains(text, strings.ToLower(StripMarkdown(owner.Name))) {
		return false
	}
	if r.ownerOnly {
		return true
	}
	for _, p := range participants {
		if !strings.Contains(text, strings.ToLower(StripMarkdown(p.Name))) {
			return false
		}
	}
	return true
}
