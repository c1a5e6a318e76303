package game

import (
	"regexp"
	"strings"
)

var (
	rosterGuildRegex  = regexp.MustCompile(`^\*\*([^*]+)\*\* members`)
	rosterPlayerRegex = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// MemberTag is a "name#discriminator" token of a guild roster
type MemberTag struct {
	Name          string
	Discriminator string
}

// Roster is one guild membership snapshot
type Roster struct {
	Guild   string
	Members []MemberTag
}

// ParseRoster reads the guild roster from the first field of the first
// embed, e.g. name "**Knights** members", value "**alice#0001**\n**bob#12#0002**".
func ParseRoster(embeds []Embed) (Roster, bool) {
	if len(embeds) == 0 || len(embeds[0].Fields) == 0 {
		return Roster{}, false
	}
	field := embeds[0].Fields[0]
	m := rosterGuildRegex.FindStringSubmatch(field.Name)
	if m == nil {
		return Roster{}, false
	}

	roster := Roster{Guild: strings.TrimSpace(m[1])}
	for _, token := range rosterPlayerRegex.FindAllStringSubmatch(field.Value, -1) {
		name, disc := SplitDiscriminator(strings.TrimSpace(token[1]))
		roster.Members = append(roster.Members, MemberTag{Name: name, Discriminator: disc})
	}
	return roster, true
}
