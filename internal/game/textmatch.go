package game

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoDuration is returned when a text carries no d/h/m/s component
var ErrNoDuration = errors.New("no duration found")

var (
	durationPartRegex = regexp.MustCompile(`(\d+)\s*([dhms])\b`)
	avatarRegex       = regexp.MustCompile(`/avatars/(\d+)/`)
	markdownReplacer  = strings.NewReplacer("*", "", "`", "", "_", "")
)

// ParseDuration reads Epic RPG style durations such as "1h 30m" or
// "**0d 2h 0m 5s**". Every d/h/m/s component found is summed.
func ParseDuration(text string) (time.Duration, error) {
	matches := durationPartRegex.FindAllStringSubmatch(StripMarkdown(strings.ToLower(text)), -1)
	if len(matches) == 0 {
		return 0, ErrNoDuration
	}

	var total time.Duration
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, err
		}
		unit := time.Second
		switch m[2] {
		case "d":
			unit = 24 * time.Hour
		case "h":
			unit = time.Hour
		case "m":
			unit = time.Minute
		}
		total += time.Duration(n) * unit
	}
	return total, nil
}

// AvatarUserID extracts the Discord user id from an avatar URL
func AvatarUserID(iconURL string) (string, bool) {
	m := avatarRegex.FindStringSubmatch(iconURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// AuthorName returns the player name part of an embed author label,
// e.g. "PlayerOne" for "PlayerOne — cooldowns" or "PlayerOne's slots".
func AuthorName(label string) string {
	name := label
	if i := strings.Index(name, " — "); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "'s "); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// AuthorAction is the part of an embed author label after the player name,
// "cooldowns" for "PlayerOne — cooldowns" and "slots" for "PlayerOne's
// slots". A label without a name is returned whole.
func AuthorAction(label string) string {
	if i := strings.Index(label, " — "); i >= 0 {
		return strings.TrimSpace(label[i+len(" — "):])
	}
	if i := strings.LastIndex(label, "'s "); i >= 0 {
		return strings.TrimSpace(label[i+len("'s "):])
	}
	return strings.TrimSpace(label)
}

// SplitDiscriminator splits "name#1234" at the last separator. Names may
// contain '#' themselves. A token without a separator gets discriminator "0".
func SplitDiscriminator(token string) (name, discriminator string) {
	i := strings.LastIndex(token, "#")
	if i < 0 {
		return token, "0"
	}
	return token[:i], token[i+1:]
}

// StripMarkdown removes bold, italic and code markers
func StripMarkdown(s string) string {
	return markdownReplacer.Replace(s)
}

func parseAmount(s string) int64 {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
