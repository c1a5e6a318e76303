package game

import (
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// CooldownUpdate is one timer to write for the observed player
type CooldownUpdate struct {
	Type  CooldownType
	After time.Time
}

// CooldownBatch is the result of parsing a cooldown list. Upserts and
// Deletes are applied together; Guild is set when the list carried a
// running guild timer, which lives at server level.
type CooldownBatch struct {
	Upserts []CooldownUpdate
	Deletes []CooldownType
	Guild   *time.Time
}

// Empty reports whether the batch carries no operation
func (b CooldownBatch) Empty() bool {
	return len(b.Upserts) == 0 && len(b.Deletes) == 0 && b.Guild == nil
}

// rows look like ":clock4: ~-~ **`Hunt`** (**0h 0m 45s**)"; ready rows
// have no parenthesised duration.
var cooldownRowRegex = regexp.MustCompile("\\*\\*`([^`]+)`\\*\\*(?:\\s*\\(\\*\\*([^*]+)\\*\\*\\))?")

var readyWords = []string{"ready", "white_check_mark", "✅"}

// ExtractCooldownList converts a cooldowns/ready embed into upserts and
// deletes relative to observed. Rows that cannot be parsed are skipped.
func ExtractCooldownList(e Embed, observed time.Time) CooldownBatch {
	var batch CooldownBatch
	for _, field := range e.Fields {
		rows := cooldownRowRegex.FindAllStringSubmatch(field.Value, -1)
		if len(rows) == 0 {
			// plain form: the field name is the label, the value the timer
			batch.add(field.Name, field.Value, observed)
			continue
		}
		for _, row := range rows {
			batch.add(row[1], row[2], observed)
		}
	}
	return batch
}

func (b *CooldownBatch) add(label, remaining string, observed time.Time) {
	typ, ok := LabelCooldownType(label)
	if !ok {
		slog.Debug("Unknown cooldown label", "label", label)
		return
	}

	if isReady(remaining) {
		if typ != CooldownGuild {
			b.Deletes = append(b.Deletes, typ)
		}
		return
	}

	d, err := ParseDuration(remaining)
	if err != nil {
		slog.Debug("Unparseable cooldown duration", "label", label, "value", remaining, "error", err)
		return
	}

	after := observed.Add(d)
	if typ == CooldownGuild {
		b.Guild = &after
		return
	}
	b.Upserts = append(b.Upserts, CooldownUpdate{Type: typ, After: after})
}

func isReady(remaining string) bool {
	value := strings.ToLower(strings.TrimSpace(remaining))
	if value == "" {
		return true
	}
	for _, word := range readyWords {
		if strings.Contains(value, word) {
			return true
		}
	}
	return false
}

// LabelCooldownType maps a cooldown-list label to its timer
func LabelCooldownType(label string) (CooldownType, bool) {
	label = strings.ToLower(StripMarkdown(label))
	for _, entry := range cooldownLabels {
		if strings.Contains(label, entry.cue) {
			return entry.typ, true
		}
	}
	return "", false
}

// ExtractCooldownResponse reads the single timer named by a
// "you have already ..." embed title.
func ExtractCooldownResponse(e Embed, observed time.Time) (CooldownUpdate, bool) {
	title := strings.ToLower(e.Title)
	for _, entry := range cooldownResponses {
		if !strings.Contains(title, entry.cue) {
			continue
		}
		d, err := ParseDuration(title)
		if err != nil {
			slog.Debug("Unparseable cooldown response", "title", e.Title, "error", err)
			return CooldownUpdate{}, false
		}
		return CooldownUpdate{Type: entry.typ, After: observed.Add(d)}, true
	}
	return CooldownUpdate{}, false
}
