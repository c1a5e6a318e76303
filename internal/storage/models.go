package storage

import "time"

// Server is a Discord guild the bot is in. Messages from inactive servers
// are ignored.
type Server struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
}

// Profile is a player, located at the server and channel where they were
// last seen playing
type Profile struct {
	UID               string
	LastKnownNickname string
	ServerID          string
	ChannelID         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CoolDown is a pending timer, unique per (profile, type)
type CoolDown struct {
	ID         int64
	ProfileUID string
	Type       string
	After      time.Time
	Notified   bool
}

// CooldownKey identifies a cooldown to delete
type CooldownKey struct {
	ProfileUID string
	Type       string
}

// DueCooldown is an expired, unnotified cooldown with its delivery target
type DueCooldown struct {
	CoolDown
	ChannelID string
	Nickname  string
}

// GuildCooldown is the server-level guild raid/upgrade timer
type GuildCooldown struct {
	ServerID  string
	SetByUID  string
	ChannelID string
	After     time.Time
	Notified  bool
}

// DueGuildCooldown is an expired guild timer and the players to mention
type DueGuildCooldown struct {
	GuildCooldown
	MemberUIDs []string
}

// GroupActivity is an open multi-player activity awaiting confirmation.
// Version changes on every write and guards confirmation.
type GroupActivity struct {
	ID        string
	Type      string
	OwnerUID  string
	OwnerName string
	ServerID  string
	ChannelID string
	CreatedAt time.Time
	Version   string
	Members   []ActivityMember
}

// ActivityMember is one participant of a group activity, owner included
type ActivityMember struct {
	UID  string
	Name string
}

// Hunt is a hunt or adventure. An empty Target means the result has not
// been observed yet.
type Hunt struct {
	ID          int64
	ProfileUID  string
	Target      string
	Money       int64
	XP          int64
	Loot        string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// HuntResult is the observed outcome written onto an open Hunt
type HuntResult struct {
	Target string
	Money  int64
	XP     int64
	Loot   string
}

// Gamble is one resolved gambling outcome. MessageID deduplicates
// re-observations of the same results screen.
type Gamble struct {
	ID         int64
	ProfileUID string
	MessageID  string
	Game       string
	Outcome    string
	Amount     int64
	CreatedAt  time.Time
}
