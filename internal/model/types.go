package model

import "time"

// Credential is the OAuth material for one linked Bungie account.
// It is owned by the token lifecycle during a process's lifetime; the
// authoritative copy lives in the credential store and is merged back on
// every successful refresh.
type Credential struct {
	APIKey       string    `json:"apiKey"`
	ClientID     string    `json:"clientId"`
	ClientSecret string    `json:"clientSecret"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// AccountIdentity describes the linked account. Immutable after linking;
// never refreshed by the sync cycle.
type AccountIdentity struct {
	MembershipID string `json:"membershipId"`
	// MembershipType -1 asks the server to resolve cross-save automatically.
	MembershipType int        `json:"membershipType"`
	DisplayName    string     `json:"displayName,omitempty"`
	GlobalName     string     `json:"globalName,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
}

// Milestone is one time-boxed activity window from the milestones listing,
// decorated with resolved display names.
type Milestone struct {
	Hash uint64 `json:"hash"`
	Name string `json:"name"`
	// ActivityName is the resolved name of the first listed activity;
	// empty when the milestone carries no activities.
	ActivityName string     `json:"activity,omitempty"`
	HasMaster    bool       `json:"hasMaster"`
	EndsAt       *time.Time `json:"endDate,omitempty"`
}

// RotatorBuckets groups the milestones classified as featured rotating
// content. Rebuilt from scratch each cycle.
type RotatorBuckets struct {
	Raids    []Milestone `json:"raids"`
	Dungeons []Milestone `json:"dungeons"`
	Other    []Milestone `json:"other"`
}

// CharacterSnapshot is one character's state at the time of a cycle.
type CharacterSnapshot struct {
	CharacterID string `json:"characterId"`
	Class       string `json:"class"`
	Race        string `json:"race"`
	Gender      string `json:"gender"`
	Light       int    `json:"light"`
	EmblemHash  uint64 `json:"emblemHash,omitempty"`
	// LastPlayed is the upstream RFC3339 timestamp, empty when the
	// character has never been played. Kept as a string so roster ordering
	// matches the upstream convention (lexical, missing sorts last).
	LastPlayed      string `json:"lastPlayed,omitempty"`
	PostmasterCount int    `json:"postmasterCount"`
}

// CharacterRoster is the full character listing, most recently played first.
type CharacterRoster struct {
	Count              int                 `json:"count"`
	Characters         []CharacterSnapshot `json:"characters"`
	PostmasterCritical bool                `json:"postmasterCritical"`
}

// CycleSnapshot is the aggregate result of one sync cycle. It fully replaces
// the previous snapshot except for fields that degraded to their last good
// value. Consumers never observe a partially built snapshot.
type CycleSnapshot struct {
	FetchedAt      time.Time        `json:"fetchedAt"`
	WeeklyResetAt  time.Time        `json:"weeklyReset"`
	DailyResetAt   time.Time        `json:"dailyReset"`
	SeasonEndAt    *time.Time       `json:"seasonEnd,omitempty"`
	VaultItemCount *int             `json:"vaultCount,omitempty"`
	Characters     *CharacterRoster `json:"characters,omitempty"`
	Rotators       RotatorBuckets   `json:"rotators"`
	Guardian       AccountIdentity  `json:"guardian"`
}
