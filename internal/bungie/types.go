package bungie

import "encoding/json"

// envelope is the standard Bungie platform response wrapper.
type envelope struct {
	Response    json.RawMessage `json:"Response"`
	ErrorCode   int             `json:"ErrorCode"`
	ErrorStatus string          `json:"ErrorStatus"`
}

// TokenResponse is the OAuth token endpoint payload for both the
// authorization_code and refresh_token grants.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	MembershipID     string `json:"membership_id"`
}

// MilestoneActivity is one activity variant listed under a milestone.
type MilestoneActivity struct {
	ActivityHash uint64 `json:"activityHash"`
}

// MilestoneEntry is one milestone from the public milestones listing.
// EndDate stays a string; the upstream omits it for open-ended milestones
// and the coordinator parses it leniently.
type MilestoneEntry struct {
	MilestoneHash uint64              `json:"milestoneHash"`
	Activities    []MilestoneActivity `json:"activities"`
	StartDate     string              `json:"startDate"`
	EndDate       string              `json:"endDate"`
}

// InventoryItem is one item in a profile or character inventory.
type InventoryItem struct {
	ItemHash   uint64 `json:"itemHash"`
	BucketHash uint64 `json:"bucketHash"`
	Quantity   int    `json:"quantity"`
}

type inventoryData struct {
	Items []InventoryItem `json:"items"`
}

type componentItems struct {
	Data *inventoryData `json:"data"`
}

// Character is one entry of the characters component (200).
type Character struct {
	ClassHash      uint64 `json:"classHash"`
	RaceHash       uint64 `json:"raceHash"`
	GenderHash     uint64 `json:"genderHash"`
	Light          int    `json:"light"`
	EmblemHash     uint64 `json:"emblemHash"`
	DateLastPlayed string `json:"dateLastPlayed"`
}

type charactersComponent struct {
	Data map[string]Character `json:"data"`
}

type characterInventories struct {
	Data map[string]inventoryData `json:"data"`
}

// ProfileResponse carries whichever components the query selected.
type ProfileResponse struct {
	ProfileInventory     *componentItems       `json:"profileInventory"`
	Characters           *charactersComponent  `json:"characters"`
	CharacterInventories *characterInventories `json:"characterInventories"`
}

// VaultItems returns the profile inventory item list, nil when the
// component is absent.
func (p *ProfileResponse) VaultItems() []InventoryItem {
	if p.ProfileInventory == nil || p.ProfileInventory.Data == nil {
		return nil
	}
	return p.ProfileInventory.Data.Items
}

// CharacterData returns the character map, nil when the component is absent.
func (p *ProfileResponse) CharacterData() map[string]Character {
	if p.Characters == nil {
		return nil
	}
	return p.Characters.Data
}

// InventoryItemsFor returns the inventory item list for one character.
func (p *ProfileResponse) InventoryItemsFor(characterID string) []InventoryItem {
	if p.CharacterInventories == nil {
		return nil
	}
	inv, ok := p.CharacterInventories.Data[characterID]
	if !ok {
		return nil
	}
	return inv.Items
}

// Definition is a manifest entry; only display properties are consumed.
type Definition struct {
	DisplayProperties struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"displayProperties"`
}
