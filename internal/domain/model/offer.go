package model

import "time"

// ResolvedOffer is a fully joined, display-ready offer. Offers are
// immutable once produced; callers re-run the pipeline for a new "now".
type ResolvedOffer struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	StartDate   time.Time      `json:"startDate"`
	EndDate     time.Time      `json:"endDate"`
	IsAvailable bool           `json:"isAvailable"`
	IsUpcoming  bool           `json:"isUpcoming"`
	Items       []ResolvedItem `json:"items"`
}

// ResolvedItem joins one weapon with its chosen aesthetic and up to three
// modifiers. Owned exclusively by its parent offer.
type ResolvedItem struct {
	Weapon    WeaponItem         `json:"weapon"`
	Aesthetic *WeaponAesthetic   `json:"aesthetic,omitempty"`
	Modifiers []ResolvedModifier `json:"modifiers"`
	Rarity    string             `json:"rarity"`
	Level     int                `json:"level"`
	Price     float64            `json:"price"`
	Currency  string             `json:"currency"`
}

// ResolvedModifier is a modifier joined to an item, tagged with whether it
// came from the legendary modifier table.
type ResolvedModifier struct {
	Modifier
	IsLegendary bool `json:"isLegendary"`
}

// IsLegendary reports whether this item counts as legendary, either by its
// aesthetic flag or by the detail rarity.
func (i ResolvedItem) IsLegendary() bool {
	if i.Aesthetic != nil && i.Aesthetic.IsLegendary {
		return true
	}
	return i.Rarity == RarityLegendary
}
