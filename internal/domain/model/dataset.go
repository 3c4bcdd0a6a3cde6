// Package model contains domain models passed between layers.
package model

// RawDataset is the game-master document supplied once per session.
// Field names mirror the upstream JSON exactly.
type RawDataset struct {
	WeaponItem         []WeaponItem      `json:"WeaponItem"`
	WeaponAesthetics   []WeaponAesthetic `json:"WeaponAesthetics"`
	Modifiers          []Modifier        `json:"Modifiers"`
	LegendaryModifiers []Modifier        `json:"LegendaryModifiers"`
	OfferDetails       []OfferDetail     `json:"OfferDetails"`
	Offers             []Offer           `json:"Offers"`
}

// WeaponItem is one weapon record, addressable by Id and by Constant.
type WeaponItem struct {
	ID       string  `json:"Id"`
	Constant string  `json:"Constant"`
	Power    float64 `json:"Power"`
	Speed    float64 `json:"Speed"`
}

// WeaponAesthetic is one skin record owned by a weapon constant.
type WeaponAesthetic struct {
	WeaponItemConstant string `json:"WeaponItemConstant"`
	Name               string `json:"Name"`
	IconName           string `json:"IconName"`
	MinLevel           int    `json:"MinLevel"`
	MaxLevel           int    `json:"MaxLevel"`
	IsLegendary        bool   `json:"IsLegendary"`
}

// Modifier is a weapon modifier record. Regular and legendary modifiers
// share this shape; the pipeline tags each with its origin.
type Modifier struct {
	Constant    string `json:"Constant"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
	Type        string `json:"MODIFIER_TYPE"`
	IconName    string `json:"IconName"`
}

// OfferDetail is one item row under an offer. Up to three modifier slots
// may be set; empty slots are skipped during resolution.
type OfferDetail struct {
	OfferID   string `json:"OfferId"`
	WeaponID  string `json:"WeaponId"`
	Modifier1 string `json:"Modifier1"`
	Modifier2 string `json:"Modifier2"`
	Modifier3 string `json:"Modifier3"`
	Rarity    string `json:"Rarity"`
	Level     int    `json:"Level"`
}

// Offer is a time-boxed sale listing. Dates are RFC3339 strings as they
// appear in the source document; the pipeline parses them.
type Offer struct {
	ID           string  `json:"Id"`
	Name         string  `json:"Name"`
	Tab          string  `json:"Tab"`
	StartDate    string  `json:"StartDate"`
	EndDate      string  `json:"EndDate"`
	Price        float64 `json:"Price"`
	CurrencyType string  `json:"CurrencyType"`
}

// Rarity and tab constants used by the resolution rules.
const (
	TabWeapon       = "WEAPON"
	RarityLegendary = "LEGENDARY"
)
