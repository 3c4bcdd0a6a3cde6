// Package resolve implements the offer resolution pipeline: a pure,
// deterministic join of the raw game-master tables into display-ready,
// time-windowed offers.
//
// The pipeline never aborts on malformed per-record data; items and offers
// that cannot be resolved are dropped. Only a structurally invalid
// top-level document is an error.
package resolve

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rampagelabs/armory/internal/domain/model"
)

// requiredCollections are the top-level arrays a dataset must carry.
// Modifier tables are optional; offers degrade to modifier-less items.
var requiredCollections = []string{
	"WeaponItem",
	"WeaponAesthetics",
	"OfferDetails",
	"Offers",
}

// ParseDataset decodes and structurally validates a raw game-master
// document. A missing required collection is fatal and reported with the
// collection name; empty collections are fine.
func ParseDataset(data []byte) (*model.RawDataset, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	for _, name := range requiredCollections {
		if _, ok := keys[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingCollection, name)
		}
	}
	var ds model.RawDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return &ds, nil
}

// taggedModifier carries the legendary-table origin alongside the record.
type taggedModifier struct {
	mod         model.Modifier
	isLegendary bool
}

// Resolve joins the dataset into the ordered list of weapon offers that
// are available or upcoming relative to now. Determinism: same dataset and
// now always produce the same output, in the same order.
func Resolve(ds *model.RawDataset, now time.Time) []model.ResolvedOffer {
	weaponByID := make(map[string]model.WeaponItem, len(ds.WeaponItem))
	for _, w := range ds.WeaponItem {
		weaponByID[w.ID] = w
	}

	aestheticsByConstant := make(map[string][]model.WeaponAesthetic)
	for _, a := range ds.WeaponAesthetics {
		aestheticsByConstant[a.WeaponItemConstant] = append(aestheticsByConstant[a.WeaponItemConstant], a)
	}

	modifierByConstant := make(map[string]taggedModifier, len(ds.Modifiers)+len(ds.LegendaryModifiers))
	for _, m := range ds.Modifiers {
		modifierByConstant[m.Constant] = taggedModifier{mod: m}
	}
	for _, m := range ds.LegendaryModifiers {
		modifierByConstant[m.Constant] = taggedModifier{mod: m, isLegendary: true}
	}

	detailsByOffer := make(map[string][]model.OfferDetail)
	for _, d := range ds.OfferDetails {
		detailsByOffer[d.OfferID] = append(detailsByOffer[d.OfferID], d)
	}

	offers := make([]model.ResolvedOffer, 0, len(ds.Offers))
	for _, offer := range ds.Offers {
		if offer.Tab != model.TabWeapon {
			continue
		}
		start, err := time.Parse(time.RFC3339, offer.StartDate)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, offer.EndDate)
		if err != nil {
			continue
		}
		isAvailable := !start.After(now) && end.After(now)
		isUpcoming := start.After(now)
		if !isAvailable && !isUpcoming {
			continue
		}

		var items []model.ResolvedItem
		hasLegendary := false
		for _, detail := range detailsByOffer[offer.ID] {
			weapon, ok := weaponByID[detail.WeaponID]
			if !ok {
				continue
			}
			item := model.ResolvedItem{
				Weapon:    weapon,
				Aesthetic: pickAesthetic(aestheticsByConstant[weapon.Constant], detail),
				Modifiers: resolveModifiers(modifierByConstant, detail),
				Rarity:    detail.Rarity,
				Level:     detail.Level,
				Price:     offer.Price,
				Currency:  offer.CurrencyType,
			}
			if item.IsLegendary() {
				hasLegendary = true
			}
			items = append(items, item)
		}
		if len(items) == 0 || !hasLegendary {
			continue
		}

		offers = append(offers, model.ResolvedOffer{
			ID:          offer.ID,
			Name:        offer.Name,
			StartDate:   start,
			EndDate:     end,
			IsAvailable: isAvailable,
			IsUpcoming:  isUpcoming,
			Items:       items,
		})
	}

	// Nearest start first; stable keeps source order on ties.
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].StartDate.Before(offers[j].StartDate)
	})
	return offers
}

// pickAesthetic chooses the skin that represents a weapon within an item:
// a legendary detail prefers a legendary-flagged aesthetic, a regular
// detail prefers a non-legendary aesthetic whose level range contains the
// detail level, and anything unmatched falls back to the first aesthetic
// in source order.
func pickAesthetic(candidates []model.WeaponAesthetic, detail model.OfferDetail) *model.WeaponAesthetic {
	wantLegendary := detail.Rarity == model.RarityLegendary
	for i := range candidates {
		a := candidates[i]
		if wantLegendary && a.IsLegendary {
			return &a
		}
		if !wantLegendary && !a.IsLegendary && detail.Level >= a.MinLevel && detail.Level <= a.MaxLevel {
			return &a
		}
	}
	if len(candidates) > 0 {
		first := candidates[0]
		return &first
	}
	return nil
}

// resolveModifiers looks up the detail's modifier slots, silently skipping
// empty or unresolvable constants.
func resolveModifiers(byConstant map[string]taggedModifier, detail model.OfferDetail) []model.ResolvedModifier {
	var out []model.ResolvedModifier
	for _, constant := range []string{detail.Modifier1, detail.Modifier2, detail.Modifier3} {
		if constant == "" {
			continue
		}
		tm, ok := byConstant[constant]
		if !ok {
			continue
		}
		out = append(out, model.ResolvedModifier{Modifier: tm.mod, IsLegendary: tm.isLegendary})
	}
	return out
}
