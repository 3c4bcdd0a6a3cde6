package testtraffic

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rampagelabs/armory/internal/domain/model"
	"github.com/rampagelabs/armory/pkg/logger"
)

// Seeded dataset shape constants. Every offer carries one legendary item so
// the whole batch survives resolution.
const (
	seedWindowBack    = time.Hour
	seedWindowForward = 24 * time.Hour
	seedItemLevel     = 10
	seedMaxLevel      = 60
)

// buildDataset creates a synthetic game-master document with numOffers
// currently available weapon offers.
func buildDataset(numOffers int, now time.Time) *model.RawDataset {
	ds := &model.RawDataset{
		WeaponItem: []model.WeaponItem{
			{ID: "wpn-1", Constant: "TRAFFIC_RIFLE", Power: 42, Speed: 7},
		},
		WeaponAesthetics: []model.WeaponAesthetic{
			{WeaponItemConstant: "TRAFFIC_RIFLE", Name: "Test Pattern", IconName: "test_pattern", MinLevel: 1, MaxLevel: seedMaxLevel},
		},
		Modifiers: []model.Modifier{
			{Constant: "MOD_FIRE", Name: "Fire", Description: "Burn damage", Type: "ELEMENT", IconName: "fire"},
		},
		LegendaryModifiers: []model.Modifier{
			{Constant: "LMOD_VOID", Name: "Void", Description: "Void damage", Type: "ELEMENT", IconName: "void"},
		},
	}

	start := now.Add(-seedWindowBack).UTC().Format(time.RFC3339)
	end := now.Add(seedWindowForward).UTC().Format(time.RFC3339)

	for i := 0; i < numOffers; i++ {
		id := "traffic-offer-" + strconv.Itoa(i+1)
		ds.Offers = append(ds.Offers, model.Offer{
			ID:           id,
			Name:         "Traffic Offer " + strconv.Itoa(i+1),
			Tab:          model.TabWeapon,
			StartDate:    start,
			EndDate:      end,
			Price:        float64(100 + i),
			CurrencyType: "GOLD",
		})
		ds.OfferDetails = append(ds.OfferDetails, model.OfferDetail{
			OfferID:   id,
			WeaponID:  "wpn-1",
			Modifier1: "MOD_FIRE",
			Modifier2: "LMOD_VOID",
			Rarity:    model.RarityLegendary,
			Level:     seedItemLevel,
		})
	}

	return ds
}

// seedDataset posts the synthetic document to the service.
func seedDataset(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "seeding dataset", logger.Int("offers", config.NumOffers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/dataset"

	resp, err := client.Post(url, "", buildDataset(config.NumOffers, time.Now()))
	if err != nil {
		return fmt.Errorf("dataset request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusAccepted {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var ack AckResponse
	if err := unmarshalJSON(body, &ack); err == nil && ack.Status != "accepted" {
		return fmt.Errorf("unexpected ack status: %s", ack.Status)
	}

	logger.Get().Info(ctx, "dataset accepted")
	return nil
}

// offersEnvelope is the slice of GET /offers this tool reads.
type offersEnvelope struct {
	Offers []struct {
		ID          string `json:"id"`
		IsAvailable bool   `json:"isAvailable"`
	} `json:"offers"`
}

// fetchOffers retrieves the resolved offer IDs to target with feedback.
func fetchOffers(ctx context.Context, config *Config) ([]string, error) {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/offers"

	resp, err := client.Get(url, "")
	if err != nil {
		return nil, fmt.Errorf("offers request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var envelope offersEnvelope
	if err := unmarshalJSON(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	entities := make([]string, 0, len(envelope.Offers))
	for _, offer := range envelope.Offers {
		if offer.IsAvailable {
			entities = append(entities, offer.ID)
		}
	}

	logger.Get().Info(ctx, "fetched offer entities", logger.Int("count", len(entities)))
	return entities, nil
}
