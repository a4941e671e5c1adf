package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cardsage/cardsage/internal/common"
	"github.com/cardsage/cardsage/internal/model"
)

// seedFile is the on-disk YAML shape for catalog seeds.
type seedFile struct {
	Cards []seedCard `yaml:"cards"`
}

type seedCard struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Category        string   `yaml:"category"`
	Issuer          string   `yaml:"issuer"`
	RewardsRate     string   `yaml:"rewards_rate"`
	SignupBonus     string   `yaml:"signup_bonus"`
	EligibilityTier string   `yaml:"eligibility_tier"`
	Geo             string   `yaml:"geo"`
	Pros            []string `yaml:"pros"`
	Cons            []string `yaml:"cons"`
	AnnualFee       float64  `yaml:"annual_fee"`
}

// LoadSeedFile reads a YAML card set from path.
func LoadSeedFile(path string) ([]model.Card, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied seed path
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	if len(file.Cards) == 0 {
		return nil, fmt.Errorf("seed file %s contains no cards", path)
	}

	cards := make([]model.Card, 0, len(file.Cards))
	seen := make(map[string]int, len(file.Cards))
	for i, sc := range file.Cards {
		card := model.Card{
			ID:              sc.ID,
			Name:            sc.Name,
			Category:        sc.Category,
			Issuer:          sc.Issuer,
			AnnualFee:       sc.AnnualFee,
			RewardsRate:     sc.RewardsRate,
			SignupBonus:     sc.SignupBonus,
			EligibilityTier: sc.EligibilityTier,
			Geo:             sc.Geo,
			Pros:            sc.Pros,
			Cons:            sc.Cons,
		}
		if card.Geo == "" {
			card.Geo = "global"
		}
		if err := validateCard(card); err != nil {
			return nil, fmt.Errorf("card at index %d: %w", i, err)
		}
		// Seeding upserts by id, so a repeated id inside one file would
		// silently keep only the last row.
		if first, ok := seen[card.ID]; ok {
			return nil, fmt.Errorf("%w: card id %q appears at index %d and %d", common.ErrDuplicateEntry, card.ID, first, i)
		}
		seen[card.ID] = i
		cards = append(cards, card)
	}

	return cards, nil
}

// Seed upserts the given cards in order inside a single transaction, so
// catalog order matches slice order on a fresh database.
func (s *Store) Seed(ctx context.Context, cards []model.Card) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(cards) == 0 {
		return fmt.Errorf("no cards to seed")
	}

	for _, card := range cards {
		if err := validateCard(card); err != nil {
			return err
		}
	}

	err := s.execTx(ctx, func(tx *sql.Tx) error {
		for _, card := range cards {
			if err := upsertTx(tx, card); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("catalog seeded", "cards", len(cards))
	return nil
}

// EnsureSeeded seeds the built-in card set when the catalog is empty.
func (s *Store) EnsureSeeded(ctx context.Context) error {
	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.Seed(ctx, DefaultCards())
}

// DefaultCards returns the built-in Singapore-market card set.
func DefaultCards() []model.Card {
	return []model.Card{
		{
			ID:              "travel_001",
			Name:            "Singapore Airlines KrisFlyer Credit Card",
			Category:        model.CategoryTravel,
			Issuer:          "DBS Bank",
			AnnualFee:       192.60,
			RewardsRate:     "1.2 miles per S$1",
			SignupBonus:     "15,000 KrisFlyer miles",
			EligibilityTier: "excellent",
			Geo:             "SG",
			Pros:            []string{"High miles earning", "No foreign transaction fees", "Travel insurance"},
			Cons:            []string{"High annual fee", "Limited cashback options"},
		},
		{
			ID:              "travel_002",
			Name:            "Citi PremierMiles Card",
			Category:        model.CategoryTravel,
			Issuer:          "Citibank",
			AnnualFee:       192.60,
			RewardsRate:     "1.2 miles per S$1",
			SignupBonus:     "10,000 miles",
			EligibilityTier: "good",
			Geo:             "SG",
			Pros:            []string{"Flexible miles", "Good signup bonus", "Travel benefits"},
			Cons:            []string{"Annual fee", "Limited category bonuses"},
		},
		{
			ID:              "cashback_001",
			Name:            "DBS Live Fresh Card",
			Category:        model.CategoryCashback,
			Issuer:          "DBS Bank",
			AnnualFee:       0,
			RewardsRate:     "5% cashback on online spending",
			SignupBonus:     "S$100 cashback",
			EligibilityTier: "good",
			Geo:             "SG",
			Pros:            []string{"No annual fee", "High online cashback", "Easy to use"},
			Cons:            []string{"Limited offline benefits", "Category restrictions"},
		},
		{
			ID:              "cashback_002",
			Name:            "OCBC 365 Credit Card",
			Category:        model.CategoryCashback,
			Issuer:          "OCBC Bank",
			AnnualFee:       0,
			RewardsRate:     "6% cashback on dining",
			SignupBonus:     "S$80 cashback",
			EligibilityTier: "good",
			Geo:             "SG",
			Pros:            []string{"No annual fee", "High dining cashback", "Weekend bonuses"},
			Cons:            []string{"Complex bonus structure", "Minimum spending requirements"},
		},
		{
			ID:              "business_001",
			Name:            "UOB Business Card",
			Category:        model.CategoryBusiness,
			Issuer:          "UOB Bank",
			AnnualFee:       96.30,
			RewardsRate:     "1% cashback on all spending",
			SignupBonus:     "S$200 cashback",
			EligibilityTier: "good",
			Geo:             "SG",
			Pros:            []string{"Business expense tracking", "Employee cards", "Corporate benefits"},
			Cons:            []string{"Annual fee", "Limited rewards", "Business verification required"},
		},
		{
			ID:              "student_001",
			Name:            "POSB Everyday Card",
			Category:        model.CategoryStudent,
			Issuer:          "DBS Bank",
			AnnualFee:       0,
			RewardsRate:     "0.3% cashback on all spending",
			SignupBonus:     "S$20 cashback",
			EligibilityTier: "fair",
			Geo:             "SG",
			Pros:            []string{"No annual fee", "Easy approval", "Credit building"},
			Cons:            []string{"Low rewards rate", "Limited benefits", "Low credit limit"},
		},
		{
			ID:              "general_001",
			Name:            "Standard Rewards Card",
			Category:        model.CategoryGeneral,
			Issuer:          "Generic Bank",
			AnnualFee:       48.15,
			RewardsRate:     "1% cashback on all spending",
			SignupBonus:     "S$50 cashback",
			EligibilityTier: "good",
			Geo:             "SG",
			Pros:            []string{"Simple rewards", "Moderate annual fee", "Widely accepted"},
			Cons:            []string{"Basic benefits", "No category bonuses", "Limited perks"},
		},
	}
}
