package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cardsage/cardsage/internal/common"
	"github.com/cardsage/cardsage/internal/model"
	"github.com/cardsage/cardsage/internal/service"
)

// Helper function to create a migrated test store.
func createTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func cardIDs(cards []model.Card) []string {
	ids := make([]string, len(cards))
	for i, card := range cards {
		ids[i] = card.ID
	}
	return ids
}

func assertIDs(t *testing.T, got []model.Card, want []string) {
	t.Helper()
	ids := cardIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("Expected %d cards %v, got %d: %v", len(want), want, len(ids), ids)
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("Card[%d] = %s, want %s (full order: %v)", i, ids[i], id, ids)
		}
	}
}

func TestStore_Migrate(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store1, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	ctx := context.Background()
	if err2 := store1.Migrate(ctx); err2 != nil {
		t.Fatalf("Initial migration failed: %v", err2)
	}
	_ = store1.Close()

	// Running migrations again on the same file must be a no-op.
	store2, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer func() { _ = store2.Close() }()

	if err := store2.Migrate(ctx); err != nil {
		t.Fatalf("Repeated migration failed: %v", err)
	}

	if err := store2.Upsert(ctx, model.Card{ID: "x_001", Name: "X Card", Category: model.CategoryGeneral}); err != nil {
		t.Errorf("Store not functional after migration: %v", err)
	}
}

func TestStore_EnsureSeeded(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.EnsureSeeded(ctx); err != nil {
		t.Fatalf("EnsureSeeded() error = %v", err)
	}

	cards, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	assertIDs(t, cards, []string{
		"travel_001", "travel_002",
		"cashback_001", "cashback_002",
		"business_001", "student_001", "general_001",
	})

	// A second call on a populated catalog must not duplicate or reorder.
	if err := store.EnsureSeeded(ctx); err != nil {
		t.Fatalf("Second EnsureSeeded() error = %v", err)
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 7 {
		t.Errorf("Count() = %d after reseed, want 7", count)
	}

	krisflyer, err := store.Get(ctx, "travel_001")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if krisflyer == nil {
		t.Fatal("Get(travel_001) returned nil")
	}
	if krisflyer.Name != "Singapore Airlines KrisFlyer Credit Card" {
		t.Errorf("Name = %q", krisflyer.Name)
	}
	if krisflyer.AnnualFee != 192.60 {
		t.Errorf("AnnualFee = %v, want 192.60", krisflyer.AnnualFee)
	}
	if len(krisflyer.Pros) != 3 || krisflyer.Pros[0] != "High miles earning" {
		t.Errorf("Pros not preserved: %v", krisflyer.Pros)
	}
}

func TestStore_Search(t *testing.T) {
	tests := []struct {
		name     string
		criteria service.SearchCriteria
		want     []string
	}{
		{
			name: "travel goals return travel cards in catalog order",
			criteria: service.SearchCriteria{
				Goals:         []string{"miles"},
				RiskTolerance: model.RiskStandard,
			},
			want: []string{"travel_001", "travel_002"},
		},
		{
			name: "multiple goals merge category blocks in catalog order",
			criteria: service.SearchCriteria{
				Goals:         []string{"cashback", "miles"},
				RiskTolerance: model.RiskStandard,
			},
			want: []string{"travel_001", "travel_002", "cashback_001", "cashback_002"},
		},
		{
			name: "conservative risk drops cards over the fee cap",
			criteria: service.SearchCriteria{
				Goals:         []string{"miles", "cashback"},
				RiskTolerance: model.RiskConservative,
			},
			want: []string{"cashback_001", "cashback_002"},
		},
		{
			name: "aggressive risk keeps high-fee cards",
			criteria: service.SearchCriteria{
				Goals:         []string{"miles"},
				RiskTolerance: model.RiskAggressive,
			},
			want: []string{"travel_001", "travel_002"},
		},
		{
			name: "unknown goals fall back to general",
			criteria: service.SearchCriteria{
				Goals:         []string{"crypto"},
				RiskTolerance: model.RiskStandard,
			},
			want: []string{"general_001"},
		},
		{
			name: "empty goals fall back to general",
			criteria: service.SearchCriteria{
				RiskTolerance: model.RiskStandard,
			},
			want: []string{"general_001"},
		},
		{
			name: "explicit category overrides goals",
			criteria: service.SearchCriteria{
				Category:      model.CategoryStudent,
				Goals:         []string{"miles"},
				RiskTolerance: model.RiskStandard,
			},
			want: []string{"student_001"},
		},
		{
			name: "result set is capped at five",
			criteria: service.SearchCriteria{
				Goals:         []string{"miles", "cashback", "business", "student"},
				RiskTolerance: model.RiskStandard,
			},
			want: []string{"travel_001", "travel_002", "cashback_001", "cashback_002", "business_001"},
		},
		{
			name: "jurisdiction filter excludes other markets",
			criteria: service.SearchCriteria{
				Goals:         []string{"miles"},
				RiskTolerance: model.RiskStandard,
				Jurisdiction:  "US",
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStore(t)
			defer cleanup()
			ctx := context.Background()

			if err := store.EnsureSeeded(ctx); err != nil {
				t.Fatalf("EnsureSeeded() error = %v", err)
			}

			got, err := store.Search(ctx, tt.criteria)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			assertIDs(t, got, tt.want)
		})
	}
}

func TestStore_SearchGlobalCards(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.EnsureSeeded(ctx); err != nil {
		t.Fatalf("EnsureSeeded() error = %v", err)
	}

	// Global cards match any jurisdiction alongside local ones.
	global := model.Card{
		ID:          "travel_900",
		Name:        "Worldwide Miles Card",
		Category:    model.CategoryTravel,
		Issuer:      "Global Bank",
		AnnualFee:   120,
		RewardsRate: "1 mile per $1",
		Geo:         "global",
	}
	if err := store.Upsert(ctx, global); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := store.Search(ctx, service.SearchCriteria{
		Goals:         []string{"miles"},
		RiskTolerance: model.RiskStandard,
		Jurisdiction:  "US",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	assertIDs(t, got, []string{"travel_900"})

	got, err = store.Search(ctx, service.SearchCriteria{
		Goals:         []string{"miles"},
		RiskTolerance: model.RiskStandard,
		Jurisdiction:  "SG",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	assertIDs(t, got, []string{"travel_001", "travel_002", "travel_900"})
}

func TestStore_Upsert(t *testing.T) {
	tests := []struct {
		name    string
		card    model.Card
		wantErr bool
	}{
		{
			name: "valid card",
			card: model.Card{
				ID:       "test_001",
				Name:     "Test Card",
				Category: model.CategoryGeneral,
			},
			wantErr: false,
		},
		{
			name:    "missing id",
			card:    model.Card{Name: "Test Card", Category: model.CategoryGeneral},
			wantErr: true,
		},
		{
			name:    "missing name",
			card:    model.Card{ID: "test_001", Category: model.CategoryGeneral},
			wantErr: true,
		},
		{
			name:    "missing category",
			card:    model.Card{ID: "test_001", Name: "Test Card"},
			wantErr: true,
		},
		{
			name: "negative annual fee",
			card: model.Card{
				ID:        "test_001",
				Name:      "Test Card",
				Category:  model.CategoryGeneral,
				AnnualFee: -10,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStore(t)
			defer cleanup()

			err := store.Upsert(context.Background(), tt.card)
			if (err != nil) != tt.wantErr {
				t.Errorf("Upsert() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_UpsertPreservesOrder(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.EnsureSeeded(ctx); err != nil {
		t.Fatalf("EnsureSeeded() error = %v", err)
	}

	// Updating the first card must not move it to the end of the catalog.
	updated := DefaultCards()[0]
	updated.AnnualFee = 99
	if err := store.Upsert(ctx, updated); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	cards, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(cards) != 7 {
		t.Fatalf("Expected 7 cards after update, got %d", len(cards))
	}
	if cards[0].ID != "travel_001" {
		t.Errorf("First card = %s, want travel_001", cards[0].ID)
	}
	if cards[0].AnnualFee != 99 {
		t.Errorf("AnnualFee = %v, want 99", cards[0].AnnualFee)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	card, err := store.Get(context.Background(), "nope_001")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if card != nil {
		t.Errorf("Get() = %+v, want nil for unknown id", card)
	}
}

func TestStore_Reset(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.EnsureSeeded(ctx); err != nil {
		t.Fatalf("EnsureSeeded() error = %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d after reset, want 0", count)
	}

	// An empty catalog reseeds on the next EnsureSeeded.
	if err := store.EnsureSeeded(ctx); err != nil {
		t.Fatalf("EnsureSeeded() after reset error = %v", err)
	}
	count, _ = store.Count(ctx)
	if count != 7 {
		t.Errorf("Count() = %d after reseed, want 7", count)
	}
}

func TestLoadSeedFile(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantIDs []string
		wantErr bool
	}{
		{
			name: "valid seed file",
			yaml: `cards:
  - id: custom_001
    name: Custom Travel Card
    category: travel
    issuer: Custom Bank
    annual_fee: 150
    rewards_rate: 2 miles per $1
    signup_bonus: 20,000 miles
    eligibility_tier: excellent
    geo: US
    pros:
      - Strong earn rate
    cons:
      - High fee
  - id: custom_002
    name: Custom Cashback Card
    category: cashback
    issuer: Custom Bank
`,
			wantIDs: []string{"custom_001", "custom_002"},
		},
		{
			name:    "empty file",
			yaml:    "cards: []\n",
			wantErr: true,
		},
		{
			name: "card missing id",
			yaml: `cards:
  - name: Nameless
    category: travel
`,
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "cards: [unclosed\n",
			wantErr: true,
		},
		{
			name: "duplicate card id",
			yaml: `cards:
  - id: custom_001
    name: First Card
    category: travel
  - id: custom_001
    name: Second Card
    category: cashback
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "seed.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0600); err != nil {
				t.Fatalf("Failed to write seed file: %v", err)
			}

			cards, err := LoadSeedFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadSeedFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			assertIDs(t, cards, tt.wantIDs)
			if cards[0].Geo != "US" {
				t.Errorf("Geo = %q, want US", cards[0].Geo)
			}
			// Cards without a geo default to global.
			if cards[1].Geo != "global" {
				t.Errorf("Geo = %q, want global default", cards[1].Geo)
			}
		})
	}
}

func TestTargetCategories(t *testing.T) {
	tests := []struct {
		name     string
		criteria service.SearchCriteria
		want     []string
	}{
		{
			name:     "explicit category wins",
			criteria: service.SearchCriteria{Category: model.CategoryBusiness, Goals: []string{"miles"}},
			want:     []string{model.CategoryBusiness},
		},
		{
			name:     "goals map in order without duplicates",
			criteria: service.SearchCriteria{Goals: []string{"miles", "travel", "cashback", "rewards"}},
			want:     []string{model.CategoryTravel, model.CategoryCashback},
		},
		{
			name:     "unknown goals are skipped",
			criteria: service.SearchCriteria{Goals: []string{"crypto", "student"}},
			want:     []string{model.CategoryStudent},
		},
		{
			name:     "no usable goals default to general",
			criteria: service.SearchCriteria{Goals: []string{"crypto"}},
			want:     []string{model.CategoryGeneral},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := targetCategories(tt.criteria)
			if len(got) != len(tt.want) {
				t.Fatalf("targetCategories() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("targetCategories()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
