package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cardsage/cardsage/internal/common"
	"github.com/cardsage/cardsage/internal/model"
	"github.com/cardsage/cardsage/internal/service"
)

// maxSearchResults caps how many cards a single search returns.
const maxSearchResults = 5

// Fee ceilings applied per risk tolerance. Aggressive accepts any fee.
const (
	conservativeFeeCap = 50.0
	standardFeeCap     = 200.0
)

// goalTargets maps request goals to the catalog category serving them. This
// vocabulary is narrower than the router's: the router decides which handlers
// run, the catalog decides which shelf a goal reads from.
var goalTargets = map[string]string{
	"miles":           model.CategoryTravel,
	"travel":          model.CategoryTravel,
	"airline":         model.CategoryTravel,
	"cashback":        model.CategoryCashback,
	"rewards":         model.CategoryCashback,
	"business":        model.CategoryBusiness,
	"corporate":       model.CategoryBusiness,
	"student":         model.CategoryStudent,
	"building_credit": model.CategoryStudent,
}

// targetCategories resolves the categories a search should cover: the
// explicit category when the caller set one, otherwise the categories the
// goals map to, otherwise the general shelf.
func targetCategories(criteria service.SearchCriteria) []string {
	if criteria.Category != "" {
		return []string{criteria.Category}
	}

	var targets []string
	seen := make(map[string]bool)
	for _, goal := range criteria.Goals {
		category, ok := goalTargets[strings.ToLower(goal)]
		if !ok || seen[category] {
			continue
		}
		seen[category] = true
		targets = append(targets, category)
	}

	if len(targets) == 0 {
		targets = []string{model.CategoryGeneral}
	}
	return targets
}

// feeCap returns the annual-fee ceiling for a risk tolerance. The second
// return is false when no ceiling applies.
func feeCap(risk model.RiskTolerance) (float64, bool) {
	switch risk {
	case model.RiskConservative:
		return conservativeFeeCap, true
	case model.RiskAggressive:
		return 0, false
	default:
		return standardFeeCap, true
	}
}

// Search returns up to maxSearchResults cards matching the criteria, in
// catalog insertion order. Only the risk-tolerance fee cap and the geo filter
// are applied here; scoring against the other constraints is the handlers'
// job.
func (s *Store) Search(ctx context.Context, criteria service.SearchCriteria) ([]model.Card, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	targets := targetCategories(criteria)

	var sb strings.Builder
	sb.WriteString(`
		SELECT id, name, category, issuer, annual_fee, rewards_rate,
		       signup_bonus, eligibility_tier, geo, pros, cons
		FROM cards
		WHERE category IN (?` + strings.Repeat(",?", len(targets)-1) + `)`)

	args := make([]any, 0, len(targets)+3)
	for _, t := range targets {
		args = append(args, t)
	}

	if ceiling, ok := feeCap(criteria.RiskTolerance); ok {
		sb.WriteString(" AND annual_fee <= ?")
		args = append(args, ceiling)
	}

	if criteria.Jurisdiction != "" {
		sb.WriteString(" AND (geo = ? OR geo = 'global')")
		args = append(args, criteria.Jurisdiction)
	}

	sb.WriteString(" ORDER BY rowid LIMIT ?")
	args = append(args, maxSearchResults)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cards, err := scanCards(rows)
	if err != nil {
		return nil, err
	}

	slog.Debug("catalog search",
		"targets", targets,
		"risk_tolerance", criteria.RiskTolerance,
		"jurisdiction", criteria.Jurisdiction,
		"found", len(cards))

	return cards, nil
}

// Get returns a single card by id, or common.ErrNotFound when no card
// carries it.
func (s *Store) Get(ctx context.Context, id string) (*model.Card, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, category, issuer, annual_fee, rewards_rate,
		       signup_bonus, eligibility_tier, geo, pros, cons
		FROM cards
		WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query card: %w", err)
	}
	return card, nil
}

// List returns every card in insertion order.
func (s *Store) List(ctx context.Context) ([]model.Card, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, category, issuer, annual_fee, rewards_rate,
		       signup_bonus, eligibility_tier, geo, pros, cons
		FROM cards
		ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanCards(rows)
}

// Count returns the number of cards in the catalog.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return count, nil
}

// Upsert inserts a card or updates the existing row in place. Updates keep
// the card's original catalog position.
func (s *Store) Upsert(ctx context.Context, card model.Card) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}

	return s.execTx(ctx, func(tx *sql.Tx) error {
		return upsertTx(tx, card)
	})
}

// upsertTx inserts or updates a single card. ON CONFLICT keeps the original
// rowid, so catalog order stays insertion order across re-seeds.
func upsertTx(tx *sql.Tx, card model.Card) error {
	pros, err := encodeList(card.Pros)
	if err != nil {
		return fmt.Errorf("failed to encode pros: %w", err)
	}
	cons, err := encodeList(card.Cons)
	if err != nil {
		return fmt.Errorf("failed to encode cons: %w", err)
	}

	geo := card.Geo
	if geo == "" {
		geo = "global"
	}

	query := `
		INSERT INTO cards (id, name, category, issuer, annual_fee, rewards_rate,
		                   signup_bonus, eligibility_tier, geo, pros, cons)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			issuer = excluded.issuer,
			annual_fee = excluded.annual_fee,
			rewards_rate = excluded.rewards_rate,
			signup_bonus = excluded.signup_bonus,
			eligibility_tier = excluded.eligibility_tier,
			geo = excluded.geo,
			pros = excluded.pros,
			cons = excluded.cons,
			updated_at = CURRENT_TIMESTAMP`

	if _, err := tx.Exec(query,
		card.ID, card.Name, card.Category, card.Issuer, card.AnnualFee,
		card.RewardsRate, card.SignupBonus, card.EligibilityTier, geo,
		pros, cons); err != nil {
		return fmt.Errorf("failed to upsert card %s: %w", card.ID, err)
	}
	return nil
}

func encodeList(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Reset removes every card from the catalog.
func (s *Store) Reset(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM cards"); err != nil {
		return fmt.Errorf("failed to reset catalog: %w", err)
	}
	slog.Info("catalog reset")
	return nil
}

// validateCard checks the fields every catalog row must carry.
func validateCard(card model.Card) error {
	if card.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidCard)
	}
	if card.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCard)
	}
	if card.Category == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidCard)
	}
	if card.AnnualFee < 0 {
		return fmt.Errorf("%w: negative annual fee", ErrInvalidCard)
	}
	return nil
}

// scanner is the subset of sql.Row/sql.Rows needed to hydrate a card.
type scanner interface {
	Scan(dest ...any) error
}

// scanCard hydrates one card row, decoding the JSON pros/cons columns.
func scanCard(row scanner) (*model.Card, error) {
	var card model.Card
	var rewardsRate, signupBonus, eligibility, pros, cons sql.NullString

	if err := row.Scan(&card.ID, &card.Name, &card.Category, &card.Issuer,
		&card.AnnualFee, &rewardsRate, &signupBonus, &eligibility,
		&card.Geo, &pros, &cons); err != nil {
		return nil, err
	}

	card.RewardsRate = rewardsRate.String
	card.SignupBonus = signupBonus.String
	card.EligibilityTier = eligibility.String

	if pros.Valid && pros.String != "" {
		if err := json.Unmarshal([]byte(pros.String), &card.Pros); err != nil {
			return nil, fmt.Errorf("failed to decode pros for %s: %w", card.ID, err)
		}
	}
	if cons.Valid && cons.String != "" {
		if err := json.Unmarshal([]byte(cons.String), &card.Cons); err != nil {
			return nil, fmt.Errorf("failed to decode cons for %s: %w", card.ID, err)
		}
	}

	return &card, nil
}

// scanCards hydrates all rows from a card query.
func scanCards(rows *sql.Rows) ([]model.Card, error) {
	var cards []model.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, *card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}
	return cards, nil
}
