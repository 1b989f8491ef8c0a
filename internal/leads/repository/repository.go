package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lead_broker_backend/internal/geo"
	"lead_broker_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `
	l.id, l.name, l.email, l.phone, l.category, l.size, l.timeline, l.move_date, l.special_items,
	l.origin_address, l.destination_address, l.origin_lat, l.origin_lon, l.destination_lat, l.destination_lon,
	l.distance_miles, l.distance_fallback, l.score, l.score_breakdown, l.tier, l.price_cents, l.estimate,
	l.status, l.created_at, l.updated_at`

// Repository is the Postgres lead store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a pgx-backed lead store.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, lead domain.Lead) error {
	items, err := json.Marshal(nonNil(lead.SpecialItems))
	if err != nil {
		return fmt.Errorf("marshal special items: %w", err)
	}
	breakdown, err := json.Marshal(lead.ScoreBreakdown)
	if err != nil {
		return fmt.Errorf("marshal score breakdown: %w", err)
	}
	estimate, err := json.Marshal(lead.Estimate)
	if err != nil {
		return fmt.Errorf("marshal estimate: %w", err)
	}
	oLat, oLon := pointArgs(lead.Origin.Point)
	dLat, dLon := pointArgs(lead.Destination.Point)

	_, err = r.pool.Exec(ctx, `
		INSERT INTO leads (
			id, name, email, phone, category, size, timeline, move_date, special_items,
			origin_address, destination_address, origin_lat, origin_lon, destination_lat, destination_lon,
			distance_miles, distance_fallback, score, score_breakdown, tier, price_cents, estimate,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Category, lead.Size, lead.Timeline, lead.MoveDate, items,
		lead.Origin.Address, lead.Destination.Address, oLat, oLon, dLat, dLon,
		lead.DistanceMiles, lead.DistanceFallback, lead.Score, breakdown, lead.Tier, lead.PriceCents, estimate,
		string(lead.Status), lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads l WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	args = append(args, params.Limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM leads l
		WHERE %s
		ORDER BY %s %s, l.id ASC
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, mapLeadSortColumn(params.SortBy), sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	leads, err := collectLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func (r *Repository) ListAllocations(ctx context.Context, leadID uuid.UUID) ([]domain.RankedBuyer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.buyer_id, b.company_name, b.contact_email, a.rank, a.distance_miles
		FROM lead_allocations a
		JOIN buyers b ON b.id = a.buyer_id
		WHERE a.lead_id = $1
		ORDER BY a.rank ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.RankedBuyer, 0)
	for rows.Next() {
		var b domain.RankedBuyer
		if err := rows.Scan(&b.BuyerID, &b.CompanyName, &b.ContactEmail, &b.Rank, &b.CenterMiles); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) ListUnmatched(ctx context.Context, limit int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads l
		WHERE l.status = $1
		ORDER BY l.created_at ASC, l.id ASC
		LIMIT $2
	`, string(domain.StatusUnmatched), limit)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

func (r *Repository) RecordAllocation(ctx context.Context, alloc domain.Allocation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM leads WHERE id = $1 FOR UPDATE`, alloc.LeadID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !allocationAllowed(domain.Status(current), alloc.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, alloc.Status)
	}

	if _, err := tx.Exec(ctx, `UPDATE leads SET status = $2, updated_at = now() WHERE id = $1`, alloc.LeadID, string(alloc.Status)); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, b := range alloc.Buyers {
		batch.Queue(`
			INSERT INTO lead_allocations (id, lead_id, buyer_id, rank, price_cents, distance_miles)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (lead_id, buyer_id) DO NOTHING
		`, uuid.New(), alloc.LeadID, b.BuyerID, b.Rank, alloc.PriceCents, b.CenterMiles)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert allocations: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM leads WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}
	if !domain.CanTransition(domain.Status(current), status) {
		return domain.Lead{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	lead, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads l SET status = $2, updated_at = now()
		WHERE l.id = $1
		RETURNING `+leadColumns, id, string(status)))
	if err != nil {
		return domain.Lead{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

func (r *Repository) ExpireStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	statuses := make([]string, len(expirable))
	for i, s := range expirable {
		statuses[i] = string(s)
	}
	rows, err := r.pool.Query(ctx, `
		UPDATE leads SET status = $1, updated_at = now()
		WHERE status = ANY($2) AND created_at < $3
		RETURNING id
	`, string(domain.StatusExpired), statuses, cutoff)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	whereClauses := []string{"TRUE"}
	args := []interface{}{}
	argIdx := 1

	addEquals := func(column string, value interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Status != nil {
		addEquals("l.status", string(*params.Status))
	}
	if params.Tier != "" {
		addEquals("l.tier", params.Tier)
	}
	if params.Category != "" {
		addEquals("l.category", params.Category)
	}
	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(l.name ILIKE $%d OR l.email ILIKE $%d OR l.phone ILIKE $%d OR l.origin_address ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx,
		))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func mapLeadSortColumn(sortBy string) string {
	switch sortBy {
	case "score":
		return "l.score"
	case "price":
		return "l.price_cents"
	case "distance":
		return "l.distance_miles"
	case "status":
		return "l.status"
	default:
		return "l.created_at"
	}
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()
	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead                   domain.Lead
		status                 string
		items, breakdown, est  []byte
		oLat, oLon, dLat, dLon *float64
	)
	if err := row.Scan(
		&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.Category, &lead.Size, &lead.Timeline, &lead.MoveDate, &items,
		&lead.Origin.Address, &lead.Destination.Address, &oLat, &oLon, &dLat, &dLon,
		&lead.DistanceMiles, &lead.DistanceFallback, &lead.Score, &breakdown, &lead.Tier, &lead.PriceCents, &est,
		&status, &lead.CreatedAt, &lead.UpdatedAt,
	); err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.Status(status)
	lead.Origin.Point = pointFrom(oLat, oLon)
	lead.Destination.Point = pointFrom(dLat, dLon)

	if err := json.Unmarshal(items, &lead.SpecialItems); err != nil {
		return domain.Lead{}, fmt.Errorf("decode special items for lead %s: %w", lead.ID, err)
	}
	if err := json.Unmarshal(breakdown, &lead.ScoreBreakdown); err != nil {
		return domain.Lead{}, fmt.Errorf("decode score breakdown for lead %s: %w", lead.ID, err)
	}
	if err := json.Unmarshal(est, &lead.Estimate); err != nil {
		return domain.Lead{}, fmt.Errorf("decode estimate for lead %s: %w", lead.ID, err)
	}
	return lead, nil
}

func pointArgs(p *geo.Point) (*float64, *float64) {
	if p == nil {
		return nil, nil
	}
	return &p.Lat, &p.Lon
}

func pointFrom(lat, lon *float64) *geo.Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &geo.Point{Lat: *lat, Lon: *lon}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
