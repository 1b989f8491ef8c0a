package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lead_broker_backend/internal/buyers/domain"
	"lead_broker_backend/internal/geo"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const buyerColumns = `
	id, company_name, contact_email, COALESCE(contact_phone, ''), COALESCE(base_address, ''),
	center_lat, center_lon, COALESCE(radius_miles, 0), max_trip_miles,
	regions, accepted_tiers, specialties,
	capacity, remaining_capacity, active,
	rating, response_time_mins, conversion_rate,
	created_at, updated_at`

// Postgres stores buyers in the buyers table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a pgx-backed buyer store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (r *Postgres) List(ctx context.Context, filter domain.Filter) ([]domain.Buyer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+buyerColumns+`
		FROM buyers
		WHERE ($1::boolean IS NULL OR active = $1)
			AND ($2::text = '' OR accepted_tiers ? $2)
			AND ($3::text = '' OR EXISTS (
				SELECT 1 FROM jsonb_array_elements_text(regions) AS region
				WHERE lower(region) = lower($3)
			))
		ORDER BY id ASC
	`, filter.Active, filter.Tier, filter.Region)
	if err != nil {
		return nil, fmt.Errorf("list buyers: %w", err)
	}
	return collectBuyers(rows)
}

func (r *Postgres) Snapshot(ctx context.Context) ([]domain.Buyer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+buyerColumns+`
		FROM buyers
		WHERE active AND remaining_capacity > 0
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load buyer snapshot: %w", err)
	}
	buyers, err := collectBuyers(rows)
	if err != nil {
		return nil, err
	}
	for _, b := range buyers {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}
	return buyers, nil
}

func (r *Postgres) Get(ctx context.Context, id string) (domain.Buyer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE id = $1`, id)
	b, err := scanBuyer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Buyer{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Postgres) InsertIfAbsent(ctx context.Context, b domain.Buyer) (bool, error) {
	regions, tiers, specialties, err := marshalLists(b)
	if err != nil {
		return false, err
	}
	var lat, lon *float64
	if b.ServiceArea.Center != nil {
		lat, lon = &b.ServiceArea.Center.Lat, &b.ServiceArea.Center.Lon
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO buyers (
			id, company_name, contact_email, contact_phone, base_address,
			center_lat, center_lon, radius_miles, max_trip_miles,
			regions, accepted_tiers, specialties,
			capacity, remaining_capacity, active,
			rating, response_time_mins, conversion_rate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO NOTHING
	`,
		b.ID, b.CompanyName, b.ContactEmail, b.ContactPhone, b.BaseAddress,
		lat, lon, b.ServiceArea.RadiusMiles, b.ServiceArea.MaxTripMiles,
		regions, tiers, specialties,
		b.Capacity, b.RemainingCapacity, b.Active,
		b.Rating, b.ResponseTimeMins, b.ConversionRate,
	)
	if err != nil {
		return false, fmt.Errorf("insert buyer %s: %w", b.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Reserve relies on the row lock taken by UPDATE: concurrent reservations
// against the same buyer serialize, and the WHERE clause is re-evaluated
// against the committed row, so capacity never goes below zero.
func (r *Postgres) Reserve(ctx context.Context, id string) (domain.Buyer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE buyers
		SET remaining_capacity = remaining_capacity - 1,
			active = remaining_capacity - 1 > 0,
			capacity_exhausted = remaining_capacity - 1 = 0,
			updated_at = now()
		WHERE id = $1 AND active AND remaining_capacity > 0
		RETURNING `+buyerColumns, id)
	b, err := scanBuyer(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Buyer{}, fmt.Errorf("reserve buyer %s: %w", id, err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM buyers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return domain.Buyer{}, fmt.Errorf("reserve buyer %s: %w", id, err)
	}
	if !exists {
		return domain.Buyer{}, domain.ErrNotFound
	}
	return domain.Buyer{}, domain.ErrCapacityExhausted
}

func (r *Postgres) Release(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE buyers
		SET active = active OR capacity_exhausted,
			capacity_exhausted = FALSE,
			remaining_capacity = LEAST(remaining_capacity + 1, capacity),
			updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("release buyer %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Postgres) ListMissingCenter(ctx context.Context, limit int) ([]domain.Buyer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+buyerColumns+`
		FROM buyers
		WHERE (center_lat IS NULL OR center_lon IS NULL)
			AND COALESCE(base_address, '') <> ''
		ORDER BY id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list buyers without center: %w", err)
	}
	return collectBuyers(rows)
}

func (r *Postgres) SetCenter(ctx context.Context, id string, center geo.Point) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE buyers SET center_lat = $2, center_lon = $3, updated_at = now()
		WHERE id = $1
	`, id, center.Lat, center.Lon)
	if err != nil {
		return fmt.Errorf("set buyer center %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectBuyers(rows pgx.Rows) ([]domain.Buyer, error) {
	defer rows.Close()

	buyers := make([]domain.Buyer, 0)
	for rows.Next() {
		b, err := scanBuyer(rows)
		if err != nil {
			return nil, err
		}
		buyers = append(buyers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buyers: %w", err)
	}
	return buyers, nil
}

func scanBuyer(row pgx.Row) (domain.Buyer, error) {
	var (
		b                           domain.Buyer
		lat, lon                    *float64
		regions, tiers, specialties []byte
	)
	err := row.Scan(
		&b.ID, &b.CompanyName, &b.ContactEmail, &b.ContactPhone, &b.BaseAddress,
		&lat, &lon, &b.ServiceArea.RadiusMiles, &b.ServiceArea.MaxTripMiles,
		&regions, &tiers, &specialties,
		&b.Capacity, &b.RemainingCapacity, &b.Active,
		&b.Rating, &b.ResponseTimeMins, &b.ConversionRate,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return domain.Buyer{}, err
	}

	switch {
	case lat != nil && lon != nil:
		b.ServiceArea.Center = &geo.Point{Lat: *lat, Lon: *lon}
	case lat != nil || lon != nil:
		return domain.Buyer{}, fmt.Errorf("%w: buyer %s has a partial center", domain.ErrCorruptBuyer, b.ID)
	}

	if err := unmarshalList(regions, &b.ServiceArea.Regions); err != nil {
		return domain.Buyer{}, fmt.Errorf("%w: buyer %s regions: %v", domain.ErrCorruptBuyer, b.ID, err)
	}
	if err := unmarshalList(tiers, &b.AcceptedTiers); err != nil {
		return domain.Buyer{}, fmt.Errorf("%w: buyer %s accepted tiers: %v", domain.ErrCorruptBuyer, b.ID, err)
	}
	if err := unmarshalList(specialties, &b.Specialties); err != nil {
		return domain.Buyer{}, fmt.Errorf("%w: buyer %s specialties: %v", domain.ErrCorruptBuyer, b.ID, err)
	}
	return b, nil
}

func unmarshalList(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		*dst = nil
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func marshalLists(b domain.Buyer) (regions, tiers, specialties []byte, err error) {
	if regions, err = json.Marshal(nonNil(b.ServiceArea.Regions)); err != nil {
		return nil, nil, nil, err
	}
	if tiers, err = json.Marshal(nonNil(b.AcceptedTiers)); err != nil {
		return nil, nil, nil, err
	}
	if specialties, err = json.Marshal(nonNil(b.Specialties)); err != nil {
		return nil, nil, nil, err
	}
	return regions, tiers, specialties, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

var _ Repository = (*Postgres)(nil)
