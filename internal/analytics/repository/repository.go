// Package repository stores form analytics events.
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FormEvent is one stored funnel checkpoint.
type FormEvent struct {
	ID               uuid.UUID
	SessionID        string
	LeadID           *uuid.UUID
	StepReached      int
	Completed        bool
	AbandonedAtStep  *int
	UserAgent        string
	IPAddress        string
	Referrer         string
	TimeSpentSeconds *int
	TestVariant      string
	CreatedAt        time.Time
}

// Repository is the analytics sink.
type Repository interface {
	Insert(ctx context.Context, event FormEvent) error
}

// Postgres writes events to the form_analytics table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (r *Postgres) Insert(ctx context.Context, e FormEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO form_analytics (
			id, session_id, lead_id, step_reached, completed, abandoned_at_step,
			user_agent, ip_address, referrer, time_spent_seconds, test_variant, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		e.ID, e.SessionID, e.LeadID, e.StepReached, e.Completed, e.AbandonedAtStep,
		e.UserAgent, e.IPAddress, e.Referrer, e.TimeSpentSeconds, e.TestVariant, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert form analytics: %w", err)
	}
	return nil
}

// Memory keeps events in process.
type Memory struct {
	mu     sync.Mutex
	events []FormEvent
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Insert(_ context.Context, e FormEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of everything stored so far.
func (m *Memory) Events() []FormEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FormEvent(nil), m.events...)
}
