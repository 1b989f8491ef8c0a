// Package distribution turns submissions into priced leads and allocates them
// to buyers, reserving buyer capacity as it goes.
package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	buyerdomain "lead_broker_backend/internal/buyers/domain"
	"lead_broker_backend/internal/geo"
	"lead_broker_backend/internal/leads/domain"
	"lead_broker_backend/internal/leads/estimate"
	"lead_broker_backend/internal/leads/matching"
	"lead_broker_backend/internal/leads/pricing"
	"lead_broker_backend/internal/leads/scoring"
	"lead_broker_backend/platform/logger"
	"lead_broker_backend/platform/phone"

	"github.com/google/uuid"
)

// BuyerSource provides a consistent snapshot of the buyers that can take
// leads. Corrupt records must surface as an error wrapping
// buyerdomain.ErrCorruptBuyer.
type BuyerSource interface {
	Snapshot(ctx context.Context) ([]buyerdomain.Buyer, error)
}

// CapacityLedger is the single entry point that mutates buyer capacity.
// Reserve must be an atomic compare-and-decrement returning
// buyerdomain.ErrCapacityExhausted when the buyer has nothing left.
type CapacityLedger interface {
	Reserve(ctx context.Context, buyerID string) (buyerdomain.Buyer, error)
	Release(ctx context.Context, buyerID string) error
}

// StatusWriter stores the outcome of an allocation.
type StatusWriter interface {
	RecordAllocation(ctx context.Context, allocation domain.Allocation) error
}

// Result carries an allocation plus buyers whose capacity ran out during it.
type Result struct {
	Allocation domain.Allocation
	Exhausted  []buyerdomain.Buyer
}

// Distributor runs qualification and allocation.
type Distributor struct {
	eval    *geo.Evaluator
	matcher *matching.Matcher
	table   pricing.Table
	buyers  BuyerSource
	ledger  CapacityLedger
	writer  StatusWriter
	policy  Policy
	log     *logger.Logger
}

// New creates a Distributor.
func New(
	eval *geo.Evaluator,
	table pricing.Table,
	buyers BuyerSource,
	ledger CapacityLedger,
	writer StatusWriter,
	policy Policy,
	log *logger.Logger,
) *Distributor {
	if log == nil {
		log = logger.Discard()
	}
	return &Distributor{
		eval:    eval,
		matcher: matching.New(eval),
		table:   table,
		buyers:  buyers,
		ledger:  ledger,
		writer:  writer,
		policy:  policy.withDefaults(),
		log:     log,
	}
}

// Policy returns the active selection policy.
func (d *Distributor) Policy() Policy {
	return d.policy
}

// Qualify validates a submission, resolves its trip, and fixes score, tier,
// price and estimate. It returns a *domain.ValidationError before any
// collaborator is contacted when the submission is unusable.
func (d *Distributor) Qualify(ctx context.Context, sub domain.Submission, now time.Time) (domain.Lead, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return domain.Lead{}, err
	}

	trip := d.eval.Trip(ctx,
		geo.Location{Address: sub.OriginAddress, Point: sub.OriginPoint},
		geo.Location{Address: sub.DestinationAddress, Point: sub.DestinationPoint},
	)

	result := scoring.Score(scoring.Input{
		Name:        sub.Name,
		Phone:       sub.Phone,
		Email:       sub.Email,
		Category:    sub.Category,
		Size:        sub.Size,
		Timeline:    sub.Timeline,
		MoveDate:    sub.MoveDate,
		Distance:    trip.Distance,
		SubmittedAt: now,
	})

	category := scoring.NormalizeCategory(sub.Category)
	assignment, err := d.table.Assign(result.Total, category)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("assign tier: %w", err)
	}

	lead := domain.Lead{
		ID:               uuid.New(),
		Name:             sub.Name,
		Email:            sub.Email,
		Phone:            phone.NormalizeE164(sub.Phone),
		Category:         category,
		Size:             scoring.NormalizeSize(sub.Size),
		Timeline:         sub.Timeline,
		MoveDate:         sub.MoveDate,
		SpecialItems:     sub.SpecialItems,
		Origin:           resolvedLocation(trip.Origin),
		Destination:      resolvedLocation(trip.Destination),
		Score:            result.Total,
		ScoreBreakdown:   result.Breakdown,
		Tier:             assignment.Tier,
		PriceCents:       assignment.PriceCents,
		DistanceMiles:    trip.Distance.Miles,
		DistanceFallback: trip.Distance.Fallback,
		Estimate:         estimate.Calculate(sub.Size, trip.Distance, len(sub.SpecialItems)),
		Status:           domain.StatusNew,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return lead, nil
}

// Allocate matches lead against the current buyer pool and reserves capacity
// with up to SelectionCount buyers. A reservation that loses a race reloads
// the pool and re-runs the matcher without the buyers already tried. Finding
// no buyer is not an error; the allocation status is then unmatched.
func (d *Distributor) Allocate(ctx context.Context, lead domain.Lead) (Result, error) {
	want := d.policy.SelectionCount()
	tried := make(map[string]bool)
	res := Result{Allocation: domain.Allocation{
		LeadID:     lead.ID,
		Tier:       lead.Tier,
		PriceCents: lead.PriceCents,
	}}
	alloc := &res.Allocation

	for attempt := 0; attempt < d.policy.MaxAttempts && len(alloc.Buyers) < want; attempt++ {
		snapshot, err := d.buyers.Snapshot(ctx)
		if err != nil {
			d.releaseAll(ctx, alloc.Buyers)
			return Result{}, fmt.Errorf("load buyer pool: %w", err)
		}

		candidates := d.matcher.Match(lead, untried(snapshot, tried))
		if attempt == 0 {
			alloc.Candidates = matching.Ranked(candidates)
		}
		if len(candidates) == 0 {
			break
		}

		conflicted := false
		for _, c := range matching.Select(candidates, want-len(alloc.Buyers)) {
			tried[c.Buyer.ID] = true
			reserved, err := d.ledger.Reserve(ctx, c.Buyer.ID)
			if errors.Is(err, buyerdomain.ErrCapacityExhausted) || errors.Is(err, buyerdomain.ErrNotFound) {
				alloc.Conflicts++
				conflicted = true
				continue
			}
			if err != nil {
				d.releaseAll(ctx, alloc.Buyers)
				return Result{}, fmt.Errorf("reserve buyer %s: %w", c.Buyer.ID, err)
			}
			alloc.Buyers = append(alloc.Buyers, matching.RankedBuyer(c, len(alloc.Buyers)+1))
			if reserved.RemainingCapacity == 0 {
				res.Exhausted = append(res.Exhausted, reserved)
			}
		}
		if !conflicted {
			break
		}
	}

	alloc.Status = domain.StatusUnmatched
	if len(alloc.Buyers) > 0 {
		alloc.Status = domain.StatusDistributed
	}

	if err := d.writer.RecordAllocation(ctx, *alloc); err != nil {
		d.releaseAll(ctx, alloc.Buyers)
		return Result{}, fmt.Errorf("record allocation: %w", err)
	}

	d.log.WithContext(ctx).AllocationDecision(lead.ID.String(), lead.Tier, string(alloc.Status), len(alloc.Candidates), len(alloc.Buyers))
	if alloc.Conflicts > 0 {
		d.log.WithContext(ctx).Info("capacity conflicts resolved", "lead_id", lead.ID.String(), "conflicts", alloc.Conflicts)
	}
	return res, nil
}

// Distribute runs Qualify followed by Allocate.
func (d *Distributor) Distribute(ctx context.Context, sub domain.Submission, now time.Time) (domain.Lead, Result, error) {
	lead, err := d.Qualify(ctx, sub, now)
	if err != nil {
		return domain.Lead{}, Result{}, err
	}
	res, err := d.Allocate(ctx, lead)
	if err != nil {
		return lead, Result{}, err
	}
	lead.Status = res.Allocation.Status
	return lead, res, nil
}

func (d *Distributor) releaseAll(ctx context.Context, buyers []domain.RankedBuyer) {
	for _, b := range buyers {
		if err := d.ledger.Release(context.WithoutCancel(ctx), b.BuyerID); err != nil {
			d.log.WithContext(ctx).Error("failed to release buyer capacity", "buyer_id", b.BuyerID, "error", err)
		}
	}
}

func untried(buyers []buyerdomain.Buyer, tried map[string]bool) []buyerdomain.Buyer {
	if len(tried) == 0 {
		return buyers
	}
	out := make([]buyerdomain.Buyer, 0, len(buyers))
	for _, b := range buyers {
		if !tried[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

func resolvedLocation(res geo.Resolution) geo.Location {
	loc := geo.Location{Address: res.Address}
	if !res.Fallback {
		p := res.Point
		loc.Point = &p
	}
	return loc
}
