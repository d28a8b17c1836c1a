package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
	"github.com/vsinha/mrp-planner/pkg/domain/services"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/events"
)

// Config tunes the reconciler
type Config struct {
	DefaultTolerancePercent decimal.Decimal
	// MaxRetries bounds how often a mutation is retried after a version conflict
	MaxRetries         int
	AutoReleaseMatched bool
}

// OpenLineRequest describes a purchase order line at the moment it is issued
type OpenLineRequest struct {
	ID         string
	POID       string
	LineNumber int
	PartNumber entities.PartNumber
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	// TolerancePercent overrides the configured default when set
	TolerancePercent *decimal.Decimal
}

// Reconciler keeps the three-way match state of purchase order lines. Every mutation reads the
// line, applies the change to a copy and saves it against the version it read; a conflicting
// writer causes a re-read and a fresh attempt.
type Reconciler struct {
	store  repositories.MatchStore
	events events.EventStore
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

func NewReconciler(store repositories.MatchStore, eventStore events.EventStore, config Config, logger zerolog.Logger) *Reconciler {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Reconciler{
		store:  store,
		events: eventStore,
		config: config,
		logger: logger.With().Str("component", "matching").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// OpenLine creates the match record of a newly issued PO line in PENDING_RECEIPT
func (r *Reconciler) OpenLine(ctx context.Context, req OpenLineRequest) (*entities.MatchLine, error) {
	if req.POID == "" || req.LineNumber <= 0 {
		return nil, fmt.Errorf("po id and a positive line number are required: %w", entities.ErrInvalidInput)
	}
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("po quantity must be positive, got %s: %w", req.Quantity, entities.ErrInvalidInput)
	}
	if req.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("unit price cannot be negative, got %s: %w", req.UnitPrice, entities.ErrInvalidInput)
	}

	tolerance := r.config.DefaultTolerancePercent
	if req.TolerancePercent != nil {
		if req.TolerancePercent.IsNegative() {
			return nil, fmt.Errorf("tolerance cannot be negative: %w", entities.ErrInvalidInput)
		}
		tolerance = *req.TolerancePercent
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := r.now()
	line := &entities.MatchLine{
		ID:               id,
		POID:             req.POID,
		LineNumber:       req.LineNumber,
		PartNumber:       req.PartNumber,
		POQuantity:       req.Quantity,
		UnitPrice:        req.UnitPrice,
		POAmount:         req.Quantity.Mul(req.UnitPrice).Round(services.MoneyPlaces),
		TolerancePercent: tolerance,
		Status:           entities.MatchPendingReceipt,
		IsMatchOK:        true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	services.RecomputeTotals(line)

	if err := r.store.SaveLine(ctx, line, 0); err != nil {
		return nil, fmt.Errorf("failed to open match line: %w", err)
	}
	r.logger.Info().Str("match_id", line.ID).Str("po_id", line.POID).Int("line", line.LineNumber).Msg("match line opened")
	return line, nil
}

// GetLine returns the current state of a match line
func (r *Reconciler) GetLine(ctx context.Context, matchID string) (*entities.MatchLine, error) {
	return r.store.GetLine(ctx, matchID)
}

// RecordReceipt adds a goods receipt. A zero amount is valued at the PO unit price.
// Replaying an event key leaves the line unchanged.
func (r *Reconciler) RecordReceipt(ctx context.Context, matchID string, quantity, amount decimal.Decimal, key string) (*entities.MatchLine, error) {
	return r.recordEvent(ctx, matchID, entities.MatchEvent{Kind: entities.EventReceipt, Key: key, Quantity: quantity, Amount: amount})
}

// RecordInvoice adds a vendor invoice. Replaying an event key leaves the line unchanged.
func (r *Reconciler) RecordInvoice(ctx context.Context, matchID string, quantity, amount decimal.Decimal, key string) (*entities.MatchLine, error) {
	return r.recordEvent(ctx, matchID, entities.MatchEvent{Kind: entities.EventInvoice, Key: key, Quantity: quantity, Amount: amount})
}

// ReverseEvent cancels an earlier receipt or invoice; the status is re-derived from what remains
func (r *Reconciler) ReverseEvent(ctx context.Context, matchID, eventID, reason string) (*entities.MatchLine, error) {
	return r.recordEvent(ctx, matchID, entities.MatchEvent{Kind: entities.EventReversal, ReversesID: eventID, Reason: reason})
}

func (r *Reconciler) recordEvent(ctx context.Context, matchID string, ev entities.MatchEvent) (*entities.MatchLine, error) {
	line, err := r.mutate(ctx, matchID, func(line *entities.MatchLine, now time.Time) ([]entities.StatusChange, error) {
		ev := ev
		ev.ID = uuid.NewString()
		change, err := services.ApplyMatchEvent(line, ev, now)
		if err != nil {
			return nil, err
		}
		var changes []entities.StatusChange
		if change != nil {
			changes = append(changes, *change)
		}
		if r.config.AutoReleaseMatched && line.Status == entities.MatchMatched {
			release, err := services.ReleaseForPayment(line, now)
			if err != nil {
				return nil, err
			}
			changes = append(changes, *release)
		}
		return changes, nil
	})
	if errors.Is(err, entities.ErrDuplicateEvent) {
		r.logger.Debug().Str("match_id", matchID).Str("event_key", ev.Key).Msg("duplicate event ignored")
		return r.store.GetLine(ctx, matchID)
	}
	return line, err
}

// ResolveVariance records the resolver's decision and advances the line to READY_TO_PAY
func (r *Reconciler) ResolveVariance(ctx context.Context, matchID string, res entities.Resolution) (*entities.MatchLine, error) {
	return r.mutate(ctx, matchID, func(line *entities.MatchLine, now time.Time) ([]entities.StatusChange, error) {
		return services.ResolveVariance(line, res, now)
	})
}

// ReleaseForPayment moves a MATCHED line to READY_TO_PAY
func (r *Reconciler) ReleaseForPayment(ctx context.Context, matchID string) (*entities.MatchLine, error) {
	return r.mutate(ctx, matchID, single(services.ReleaseForPayment))
}

// MarkPaid closes a READY_TO_PAY line with the payment reference
func (r *Reconciler) MarkPaid(ctx context.Context, matchID, paymentRef string) (*entities.MatchLine, error) {
	if paymentRef == "" {
		return nil, fmt.Errorf("payment reference cannot be empty: %w", entities.ErrInvalidInput)
	}
	return r.mutate(ctx, matchID, single(func(line *entities.MatchLine, now time.Time) (*entities.StatusChange, error) {
		return services.MarkPaid(line, paymentRef, now)
	}))
}

// HeaderStatus is the least advanced status among the lines of a purchase order
func (r *Reconciler) HeaderStatus(ctx context.Context, poID string) (entities.MatchStatus, error) {
	lines, err := r.store.ListByPO(ctx, poID)
	if err != nil {
		return entities.MatchPendingReceipt, err
	}
	status, ok := services.HeaderStatus(lines)
	if !ok {
		return status, fmt.Errorf("purchase order %s: %w", poID, entities.ErrNotFound)
	}
	return status, nil
}

type mutation func(line *entities.MatchLine, now time.Time) ([]entities.StatusChange, error)

func single(fn func(*entities.MatchLine, time.Time) (*entities.StatusChange, error)) mutation {
	return func(line *entities.MatchLine, now time.Time) ([]entities.StatusChange, error) {
		change, err := fn(line, now)
		if err != nil || change == nil {
			return nil, err
		}
		return []entities.StatusChange{*change}, nil
	}
}

func (r *Reconciler) mutate(ctx context.Context, matchID string, fn mutation) (*entities.MatchLine, error) {
	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stored, err := r.store.GetLine(ctx, matchID)
		if err != nil {
			return nil, err
		}
		line := stored.Clone()
		changes, err := fn(line, r.now())
		if err != nil {
			return nil, err
		}

		err = r.store.SaveLine(ctx, line, stored.Version)
		if errors.Is(err, entities.ErrConcurrencyConflict) {
			lastErr = err
			r.logger.Debug().Str("match_id", matchID).Int("attempt", attempt+1).Msg("version conflict, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save match line %s: %w", matchID, err)
		}

		r.publish(line, changes)
		return line, nil
	}
	return nil, fmt.Errorf("match line %s: gave up after %d attempts: %w", matchID, r.config.MaxRetries+1, lastErr)
}

func (r *Reconciler) publish(line *entities.MatchLine, changes []entities.StatusChange) {
	for _, change := range changes {
		event := r.logger.Info().
			Str("match_id", line.ID).
			Str("po_id", line.POID).
			Str("from", change.From.String()).
			Str("to", change.To.String())
		if line.HoldReason != "" {
			event = event.Str("hold_reason", line.HoldReason)
		}
		event.Msg("match status changed")

		if r.events == nil {
			continue
		}
		r.append(events.NewMatchStatusChangedEvent(line, change))
		if change.To == entities.MatchReadyToPay {
			r.append(events.NewMatchReadyToPayEvent(line))
		}
	}
}

func (r *Reconciler) append(e events.Event) {
	if err := r.events.AppendEvent(e.StreamID(), e); err != nil {
		r.logger.Error().Err(err).Str("event", e.Type()).Msg("failed to publish event")
	}
}
