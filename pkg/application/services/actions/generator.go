package actions

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

var messageNamespace = uuid.MustParse("0c4f2a5e-8b7d-4f6e-a1c3-5d9e7b2f4a60")

var hundred = decimal.NewFromInt(100)

// Config holds the thresholds below which a difference raises no message
type Config struct {
	RescheduleThresholdDays  int
	QuantityTolerancePercent decimal.Decimal
}

// Input is a freshly computed plan plus the orders already open against it
type Input struct {
	PlannedOrders []*entities.PlannedOrder
	OpenOrders    []*entities.OpenOrder
	Traces        map[entities.PartNumber]*entities.ItemTrace
	Items         map[entities.PartNumber]*entities.ItemPlanningRecord
	Horizon       entities.Horizon
	Today         time.Time
	// Previous are the messages of the last committed plan; unimplemented ones keep their review state
	Previous []*entities.ActionMessage
}

// Generator compares a plan with open orders and suggests changes. It never modifies orders.
type Generator struct {
	config Config
}

func NewGenerator(config Config) *Generator {
	return &Generator{config: config}
}

// Generate returns the action messages ranked by priority (1 = most urgent)
func (g *Generator) Generate(in Input) []*entities.ActionMessage {
	today := entities.TruncateDay(in.Today)

	planned := make(map[groupKey][]*entities.PlannedOrder)
	for _, o := range in.PlannedOrders {
		k := groupKey{o.PartNumber, o.Type}
		planned[k] = append(planned[k], o)
	}
	open := make(map[groupKey][]*entities.OpenOrder)
	for _, o := range in.OpenOrders {
		if !o.QuantityOpen().IsPositive() {
			continue
		}
		k := groupKey{o.PartNumber, o.Type}
		open[k] = append(open[k], o)
	}

	keys := make([]groupKey, 0, len(planned)+len(open))
	seen := make(map[groupKey]bool)
	for _, set := range []map[groupKey]bool{keySet(planned), keySet(open)} {
		for k := range set {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pn != keys[j].pn {
			return keys[i].pn < keys[j].pn
		}
		return keys[i].orderType < keys[j].orderType
	})

	var messages []*entities.ActionMessage
	for _, k := range keys {
		trace, ok := in.Traces[k.pn]
		if !ok {
			continue
		}
		r := &reconciler{
			config:  g.config,
			horizon: in.Horizon,
			today:   today,
			trace:   trace,
			item:    in.Items[k.pn],
			planned: sortedPlanned(planned[k]),
			open:    sortedOpen(open[k]),
		}
		messages = append(messages, r.run()...)
	}

	Rank(messages)
	carryReview(messages, in.Previous)
	return messages
}

type groupKey struct {
	pn        entities.PartNumber
	orderType entities.OrderType
}

func keySet[T any](m map[groupKey][]T) map[groupKey]bool {
	out := make(map[groupKey]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// reconciler works through one part and order type
type reconciler struct {
	config  Config
	horizon entities.Horizon
	today   time.Time
	trace   *entities.ItemTrace
	item    *entities.ItemPlanningRecord
	planned []*entities.PlannedOrder
	open    []*entities.OpenOrder

	usedPlanned map[string]bool
	usedOpen    map[string]bool
	out         []*entities.ActionMessage
}

func (r *reconciler) run() []*entities.ActionMessage {
	r.usedPlanned = make(map[string]bool)
	r.usedOpen = make(map[string]bool)

	r.matchSameBucket()
	r.rescheduleIn()
	r.cancelOrRescheduleOut()
	r.releaseRemaining()
	return r.out
}

// matchSameBucket: an open order already due in the bucket that still needs a planned
// order is short by the planned receipt
func (r *reconciler) matchSameBucket() {
	for _, p := range r.planned {
		for _, o := range r.open {
			if r.usedOpen[o.ID] {
				continue
			}
			idx, ok := r.horizon.IndexOf(o.DueDate)
			if !ok || idx != p.Bucket {
				continue
			}
			r.usedPlanned[p.ID] = true
			r.usedOpen[o.ID] = true

			current := o.QuantityOpen()
			if r.exceedsTolerance(p.ReceiptQuantity, current) {
				suggested := current.Add(p.ReceiptQuantity)
				r.emit(&entities.ActionMessage{
					Type:              entities.ActionAdjustQuantity,
					OrderRef:          o.ID,
					RefKind:           entities.RefOpenOrder,
					OrderType:         o.Type,
					CurrentQuantity:   current,
					SuggestedQuantity: suggested,
					CurrentDate:       o.DueDate,
					SuggestedDate:     o.DueDate,
					Reason:            fmt.Sprintf("bucket %d needs %s more than the %s open", p.Bucket, p.ReceiptQuantity, current),
				})
			}
			r.expediteIfOverdue(o)
			break
		}
	}
}

// rescheduleIn pairs each remaining planned order with the earliest open order due after it
func (r *reconciler) rescheduleIn() {
	for _, p := range r.planned {
		if r.usedPlanned[p.ID] {
			continue
		}
		for _, o := range r.open {
			if r.usedOpen[o.ID] || !o.DueDate.After(p.NeedDate) {
				continue
			}
			r.usedPlanned[p.ID] = true
			r.usedOpen[o.ID] = true

			needDate := p.NeedDate
			if needDate.Before(r.today) {
				needDate = r.today
			}
			late := entities.DaysBetween(needDate, o.DueDate)
			current := o.QuantityOpen()
			if late > r.config.RescheduleThresholdDays {
				r.emit(&entities.ActionMessage{
					Type:              entities.ActionRescheduleIn,
					OrderRef:          o.ID,
					RefKind:           entities.RefOpenOrder,
					OrderType:         o.Type,
					CurrentQuantity:   current,
					SuggestedQuantity: current,
					CurrentDate:       o.DueDate,
					SuggestedDate:     needDate,
					DaysOverdue:       late,
					Reason:            fmt.Sprintf("due %d days after it is needed", late),
				})
				if r.insideLeadTime(needDate) {
					r.emit(&entities.ActionMessage{
						Type:              entities.ActionExpedite,
						OrderRef:          o.ID,
						RefKind:           entities.RefOpenOrder,
						OrderType:         o.Type,
						CurrentQuantity:   current,
						SuggestedQuantity: current,
						CurrentDate:       o.DueDate,
						SuggestedDate:     needDate,
						DaysOverdue:       late,
						Reason:            "new need date is inside the lead time",
					})
				}
			}
			if p.ReceiptQuantity.GreaterThan(current) && r.exceedsTolerance(p.ReceiptQuantity.Sub(current), current) {
				r.emit(&entities.ActionMessage{
					Type:              entities.ActionAdjustQuantity,
					OrderRef:          o.ID,
					RefKind:           entities.RefOpenOrder,
					OrderType:         o.Type,
					CurrentQuantity:   current,
					SuggestedQuantity: p.ReceiptQuantity,
					CurrentDate:       o.DueDate,
					SuggestedDate:     needDate,
					Reason:            fmt.Sprintf("plan needs %s where %s is open", p.ReceiptQuantity, current),
				})
			}
			break
		}
	}
}

// cancelOrRescheduleOut removes supply that the projected balance does not need, latest first
func (r *reconciler) cancelOrRescheduleOut() {
	removed := make([]decimal.Decimal, len(r.trace.Buckets))
	for i := range removed {
		removed[i] = decimal.Zero
	}

	for i := len(r.open) - 1; i >= 0; i-- {
		o := r.open[i]
		if r.usedOpen[o.ID] {
			continue
		}
		due, ok := r.horizon.IndexOf(o.DueDate)
		if !ok || due >= len(r.trace.Buckets) {
			continue
		}
		qty := o.QuantityOpen()

		short := -1
		for b := due; b < len(r.trace.Buckets); b++ {
			bt := r.trace.Buckets[b]
			if bt.EndingBalance.Sub(removed[b]).Sub(qty).LessThan(bt.SafetyStock) {
				short = b
				break
			}
		}

		if short < 0 {
			for b := due; b < len(removed); b++ {
				removed[b] = removed[b].Add(qty)
			}
			r.emit(&entities.ActionMessage{
				Type:              entities.ActionCancelOrder,
				OrderRef:          o.ID,
				RefKind:           entities.RefOpenOrder,
				OrderType:         o.Type,
				CurrentQuantity:   qty,
				SuggestedQuantity: decimal.Zero,
				CurrentDate:       o.DueDate,
				SuggestedDate:     o.DueDate,
				Reason:            "no remaining requirement in the horizon",
			})
			continue
		}

		needDate := r.horizon.NeedDate(short)
		gap := entities.DaysBetween(o.DueDate, needDate)
		if gap > r.config.RescheduleThresholdDays && needDate.After(r.today) {
			for b := due; b < short; b++ {
				removed[b] = removed[b].Add(qty)
			}
			r.emit(&entities.ActionMessage{
				Type:              entities.ActionRescheduleOut,
				OrderRef:          o.ID,
				RefKind:           entities.RefOpenOrder,
				OrderType:         o.Type,
				CurrentQuantity:   qty,
				SuggestedQuantity: qty,
				CurrentDate:       o.DueDate,
				SuggestedDate:     needDate,
				Reason:            fmt.Sprintf("not needed until %s", needDate.Format(time.DateOnly)),
			})
			if r.insideLeadTime(o.DueDate) && !r.insideLeadTime(needDate) {
				r.emit(&entities.ActionMessage{
					Type:              entities.ActionDeExpedite,
					OrderRef:          o.ID,
					RefKind:           entities.RefOpenOrder,
					OrderType:         o.Type,
					CurrentQuantity:   qty,
					SuggestedQuantity: qty,
					CurrentDate:       o.DueDate,
					SuggestedDate:     needDate,
					Reason:            "need moved outside the lead time",
				})
			}
			continue
		}
		r.expediteIfOverdue(o)
	}
}

// releaseRemaining suggests releasing every planned order no open order covers
func (r *reconciler) releaseRemaining() {
	for _, p := range r.planned {
		if r.usedPlanned[p.ID] {
			continue
		}
		r.emit(&entities.ActionMessage{
			Type:              entities.ActionReleaseOrder,
			OrderRef:          p.ID,
			RefKind:           entities.RefPlannedOrder,
			OrderType:         p.Type,
			CurrentQuantity:   decimal.Zero,
			SuggestedQuantity: p.Quantity,
			CurrentDate:       p.ReleaseDate,
			SuggestedDate:     p.ReleaseDate,
			Reason:            fmt.Sprintf("planned %s order for bucket %d", p.Type, p.Bucket),
		})
		if p.PastDue {
			overdue := entities.DaysBetween(p.ReleaseDate, r.today)
			r.emit(&entities.ActionMessage{
				Type:              entities.ActionExpedite,
				OrderRef:          p.ID,
				RefKind:           entities.RefPlannedOrder,
				OrderType:         p.Type,
				CurrentQuantity:   p.Quantity,
				SuggestedQuantity: p.Quantity,
				CurrentDate:       p.ReleaseDate,
				SuggestedDate:     r.today,
				DaysOverdue:       overdue,
				Reason:            fmt.Sprintf("release date passed %d days ago", overdue),
			})
		}
	}
}

func (r *reconciler) expediteIfOverdue(o *entities.OpenOrder) {
	if !o.DueDate.Before(r.today) {
		return
	}
	overdue := entities.DaysBetween(o.DueDate, r.today)
	r.emit(&entities.ActionMessage{
		Type:              entities.ActionExpedite,
		OrderRef:          o.ID,
		RefKind:           entities.RefOpenOrder,
		OrderType:         o.Type,
		CurrentQuantity:   o.QuantityOpen(),
		SuggestedQuantity: o.QuantityOpen(),
		CurrentDate:       o.DueDate,
		SuggestedDate:     r.today,
		DaysOverdue:       overdue,
		Reason:            fmt.Sprintf("past due by %d days", overdue),
	})
}

// insideLeadTime reports whether a date is closer to today than the item's lead time
func (r *reconciler) insideLeadTime(date time.Time) bool {
	lt := 0
	if r.item != nil {
		lt, _ = r.item.LeadTime()
	}
	return entities.DaysBetween(r.today, date) < lt
}

func (r *reconciler) exceedsTolerance(delta, base decimal.Decimal) bool {
	if !base.IsPositive() {
		return delta.IsPositive()
	}
	return delta.Abs().Mul(hundred).Div(base).GreaterThan(r.config.QuantityTolerancePercent)
}

func (r *reconciler) emit(m *entities.ActionMessage) {
	m.PartNumber = r.trace.PartNumber
	r.out = append(r.out, m)
}

func sortedPlanned(orders []*entities.PlannedOrder) []*entities.PlannedOrder {
	out := append([]*entities.PlannedOrder(nil), orders...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].NeedDate.Equal(out[j].NeedDate) {
			return out[i].NeedDate.Before(out[j].NeedDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortedOpen(orders []*entities.OpenOrder) []*entities.OpenOrder {
	out := append([]*entities.OpenOrder(nil), orders...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Rank orders messages by days overdue, then quantity impact, then due date, then part,
// and renumbers Priority from 1
func Rank(messages []*entities.ActionMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if a.DaysOverdue != b.DaysOverdue {
			return a.DaysOverdue > b.DaysOverdue
		}
		if c := a.QuantityDelta().Cmp(b.QuantityDelta()); c != 0 {
			return c > 0
		}
		if !a.SuggestedDate.Equal(b.SuggestedDate) {
			return a.SuggestedDate.Before(b.SuggestedDate)
		}
		if a.PartNumber != b.PartNumber {
			return a.PartNumber < b.PartNumber
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.OrderRef < b.OrderRef
	})
	for i, m := range messages {
		m.Priority = i + 1
	}
}

// carryReview assigns stable ids and keeps the review flag of unimplemented repeats
func carryReview(messages, previous []*entities.ActionMessage) {
	prior := make(map[string]*entities.ActionMessage, len(previous))
	for _, p := range previous {
		if !p.IsImplemented {
			prior[p.Key()] = p
		}
	}
	for _, m := range messages {
		key := m.Key()
		m.ID = uuid.NewSHA1(messageNamespace, []byte(key)).String()
		if p, ok := prior[key]; ok {
			m.ID = p.ID
			m.IsReviewed = p.IsReviewed
		}
	}
}
