// Package order holds the order ledger: the stock-check gate on placement,
// the pending→done state machine, table session views and the reconciliation
// of pending orders when a menu item goes out of stock.
package order

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shabu-order/internal/realtime"
)

// AvailabilityChecker reports current availability per item name. Names
// that do not resolve to a menu item are absent from the result.
type AvailabilityChecker interface {
	Availability(ctx context.Context, names []string) (map[string]bool, error)
}

// Publisher pushes an event to all live subscribers.
type Publisher interface {
	Publish(evt realtime.Event)
}

// AuditTrail records order activity in the external sales log. All calls
// are best-effort and must not block the caller.
type AuditTrail interface {
	OrderPlaced(o Order)
	ItemsRetracted(item string, orderIDs []string)
	StatusChanged(orderID, status string)
}

// Ledger is the single owner of all orders. One mutex serializes every
// mutation, including the availability check inside Place and the scan in
// Reconcile, which is what makes the stock-check gate race-free against a
// concurrent toggle. Event and audit emissions happen after unlock.
type Ledger struct {
	menu  AvailabilityChecker
	pub   Publisher
	trail AuditTrail

	mu      sync.Mutex
	orders  []*Order
	cleared map[string]time.Time
}

func NewLedger(menu AvailabilityChecker, pub Publisher, trail AuditTrail) *Ledger {
	return &Ledger{
		menu:    menu,
		pub:     pub,
		trail:   trail,
		cleared: make(map[string]time.Time),
	}
}

// Place validates and stores a new pending order. Every item must resolve
// to an available menu item at the instant of placement; otherwise nothing
// is stored and an OutOfStockError names the first failing item.
func (l *Ledger) Place(ctx context.Context, table string, items map[string]int) (*Order, error) {
	if table == "" {
		return nil, &ValidationError{Field: "table"}
	}
	if len(items) == 0 {
		return nil, &ValidationError{Field: "items"}
	}
	names := make([]string, 0, len(items))
	for name, qty := range items {
		if name == "" || qty <= 0 {
			return nil, &ValidationError{Field: "items"}
		}
		names = append(names, name)
	}
	sort.Strings(names) // deterministic "first failing item"

	l.mu.Lock()
	avail, err := l.menu.Availability(ctx, names)
	if err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("stock check: %w", err)
	}
	for _, name := range names {
		if ok := avail[name]; !ok {
			l.mu.Unlock()
			return nil, &OutOfStockError{Item: name}
		}
	}

	owned := make(map[string]int, len(items))
	for name, qty := range items {
		owned[name] = qty
	}
	o := &Order{
		ID:     newID(),
		Table:  table,
		Items:  owned,
		Time:   time.Now().UTC(),
		Status: StatusPending,
	}
	l.orders = append(l.orders, o)
	cp := o.clone()
	l.mu.Unlock()

	l.pub.Publish(realtime.Event{Type: realtime.EventOrderCreated, Payload: cp})
	l.trail.OrderPlaced(cp)
	return &cp, nil
}

// List returns a snapshot filtered by status and/or table. Status-filtered
// views come back newest-first; otherwise orders keep creation order.
func (l *Ledger) List(status, table string) []Order {
	l.mu.Lock()
	out := make([]Order, 0, len(l.orders))
	for _, o := range l.orders {
		if status != "" && o.Status != status {
			continue
		}
		if table != "" && o.Table != table {
			continue
		}
		out = append(out, o.clone())
	}
	l.mu.Unlock()

	if status != "" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	}
	return out
}

// ListSession returns the table's orders placed after its last
// clear-history action, i.e. the diner's current visit.
func (l *Ledger) ListSession(table string) []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	lastClear := l.cleared[table]
	var out []Order
	for _, o := range l.orders {
		if o.Table == table && o.Time.After(lastClear) {
			out = append(out, o.clone())
		}
	}
	return out
}

// SetStatus moves an order pending→done. Setting the current status again
// is an idempotent no-op success; reopening a done order is rejected.
func (l *Ledger) SetStatus(id, status string) (*Order, error) {
	if status != StatusPending && status != StatusDone {
		return nil, &ValidationError{Field: "status"}
	}

	l.mu.Lock()
	o := l.find(id)
	if o == nil {
		l.mu.Unlock()
		return nil, ErrNotFound
	}
	if o.Status == status {
		cp := o.clone()
		l.mu.Unlock()
		return &cp, nil
	}
	if o.Status == StatusDone {
		l.mu.Unlock()
		return nil, ErrCompleted
	}
	o.Status = status
	now := time.Now().UTC()
	o.CompletedAt = &now
	cp := o.clone()
	l.mu.Unlock()

	l.pub.Publish(realtime.Event{Type: realtime.EventOrderStatus, Payload: cp})
	l.trail.StatusChanged(id, status)
	return &cp, nil
}

// ClearDone drops all of the table's orders with the given status and bumps
// the table's clearance timestamp. Zero matches is a success, not an error.
func (l *Ledger) ClearDone(table, status string) (int, error) {
	if table == "" {
		return 0, &ValidationError{Field: "table"}
	}
	if status == "" {
		return 0, &ValidationError{Field: "status"}
	}

	l.mu.Lock()
	kept := l.orders[:0]
	removed := 0
	for _, o := range l.orders {
		if o.Table == table && o.Status == status {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	l.orders = kept
	l.cleared[table] = time.Now().UTC()
	l.mu.Unlock()

	l.pub.Publish(realtime.Event{Type: realtime.EventOrdersCleared, Payload: realtime.ClearedPayload{
		Table:  table,
		Status: status,
	}})
	return removed, nil
}

// Reconcile strips the named item from every pending order. Orders left
// empty are deleted from the ledger. Per-order events are emitted in ledger
// iteration order after the mutation completes; the audit deletions for all
// affected orders go out as one batch.
func (l *Ledger) Reconcile(itemName string) {
	type change struct {
		deletedID string
		updated   *Order
	}

	l.mu.Lock()
	var changes []change
	var affected []string
	kept := l.orders[:0]
	for _, o := range l.orders {
		if o.Status != StatusPending || o.Items[itemName] == 0 {
			kept = append(kept, o)
			continue
		}
		delete(o.Items, itemName)
		affected = append(affected, o.ID)
		if len(o.Items) == 0 {
			changes = append(changes, change{deletedID: o.ID})
			continue // drop from the ledger entirely
		}
		cp := o.clone()
		changes = append(changes, change{updated: &cp})
		kept = append(kept, o)
	}
	l.orders = kept
	l.mu.Unlock()

	for _, ch := range changes {
		if ch.deletedID != "" {
			l.pub.Publish(realtime.Event{Type: realtime.EventOrderDeleted, Payload: realtime.IDPayload{ID: ch.deletedID}})
		} else {
			l.pub.Publish(realtime.Event{Type: realtime.EventOrderUpdated, Payload: *ch.updated})
		}
	}
	if len(affected) > 0 {
		l.trail.ItemsRetracted(itemName, affected)
	}
}

func (l *Ledger) find(id string) *Order {
	for _, o := range l.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}
