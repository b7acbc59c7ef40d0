package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"shabu-order/internal/realtime"
)

// fakeMenu is an availability table the tests flip at will.
type fakeMenu struct {
	mu    sync.Mutex
	avail map[string]bool
}

func newFakeMenu(avail map[string]bool) *fakeMenu {
	return &fakeMenu{avail: avail}
}

func (f *fakeMenu) set(name string, ok bool) {
	f.mu.Lock()
	f.avail[name] = ok
	f.mu.Unlock()
}

func (f *fakeMenu) Availability(ctx context.Context, names []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(names))
	for _, n := range names {
		if v, ok := f.avail[n]; ok {
			out[n] = v
		}
	}
	return out, nil
}

type fakePub struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (f *fakePub) Publish(evt realtime.Event) {
	f.mu.Lock()
	f.events = append(f.events, evt)
	f.mu.Unlock()
}

func (f *fakePub) byType(t string) []realtime.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []realtime.Event
	for _, e := range f.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeTrail struct {
	mu        sync.Mutex
	placed    []string
	retracted map[string][]string
	statuses  map[string]string
}

func newFakeTrail() *fakeTrail {
	return &fakeTrail{retracted: make(map[string][]string), statuses: make(map[string]string)}
}

func (f *fakeTrail) OrderPlaced(o Order) {
	f.mu.Lock()
	f.placed = append(f.placed, o.ID)
	f.mu.Unlock()
}

func (f *fakeTrail) ItemsRetracted(item string, orderIDs []string) {
	f.mu.Lock()
	f.retracted[item] = append(f.retracted[item], orderIDs...)
	f.mu.Unlock()
}

func (f *fakeTrail) StatusChanged(orderID, status string) {
	f.mu.Lock()
	f.statuses[orderID] = status
	f.mu.Unlock()
}

func newTestLedger(avail map[string]bool) (*Ledger, *fakeMenu, *fakePub, *fakeTrail) {
	m := newFakeMenu(avail)
	p := &fakePub{}
	tr := newFakeTrail()
	return NewLedger(m, p, tr), m, p, tr
}

func TestPlaceRejectsUnavailableItem(t *testing.T) {
	l, _, pub, trail := newTestLedger(map[string]bool{"Tom Yum": true, "Coke": false})

	_, err := l.Place(context.Background(), "5", map[string]int{"Tom Yum": 1, "Coke": 2})
	var oos *OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("expected OutOfStockError, got %v", err)
	}
	if oos.Item != "Coke" {
		t.Fatalf("expected failing item Coke, got %q", oos.Item)
	}
	if got := l.List("", ""); len(got) != 0 {
		t.Fatalf("rejected placement must not store anything, got %d orders", len(got))
	}
	if len(pub.byType(realtime.EventOrderCreated)) != 0 || len(trail.placed) != 0 {
		t.Fatal("rejected placement must not emit events")
	}
}

func TestPlaceRejectsUnknownItem(t *testing.T) {
	l, _, _, _ := newTestLedger(map[string]bool{"Tom Yum": true})

	_, err := l.Place(context.Background(), "5", map[string]int{"Nonexistent": 1})
	var oos *OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("expected OutOfStockError for unknown item, got %v", err)
	}
}

func TestPlaceValidation(t *testing.T) {
	l, _, _, _ := newTestLedger(map[string]bool{"Tom Yum": true})

	cases := []struct {
		name  string
		table string
		items map[string]int
	}{
		{"empty table", "", map[string]int{"Tom Yum": 1}},
		{"nil items", "5", nil},
		{"empty items", "5", map[string]int{}},
		{"zero quantity", "5", map[string]int{"Tom Yum": 0}},
		{"negative quantity", "5", map[string]int{"Tom Yum": -2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Place(context.Background(), tc.table, tc.items)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestPlaceThenListRoundTrip(t *testing.T) {
	l, _, pub, trail := newTestLedger(map[string]bool{"Tom Yum": true, "Coke": true})

	o, err := l.Place(context.Background(), "7", map[string]int{"Tom Yum": 2, "Coke": 1})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if o.Status != StatusPending {
		t.Fatalf("new order status = %q, want pending", o.Status)
	}

	got := l.List("", "7")
	if len(got) != 1 {
		t.Fatalf("ListByTable returned %d orders, want 1", len(got))
	}
	if got[0].ID != o.ID || got[0].Items["Tom Yum"] != 2 || got[0].Items["Coke"] != 1 {
		t.Fatalf("listed order does not match placed order: %+v", got[0])
	}
	if len(pub.byType(realtime.EventOrderCreated)) != 1 {
		t.Fatal("expected one ORDER_CREATED event")
	}
	if len(trail.placed) != 1 || trail.placed[0] != o.ID {
		t.Fatalf("expected audit row for %s, got %v", o.ID, trail.placed)
	}
}

func TestSetStatusDoneIsIdempotent(t *testing.T) {
	l, _, pub, trail := newTestLedger(map[string]bool{"Tom Yum": true})

	o, err := l.Place(context.Background(), "3", map[string]int{"Tom Yum": 1})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	first, err := l.SetStatus(o.ID, StatusDone)
	if err != nil {
		t.Fatalf("first SetStatus: %v", err)
	}
	if first.Status != StatusDone || first.CompletedAt == nil {
		t.Fatalf("first SetStatus result: %+v", first)
	}

	second, err := l.SetStatus(o.ID, StatusDone)
	if err != nil {
		t.Fatalf("second SetStatus must be a no-op success, got %v", err)
	}
	if second.Status != StatusDone || !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Fatalf("second SetStatus changed state: %+v", second)
	}
	if n := len(pub.byType(realtime.EventOrderStatus)); n != 1 {
		t.Fatalf("expected exactly one ORDER_STATUS_CHANGED event, got %d", n)
	}
	if trail.statuses[o.ID] != StatusDone {
		t.Fatal("expected status change propagated to audit trail")
	}
}

func TestSetStatusDoneIsTerminal(t *testing.T) {
	l, _, _, _ := newTestLedger(map[string]bool{"Tom Yum": true})

	o, _ := l.Place(context.Background(), "3", map[string]int{"Tom Yum": 1})
	if _, err := l.SetStatus(o.ID, StatusDone); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := l.SetStatus(o.ID, StatusPending); !errors.Is(err, ErrCompleted) {
		t.Fatalf("reopening a done order: got %v, want ErrCompleted", err)
	}
}

func TestSetStatusUnknownOrder(t *testing.T) {
	l, _, _, _ := newTestLedger(nil)
	if _, err := l.SetStatus("order_404", StatusDone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestClearDoneScopesSession(t *testing.T) {
	l, _, pub, _ := newTestLedger(map[string]bool{"Tom Yum": true})
	ctx := context.Background()

	o1, _ := l.Place(ctx, "5", map[string]int{"Tom Yum": 1})
	o2, _ := l.Place(ctx, "5", map[string]int{"Tom Yum": 2})
	if _, err := l.SetStatus(o1.ID, StatusDone); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	removed, err := l.ClearDone("5", StatusDone)
	if err != nil {
		t.Fatalf("ClearDone: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if len(pub.byType(realtime.EventOrdersCleared)) != 1 {
		t.Fatal("expected ORDERS_CLEARED event")
	}

	// o2 predates the clear, so the new session starts empty
	if got := l.ListSession("5"); len(got) != 0 {
		t.Fatalf("session after clear = %d orders, want 0", len(got))
	}
	// but o2 is still in the ledger for the sales history
	if got := l.List("", "5"); len(got) != 1 || got[0].ID != o2.ID {
		t.Fatalf("ledger after clear = %+v, want only %s", got, o2.ID)
	}

	o3, _ := l.Place(ctx, "5", map[string]int{"Tom Yum": 1})
	got := l.ListSession("5")
	if len(got) != 1 || got[0].ID != o3.ID {
		t.Fatalf("session = %+v, want only %s", got, o3.ID)
	}
}

func TestClearDoneZeroMatchesIsSuccess(t *testing.T) {
	l, _, _, _ := newTestLedger(nil)
	removed, err := l.ClearDone("9", StatusDone)
	if err != nil {
		t.Fatalf("ClearDone with no matches: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}

func TestReconcileDeletesEmptiedOrder(t *testing.T) {
	l, m, pub, trail := newTestLedger(map[string]bool{"Tom Yum": true})
	ctx := context.Background()

	o1, _ := l.Place(ctx, "5", map[string]int{"Tom Yum": 2})

	m.set("Tom Yum", false)
	l.Reconcile("Tom Yum")

	deleted := pub.byType(realtime.EventOrderDeleted)
	if len(deleted) != 1 {
		t.Fatalf("expected one ORDER_DELETED event, got %d", len(deleted))
	}
	if p, ok := deleted[0].Payload.(realtime.IDPayload); !ok || p.ID != o1.ID {
		t.Fatalf("ORDER_DELETED payload = %+v, want id %s", deleted[0].Payload, o1.ID)
	}
	if got := l.List("", "5"); len(got) != 0 {
		t.Fatalf("order with only the retracted item must be deleted, got %+v", got)
	}
	if ids := trail.retracted["Tom Yum"]; len(ids) != 1 || ids[0] != o1.ID {
		t.Fatalf("audit retraction = %v, want [%s]", ids, o1.ID)
	}
}

func TestReconcileKeepsRemainingItems(t *testing.T) {
	l, m, pub, _ := newTestLedger(map[string]bool{"Tom Yum": true, "Coke": true})
	ctx := context.Background()

	o2, _ := l.Place(ctx, "8", map[string]int{"Tom Yum": 1, "Coke": 1})

	m.set("Tom Yum", false)
	l.Reconcile("Tom Yum")

	updated := pub.byType(realtime.EventOrderUpdated)
	if len(updated) != 1 {
		t.Fatalf("expected one ORDER_UPDATED event, got %d", len(updated))
	}
	evt, ok := updated[0].Payload.(Order)
	if !ok {
		t.Fatalf("ORDER_UPDATED payload type %T", updated[0].Payload)
	}
	if len(evt.Items) != 1 || evt.Items["Coke"] != 1 {
		t.Fatalf("event items = %v, want only Coke:1", evt.Items)
	}

	got := l.List("", "8")
	if len(got) != 1 || got[0].ID != o2.ID {
		t.Fatalf("order must stay in the ledger, got %+v", got)
	}
	if len(got[0].Items) != 1 || got[0].Items["Coke"] != 1 {
		t.Fatalf("persisted items = %v, want only Coke:1", got[0].Items)
	}
}

func TestReconcileIgnoresDoneOrders(t *testing.T) {
	l, m, _, _ := newTestLedger(map[string]bool{"Tom Yum": true})
	ctx := context.Background()

	o, _ := l.Place(ctx, "2", map[string]int{"Tom Yum": 1})
	if _, err := l.SetStatus(o.ID, StatusDone); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	m.set("Tom Yum", false)
	l.Reconcile("Tom Yum")

	got := l.List(StatusDone, "2")
	if len(got) != 1 || got[0].Items["Tom Yum"] != 1 {
		t.Fatalf("done orders must not be touched, got %+v", got)
	}
}

func TestPlaceRacingToggleNeverLeaksUnavailableItem(t *testing.T) {
	l, m, _, _ := newTestLedger(map[string]bool{"Tom Yum": true, "Rice": true})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, _ = l.Place(ctx, "5", map[string]int{"Tom Yum": 1, "Rice": 1})
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		// flip first, then reconcile, exactly like the toggle path
		m.set("Tom Yum", false)
		l.Reconcile("Tom Yum")
	}()
	wg.Wait()

	// anything placed after the flip was rejected, anything placed before
	// was stripped: no pending order may still reference the item
	for _, o := range l.List(StatusPending, "") {
		if _, ok := o.Items["Tom Yum"]; ok {
			t.Fatalf("order %s still references the unavailable item", o.ID)
		}
	}
}
