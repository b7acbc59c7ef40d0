package order

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

const (
	StatusPending = "pending"
	StatusDone    = "done"
)

var (
	ErrNotFound = errors.New("order not found")
	// done is terminal: a completed order never goes back to pending
	ErrCompleted = errors.New("order is already done")
)

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// OutOfStockError rejects a placement naming the first unavailable item.
type OutOfStockError struct {
	Item string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("menu item %q is out of stock", e.Item)
}

// Order is a table's request for menu items. Items is keyed by menu item
// name with positive quantities and is never empty while status is pending.
type Order struct {
	ID          string         `json:"id"`
	Table       string         `json:"table"`
	Items       map[string]int `json:"items"`
	Time        time.Time      `json:"time"`
	Status      string         `json:"status"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

func (o *Order) clone() Order {
	cp := *o
	cp.Items = make(map[string]int, len(o.Items))
	for k, v := range o.Items {
		cp.Items[k] = v
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}

var lastMilli atomic.Int64

func nowMilli() int64 {
	for {
		now := time.Now().UnixMilli()
		last := lastMilli.Load()
		if now <= last {
			now = last + 1
		}
		if lastMilli.CompareAndSwap(last, now) {
			return now
		}
	}
}

func newID() string {
	return fmt.Sprintf("order_%d", nowMilli())
}
