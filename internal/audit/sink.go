// Package audit is the best-effort external sales log. Rows are appended
// for every placed order; retractions and status changes propagate to rows
// already written. Nothing here is retried and no failure ever reaches the
// request that triggered it.
package audit

import (
	"context"
	"time"
)

// Row is one line item of a placed order in the external ledger.
type Row struct {
	Timestamp time.Time `json:"timestamp"`
	OrderID   string    `json:"order_id"`
	Table     string    `json:"table"`
	Item      string    `json:"item"`
	Category  string    `json:"category"`
	Quantity  int       `json:"quantity"`
	Status    string    `json:"status"`
}

type Sink interface {
	AppendRows(ctx context.Context, rows []Row) error
	// DeleteItems removes the rows matching (orderID, item) for every given
	// order in one batch.
	DeleteItems(ctx context.Context, item string, orderIDs []string) error
	UpdateStatus(ctx context.Context, orderID, status string) error
}

// Discard is the sink used when no AMQP broker is configured or reachable.
type Discard struct{}

func (Discard) AppendRows(context.Context, []Row) error             { return nil }
func (Discard) DeleteItems(context.Context, string, []string) error { return nil }
func (Discard) UpdateStatus(context.Context, string, string) error  { return nil }
