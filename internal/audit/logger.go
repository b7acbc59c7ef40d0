package audit

import (
	"context"
	"log"
	"sort"
	"time"

	"shabu-order/internal/order"
)

// CategoryResolver maps item names to their menu category at log time.
type CategoryResolver interface {
	Categories(ctx context.Context, names []string) (map[string]string, error)
}

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Logger turns ledger activity into sink operations on a single background
// goroutine. Enqueueing never blocks; when the queue is full the task is
// dropped and logged, matching the fire-and-forget contract.
type Logger struct {
	sink  Sink
	menu  CategoryResolver
	tasks chan task
}

func NewLogger(sink Sink, menu CategoryResolver, buffer int) *Logger {
	if buffer <= 0 {
		buffer = 64
	}
	return &Logger{sink: sink, menu: menu, tasks: make(chan task, buffer)}
}

// Run drains the task queue until Close. Failures are logged, never retried.
func (l *Logger) Run() {
	for t := range l.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := t.fn(ctx); err != nil {
			log.Printf("[audit] %s failed: %v", t.name, err)
		}
		cancel()
	}
}

func (l *Logger) Close() {
	close(l.tasks)
}

func (l *Logger) enqueue(t task) {
	select {
	case l.tasks <- t:
	default:
		log.Printf("[audit] queue full, dropped %s", t.name)
	}
}

func (l *Logger) OrderPlaced(o order.Order) {
	l.enqueue(task{name: "append rows for " + o.ID, fn: func(ctx context.Context) error {
		names := make([]string, 0, len(o.Items))
		for name := range o.Items {
			names = append(names, name)
		}
		sort.Strings(names)

		categories, err := l.menu.Categories(ctx, names)
		if err != nil {
			// still log the sale, category becomes Unknown
			log.Printf("[audit] category lookup for %s failed: %v", o.ID, err)
			categories = nil
		}
		rows := make([]Row, 0, len(names))
		for _, name := range names {
			category, ok := categories[name]
			if !ok {
				category = "Unknown"
			}
			rows = append(rows, Row{
				Timestamp: o.Time,
				OrderID:   o.ID,
				Table:     o.Table,
				Item:      name,
				Category:  category,
				Quantity:  o.Items[name],
				Status:    o.Status,
			})
		}
		return l.sink.AppendRows(ctx, rows)
	}})
}

func (l *Logger) ItemsRetracted(item string, orderIDs []string) {
	l.enqueue(task{name: "delete rows for " + item, fn: func(ctx context.Context) error {
		return l.sink.DeleteItems(ctx, item, orderIDs)
	}})
}

func (l *Logger) StatusChanged(orderID, status string) {
	l.enqueue(task{name: "update status of " + orderID, fn: func(ctx context.Context) error {
		return l.sink.UpdateStatus(ctx, orderID, status)
	}})
}
