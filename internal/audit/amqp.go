package audit

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSink publishes sales-log operations as JSON messages on a durable
// queue; a downstream consumer applies them to the spreadsheet. Publishing
// is at-most-once from this side: a nack or broken channel is the caller's
// (logged, dropped) problem.
type AMQPSink struct {
	ch    *amqp.Channel
	queue string
}

func NewAMQPSink(conn *amqp.Connection, queue string) (*AMQPSink, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &AMQPSink{ch: ch, queue: queue}, nil
}

type envelope struct {
	Op       string   `json:"op"`
	Rows     []Row    `json:"rows,omitempty"`
	Item     string   `json:"item,omitempty"`
	OrderIDs []string `json:"order_ids,omitempty"`
	OrderID  string   `json:"order_id,omitempty"`
	Status   string   `json:"status,omitempty"`
}

func (s *AMQPSink) publish(ctx context.Context, env envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (s *AMQPSink) AppendRows(ctx context.Context, rows []Row) error {
	return s.publish(ctx, envelope{Op: "append", Rows: rows})
}

func (s *AMQPSink) DeleteItems(ctx context.Context, item string, orderIDs []string) error {
	return s.publish(ctx, envelope{Op: "delete_items", Item: item, OrderIDs: orderIDs})
}

func (s *AMQPSink) UpdateStatus(ctx context.Context, orderID, status string) error {
	return s.publish(ctx, envelope{Op: "update_status", OrderID: orderID, Status: status})
}
