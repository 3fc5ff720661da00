// Package events publishes ledger events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExpenseMaterialized is the body of an expense.materialized message.
type ExpenseMaterialized struct {
	ExpenseID   string          `json:"expense_id"`
	RecurringID string          `json:"recurring_id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	SpentAt     domain.Date     `json:"spent_at"`
	Period      string          `json:"period"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Channel is the subset of *amqp091.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends events to a topic exchange.
type Publisher struct {
	conn       *amqp091.Connection
	channel    Channel
	exchange   string
	routingKey string
	logger     *zap.Logger
	now        func() time.Time
}

// Dial connects to RabbitMQ and declares the exchange.
func Dial(url, exchange, routingKey string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p := NewPublisher(ch, exchange, routingKey, logger)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an already-open channel.
func NewPublisher(ch Channel, exchange, routingKey string, logger *zap.Logger) *Publisher {
	return &Publisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
		now:        time.Now,
	}
}

// PublishExpenseMaterialized announces an expense generated from a template.
func (p *Publisher) PublishExpenseMaterialized(ctx context.Context, e *domain.Expense) error {
	msg := ExpenseMaterialized{
		ExpenseID: e.ID,
		UserID:    e.UserID,
		Amount:    e.Amount,
		SpentAt:   e.SpentAt,
		Timestamp: p.now().UTC(),
	}
	if e.RecurringID != nil {
		msg.RecurringID = *e.RecurringID
	}
	if e.RecurringPeriod != nil {
		msg.Period = *e.RecurringPeriod
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,   // exchange
		p.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    e.ID,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.logger.Debug("published expense.materialized",
		zap.String("expense_id", e.ID),
		zap.String("recurring_id", msg.RecurringID),
		zap.String("exchange", p.exchange),
	)
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishExpenseMaterialized(context.Context, *domain.Expense) error { return nil }
