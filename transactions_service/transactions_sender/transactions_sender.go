package transactions_sender

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	models "fin-ledger/models_package"
)

// DefaultQueue is the queue posted transactions are sent to.
const DefaultQueue = "transactions"

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends every stored transaction to a RabbitMQ queue as JSON.
type Publisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    channel
	queue string
}

// Dial connects to RabbitMQ and declares the queue.
func Dial(url, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring queue %q: %w", queue, err)
	}

	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

// Message is the body of a published transaction.
type Message struct {
	ID             int64     `json:"id"`
	FromUser       string    `json:"from_user"`
	ToUser         string    `json:"to_user"`
	FromBank       int64     `json:"from_bank"`
	ToBank         int64     `json:"to_bank"`
	FromCardNumber string    `json:"from_card_number"`
	ToCardNumber   string    `json:"to_card_number"`
	Amount         int64     `json:"amount"`
	CreatedAt      time.Time `json:"created_at"`
}

func newPublishing(transaction *models.Transaction) (amqp.Publishing, error) {
	body, err := json.Marshal(Message{
		ID:             transaction.ID,
		FromUser:       transaction.FromUser,
		ToUser:         transaction.ToUser,
		FromBank:       transaction.FromBank,
		ToBank:         transaction.ToBank,
		FromCardNumber: transaction.FromCardNumber,
		ToCardNumber:   transaction.ToCardNumber,
		Amount:         transaction.Amount,
		CreatedAt:      transaction.CreatedAt,
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encoding transaction: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    transaction.CreatedAt,
		Type:         "transaction.created",
		Body:         body,
	}, nil
}

// Publish sends transaction on the default exchange, routed by queue name.
func (p *Publisher) Publish(ctx context.Context, transaction *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := newPublishing(transaction)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Publish("", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publishing transaction %d: %w", transaction.ID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
