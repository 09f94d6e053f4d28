package transactions_sender

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/require"

	models "fin-ledger/models_package"
)

type fakeChannel struct {
	keys     []string
	messages []amqp.Publishing
	err      error
	closed   bool
}

func (c *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.keys = append(c.keys, exchange+"/"+key)
	c.messages = append(c.messages, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{ch: ch, queue: DefaultQueue}

	created := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	tx := &models.Transaction{
		ID: 7, FromUser: "alice", ToUser: "bob",
		FromBank: 1, ToBank: 2,
		FromCardNumber: "1111", ToCardNumber: "2222",
		Amount: 500, CreatedAt: created,
	}
	require.NoError(t, p.Publish(context.Background(), tx))
	require.NoError(t, p.Publish(context.Background(), tx))

	require.Equal(t, []string{"/transactions", "/transactions"}, ch.keys)
	msg := ch.messages[0]
	require.Equal(t, "application/json", msg.ContentType)
	require.Equal(t, amqp.Persistent, msg.DeliveryMode)
	require.Equal(t, created, msg.Timestamp)
	require.NotEmpty(t, msg.MessageId)
	require.NotEqual(t, msg.MessageId, ch.messages[1].MessageId)

	var body Message
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	require.Equal(t, Message{
		ID: 7, FromUser: "alice", ToUser: "bob",
		FromBank: 1, ToBank: 2,
		FromCardNumber: "1111", ToCardNumber: "2222",
		Amount: 500, CreatedAt: created,
	}, body)

	require.NoError(t, p.Close())
	require.True(t, ch.closed)
}

func TestPublishErrors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &Publisher{ch: ch, queue: DefaultQueue}

	err := p.Publish(context.Background(), &models.Transaction{ID: 1})
	require.ErrorContains(t, err, "channel closed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Publish(ctx, &models.Transaction{ID: 2}), context.Canceled)
}
