package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/testbed-portal/discovery-finder/pkg/logger"
)

// RabbitTransport announces new snapshots and turns refresh requests from
// other services into calls of OnRefresh.
type RabbitTransport struct {
	Url       string
	Prefix    string
	OnRefresh func(ctx context.Context) error
	conn      *amqp.Connection
}

// Connect dials the broker and declares both topics. On error nothing is
// left open and the transport stays unconnected.
func (t *RabbitTransport) Connect() error {
	conn, err := amqp.DialConfig(t.Url, amqp.Config{
		Properties: amqp.NewConnectionProperties(),
	})
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	if err := t.setup(conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn().Str("component", "messaging").Err(closeErr).Msg("closing rabbitmq connection")
		}
		return err
	}
	t.conn = conn
	return nil
}

func (t *RabbitTransport) setup(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	for _, topic := range []ChangeTopic{RefreshRequested, SnapshotUpdated} {
		if err := DefineTopic(ch, t.Prefix, topic); err != nil {
			ch.Close()
			return fmt.Errorf("define topic %s: %w", topic, err)
		}
	}
	if t.OnRefresh == nil {
		return ch.Close()
	}
	if err := ListenToTopic(ch, t.Prefix, RefreshRequested, func(d amqp.Delivery) error {
		return t.OnRefresh(context.Background())
	}); err != nil {
		ch.Close()
		return err
	}
	logger.Info().Str("component", "messaging").Msg("listening for refresh requests")
	return nil
}

// Notify publishes on the snapshot_updated topic.
func (t *RabbitTransport) Notify(ctx context.Context, data any) error {
	if t.conn == nil {
		return amqp.ErrClosed
	}
	return SendChange(ctx, t.conn, t.Prefix, SnapshotUpdated, data)
}

func (t *RabbitTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
