package messaging

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/testbed-portal/discovery-finder/pkg/logger"
)

func DeclareBindAndConsume(ch *amqp.Channel, prefix string, topic ChangeTopic) (<-chan amqp.Delivery, error) {
	name := getName(prefix, topic)
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	err = ch.QueueBind(q.Name, name, name, false, nil)
	if err != nil {
		return nil, err
	}
	return ch.Consume(
		q.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
}

// ListenToTopic handles deliveries in the background until the channel
// closes. A delivery whose handler fails is rejected without requeue.
func ListenToTopic(ch *amqp.Channel, prefix string, topic ChangeTopic, handler func(amqp.Delivery) error) error {
	fc, err := DeclareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return err
	}

	go func(msgs <-chan amqp.Delivery) {
		defer ch.Close()
		for d := range msgs {
			if err := handler(d); err != nil {
				logger.Error().Str("component", "messaging").Str("topic", string(topic)).Err(err).Msg("error processing message")
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
		}
	}(fc)
	return nil
}
