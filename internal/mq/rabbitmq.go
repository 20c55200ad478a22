package mq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/gatherly/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQBroker implements Broker over a RabbitMQ connection/channel pair.
type RabbitMQBroker struct {
	conn          *amqp.Connection
	channel       *amqp.Channel
	durable       bool
	autoDelete    bool
	prefetchCount int
}

func NewRabbitMQBroker(cfg config.RabbitMQConfig) (*RabbitMQBroker, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	return &RabbitMQBroker{
		conn:          conn,
		channel:       ch,
		durable:       cfg.QueueDurable,
		autoDelete:    cfg.QueueAutoDelete,
		prefetchCount: cfg.PrefetchCount,
	}, nil
}

func (b *RabbitMQBroker) Publish(ctx context.Context, queue string, body []byte, headers map[string]string) (string, error) {
	if strings.TrimSpace(queue) == "" {
		return "", errors.New("rabbitmq queue is required")
	}

	if _, err := b.declareQueue(queue); err != nil {
		return "", err
	}

	table := amqp.Table{}
	for key, value := range headers {
		table[key] = value
	}

	messageID := newMessageID()
	err := b.channel.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   messageID,
		Headers:     table,
		Body:        body,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

func (b *RabbitMQBroker) Consume(ctx context.Context, queue string, fn ConsumeFunc) error {
	if strings.TrimSpace(queue) == "" {
		return errors.New("rabbitmq queue is required")
	}

	if _, err := b.declareQueue(queue); err != nil {
		return err
	}

	consumerTag := fmt.Sprintf("consumer-%s", newMessageID())
	deliveries, err := b.channel.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = b.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			msg := Message{
				ID:      delivery.MessageId,
				Body:    delivery.Body,
				Headers: tableToHeaders(delivery.Headers),
			}
			if err := fn(ctx, msg); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (b *RabbitMQBroker) Close() error {
	if b.channel != nil {
		_ = b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func (b *RabbitMQBroker) declareQueue(name string) (amqp.Queue, error) {
	return b.channel.QueueDeclare(name, b.durable, b.autoDelete, false, false, nil)
}

func tableToHeaders(table amqp.Table) map[string]string {
	if len(table) == 0 {
		return nil
	}
	headers := make(map[string]string, len(table))
	for key, value := range table {
		switch typed := value.(type) {
		case string:
			headers[key] = typed
		case []byte:
			headers[key] = string(typed)
		default:
			headers[key] = fmt.Sprint(value)
		}
	}
	return headers
}

func newMessageID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
