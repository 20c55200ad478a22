package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gatherly/apiserver/internal/mq"
	"github.com/rs/zerolog"
)

// MailMessage is the JSON payload published to the broker for the worker to
// deliver.
type MailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// QueueNotifier publishes mail messages to a broker queue instead of sending
// directly. A successful publish counts as a successful dispatch.
type QueueNotifier struct {
	broker mq.Broker
	queue  string
	logger zerolog.Logger
}

func NewQueueNotifier(broker mq.Broker, queue string, logger zerolog.Logger) *QueueNotifier {
	return &QueueNotifier{broker: broker, queue: queue, logger: logger}
}

func (n *QueueNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := validateAddress(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	payload, err := json.Marshal(MailMessage{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}

	id, err := n.broker.Publish(ctx, n.queue, payload, map[string]string{"kind": "mail"})
	if err != nil {
		return fmt.Errorf("publish mail message: %w", err)
	}

	n.logger.Info().Str("message_id", id).Str("to", to).Msg("mail message queued")
	return nil
}

// Close releases the underlying broker connection.
func (n *QueueNotifier) Close() error {
	return n.broker.Close()
}
