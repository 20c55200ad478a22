package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gatherly/apiserver/config"
	"github.com/gatherly/apiserver/internal/mq"
	"github.com/rs/zerolog"
)

// Worker drains queued mail messages from a broker and delivers them through
// a direct sender. Delivery errors nack the message for redelivery.
type Worker struct {
	broker mq.Broker
	sender Notifier
	queue  string
	logger zerolog.Logger
}

// NewWorker builds a worker from config. The notifier backend must be one of
// the broker backends; the direct sender is selected by WorkerSender.
func NewWorker(cfg config.Config, logger zerolog.Logger) (*Worker, error) {
	logger = logger.With().Str("component", "notify-worker").Logger()

	var broker mq.Broker
	var err error
	switch strings.ToLower(strings.TrimSpace(cfg.Notifier.Backend)) {
	case "rabbitmq":
		broker, err = mq.NewRabbitMQBroker(cfg.RabbitMQ)
	case "pubsub":
		broker, err = mq.NewPubSubBroker(context.Background(), cfg.PubSub)
	default:
		return nil, fmt.Errorf("worker requires a broker notifier backend, got %q", cfg.Notifier.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("connect broker: %w", err)
	}

	var sender Notifier
	switch strings.ToLower(strings.TrimSpace(cfg.Notifier.WorkerSender)) {
	case "smtp":
		sender = NewSMTPNotifier(cfg.SMTP, cfg.Notifier.From, logger)
	case "resend":
		sender = NewResendNotifier(cfg.Resend, cfg.Notifier.From, logger)
	default:
		_ = broker.Close()
		return nil, fmt.Errorf("unknown worker sender %q", cfg.Notifier.WorkerSender)
	}

	return &Worker{
		broker: broker,
		sender: sender,
		queue:  cfg.Notifier.Queue,
		logger: logger,
	}, nil
}

// Run consumes until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Str("queue", w.queue).Msg("worker consuming mail messages")
	return w.broker.Consume(ctx, w.queue, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg mq.Message) error {
	var mail MailMessage
	if err := json.Unmarshal(msg.Body, &mail); err != nil {
		// Undecodable messages are dropped; redelivery cannot fix them.
		w.logger.Error().Err(err).Str("message_id", msg.ID).Msg("dropping malformed mail message")
		return nil
	}

	if err := w.sender.Send(ctx, mail.To, mail.Subject, mail.Body); err != nil {
		w.logger.Warn().Err(err).Str("message_id", msg.ID).Str("to", mail.To).Msg("mail delivery failed")
		return err
	}
	return nil
}

// Close releases the broker connection.
func (w *Worker) Close() error {
	return w.broker.Close()
}
