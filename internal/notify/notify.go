// Package notify delivers outbound email as a best-effort side effect.
// Delivery failures are reported to callers as a flag, never as the failure
// of the operation that triggered them.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gatherly/apiserver/config"
	"github.com/gatherly/apiserver/internal/mq"
	"github.com/rs/zerolog"
)

// Notifier sends one message to one recipient. Implementations make a single
// attempt; there is no retry logic.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New selects a notifier backend from config.
func New(cfg config.Config, logger zerolog.Logger) (Notifier, error) {
	logger = logger.With().Str("component", "notify").Logger()

	switch strings.ToLower(strings.TrimSpace(cfg.Notifier.Backend)) {
	case "", "disabled":
		return &disabledNotifier{logger: logger}, nil
	case "smtp":
		return NewSMTPNotifier(cfg.SMTP, cfg.Notifier.From, logger), nil
	case "resend":
		return NewResendNotifier(cfg.Resend, cfg.Notifier.From, logger), nil
	case "rabbitmq":
		broker, err := mq.NewRabbitMQBroker(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return NewQueueNotifier(broker, cfg.Notifier.Queue, logger), nil
	case "pubsub":
		broker, err := mq.NewPubSubBroker(context.Background(), cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return NewQueueNotifier(broker, cfg.Notifier.Queue, logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier backend %q", cfg.Notifier.Backend)
	}
}

// BestEffort attempts a single delivery bounded by timeout and reports whether
// it succeeded. The attempt runs on a context detached from the request so a
// cancelled request cannot abort it mid-send.
func BestEffort(n Notifier, logger zerolog.Logger, timeout time.Duration, to, subject, body string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := n.Send(ctx, to, subject, body); err != nil {
		logger.Warn().Err(err).Str("to", to).Str("subject", subject).Msg("notification failed")
		return false
	}
	return true
}

type disabledNotifier struct {
	logger zerolog.Logger
}

func (n *disabledNotifier) Send(_ context.Context, to, subject, _ string) error {
	n.logger.Debug().Str("to", to).Str("subject", subject).Msg("notifier disabled, skipping email")
	return nil
}
