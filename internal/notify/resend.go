package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherly/apiserver/config"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// ResendNotifier delivers mail through the Resend API.
type ResendNotifier struct {
	client *resend.Client
	from   string
	logger zerolog.Logger
}

func NewResendNotifier(cfg config.ResendConfig, from string, logger zerolog.Logger) *ResendNotifier {
	return &ResendNotifier{
		client: resend.NewClient(cfg.APIKey),
		from:   from,
		logger: logger,
	}
}

func (n *ResendNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := validateAddress(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	sent, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			n.logger.Warn().
				Str("limit", rateLimitErr.Limit).
				Str("reset", rateLimitErr.Reset).
				Msg("resend rate limit exceeded")
		}
		return fmt.Errorf("resend API error: %w", err)
	}

	n.logger.Info().Str("email_id", sent.Id).Str("to", to).Msg("email sent via Resend")
	return nil
}
