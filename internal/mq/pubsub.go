package mq

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/gatherly/apiserver/config"
	"google.golang.org/api/option"
)

// PubSubBroker implements Broker over Google Cloud Pub/Sub.
type PubSubBroker struct {
	client             *pubsub.Client
	subscriptionSuffix string
}

func NewPubSubBroker(ctx context.Context, cfg config.PubSubConfig) (*PubSubBroker, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}

	return &PubSubBroker{client: client, subscriptionSuffix: suffix}, nil
}

func (b *PubSubBroker) Publish(ctx context.Context, queue string, body []byte, headers map[string]string) (string, error) {
	if strings.TrimSpace(queue) == "" {
		return "", errors.New("pubsub queue is required")
	}

	topic, err := b.ensureTopic(ctx, queue)
	if err != nil {
		return "", err
	}
	result := topic.Publish(ctx, &pubsub.Message{Data: body, Attributes: headers})
	return result.Get(ctx)
}

func (b *PubSubBroker) Consume(ctx context.Context, queue string, fn ConsumeFunc) error {
	if strings.TrimSpace(queue) == "" {
		return errors.New("pubsub queue is required")
	}

	topic, err := b.ensureTopic(ctx, queue)
	if err != nil {
		return err
	}

	sub, err := b.ensureSubscription(ctx, queue+b.subscriptionSuffix, topic)
	if err != nil {
		return err
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		message := Message{
			ID:      msg.ID,
			Body:    msg.Data,
			Headers: msg.Attributes,
		}
		if err := fn(ctx, message); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (b *PubSubBroker) Close() error {
	return b.client.Close()
}

func (b *PubSubBroker) ensureTopic(ctx context.Context, name string) (*pubsub.Topic, error) {
	topic := b.client.Topic(name)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return b.client.CreateTopic(ctx, name)
	}
	return topic, nil
}

func (b *PubSubBroker) ensureSubscription(ctx context.Context, name string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	sub := b.client.Subscription(name)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return b.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: topic})
	}
	return sub, nil
}
