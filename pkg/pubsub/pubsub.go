package pubsub

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Client wraps a Google Cloud Pub/Sub topic used for cross-process
// task change events
type Client struct {
	client    *pubsub.Client
	topicName string
	subName   string
}

func NewClient(ctx context.Context, projectID, topicName, subName, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Client{
		client:    client,
		topicName: topicName,
		subName:   subName,
	}, nil
}

// Publish sends a message on the topic, creating the topic if it does not exist
func (c *Client) Publish(ctx context.Context, data []byte) error {
	topic, err := c.ensureTopic(ctx)
	if err != nil {
		return err
	}

	result := topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Receive ensures the subscription exists and blocks delivering messages to
// the handler until the context is cancelled
func (c *Client) Receive(ctx context.Context, handler func(ctx context.Context, data []byte)) error {
	log.Printf("[PubSub] Starting receiver with topic: %s, subscription: %s", c.topicName, c.subName)

	sub := c.client.Subscription(c.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check subscription existence: %w", err)
	}

	if !exists {
		topic, err := c.ensureTopic(ctx)
		if err != nil {
			return err
		}

		sub, err = c.client.CreateSubscription(ctx, c.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		log.Printf("[PubSub] Created subscription: %s", c.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", c.subName)
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		handler(ctx, msg.Data)
		msg.Ack()
	})
}

func (c *Client) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	topic := c.client.Topic(c.topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check topic existence: %w", err)
	}
	if !exists {
		topic, err = c.client.CreateTopic(ctx, c.topicName)
		if err != nil {
			return nil, fmt.Errorf("failed to create topic: %w", err)
		}
		log.Printf("[PubSub] Created topic: %s", c.topicName)
	}
	return topic, nil
}

// Close releases the underlying client
func (c *Client) Close() error {
	return c.client.Close()
}
