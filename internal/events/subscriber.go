// Package events listens for document notifications published on Redis.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/flexsearch/indexer/internal/util"
)

// HardDeleted is published when a document is removed for good upstream.
type HardDeleted struct {
	DocumentID   string `json:"documentId"`
	DocumentType string `json:"documentType"`
}

// Unindexer removes one document from the index.
type Unindexer interface {
	Unindex(ctx context.Context, docType, id string) error
}

type Subscriber struct {
	client  *redis.Client
	channel string
	target  Unindexer
	logger  *util.Logger
}

func NewSubscriber(client *redis.Client, channel string, target Unindexer, logger *util.Logger) *Subscriber {
	return &Subscriber{
		client:  client,
		channel: channel,
		target:  target,
		logger:  logger,
	}
}

// Run consumes the channel until ctx is done. A message that cannot be
// handled is logged and skipped.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.logger.Infow("Subscribed to document events", "channel", s.channel)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("Document event subscription stopped", "channel", s.channel)
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := s.handleMessage(ctx, msg.Payload); err != nil {
				s.logger.Errorw("Failed to handle document event",
					"channel", s.channel,
					"payload", msg.Payload,
					"error", err,
				)
			}
		}
	}
}

func (s *Subscriber) handleMessage(ctx context.Context, payload string) error {
	var evt HardDeleted
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if evt.DocumentID == "" {
		return fmt.Errorf("event without documentId")
	}

	if err := s.target.Unindex(ctx, evt.DocumentType, evt.DocumentID); err != nil {
		return fmt.Errorf("unindex %s/%s: %w", evt.DocumentType, evt.DocumentID, err)
	}
	s.logger.Debugw("Document unindexed", "type", evt.DocumentType, "id", evt.DocumentID)
	return nil
}

// Publish sends evt on channel.
func Publish(ctx context.Context, client *redis.Client, channel string, evt HardDeleted) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return client.Publish(ctx, channel, payload).Err()
}
