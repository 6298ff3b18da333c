package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

// PageHandler processes one page-ready notice, fetching and committing
// the corresponding level range. Returning an error causes the message
// to be redelivered.
type PageHandler func(ctx context.Context, n PageNotice) error

// Consumer drains page-ready notices from a Redis stream consumer group
// and dispatches them to a PageHandler, matching internal/worker's
// router-over-redisstream shape.
type Consumer struct {
	router        *message.Router
	redisClient   redis.UniversalClient
	topic         string
	consumerGroup string
}

// NewConsumer builds a Consumer that calls handle for every notice
// delivered on topic, as part of consumerGroup.
func NewConsumer(redisClient redis.UniversalClient, topic, consumerGroup string, handle PageHandler) (*Consumer, error) {
	logger := watermill.NewSlogLogger(nil)

	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        redisClient,
		ConsumerGroup: consumerGroup,
	}, logger)
	if err != nil {
		return nil, err
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	c := &Consumer{router: router, redisClient: redisClient, topic: topic, consumerGroup: consumerGroup}

	router.AddNoPublisherHandler("process-page", topic, sub, func(msg *message.Message) error {
		notice, err := decodeNotice(msg.Payload)
		if err != nil {
			slog.Warn("queue: dropping malformed notice", "msg_uuid", msg.UUID, "err", err)
			return nil // ack malformed messages, they can never succeed
		}

		start := time.Now()
		if err := handle(context.Background(), notice); err != nil {
			slog.Error("queue: handler failed, will redeliver",
				"platform", notice.Platform, "network", notice.Network,
				"from", notice.From, "to", notice.To, "err", err)
			time.Sleep(5 * time.Second)
			return err
		}

		slog.Info("queue: page processed",
			"platform", notice.Platform, "network", notice.Network,
			"from", notice.From, "to", notice.To, "duration_ms", time.Since(start).Milliseconds())
		return nil
	})

	return c, nil
}

// Run blocks until ctx is cancelled, dispatching delivered notices.
func (c *Consumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Close releases the consumer's router and subscriber.
func (c *Consumer) Close() error {
	return c.router.Close()
}
