// Package queue fans page-ready notifications out over
// Redis Streams via watermill-redisstream, the same publish/consume shape
// the teacher uses to hand block heights from a WebSocket listener to a
// pool of indexing workers.
package queue

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

// PageNotice identifies one fetched, not-yet-processed level range on a
// platform/network pair.
type PageNotice struct {
	Platform string
	Network  string
	From     uint64
	To       uint64
}

// Publisher publishes page-ready notices to a Redis stream.
type Publisher struct {
	pub         message.Publisher
	redisClient redis.UniversalClient
	topic       string
}

// New creates a Publisher bound to topic.
func New(redisClient redis.UniversalClient, topic string) (*Publisher, error) {
	logger := watermill.NewSlogLogger(nil)

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, logger)
	if err != nil {
		return nil, fmt.Errorf("queue: new publisher: %w", err)
	}

	return &Publisher{pub: pub, redisClient: redisClient, topic: topic}, nil
}

// PublishPage publishes a page-ready notice for workers to pick up.
func (p *Publisher) PublishPage(ctx context.Context, n PageNotice) error {
	payload := encodeNotice(n)
	msg := message.NewMessage(watermill.NewUUID(), payload)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		slog.Error("queue: publish failed", "platform", n.Platform, "network", n.Network, "from", n.From, "to", n.To, "err", err)
		return err
	}
	slog.Debug("queue: published page", "platform", n.Platform, "network", n.Network, "from", n.From, "to", n.To)
	return nil
}

// QueueLength returns the number of pending messages in the stream.
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.redisClient.XLen(ctx, p.topic).Result()
}

// Close releases the underlying publisher.
func (p *Publisher) Close() error {
	return p.pub.Close()
}

func encodeNotice(n PageNotice) []byte {
	platform := []byte(n.Platform)
	network := []byte(n.Network)

	buf := make([]byte, 2+len(platform)+2+len(network)+16)
	off := 0
	buf[off] = byte(len(platform))
	off++
	copy(buf[off:], platform)
	off += len(platform)
	buf[off] = byte(len(network))
	off++
	copy(buf[off:], network)
	off += len(network)
	binary.BigEndian.PutUint64(buf[off:], n.From)
	off += 8
	binary.BigEndian.PutUint64(buf[off:], n.To)
	return buf
}

func decodeNotice(payload []byte) (PageNotice, error) {
	if len(payload) < 2 {
		return PageNotice{}, fmt.Errorf("queue: payload too short")
	}
	off := 0
	pLen := int(payload[off])
	off++
	if off+pLen > len(payload) {
		return PageNotice{}, fmt.Errorf("queue: malformed platform field")
	}
	platform := string(payload[off : off+pLen])
	off += pLen

	if off >= len(payload) {
		return PageNotice{}, fmt.Errorf("queue: payload too short")
	}
	nLen := int(payload[off])
	off++
	if off+nLen+16 > len(payload) {
		return PageNotice{}, fmt.Errorf("queue: malformed network field")
	}
	network := string(payload[off : off+nLen])
	off += nLen

	from := binary.BigEndian.Uint64(payload[off:])
	off += 8
	to := binary.BigEndian.Uint64(payload[off:])

	return PageNotice{Platform: platform, Network: network, From: from, To: to}, nil
}
