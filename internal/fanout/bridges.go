package fanout

import (
	"context"
	"encoding/json"
	"live-auctions/utils"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// Multi publishes every message to each of its publishers in order
type Multi []Publisher

// Publish implements Publisher
func (m Multi) Publish(msg Message) {
	for _, p := range m {
		p.Publish(msg)
	}
}

const redisPublishTimeout = 2 * time.Second

// RedisPublisher relays messages to Redis pub/sub channels named
// "<prefix>:<topic>". Messages are queued and sent from a single goroutine,
// so Publish never waits on the network; a full queue drops the message.
type RedisPublisher struct {
	rdb    redis.UniversalClient
	prefix string

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	done   chan struct{}
}

// NewRedisPublisher starts the relay goroutine
func NewRedisPublisher(rdb redis.UniversalClient, prefix string, queueSize int) *RedisPublisher {
	if queueSize <= 0 {
		queueSize = 256
	}
	p := &RedisPublisher{
		rdb:    rdb,
		prefix: prefix,
		queue:  make(chan Message, queueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Channel returns the Redis channel name used for topic
func (p *RedisPublisher) Channel(topic string) string {
	return p.prefix + ":" + topic
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(msg Message) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- msg:
	default:
		utils.Warn("Redis relay queue full, dropping event", map[string]any{
			"topic": msg.Topic,
			"type":  msg.Type,
		})
	}
}

// Close drains the queue and stops the relay goroutine
func (p *RedisPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	<-p.done
}

func (p *RedisPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		body, err := json.Marshal(msg)
		if err != nil {
			utils.Error("Failed to encode event for Redis", map[string]any{"topic": msg.Topic, "error": err.Error()})
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
		err = p.rdb.Publish(ctx, p.Channel(msg.Topic), body).Err()
		cancel()
		if err != nil {
			utils.Warn("Failed to relay event to Redis", map[string]any{
				"topic": msg.Topic,
				"type":  msg.Type,
				"error": err.Error(),
			})
		}
	}
}

// KafkaPublisher appends every event to a Kafka topic, keyed by fanout topic
// so one auction's events stay on one partition in publish order.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher creates an async writer; delivery errors are logged from
// the writer's completion callback.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					utils.Warn("Failed to deliver events to Kafka", map[string]any{
						"count": len(messages),
						"error": err.Error(),
					})
				}
			},
		},
	}
}

// Publish implements Publisher
func (p *KafkaPublisher) Publish(msg Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		utils.Error("Failed to encode event for Kafka", map[string]any{"topic": msg.Topic, "error": err.Error()})
		return
	}
	// async writers return immediately; errors here mean the writer is closed
	if err := p.w.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(msg.Topic),
		Value: body,
		Time:  time.Now().UTC(),
	}); err != nil {
		utils.Warn("Failed to queue event for Kafka", map[string]any{"topic": msg.Topic, "error": err.Error()})
	}
}

// Close flushes pending messages and releases the writer
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
