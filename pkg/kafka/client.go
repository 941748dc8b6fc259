// Package kafka moves ingestion tasks through a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"copro-smart-go/internal/config"
	"copro-smart-go/pkg/log"
	"copro-smart-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts is how many times a task is processed before its offset is
// committed anyway.
const maxAttempts = 3

// TaskProcessor processes one ingestion task.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestionTask) error
}

// Producer publishes ingestion tasks.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a producer for cfg.Topic.
func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// Publish sends task keyed by its document id.
func (p *Producer) Publish(ctx context.Context, task tasks.IngestionTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(task.DocID), Value: taskBytes})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer feeds tasks from the topic to a TaskProcessor.
type Consumer struct {
	reader    *kafka.Reader
	processor TaskProcessor
	attempts  *attemptCounter
}

// NewConsumer creates a consumer in group cfg.GroupID. Failed attempts are
// counted in Redis so retries survive restarts.
func NewConsumer(cfg config.KafkaConfig, rdb *redis.Client, processor TaskProcessor) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  strings.Split(cfg.Brokers, ","),
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		}),
		processor: processor,
		attempts:  &attemptCounter{rdb: rdb},
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	log.Infof("[Kafka] consumer started on topic '%s'", c.reader.Config().Topic)
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("[Kafka] failed to close consumer: %v", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("[Kafka] consumer stopped")
				return
			}
			log.Error("[Kafka] failed to fetch message", err)
			return
		}

		if c.handle(ctx, m.Value) {
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				log.Errorf("[Kafka] failed to commit offset %d: %v", m.Offset, err)
			}
		}
	}
}

// handle processes one message and reports whether its offset should be committed.
func (c *Consumer) handle(ctx context.Context, value []byte) bool {
	var task tasks.IngestionTask
	if err := json.Unmarshal(value, &task); err != nil {
		log.Errorf("[Kafka] dropping malformed message: %v, value: %s", err, string(value))
		return true
	}

	log.Infof("[Kafka] processing task docId=%s fileName=%s", task.DocID, task.FileName)
	if err := c.processor.Process(ctx, task); err != nil {
		log.Errorf("[Kafka] task failed docId=%s: %v", task.DocID, err)
		attempts, incErr := c.attempts.incr(ctx, task.DocID)
		if incErr != nil {
			// Without a counter we let Kafka redeliver.
			return false
		}
		if attempts >= maxAttempts {
			log.Errorf("[Kafka] task failed %d times, giving up docId=%s", attempts, task.DocID)
			return true
		}
		return false
	}

	c.attempts.reset(ctx, task.DocID)
	log.Infof("[Kafka] task done docId=%s", task.DocID)
	return true
}

type attemptCounter struct {
	rdb *redis.Client
}

func attemptsKey(docID string) string {
	return fmt.Sprintf("kafka:attempts:%s", docID)
}

func (a *attemptCounter) incr(ctx context.Context, docID string) (int64, error) {
	n, err := a.rdb.Incr(ctx, attemptsKey(docID)).Result()
	if err != nil {
		return 0, err
	}
	_ = a.rdb.Expire(ctx, attemptsKey(docID), 24*time.Hour).Err()
	return n, nil
}

func (a *attemptCounter) reset(ctx context.Context, docID string) {
	_ = a.rdb.Del(ctx, attemptsKey(docID)).Err()
}
