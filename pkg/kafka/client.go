package kafka

import (
	"context"
	"sync"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"bounty-uploader/pkg/config"
	"bounty-uploader/pkg/logger"
)

// Client 共享的 Kafka 生产者，按 topic 复用 Writer
type Client struct {
	brokers  []string
	clientID string
	writers  sync.Map // topic -> *kafka.Writer
}

var (
	once      sync.Once
	singleton *Client
)

func DefaultClient() *Client {
	once.Do(func() {
		singleton = &Client{}
	})
	return singleton
}

// New builds a client from explicit configuration.
func New(cfg config.KafkaConfig) *Client {
	c := &Client{}
	c.open(cfg)
	return c
}

func (c *Client) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before Kafka client")
	}
	c.open(cfg.Kafka)
}

func (c *Client) open(cfg config.KafkaConfig) {
	c.brokers = cfg.BootstrapServers
	c.clientID = cfg.ClientID
	logger.Infof("Kafka client opened brokers=%v client_id=%s", c.brokers, c.clientID)
}

// Opened reports whether brokers are configured.
func (c *Client) Opened() bool {
	return len(c.brokers) > 0
}

func (c *Client) Close() {
	c.writers.Range(func(key, value interface{}) bool {
		if w, ok := value.(*kafka.Writer); ok {
			_ = w.Close()
		}
		c.writers.Delete(key)
		return true
	})
}

func (c *Client) Writer(topic string) *kafka.Writer {
	if v, ok := c.writers.Load(topic); ok {
		return v.(*kafka.Writer)
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
		Transport:              &kafka.Transport{ClientID: c.clientID},
	}
	actual, loaded := c.writers.LoadOrStore(topic, w)
	if loaded {
		_ = w.Close()
	}
	return actual.(*kafka.Writer)
}

// Produce 同 key 的消息落在同一分区，保证同一文件事件有序
func (c *Client) Produce(ctx context.Context, topic string, key, value []byte) error {
	w := c.Writer(topic)
	msg := kafka.Message{Key: key, Value: value, Time: time.Now()}
	return w.WriteMessages(ctx, msg)
}
