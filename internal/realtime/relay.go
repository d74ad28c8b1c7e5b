package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-connect-api/pkg/jobs"
)

// Relay carries events between API instances.
type Relay interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context, handle func([]byte)) error
	Close() error
}

// RedisRelay uses redis pub/sub on a single channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
	sub     *redis.PubSub
}

func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	return &RedisRelay{client: client, channel: channel}
}

func (r *RedisRelay) Publish(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, r.channel, payload).Err()
}

func (r *RedisRelay) Subscribe(ctx context.Context, handle func([]byte)) error {
	r.sub = r.client.Subscribe(ctx, r.channel)
	if _, err := r.sub.Receive(ctx); err != nil {
		_ = r.sub.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	ch := r.sub.Channel()
	go func() {
		for msg := range ch {
			handle([]byte(msg.Payload))
		}
	}()
	return nil
}

func (r *RedisRelay) Close() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Close()
}

// NATSRelay uses a core NATS subject.
type NATSRelay struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
}

// NewNATSRelay connects to url.
func NewNATSRelay(url, subject string) (*NATSRelay, error) {
	nc, err := nats.Connect(url, nats.Name("alumni-connect-realtime"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSRelay{conn: nc, subject: subject}, nil
}

func (r *NATSRelay) Publish(_ context.Context, payload []byte) error {
	return r.conn.Publish(r.subject, payload)
}

func (r *NATSRelay) Subscribe(_ context.Context, handle func([]byte)) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		handle(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.subject, err)
	}
	r.sub = sub
	return nil
}

func (r *NATSRelay) Close() error {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	return r.conn.Drain()
}

// relayEnvelope is the wire form of an event between instances.
type relayEnvelope struct {
	Node        string          `json:"node"`
	Name        string          `json:"event"`
	Data        json.RawMessage `json:"data"`
	Entity      string          `json:"entity,omitempty"`
	DocID       string          `json:"docId,omitempty"`
	Version     int64           `json:"version,omitempty"`
	Op          Operation       `json:"op,omitempty"`
	Rooms       []string        `json:"rooms,omitempty"`
	ExcludeUser string          `json:"excludeUser,omitempty"`
}

// BridgeConfig tunes the publish side of a Bridge.
type BridgeConfig struct {
	Workers    int
	MaxRetries int
	Logger     *zap.Logger
}

// Bridge forwards locally published events to a Relay and delivers events
// from other instances to the local hub. Publishing runs on a job queue
// behind a circuit breaker so a failing relay never blocks requests.
type Bridge struct {
	node    string
	hub     *Hub
	relay   Relay
	queue   *jobs.Queue
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewBridge(hub *Hub, relay Relay, cfg BridgeConfig) *Bridge {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = -1
	}
	b := &Bridge{
		node:   uuid.NewString(),
		hub:    hub,
		relay:  relay,
		logger: cfg.Logger,
	}
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "realtime-relay",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			cfg.Logger.Warn("circuit breaker state changed", zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	b.queue = jobs.NewQueue("realtime-relay", b.publishJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: maxRetries,
		RetryDelay: 500 * time.Millisecond,
		Logger:     cfg.Logger,
	})
	return b
}

// Node identifies this instance on the relay.
func (b *Bridge) Node() string {
	return b.node
}

// Start subscribes to the relay and hooks the bridge into the hub.
func (b *Bridge) Start(ctx context.Context) error {
	b.queue.Start(ctx)
	if err := b.relay.Subscribe(ctx, b.receive); err != nil {
		b.queue.Stop()
		return err
	}
	b.hub.SetForwarder(b.forward)
	b.logger.Info("realtime relay started", zap.String("node", b.node))
	return nil
}

func (b *Bridge) Close() error {
	b.hub.SetForwarder(func(Event) {})
	b.queue.Stop()
	return b.relay.Close()
}

func (b *Bridge) forward(evt Event) {
	// Every node watches the store itself, so change stream events stay local.
	if evt.Source == SourceRelay || evt.Source == SourceChangeStream {
		return
	}
	payload, err := b.encode(evt)
	if err != nil {
		b.logger.Warn("encode relay event", zap.String("event", evt.Name), zap.Error(err))
		return
	}
	if err := b.queue.TryEnqueue(jobs.Job{Type: evt.Name, Payload: payload}); err != nil {
		b.logger.Warn("relay queue rejected event", zap.String("event", evt.Name), zap.Error(err))
	}
}

func (b *Bridge) publishJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.([]byte)
	if !ok {
		return nil
	}
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.relay.Publish(ctx, payload)
	})
	return err
}

func (b *Bridge) encode(evt Event) ([]byte, error) {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(relayEnvelope{
		Node:        b.node,
		Name:        evt.Name,
		Data:        data,
		Entity:      evt.Entity,
		DocID:       evt.DocID,
		Version:     evt.Version,
		Op:          evt.Op,
		Rooms:       evt.Rooms,
		ExcludeUser: evt.ExcludeUser,
	})
}

func (b *Bridge) receive(payload []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		b.logger.Warn("decode relay event", zap.Error(err))
		return
	}
	if env.Node == b.node {
		return
	}
	b.hub.Deliver(Event{
		Name:        env.Name,
		Data:        env.Data,
		Entity:      env.Entity,
		DocID:       env.DocID,
		Version:     env.Version,
		Op:          env.Op,
		Rooms:       env.Rooms,
		ExcludeUser: env.ExcludeUser,
		Source:      SourceRelay,
	})
}
